package redis

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// tracingHook 每条命令一个 span，只记录命令名与键，不记录值
type tracingHook struct {
	tracer trace.Tracer
	attrs  []attribute.KeyValue
}

var _ redis.Hook = (*tracingHook)(nil)

func newTracingHook(db int) *tracingHook {
	return &tracingHook{
		tracer: otel.Tracer("tripguard.redis"),
		attrs:  []attribute.KeyValue{semconv.DBSystemRedis, semconv.DBRedisDBIndex(db)},
	}
}

func (h *tracingHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (h *tracingHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		ctx, span := h.tracer.Start(ctx, cmd.Name(),
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(h.attrs...),
		)
		defer span.End()

		span.SetAttributes(semconv.DBOperation(cmd.Name()))
		if key := commandKey(cmd.Args()); key != "" {
			span.SetAttributes(attribute.String("db.redis.key", key))
		}

		err := next(ctx, cmd)
		endSpan(span, err)
		return err
	}
}

func (h *tracingHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		ctx, span := h.tracer.Start(ctx, "pipeline",
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(h.attrs...),
			trace.WithAttributes(attribute.Int("db.redis.pipeline_length", len(cmds))),
		)
		defer span.End()

		err := next(ctx, cmds)
		endSpan(span, err)
		return err
	}
}

func endSpan(span trace.Span, err error) {
	switch {
	case err == nil:
		span.SetStatus(codes.Ok, "")
	case errors.Is(err, redis.Nil):
		span.SetStatus(codes.Ok, "key not found")
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// commandKey 第二个参数通常是键
func commandKey(args []interface{}) string {
	if len(args) < 2 {
		return ""
	}
	key, _ := args[1].(string)
	return key
}
