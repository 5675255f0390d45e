package database

import (
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

const (
	spanKey      = "otel:span"
	startTimeKey = "otel:start_time"

	maxStatementLength = 500
)

// TracingPlugin 为行程会话的读写创建 span，并记录耗时
type TracingPlugin struct {
	tracer   trace.Tracer
	duration metric.Float64Histogram
}

// NewTracingPlugin 使用全局 TracerProvider 与 MeterProvider
func NewTracingPlugin() (*TracingPlugin, error) {
	duration, err := otel.Meter("tripguard.gorm").Float64Histogram(
		"db.query.duration",
		metric.WithDescription("Database query duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5),
	)
	if err != nil {
		return nil, err
	}
	return &TracingPlugin{
		tracer:   otel.Tracer("tripguard.gorm"),
		duration: duration,
	}, nil
}

func (p *TracingPlugin) Name() string {
	return "tripguard:tracing"
}

func (p *TracingPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()

	if err := cb.Create().Before("gorm:create").Register("otel:before_create", p.before("db.insert")); err != nil {
		return err
	}
	if err := cb.Create().After("gorm:create").Register("otel:after_create", p.after); err != nil {
		return err
	}
	if err := cb.Query().Before("gorm:query").Register("otel:before_query", p.before("db.select")); err != nil {
		return err
	}
	if err := cb.Query().After("gorm:query").Register("otel:after_query", p.after); err != nil {
		return err
	}
	if err := cb.Update().Before("gorm:update").Register("otel:before_update", p.before("db.update")); err != nil {
		return err
	}
	return cb.Update().After("gorm:update").Register("otel:after_update", p.after)
}

func (p *TracingPlugin) before(operation string) func(*gorm.DB) {
	return func(tx *gorm.DB) {
		attrs := []attribute.KeyValue{semconv.DBSystemPostgreSQL, semconv.DBOperation(operation)}
		if table := tx.Statement.Table; table != "" {
			attrs = append(attrs, semconv.DBSQLTable(table))
		}

		ctx, span := p.tracer.Start(tx.Statement.Context, operation,
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(attrs...),
		)
		tx.Statement.Context = ctx
		tx.InstanceSet(spanKey, span)
		tx.InstanceSet(startTimeKey, time.Now())
	}
}

func (p *TracingPlugin) after(tx *gorm.DB) {
	v, ok := tx.InstanceGet(spanKey)
	if !ok {
		return
	}
	span, ok := v.(trace.Span)
	if !ok {
		return
	}
	defer span.End()

	// 只记录带占位符的语句，不记录参数值
	span.SetAttributes(
		semconv.DBStatement(truncate(tx.Statement.SQL.String(), maxStatementLength)),
		attribute.Int64("db.rows_affected", tx.Statement.RowsAffected),
	)

	status := "success"
	switch {
	case tx.Error == nil:
		span.SetStatus(codes.Ok, "")
	case tx.Error == gorm.ErrRecordNotFound:
		span.SetStatus(codes.Ok, "record not found")
	default:
		status = "error"
		span.SetStatus(codes.Error, tx.Error.Error())
		span.RecordError(tx.Error)
	}

	if start, ok := tx.InstanceGet(startTimeKey); ok {
		if t, ok := start.(time.Time); ok {
			p.duration.Record(tx.Statement.Context, time.Since(t).Seconds(), metric.WithAttributes(
				attribute.String("db.table", tx.Statement.Table),
				attribute.String("db.status", status),
			))
		}
	}
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
