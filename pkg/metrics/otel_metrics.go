package metrics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Recorder 遗忘行程检测与离线队列的指标集合
// 所有方法在接收者为 nil 时不做任何事，测试无需初始化 provider
type Recorder struct {
	SamplesProcessed metric.Int64Counter
	SampleFailures   metric.Int64Counter
	AlertsFired      metric.Int64Counter
	GeocodeFailures  metric.Int64Counter

	QueueEnqueued      metric.Int64Counter
	QueueSynced        metric.Int64Counter
	QueueFailed        metric.Int64Counter
	QueueSkipped       metric.Int64Counter
	QueueSyncDuration  metric.Float64Histogram
	DispatchPlansBuilt metric.Int64Counter
}

var recorder *Recorder

// InitMetrics 使用全局 MeterProvider 初始化指标
func InitMetrics() error {
	r, err := NewRecorder(otel.Meter("tripguard"))
	if err != nil {
		return err
	}
	recorder = r
	return nil
}

// GetMetrics 获取全局指标实例，未初始化时为 nil
func GetMetrics() *Recorder {
	return recorder
}

func NewRecorder(meter metric.Meter) (*Recorder, error) {
	var err error
	r := &Recorder{}

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
		unit string
	}{
		{&r.SamplesProcessed, "forgotten_trip_samples_total", "Location samples processed by the detector", "{sample}"},
		{&r.SampleFailures, "forgotten_trip_sample_failures_total", "Location samples whose processing failed", "{sample}"},
		{&r.AlertsFired, "forgotten_trip_alerts_total", "Forgotten trip alerts fired", "{alert}"},
		{&r.GeocodeFailures, "geocode_failures_total", "Favorite addresses dropped because geocoding failed", "{address}"},
		{&r.QueueEnqueued, "trip_queue_enqueued_total", "Trip launches queued while offline", "{item}"},
		{&r.QueueSynced, "trip_queue_synced_total", "Queued trip launches created remotely", "{item}"},
		{&r.QueueFailed, "trip_queue_failed_total", "Queued trip launch creation attempts that failed", "{item}"},
		{&r.QueueSkipped, "trip_queue_sync_skipped_total", "Sync passes skipped because the network was not ready", "{pass}"},
		{&r.DispatchPlansBuilt, "dispatch_plans_total", "Notification dispatch plans built", "{plan}"},
	}
	for _, c := range counters {
		*c.dst, err = meter.Int64Counter(c.name, metric.WithDescription(c.desc), metric.WithUnit(c.unit))
		if err != nil {
			return nil, err
		}
	}

	r.QueueSyncDuration, err = meter.Float64Histogram(
		"trip_queue_sync_duration_seconds",
		metric.WithDescription("Time spent in one queue sync pass"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return r, nil
}

// RecordSample 记录一次定位采样的处理结果
func (r *Recorder) RecordSample(ctx context.Context, failed bool) {
	if r == nil {
		return
	}
	r.SamplesProcessed.Add(ctx, 1)
	if failed {
		r.SampleFailures.Add(ctx, 1)
	}
}

// RecordAlert 记录一次遗忘行程提醒
func (r *Recorder) RecordAlert(ctx context.Context, placeType string) {
	if r == nil {
		return
	}
	r.AlertsFired.Add(ctx, 1, metric.WithAttributes(attribute.String("place_type", placeType)))
}

func (r *Recorder) RecordGeocodeFailure(ctx context.Context) {
	if r == nil {
		return
	}
	r.GeocodeFailures.Add(ctx, 1)
}

func (r *Recorder) RecordEnqueue(ctx context.Context) {
	if r == nil {
		return
	}
	r.QueueEnqueued.Add(ctx, 1)
}

// RecordSync 记录一次同步，skipped 表示网络未就绪
func (r *Recorder) RecordSync(ctx context.Context, synced, failed int, skipped bool, seconds float64) {
	if r == nil {
		return
	}
	if skipped {
		r.QueueSkipped.Add(ctx, 1)
		return
	}
	r.QueueSynced.Add(ctx, int64(synced))
	r.QueueFailed.Add(ctx, int64(failed))
	r.QueueSyncDuration.Record(ctx, seconds)
}

func (r *Recorder) RecordDispatchPlan(ctx context.Context, mode string, issues int) {
	if r == nil {
		return
	}
	r.DispatchPlansBuilt.Add(ctx, 1, metric.WithAttributes(
		attribute.String("mode", mode),
		attribute.Bool("has_issues", issues > 0),
	))
}
