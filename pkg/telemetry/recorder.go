package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

const recorderTracer = "dex_trader/indexer"

// SendAndRecord runs fn inside a span and records its latency and outcome under bucket.
// Instruments that are not initialized are skipped.
func SendAndRecord[T any](ctx context.Context, bucket string, fn func(context.Context) (T, error)) (T, error) {
	ctx, span := GetTracer(recorderTracer).Start(ctx, bucket)
	defer span.End()

	start := time.Now()
	result, err := fn(ctx)
	elapsed := float64(time.Since(start).Microseconds()) / 1000.0

	m := GetGlobalMetrics()
	attrs := metric.WithAttributes(attribute.String("bucket", bucket))
	if m.IndexerLatency != nil {
		m.IndexerLatency.Record(ctx, elapsed, attrs)
	}
	if m.IndexerRequests != nil {
		m.IndexerRequests.Add(ctx, 1, attrs)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if m.IndexerErrors != nil {
			m.IndexerErrors.Add(ctx, 1, attrs)
		}
	}

	return result, err
}
