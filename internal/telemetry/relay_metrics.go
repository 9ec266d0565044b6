package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Relay outcomes recorded on relay.requests.
const (
	OutcomeDispatched = "dispatched"
	OutcomeRejected   = "rejected"
	OutcomeBlocked    = "blocked"
	OutcomeFailed     = "failed"
)

// RelayMetrics holds the relay's business instruments.
type RelayMetrics struct {
	requests         metric.Int64Counter
	dispatchDuration metric.Float64Histogram
	blocklistUpdates metric.Int64Counter
	blocklistSize    metric.Int64Gauge
}

// NewRelayMetrics creates the relay instruments on meter.
func NewRelayMetrics(meter metric.Meter) (*RelayMetrics, error) {
	requests, err := meter.Int64Counter(
		"relay.requests",
		metric.WithDescription("Taxi requests by outcome"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	dispatchDuration, err := meter.Float64Histogram(
		"relay.dispatch.duration",
		metric.WithDescription("Time spent obtaining a token and sending to FCM"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, err
	}

	blocklistUpdates, err := meter.Int64Counter(
		"relay.blocklist.updates",
		metric.WithDescription("Block-list replacements"),
		metric.WithUnit("{update}"),
	)
	if err != nil {
		return nil, err
	}

	blocklistSize, err := meter.Int64Gauge(
		"relay.blocklist.size",
		metric.WithDescription("Entries on the block list after the last replacement"),
		metric.WithUnit("{device}"),
	)
	if err != nil {
		return nil, err
	}

	return &RelayMetrics{
		requests:         requests,
		dispatchDuration: dispatchDuration,
		blocklistUpdates: blocklistUpdates,
		blocklistSize:    blocklistSize,
	}, nil
}

// RecordOutcome counts one request. reason narrows rejected and failed outcomes.
func (m *RelayMetrics) RecordOutcome(ctx context.Context, outcome, reason string) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{attribute.String("outcome", outcome)}
	if reason != "" {
		attrs = append(attrs, attribute.String("reason", reason))
	}
	m.requests.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordDispatch records the duration of one dispatch.
func (m *RelayMetrics) RecordDispatch(ctx context.Context, d time.Duration, ok bool) {
	if m == nil {
		return
	}
	m.dispatchDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.Bool("success", ok)))
}

// RecordBlocklistUpdate records a replacement and the resulting size.
func (m *RelayMetrics) RecordBlocklistUpdate(ctx context.Context, size int) {
	if m == nil {
		return
	}
	m.blocklistUpdates.Add(ctx, 1)
	m.blocklistSize.Record(ctx, int64(size))
}
