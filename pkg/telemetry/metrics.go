package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric names
const (
	MetricIndexerLatency  = "dex_trader_indexer_latency_ms"
	MetricIndexerRequests = "dex_trader_indexer_requests_total"
	MetricIndexerErrors   = "dex_trader_indexer_errors_total"
	MetricStreamsActive   = "dex_trader_streams_active"
	MetricEstimatorCalls  = "dex_trader_estimator_calls_total"
	MetricHubClients      = "dex_trader_hub_clients"
	MetricGasPrice        = "dex_trader_gas_price"
)

// MetricsHolder holds initialized instruments
type MetricsHolder struct {
	IndexerLatency  metric.Float64Histogram
	IndexerRequests metric.Int64Counter
	IndexerErrors   metric.Int64Counter
	EstimatorCalls  metric.Int64Counter
	StreamsActive   metric.Int64ObservableGauge
	HubClients      metric.Int64ObservableGauge
	GasPrice        metric.Float64ObservableGauge

	// State for observable gauges
	mu            sync.RWMutex
	activeStreams map[string]int64
	hubClients    int64
	gasPrice      float64
}

var (
	globalMetrics *MetricsHolder
	initOnce      sync.Once
)

// GetGlobalMetrics returns the singleton metrics holder
func GetGlobalMetrics() *MetricsHolder {
	initOnce.Do(func() {
		globalMetrics = &MetricsHolder{
			activeStreams: make(map[string]int64),
		}
	})
	return globalMetrics
}

// InitMetrics initializes instruments using the meter
func (m *MetricsHolder) InitMetrics(meter metric.Meter) error {
	var err error

	m.IndexerLatency, err = meter.Float64Histogram(MetricIndexerLatency, metric.WithDescription("Latency of indexer calls"), metric.WithUnit("ms"))
	if err != nil {
		return err
	}

	m.IndexerRequests, err = meter.Int64Counter(MetricIndexerRequests, metric.WithDescription("Total indexer calls"))
	if err != nil {
		return err
	}

	m.IndexerErrors, err = meter.Int64Counter(MetricIndexerErrors, metric.WithDescription("Indexer calls that returned an error"))
	if err != nil {
		return err
	}

	m.EstimatorCalls, err = meter.Int64Counter(MetricEstimatorCalls, metric.WithDescription("Execution estimator invocations"))
	if err != nil {
		return err
	}

	m.StreamsActive, err = meter.Int64ObservableGauge(MetricStreamsActive, metric.WithDescription("Indexer streams currently open"),
		metric.WithInt64Callback(func(ctx context.Context, obs metric.Int64Observer) error {
			m.mu.RLock()
			defer m.mu.RUnlock()
			for streamType, val := range m.activeStreams {
				obs.Observe(val, metric.WithAttributes(attribute.String("stream", streamType)))
			}
			return nil
		}))
	if err != nil {
		return err
	}

	m.HubClients, err = meter.Int64ObservableGauge(MetricHubClients, metric.WithDescription("Connected live update clients"),
		metric.WithInt64Callback(func(ctx context.Context, obs metric.Int64Observer) error {
			m.mu.RLock()
			defer m.mu.RUnlock()
			obs.Observe(m.hubClients)
			return nil
		}))
	if err != nil {
		return err
	}

	m.GasPrice, err = meter.Float64ObservableGauge(MetricGasPrice, metric.WithDescription("Last observed gas price"),
		metric.WithFloat64Callback(func(ctx context.Context, obs metric.Float64Observer) error {
			m.mu.RLock()
			defer m.mu.RUnlock()
			obs.Observe(m.gasPrice)
			return nil
		}))
	if err != nil {
		return err
	}

	return nil
}

// RecordEstimatorCall counts an estimator invocation of the given kind
func (m *MetricsHolder) RecordEstimatorCall(ctx context.Context, kind string) {
	if m.EstimatorCalls == nil {
		return
	}
	m.EstimatorCalls.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// Helpers to update observable state

func (m *MetricsHolder) SetActiveStreams(streamType string, count int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activeStreams[streamType] = count
}

func (m *MetricsHolder) SetHubClients(count int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hubClients = count
}

func (m *MetricsHolder) SetGasPrice(price float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gasPrice = price
}

func (m *MetricsHolder) GetActiveStreams() map[string]int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make(map[string]int64, len(m.activeStreams))
	for k, v := range m.activeStreams {
		res[k] = v
	}
	return res
}

func (m *MetricsHolder) GetHubClients() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hubClients
}
