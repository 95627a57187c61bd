package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/metric"
)

// Metric names
const (
	MetricTicketsValidatedTotal = "ticket_desk_tickets_validated_total"
	MetricTicketsRejectedTotal  = "ticket_desk_tickets_rejected_total"
	MetricTicketsAcceptedTotal  = "ticket_desk_tickets_accepted_total"
	MetricEstimateRequestsTotal = "ticket_desk_estimate_requests_total"
	MetricPriceTicksTotal       = "ticket_desk_price_ticks_total"
	MetricValidateLatency       = "ticket_desk_validate_duration_ms"
	MetricJournalSize           = "ticket_desk_journal_size"
)

// MetricsHolder holds initialized instruments
type MetricsHolder struct {
	TicketsValidatedTotal metric.Int64Counter
	TicketsRejectedTotal  metric.Int64Counter
	TicketsAcceptedTotal  metric.Int64Counter
	EstimateRequestsTotal metric.Int64Counter
	PriceTicksTotal       metric.Int64Counter
	ValidateLatency       metric.Float64Histogram
	JournalSize           metric.Int64ObservableGauge

	mu          sync.RWMutex
	journalSize int64
}

var (
	globalMetrics *MetricsHolder
	initOnce      sync.Once
)

// GetGlobalMetrics returns the singleton metrics holder
func GetGlobalMetrics() *MetricsHolder {
	initOnce.Do(func() {
		globalMetrics = &MetricsHolder{}
	})
	return globalMetrics
}

// InitMetrics initializes instruments using the meter
func (m *MetricsHolder) InitMetrics(meter metric.Meter) error {
	var err error

	m.TicketsValidatedTotal, err = meter.Int64Counter(MetricTicketsValidatedTotal,
		metric.WithDescription("Total ticket drafts that passed validation"))
	if err != nil {
		return err
	}

	m.TicketsRejectedTotal, err = meter.Int64Counter(MetricTicketsRejectedTotal,
		metric.WithDescription("Total ticket drafts rejected with field errors"))
	if err != nil {
		return err
	}

	m.TicketsAcceptedTotal, err = meter.Int64Counter(MetricTicketsAcceptedTotal,
		metric.WithDescription("Total validated tickets accepted by the submission layer"))
	if err != nil {
		return err
	}

	m.EstimateRequestsTotal, err = meter.Int64Counter(MetricEstimateRequestsTotal,
		metric.WithDescription("Total estimated-total computations served"))
	if err != nil {
		return err
	}

	m.PriceTicksTotal, err = meter.Int64Counter(MetricPriceTicksTotal,
		metric.WithDescription("Total price ticks emitted by the feed"))
	if err != nil {
		return err
	}

	m.ValidateLatency, err = meter.Float64Histogram(MetricValidateLatency,
		metric.WithDescription("Latency of ticket validation calls"), metric.WithUnit("ms"))
	if err != nil {
		return err
	}

	m.JournalSize, err = meter.Int64ObservableGauge(MetricJournalSize,
		metric.WithDescription("Current number of journaled tickets"),
		metric.WithInt64Callback(func(ctx context.Context, obs metric.Int64Observer) error {
			m.mu.RLock()
			defer m.mu.RUnlock()
			obs.Observe(m.journalSize)
			return nil
		}))
	if err != nil {
		return err
	}

	return nil
}

// SetJournalSize updates the journal size gauge value
func (m *MetricsHolder) SetJournalSize(n int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.journalSize = n
}
