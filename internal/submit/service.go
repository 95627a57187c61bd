// Package submit accepts validated tickets and records them for the
// downstream order-placement collaborator
package submit

import (
	"context"
	"encoding/json"
	"fmt"
	"ticket_desk/internal/core"
	"ticket_desk/internal/ticket"
	"ticket_desk/pkg/telemetry"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Outcome is the result of submitting a ticket draft
type Outcome struct {
	Result      ticket.Result       `json:"result"`
	Receipt     *core.TicketReceipt `json:"receipt,omitempty"`
	MarketPrice decimal.Decimal     `json:"market_price"`
}

// Service validates drafts against the live market price and journals
// accepted tickets
type Service struct {
	feed      core.IPriceFeed
	journal   core.ITicketJournal
	submitter core.ISubmitter
	logger    core.ILogger

	pipeline failsafe.Executor[any]

	tracer trace.Tracer
}

// NewService creates a submission service. Journal writes are wrapped in a
// retry policy and circuit breaker.
func NewService(feed core.IPriceFeed, journal core.ITicketJournal, logger core.ILogger) *Service {
	retryPolicy := retrypolicy.NewBuilder[any]().
		WithBackoff(50*time.Millisecond, time.Second).
		WithMaxRetries(3).
		Build()

	breaker := circuitbreaker.NewBuilder[any]().
		WithFailureThresholdRatio(5, 10).
		WithDelay(5 * time.Second).
		Build()

	return &Service{
		feed:     feed,
		journal:  journal,
		logger:   logger.WithField("component", "submit_service"),
		pipeline: failsafe.With[any](retryPolicy, breaker),
		tracer:   telemetry.GetTracer("submit-service"),
	}
}

// SetSubmitter attaches the order-placement collaborator. Without one,
// accepted tickets are journaled only.
func (s *Service) SetSubmitter(sub core.ISubmitter) {
	s.submitter = sub
}

// marketPrice resolves the symbol's latest price; absence degrades to zero so
// validation still returns field errors instead of failing.
func (s *Service) marketPrice(symbol string) decimal.Decimal {
	price, err := s.feed.GetLatestPrice(symbol)
	if err != nil {
		s.logger.Warn("No market price for symbol", "symbol", symbol, "error", err)
		return decimal.Zero
	}
	return price
}

// Estimate computes the display total for the draft at the symbol's latest price
func (s *Service) Estimate(ctx context.Context, symbol string, draft ticket.Draft) string {
	metrics := telemetry.GetGlobalMetrics()
	if metrics.EstimateRequestsTotal != nil {
		metrics.EstimateRequestsTotal.Add(ctx, 1)
	}
	return ticket.EstimateTotal(draft.OrderType, draft.Price, draft.Amount, s.marketPrice(symbol))
}

// Validate runs a dry-run validation of the draft at the symbol's latest
// price, for the form's live validation mode. Nothing is journaled.
func (s *Service) Validate(ctx context.Context, symbol string, draft ticket.Draft) *Outcome {
	price := s.marketPrice(symbol)
	return &Outcome{Result: ticket.Validate(draft, price), MarketPrice: price}
}

// Submit validates the draft and, when accepted, journals a receipt for the
// order-placement collaborator. A draft rejected with field errors is a
// normal outcome, not an error.
func (s *Service) Submit(ctx context.Context, symbol string, draft ticket.Draft) (*Outcome, error) {
	ctx, span := s.tracer.Start(ctx, "Submit",
		trace.WithAttributes(
			attribute.String("symbol", symbol),
			attribute.String("side", string(draft.Side)),
			attribute.String("order_type", string(draft.OrderType)),
		),
	)
	defer span.End()

	price := s.marketPrice(symbol)

	start := time.Now()
	result := ticket.Validate(draft, price)
	elapsed := time.Since(start)

	metrics := telemetry.GetGlobalMetrics()
	if metrics.ValidateLatency != nil {
		metrics.ValidateLatency.Record(ctx, float64(elapsed.Microseconds())/1000.0)
	}

	outcome := &Outcome{Result: result, MarketPrice: price}

	if !result.IsValid() {
		if metrics.TicketsRejectedTotal != nil {
			metrics.TicketsRejectedTotal.Add(ctx, 1, metric.WithAttributes(
				attribute.String("order_type", string(draft.OrderType)),
			))
		}
		s.logger.Debug("Ticket rejected",
			"symbol", symbol,
			"order_type", draft.OrderType,
			"fields", len(result.Errors))
		return outcome, nil
	}

	if metrics.TicketsValidatedTotal != nil {
		metrics.TicketsValidatedTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("order_type", string(draft.OrderType)),
		))
	}

	receipt := &core.TicketReceipt{
		TicketID:   uuid.New().String(),
		Symbol:     symbol,
		AcceptedAt: time.Now(),
	}

	payload, err := json.Marshal(result.Ticket)
	if err != nil {
		return nil, fmt.Errorf("failed to encode ticket: %w", err)
	}

	err = s.pipeline.Run(func() error {
		return s.journal.Append(ctx, receipt, payload)
	})
	if err != nil {
		s.logger.Error("Failed to journal accepted ticket",
			"ticket_id", receipt.TicketID,
			"symbol", symbol,
			"error", err)
		return nil, fmt.Errorf("failed to journal ticket: %w", err)
	}

	if s.submitter != nil {
		// Placement failures do not undo acceptance; the journal is the
		// system of record.
		if err := s.submitter.Forward(ctx, receipt, payload); err != nil {
			s.logger.Warn("Order gateway rejected forwarded ticket",
				"ticket_id", receipt.TicketID,
				"error", err)
		}
	}

	if metrics.TicketsAcceptedTotal != nil {
		metrics.TicketsAcceptedTotal.Add(ctx, 1)
	}
	if n, err := s.journal.Count(ctx); err == nil {
		metrics.SetJournalSize(n)
	}

	s.logger.Info("Ticket accepted",
		"ticket_id", receipt.TicketID,
		"symbol", symbol,
		"side", result.Ticket.Side,
		"order_type", result.Ticket.OrderType)

	outcome.Receipt = receipt
	return outcome, nil
}
