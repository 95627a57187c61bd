package submit

import (
	"context"
	"sync/atomic"
	"ticket_desk/internal/core"
)

// LogGateway is the stand-in order-placement collaborator: it logs each
// forwarded ticket and counts them. Real placement lives outside this system.
type LogGateway struct {
	logger    core.ILogger
	forwarded int64
}

// NewLogGateway creates a logging submitter gateway
func NewLogGateway(logger core.ILogger) *LogGateway {
	return &LogGateway{logger: logger.WithField("component", "order_gateway")}
}

// Forward hands an accepted ticket to the placement side
func (g *LogGateway) Forward(ctx context.Context, receipt *core.TicketReceipt, payload []byte) error {
	atomic.AddInt64(&g.forwarded, 1)
	g.logger.Info("Ticket forwarded for placement",
		"ticket_id", receipt.TicketID,
		"symbol", receipt.Symbol,
		"bytes", len(payload))
	return nil
}

// Forwarded returns the number of tickets handed over so far
func (g *LogGateway) Forwarded() int64 {
	return atomic.LoadInt64(&g.forwarded)
}
