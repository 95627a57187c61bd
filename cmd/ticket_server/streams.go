package main

import (
	"context"
	"strings"

	"ticket_desk/internal/core"
	"ticket_desk/pkg/liveserver"
)

// StreamHandlers pumps price ticks from the feed into the WebSocket hub
type StreamHandlers struct {
	feed      core.IPriceFeed
	hub       *liveserver.Hub
	precision core.IPrecisionSource
	logger    core.ILogger
}

// NewStreamHandlers creates a new stream handlers manager
func NewStreamHandlers(feed core.IPriceFeed, hub *liveserver.Hub, precision core.IPrecisionSource, logger core.ILogger) *StreamHandlers {
	return &StreamHandlers{
		feed:      feed,
		hub:       hub,
		precision: precision,
		logger:    logger.WithField("component", "streams"),
	}
}

// Start launches the tick stream pump
func (s *StreamHandlers) Start(ctx context.Context) {
	go s.streamTicks(ctx)
}

// streamTicks forwards feed ticks to all connected clients
func (s *StreamHandlers) streamTicks(ctx context.Context) {
	s.logger.Info("Starting tick stream")

	ticks := s.feed.Subscribe()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Tick stream stopped")
			return

		case tick, ok := <-ticks:
			if !ok {
				s.logger.Info("Tick stream closed by feed")
				return
			}

			msg := liveserver.NewTickMessage(map[string]interface{}{
				"symbol": tick.Symbol,
				"price":  s.precision.FormatPrice(quoteAsset(tick.Symbol), tick.Price),
				"time":   tick.Timestamp.Unix(),
			})
			s.hub.Broadcast(msg)
		}
	}
}

// quoteAsset extracts the quote asset from a symbol like "BTC-USDT"
func quoteAsset(symbol string) string {
	if i := strings.LastIndex(symbol, "-"); i >= 0 {
		return symbol[i+1:]
	}
	return symbol
}
