// Package core defines the core interfaces for the ticket desk system
package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// PriceTick is a single market-price observation for a symbol
type PriceTick struct {
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	Timestamp time.Time       `json:"timestamp"`
}

// IPriceFeed defines the interface for market-price sources
type IPriceFeed interface {
	Start(ctx context.Context) error
	Stop() error
	GetLatestPrice(symbol string) (decimal.Decimal, error)
	GetLatestTick(symbol string) (*PriceTick, error)
	Subscribe() <-chan *PriceTick
}

// IPrecisionSource defines the interface for asset display-precision lookup
type IPrecisionSource interface {
	AmountDecimals(asset string) int
	PriceDecimals(asset string) int
	FormatAmount(asset string, v decimal.Decimal) string
	FormatPrice(asset string, v decimal.Decimal) string
}

// TicketReceipt is what the submission layer returns for an accepted ticket
type TicketReceipt struct {
	TicketID   string    `json:"ticket_id"`
	Symbol     string    `json:"symbol"`
	AcceptedAt time.Time `json:"accepted_at"`
}

// ISubmitter defines the interface for the downstream order-placement
// collaborator. The payload is the serialized normalized ticket.
type ISubmitter interface {
	Forward(ctx context.Context, receipt *TicketReceipt, payload []byte) error
}

// ITicketJournal defines the interface for the accepted-ticket receipt log
type ITicketJournal interface {
	Append(ctx context.Context, receipt *TicketReceipt, payload []byte) error
	Count(ctx context.Context) (int64, error)
	Close() error
}

// ILogger defines the interface for logging
type ILogger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
	Fatal(msg string, fields ...interface{})
	WithField(key string, value interface{}) ILogger
	WithFields(fields map[string]interface{}) ILogger
}
