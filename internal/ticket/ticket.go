// Package ticket implements order-ticket validation and total estimation for
// the trading form
package ticket

import (
	"github.com/shopspring/decimal"
)

// Side is the order direction
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// OrderType is the ticket's order type
type OrderType string

const (
	TypeMarket     OrderType = "market"
	TypeLimit      OrderType = "limit"
	TypeStopLimit  OrderType = "stop_limit"
	TypeStopMarket OrderType = "stop_market"
)

// MarketInputMode selects the driving field for market orders
type MarketInputMode string

const (
	InputModeAmount MarketInputMode = "amount"
	InputModeTotal  MarketInputMode = "total"
)

// Form field names, used as keys in the field-error mapping
const (
	FieldSide         = "side"
	FieldOrderType    = "orderType"
	FieldPrice        = "price"
	FieldAmount       = "amount"
	FieldTotal        = "total"
	FieldTriggerPrice = "triggerPrice"
)

// Draft is the raw ticket form state, passed by value on each evaluation.
// All numeric fields are strings exactly as typed.
type Draft struct {
	Side            Side            `json:"side"`
	OrderType       OrderType       `json:"order_type"`
	Price           string          `json:"price,omitempty"`
	Amount          string          `json:"amount,omitempty"`
	Total           string          `json:"total,omitempty"`
	TriggerPrice    string          `json:"trigger_price,omitempty"`
	MarketInputMode MarketInputMode `json:"market_input_mode,omitempty"`
}

// NormalizedTicket is an accepted ticket with parsed numeric fields.
// Fields not applicable to the order type are zero.
type NormalizedTicket struct {
	Side            Side            `json:"side"`
	OrderType       OrderType       `json:"order_type"`
	MarketInputMode MarketInputMode `json:"market_input_mode"`
	Price           decimal.Decimal `json:"price"`
	Amount          decimal.Decimal `json:"amount"`
	Total           decimal.Decimal `json:"total"`
	TriggerPrice    decimal.Decimal `json:"trigger_price"`
}

// Draft renders the ticket back into form-field strings. Zero (non-applicable)
// fields render as empty strings, matching an untouched form control.
func (t *NormalizedTicket) Draft() Draft {
	d := Draft{
		Side:            t.Side,
		OrderType:       t.OrderType,
		MarketInputMode: t.MarketInputMode,
	}
	if t.Price.IsPositive() {
		d.Price = t.Price.String()
	}
	if t.Amount.IsPositive() {
		d.Amount = t.Amount.String()
	}
	if t.Total.IsPositive() {
		d.Total = t.Total.String()
	}
	if t.TriggerPrice.IsPositive() {
		d.TriggerPrice = t.TriggerPrice.String()
	}
	return d
}

// FieldErrors maps a form field name to a single human-readable message
type FieldErrors map[string]string

// set attaches a message to a field. The first message attached to a field
// wins; later rules never overwrite it.
func (fe FieldErrors) set(field, msg string) {
	if _, exists := fe[field]; !exists {
		fe[field] = msg
	}
}

// Result is the outcome of validating a draft: either a normalized ticket or
// a complete field-error mapping, never both.
type Result struct {
	Ticket *NormalizedTicket `json:"ticket,omitempty"`
	Errors FieldErrors       `json:"errors,omitempty"`
}

// IsValid reports whether the draft was accepted
func (r Result) IsValid() bool {
	return len(r.Errors) == 0
}
