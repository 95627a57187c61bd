package ticket

import (
	"ticket_desk/internal/numeric"

	"github.com/shopspring/decimal"
)

// StopTriggerPolicy decides which side of the market price a stop trigger
// must sit on.
type StopTriggerPolicy int

const (
	// BreakoutStopTrigger arms a buy stop strictly above and a sell stop
	// strictly below the market price (conventional stop semantics).
	BreakoutStopTrigger StopTriggerPolicy = iota
	// PullbackStopTrigger is the inverse rule: buy at or below, sell at or
	// above the market price.
	PullbackStopTrigger
)

// DefaultStopTriggerPolicy is the single active trigger-side rule. Swapping
// the product decision is a one-line change here.
const DefaultStopTriggerPolicy = BreakoutStopTrigger

func (p StopTriggerPolicy) allows(side Side, trigger, market decimal.Decimal) bool {
	if p == PullbackStopTrigger {
		if side == SideBuy {
			return trigger.LessThanOrEqual(market)
		}
		return trigger.GreaterThanOrEqual(market)
	}
	if side == SideBuy {
		return trigger.GreaterThan(market)
	}
	return trigger.LessThan(market)
}

func (p StopTriggerPolicy) violationMessage(side Side) string {
	if p == PullbackStopTrigger {
		if side == SideBuy {
			return "Trigger price must be at or below the market price"
		}
		return "Trigger price must be at or above the market price"
	}
	if side == SideBuy {
		return "Trigger price must be above the market price"
	}
	return "Trigger price must be below the market price"
}

// Field error messages
const (
	msgSideRequired     = "Select buy or sell"
	msgOrderTypeUnknown = "Unknown order type"
	msgPricePositive    = "Price must be greater than 0"
	msgAmountPositive   = "Amount must be greater than 0"
	msgTotalPositive    = "Total must be greater than 0"
	msgTriggerRequired  = "Trigger price must be greater than 0"
)

// requirements is the required-field set for one cell of the
// (orderType, marketInputMode) matrix
type requirements struct {
	price   bool
	amount  bool
	total   bool
	trigger bool
}

type matrixKey struct {
	orderType OrderType
	inputMode MarketInputMode
}

// requirementMatrix is the required-field table. The input mode only
// distinguishes cells for market orders; every other type keys on
// InputModeAmount.
var requirementMatrix = map[matrixKey]requirements{
	{TypeMarket, InputModeAmount}:     {amount: true},
	{TypeMarket, InputModeTotal}:      {total: true},
	{TypeLimit, InputModeAmount}:      {price: true, amount: true},
	{TypeStopLimit, InputModeAmount}:  {price: true, amount: true, trigger: true},
	{TypeStopMarket, InputModeAmount}: {amount: true, trigger: true},
}

// effectiveMode resolves the draft's input mode: it defaults to amount and is
// only consulted for market orders.
func effectiveMode(orderType OrderType, mode MarketInputMode) MarketInputMode {
	if orderType == TypeMarket && mode == InputModeTotal {
		return InputModeTotal
	}
	return InputModeAmount
}

// Validate checks a ticket draft against the current market price using the
// default stop-trigger policy.
func Validate(draft Draft, marketPrice decimal.Decimal) Result {
	return ValidateWithPolicy(draft, marketPrice, DefaultStopTriggerPolicy)
}

// ValidateWithPolicy checks a ticket draft against the current market price.
// It collects one error per offending field rather than short-circuiting, in
// the fixed order: amount/total, price, trigger presence, trigger direction.
// Malformed numeric input counts as missing.
func ValidateWithPolicy(draft Draft, marketPrice decimal.Decimal, policy StopTriggerPolicy) Result {
	errs := FieldErrors{}

	sideKnown := draft.Side == SideBuy || draft.Side == SideSell
	if !sideKnown {
		errs.set(FieldSide, msgSideRequired)
	}

	mode := effectiveMode(draft.OrderType, draft.MarketInputMode)
	req, known := requirementMatrix[matrixKey{draft.OrderType, mode}]
	if !known {
		errs.set(FieldOrderType, msgOrderTypeUnknown)
		return Result{Errors: errs}
	}

	normalized := &NormalizedTicket{
		Side:            draft.Side,
		OrderType:       draft.OrderType,
		MarketInputMode: mode,
	}

	if req.amount {
		if v, ok := numeric.ParsePositive(draft.Amount); ok {
			normalized.Amount = v
		} else {
			errs.set(FieldAmount, msgAmountPositive)
		}
	}
	if req.total {
		if v, ok := numeric.ParsePositive(draft.Total); ok {
			normalized.Total = v
		} else {
			errs.set(FieldTotal, msgTotalPositive)
		}
	}
	if req.price {
		if v, ok := numeric.ParsePositive(draft.Price); ok {
			normalized.Price = v
		} else {
			errs.set(FieldPrice, msgPricePositive)
		}
	}
	if req.trigger {
		if v, ok := numeric.ParsePositive(draft.TriggerPrice); ok {
			normalized.TriggerPrice = v
			if sideKnown && !policy.allows(draft.Side, v, marketPrice) {
				errs.set(FieldTriggerPrice, policy.violationMessage(draft.Side))
			}
		} else {
			errs.set(FieldTriggerPrice, msgTriggerRequired)
		}
	}

	if len(errs) > 0 {
		return Result{Errors: errs}
	}
	return Result{Ticket: normalized}
}
