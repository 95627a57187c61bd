package ticket

import (
	"ticket_desk/internal/numeric"

	"github.com/shopspring/decimal"
)

// EstimateTotal computes the live estimated notional shown under the ticket
// form. Market orders price at the market, limit-bearing types at the entered
// price. Missing, malformed, or non-positive inputs degrade to "0.00" rather
// than erroring; the form recomputes this on every keystroke regardless of
// whether the draft currently validates.
func EstimateTotal(orderType OrderType, price, amount string, marketPrice decimal.Decimal) string {
	effectivePrice := marketPrice
	if orderType != TypeMarket {
		p, ok := numeric.ParsePositive(price)
		if !ok {
			return numeric.ZeroTotal
		}
		effectivePrice = p
	}

	amt, ok := numeric.ParsePositive(amount)
	if !ok || !effectivePrice.IsPositive() {
		return numeric.ZeroTotal
	}

	return numeric.FormatTotal(amt.Mul(effectivePrice))
}
