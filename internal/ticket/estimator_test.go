package ticket

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestEstimateTotal_MarketUsesMarketPrice(t *testing.T) {
	tests := []struct {
		name        string
		amount      string
		marketPrice string
		want        string
	}{
		{name: "whole units", amount: "2", marketPrice: "100", want: "200.00"},
		{name: "fractional amount", amount: "0.5", marketPrice: "50000.10", want: "25000.05"},
		{name: "rounds half away from zero", amount: "1", marketPrice: "0.005", want: "0.01"},
		{name: "tiny notional truncates to zero display", amount: "0.0001", marketPrice: "0.01", want: "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mp, err := decimal.NewFromString(tt.marketPrice)
			if err != nil {
				t.Fatalf("bad fixture %q: %v", tt.marketPrice, err)
			}
			// Entered price is ignored for market orders.
			got := EstimateTotal(TypeMarket, "999999", tt.amount, mp)
			if got != tt.want {
				t.Errorf("EstimateTotal(market, amount=%s, mp=%s) = %q, want %q", tt.amount, tt.marketPrice, got, tt.want)
			}
		})
	}
}

func TestEstimateTotal_LimitUsesEnteredPrice(t *testing.T) {
	mp := decimal.NewFromInt(100)

	for _, orderType := range []OrderType{TypeLimit, TypeStopLimit, TypeStopMarket} {
		got := EstimateTotal(orderType, "99", "2", mp)
		if got != "198.00" {
			t.Errorf("EstimateTotal(%s) = %q, want 198.00", orderType, got)
		}
	}
}

func TestEstimateTotal_DegradesToZero(t *testing.T) {
	mp := decimal.NewFromInt(100)

	tests := []struct {
		name      string
		orderType OrderType
		price     string
		amount    string
		market    decimal.Decimal
	}{
		{name: "empty amount", orderType: TypeMarket, amount: "", market: mp},
		{name: "non numeric amount", orderType: TypeMarket, amount: "abc", market: mp},
		{name: "negative amount", orderType: TypeMarket, amount: "-1", market: mp},
		{name: "zero amount", orderType: TypeMarket, amount: "0", market: mp},
		{name: "empty limit price", orderType: TypeLimit, price: "", amount: "1", market: mp},
		{name: "negative limit price", orderType: TypeLimit, price: "-5", amount: "1", market: mp},
		{name: "zero market price", orderType: TypeMarket, amount: "1", market: decimal.Zero},
		{name: "everything missing", orderType: TypeLimit, market: mp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EstimateTotal(tt.orderType, tt.price, tt.amount, tt.market); got != "0.00" {
				t.Errorf("EstimateTotal = %q, want \"0.00\"", got)
			}
		})
	}
}

func TestEstimateTotal_Idempotent(t *testing.T) {
	mp := decimal.NewFromFloat(123.45)
	first := EstimateTotal(TypeLimit, "100.1", "3", mp)
	second := EstimateTotal(TypeLimit, "100.1", "3", mp)
	if first != second {
		t.Errorf("estimate not idempotent: %q vs %q", first, second)
	}
	if first != "300.30" {
		t.Errorf("EstimateTotal = %q, want 300.30", first)
	}
}
