package ticket

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var market100 = decimal.NewFromInt(100)

func TestValidate_RequiredFieldMatrix(t *testing.T) {
	tests := []struct {
		name       string
		draft      Draft
		wantValid  bool
		wantFields []string
	}{
		{
			name:      "limit with price and amount",
			draft:     Draft{Side: SideBuy, OrderType: TypeLimit, Price: "99", Amount: "1"},
			wantValid: true,
		},
		{
			name:       "limit missing price",
			draft:      Draft{Side: SideBuy, OrderType: TypeLimit, Price: "", Amount: "1"},
			wantFields: []string{FieldPrice},
		},
		{
			name:       "limit missing amount",
			draft:      Draft{Side: SideBuy, OrderType: TypeLimit, Price: "99", Amount: ""},
			wantFields: []string{FieldAmount},
		},
		{
			name:       "limit missing both",
			draft:      Draft{Side: SideBuy, OrderType: TypeLimit},
			wantFields: []string{FieldPrice, FieldAmount},
		},
		{
			name:      "market amount mode ignores price",
			draft:     Draft{Side: SideBuy, OrderType: TypeMarket, MarketInputMode: InputModeAmount, Amount: "1"},
			wantValid: true,
		},
		{
			name:      "market defaults to amount mode",
			draft:     Draft{Side: SideSell, OrderType: TypeMarket, Amount: "0.5"},
			wantValid: true,
		},
		{
			name:       "market amount mode empty amount",
			draft:      Draft{Side: SideBuy, OrderType: TypeMarket, MarketInputMode: InputModeAmount, Amount: ""},
			wantFields: []string{FieldAmount},
		},
		{
			name:      "market total mode with total",
			draft:     Draft{Side: SideBuy, OrderType: TypeMarket, MarketInputMode: InputModeTotal, Total: "250"},
			wantValid: true,
		},
		{
			name:       "market total mode ignores amount",
			draft:      Draft{Side: SideBuy, OrderType: TypeMarket, MarketInputMode: InputModeTotal, Amount: "1"},
			wantFields: []string{FieldTotal},
		},
		{
			name:      "stop limit fully specified",
			draft:     Draft{Side: SideBuy, OrderType: TypeStopLimit, Price: "102", Amount: "1", TriggerPrice: "101"},
			wantValid: true,
		},
		{
			name:       "stop limit missing trigger",
			draft:      Draft{Side: SideBuy, OrderType: TypeStopLimit, Price: "98", Amount: "1", TriggerPrice: ""},
			wantFields: []string{FieldTriggerPrice},
		},
		{
			name:      "stop market needs no price",
			draft:     Draft{Side: SideSell, OrderType: TypeStopMarket, Amount: "1", TriggerPrice: "95"},
			wantValid: true,
		},
		{
			name:       "stop market missing amount and trigger",
			draft:      Draft{Side: SideSell, OrderType: TypeStopMarket},
			wantFields: []string{FieldAmount, FieldTriggerPrice},
		},
		{
			name:       "missing side",
			draft:      Draft{OrderType: TypeLimit, Price: "99", Amount: "1"},
			wantFields: []string{FieldSide},
		},
		{
			name:       "unknown order type",
			draft:      Draft{Side: SideBuy, OrderType: "trailing_stop", Amount: "1"},
			wantFields: []string{FieldOrderType},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Validate(tt.draft, market100)
			if tt.wantValid {
				require.True(t, res.IsValid(), "errors: %v", res.Errors)
				require.NotNil(t, res.Ticket)
				return
			}
			require.False(t, res.IsValid())
			assert.Nil(t, res.Ticket)
			assert.Len(t, res.Errors, len(tt.wantFields))
			for _, f := range tt.wantFields {
				assert.Contains(t, res.Errors, f)
			}
		})
	}
}

func TestValidate_MalformedInputCountsAsMissing(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"empty", ""},
		{"text", "abc"},
		{"negative", "-1"},
		{"zero", "0"},
		{"trailing garbage", "1.5x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Validate(Draft{Side: SideBuy, OrderType: TypeLimit, Price: tt.value, Amount: "1"}, market100)
			require.False(t, res.IsValid())
			assert.Equal(t, msgPricePositive, res.Errors[FieldPrice])
		})
	}
}

func TestValidate_BreakoutTriggerPolicy(t *testing.T) {
	// Pins the active policy: buy stops arm above market, sell stops below.
	tests := []struct {
		name      string
		side      Side
		trigger   string
		wantValid bool
	}{
		{name: "buy trigger above market", side: SideBuy, trigger: "101", wantValid: true},
		{name: "buy trigger below market", side: SideBuy, trigger: "99", wantValid: false},
		{name: "buy trigger at market", side: SideBuy, trigger: "100", wantValid: false},
		{name: "sell trigger below market", side: SideSell, trigger: "99", wantValid: true},
		{name: "sell trigger above market", side: SideSell, trigger: "101", wantValid: false},
		{name: "sell trigger at market", side: SideSell, trigger: "100", wantValid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			draft := Draft{Side: tt.side, OrderType: TypeStopMarket, Amount: "1", TriggerPrice: tt.trigger}
			res := Validate(draft, market100)
			if tt.wantValid {
				assert.True(t, res.IsValid(), "errors: %v", res.Errors)
			} else {
				require.False(t, res.IsValid())
				assert.Equal(t, DefaultStopTriggerPolicy.violationMessage(tt.side), res.Errors[FieldTriggerPrice])
			}
		})
	}
}

func TestValidate_PullbackPolicyInvertsRule(t *testing.T) {
	draft := Draft{Side: SideBuy, OrderType: TypeStopMarket, Amount: "1", TriggerPrice: "99"}

	res := ValidateWithPolicy(draft, market100, PullbackStopTrigger)
	assert.True(t, res.IsValid(), "pullback buy below market should pass")

	res = ValidateWithPolicy(draft, market100, BreakoutStopTrigger)
	assert.False(t, res.IsValid(), "breakout buy below market should fail")

	// Boundary: pullback allows trigger exactly at market.
	atMarket := Draft{Side: SideSell, OrderType: TypeStopLimit, Price: "100", Amount: "1", TriggerPrice: "100"}
	assert.True(t, ValidateWithPolicy(atMarket, market100, PullbackStopTrigger).IsValid())
}

func TestValidate_PresenceBeatsDirection(t *testing.T) {
	// An absent trigger reports the presence message, never the directional one.
	draft := Draft{Side: SideBuy, OrderType: TypeStopLimit, Price: "98", Amount: "1", TriggerPrice: ""}
	res := Validate(draft, market100)

	require.False(t, res.IsValid())
	require.Len(t, res.Errors, 1)
	assert.Equal(t, msgTriggerRequired, res.Errors[FieldTriggerPrice])
}

func TestValidate_CollectsAllFieldErrors(t *testing.T) {
	draft := Draft{Side: SideBuy, OrderType: TypeStopLimit, Price: "", Amount: "-2", TriggerPrice: "abc"}
	res := Validate(draft, market100)

	require.False(t, res.IsValid())
	assert.Len(t, res.Errors, 3)
	assert.Equal(t, msgAmountPositive, res.Errors[FieldAmount])
	assert.Equal(t, msgPricePositive, res.Errors[FieldPrice])
	assert.Equal(t, msgTriggerRequired, res.Errors[FieldTriggerPrice])
}

func TestValidate_NormalizedTicketClearsInapplicableFields(t *testing.T) {
	draft := Draft{
		Side:         SideBuy,
		OrderType:    TypeMarket,
		Amount:       "2",
		Price:        "123", // ignored for market orders
		TriggerPrice: "999", // ignored for market orders
	}
	res := Validate(draft, market100)

	require.True(t, res.IsValid())
	assert.True(t, res.Ticket.Price.IsZero())
	assert.True(t, res.Ticket.TriggerPrice.IsZero())
	assert.Equal(t, "2", res.Ticket.Amount.String())
	assert.Equal(t, InputModeAmount, res.Ticket.MarketInputMode)
}

func TestValidate_RoundTrip(t *testing.T) {
	drafts := []Draft{
		{Side: SideBuy, OrderType: TypeLimit, Price: "99.5", Amount: "0.25"},
		{Side: SideSell, OrderType: TypeMarket, MarketInputMode: InputModeTotal, Total: "500"},
		{Side: SideBuy, OrderType: TypeStopLimit, Price: "103", Amount: "1.5", TriggerPrice: "102"},
		{Side: SideSell, OrderType: TypeStopMarket, Amount: "3", TriggerPrice: "97"},
	}

	for _, draft := range drafts {
		first := Validate(draft, market100)
		require.True(t, first.IsValid(), "draft %+v errors: %v", draft, first.Errors)

		second := Validate(first.Ticket.Draft(), market100)
		require.True(t, second.IsValid(), "round trip of %+v errors: %v", draft, second.Errors)
		assert.Equal(t, first.Ticket, second.Ticket)
	}
}

func TestValidate_Idempotent(t *testing.T) {
	draft := Draft{Side: SideBuy, OrderType: TypeStopLimit, Price: "", Amount: "1", TriggerPrice: "95"}

	first := Validate(draft, market100)
	second := Validate(draft, market100)
	assert.Equal(t, first, second)
}

func TestValidate_ZeroMarketPrice(t *testing.T) {
	// Upstream price absence: non-stop tickets still validate, breakout sell
	// stops cannot sit below a zero market price.
	limit := Draft{Side: SideBuy, OrderType: TypeLimit, Price: "99", Amount: "1"}
	assert.True(t, Validate(limit, decimal.Zero).IsValid())

	sellStop := Draft{Side: SideSell, OrderType: TypeStopMarket, Amount: "1", TriggerPrice: "95"}
	assert.False(t, Validate(sellStop, decimal.Zero).IsValid())
}
