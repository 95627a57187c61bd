// Package precision provides per-asset display precision for ticket rendering
package precision

import (
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

// Default decimal places when an asset has no configured entry
const (
	DefaultAmountDecimals = 8
	DefaultPriceDecimals  = 2
)

// AssetPrecision holds display decimals for one asset
type AssetPrecision struct {
	AmountDecimals int `yaml:"amount_decimals"`
	PriceDecimals  int `yaml:"price_decimals"`
}

// Registry maps asset symbols to display precision. Lookups are
// case-insensitive; unknown assets fall back to defaults.
type Registry struct {
	mu     sync.RWMutex
	assets map[string]AssetPrecision
}

// NewRegistry creates a registry seeded from configuration
func NewRegistry(seed map[string]AssetPrecision) *Registry {
	assets := make(map[string]AssetPrecision, len(seed))
	for sym, p := range seed {
		assets[strings.ToUpper(sym)] = p
	}
	return &Registry{assets: assets}
}

// Set registers or replaces the precision entry for an asset
func (r *Registry) Set(asset string, p AssetPrecision) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assets[strings.ToUpper(asset)] = p
}

// AmountDecimals returns the display decimals for amounts of the asset
func (r *Registry) AmountDecimals(asset string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.assets[strings.ToUpper(asset)]; ok {
		return p.AmountDecimals
	}
	return DefaultAmountDecimals
}

// PriceDecimals returns the display decimals for prices quoted in the asset
func (r *Registry) PriceDecimals(asset string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.assets[strings.ToUpper(asset)]; ok {
		return p.PriceDecimals
	}
	return DefaultPriceDecimals
}

// FormatAmount renders an amount with the asset's display decimals
func (r *Registry) FormatAmount(asset string, v decimal.Decimal) string {
	return v.StringFixed(int32(r.AmountDecimals(asset)))
}

// FormatPrice renders a price with the asset's display decimals
func (r *Registry) FormatPrice(asset string, v decimal.Decimal) string {
	return v.StringFixed(int32(r.PriceDecimals(asset)))
}
