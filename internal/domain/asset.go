package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// AssetClass groups symbols that share a unit convention.
type AssetClass string

const (
	AssetClassStock  AssetClass = "STOCK"
	AssetClassGold   AssetClass = "GOLD"
	AssetClassCrypto AssetClass = "CRYPTO"
)

// AssetClasses lists every class in display order.
func AssetClasses() []AssetClass {
	return []AssetClass{AssetClassStock, AssetClassGold, AssetClassCrypto}
}

var (
	lotSize = decimal.NewFromInt(100)
	oneUnit = decimal.NewFromInt(1)
)

// UnitMultiplier returns the number of base units in one traded unit.
// Equities trade in lots of 100 shares; metals and crypto trade per unit.
func (c AssetClass) UnitMultiplier() decimal.Decimal {
	if c == AssetClassStock {
		return lotSize
	}
	return oneUnit
}

// Color returns the display color used for positions of this class.
func (c AssetClass) Color() string {
	switch c {
	case AssetClassGold:
		return "#fbbf24"
	case AssetClassCrypto:
		return "#f97316"
	default:
		return "#3b82f6"
	}
}

// ParseAssetClass parses a case-insensitive asset class name.
func ParseAssetClass(s string) (AssetClass, error) {
	switch c := AssetClass(strings.ToUpper(strings.TrimSpace(s))); c {
	case AssetClassStock, AssetClassGold, AssetClassCrypto:
		return c, nil
	default:
		return "", fmt.Errorf("unknown asset class: %q", s)
	}
}

// Side is the direction of a trade.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// ParseSide parses a case-insensitive trade side.
func ParseSide(s string) (Side, error) {
	switch side := Side(strings.ToUpper(strings.TrimSpace(s))); side {
	case SideBuy, SideSell:
		return side, nil
	default:
		return "", fmt.Errorf("unknown side: %q", s)
	}
}

// SymbolKey normalizes a free-text symbol for lookups.
func SymbolKey(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
