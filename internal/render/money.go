// Package render formats valuations for terminal output.
package render

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/darkbear/internal/domain"
)

// Hidden replaces values when privacy mode is on.
const Hidden = "••••"

// Money formats amount in the given ISO currency, e.g. "$1,234.56".
// Unknown currency codes fall back to the plain decimal with the code appended.
func Money(amount decimal.Decimal, code string) string {
	code = strings.ToUpper(code)
	if money.GetCurrency(code) == nil {
		return amount.StringFixed(2) + " " + code
	}
	cur := *money.New(0, code).Currency()
	minor := amount.Shift(int32(cur.Fraction)).Round(0)
	return cur.Formatter().Format(minor.IntPart())
}

// SignedMoney is Money with an explicit "+" for gains.
func SignedMoney(amount decimal.Decimal, code string) string {
	if amount.IsPositive() {
		return "+" + Money(amount, code)
	}
	return Money(amount, code)
}

// Percent formats a percentage with two decimals and an explicit sign.
func Percent(p decimal.Decimal) string {
	if p.IsPositive() {
		return "+" + p.StringFixed(2) + "%"
	}
	return p.StringFixed(2) + "%"
}

// Mask zeroes every absolute amount in val and keeps the percentages, so a
// shared view reveals allocation without revealing wealth.
func Mask(val domain.PortfolioValuation) domain.PortfolioValuation {
	out := val
	out.Positions = make([]domain.Position, len(val.Positions))
	for i, p := range val.Positions {
		p.Quantity = decimal.Zero
		p.AverageBuyPrice = decimal.Zero
		p.CostBasis = decimal.Zero
		p.MarketValue = decimal.Zero
		p.UnrealizedPL = decimal.Zero
		out.Positions[i] = p
	}
	out.Stats = MaskStats(val.Stats)
	out.Analytics.AllocationByClass = make([]domain.ClassAllocation, len(val.Analytics.AllocationByClass))
	for i, a := range val.Analytics.AllocationByClass {
		a.MarketValue = decimal.Zero
		out.Analytics.AllocationByClass[i] = a
	}
	return out
}

// MaskStats zeroes the absolute totals of s.
func MaskStats(s domain.GlobalStats) domain.GlobalStats {
	s.TotalValue = decimal.Zero
	s.TotalInvested = decimal.Zero
	s.AllTimePL = decimal.Zero
	s.TodayPL = decimal.Zero
	return s
}
