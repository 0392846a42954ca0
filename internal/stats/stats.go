// Package stats reduces valued positions into portfolio-wide totals and
// the analytics shown beside them.
package stats

import (
	"sort"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/darkbear/internal/domain"
)

// ComputeStats sums the positions into portfolio totals. Today's P/L is an
// estimate from current market value and the 24h percent change of each quote.
func ComputeStats(positions []domain.Position, quotes domain.Quotes) domain.GlobalStats {
	totalValue := marketValue(positions)

	// AverageBuyPrice is per base unit, so it is scaled back by the lot size.
	totalInvested := lo.Reduce(positions, func(acc decimal.Decimal, p domain.Position, _ int) decimal.Decimal {
		return acc.Add(p.BaseUnits().Mul(p.AverageBuyPrice))
	}, decimal.Zero)

	todayPL := lo.Reduce(positions, func(acc decimal.Decimal, p domain.Position, _ int) decimal.Decimal {
		q, _ := quotes.Lookup(p.Symbol)
		return acc.Add(domain.PercentOf(p.MarketValue, q.Change24h))
	}, decimal.Zero)

	allTimePL := totalValue.Sub(totalInvested)

	return domain.GlobalStats{
		TotalValue:       totalValue,
		TotalInvested:    totalInvested,
		AllTimePL:        allTimePL,
		AllTimePLPercent: domain.Percent(allTimePL, totalInvested),
		TodayPL:          todayPL,
		TodayPLPercent:   domain.Percent(todayPL, totalValue),
	}
}

// AllocationByClass groups market value by asset class, in display order.
// Classes without positions are omitted.
func AllocationByClass(positions []domain.Position) []domain.ClassAllocation {
	byClass := lo.GroupBy(positions, func(p domain.Position) domain.AssetClass { return p.AssetClass })
	total := marketValue(positions)

	return lo.FilterMap(domain.AssetClasses(), func(c domain.AssetClass, _ int) (domain.ClassAllocation, bool) {
		group, ok := byClass[c]
		if !ok {
			return domain.ClassAllocation{}, false
		}
		value := marketValue(group)
		return domain.ClassAllocation{
			AssetClass:  c,
			MarketValue: value,
			Percent:     domain.Percent(value, total),
			Color:       c.Color(),
		}, true
	})
}

// RankByPerformance orders positions by unrealized P/L percent, best first.
func RankByPerformance(positions []domain.Position) []domain.PerformanceEntry {
	entries := lo.Map(positions, func(p domain.Position, _ int) domain.PerformanceEntry {
		return domain.PerformanceEntry{
			Symbol:   p.Symbol,
			Percent:  p.UnrealizedPLPercent,
			Positive: !p.UnrealizedPLPercent.IsNegative(),
		}
	})
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Percent.GreaterThan(entries[j].Percent)
	})
	return entries
}

const (
	ConcentratedInEquities = "concentrated in equities"
	WellDiversified        = "well-diversified"
)

var equityThreshold = decimal.NewFromFloat(0.5)

// Concentration reports whether equities hold more than half of totalValue.
func Concentration(positions []domain.Position, totalValue decimal.Decimal) string {
	equities := marketValue(lo.Filter(positions, func(p domain.Position, _ int) bool {
		return p.AssetClass == domain.AssetClassStock
	}))
	if equities.GreaterThan(totalValue.Mul(equityThreshold)) {
		return ConcentratedInEquities
	}
	return WellDiversified
}

// Summarize builds the analytics view for a set of positions.
func Summarize(positions []domain.Position, totals domain.GlobalStats) domain.Analytics {
	return domain.Analytics{
		AllocationByClass: AllocationByClass(positions),
		Performance:       RankByPerformance(positions),
		Concentration:     Concentration(positions, totals.TotalValue),
	}
}

func marketValue(positions []domain.Position) decimal.Decimal {
	return lo.Reduce(positions, func(acc decimal.Decimal, p domain.Position, _ int) decimal.Decimal {
		return acc.Add(p.MarketValue)
	}, decimal.Zero)
}
