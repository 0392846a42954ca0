package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position is an open holding valued at the current quote.
type Position struct {
	Symbol              string          `json:"symbol"`
	Name                string          `json:"name"`
	AssetClass          AssetClass      `json:"assetClass"`
	Quantity            decimal.Decimal `json:"quantity"`
	AverageBuyPrice     decimal.Decimal `json:"averageBuyPrice"`
	CurrentPrice        decimal.Decimal `json:"currentPrice"`
	CostBasis           decimal.Decimal `json:"costBasis"`
	MarketValue         decimal.Decimal `json:"marketValue"`
	UnrealizedPL        decimal.Decimal `json:"unrealizedPL"`
	UnrealizedPLPercent decimal.Decimal `json:"unrealizedPLPercent"`
	AllocationPercent   decimal.Decimal `json:"allocationPercent"`
	Color               string          `json:"color"`
}

// BaseUnits returns the held quantity expressed in base units.
func (p Position) BaseUnits() decimal.Decimal {
	return p.Quantity.Mul(p.AssetClass.UnitMultiplier())
}

// GlobalStats holds portfolio-wide totals.
type GlobalStats struct {
	TotalValue       decimal.Decimal `json:"totalValue"`
	TotalInvested    decimal.Decimal `json:"totalInvested"`
	AllTimePL        decimal.Decimal `json:"allTimePL"`
	AllTimePLPercent decimal.Decimal `json:"allTimePLPercent"`
	TodayPL          decimal.Decimal `json:"todayPL"`
	TodayPLPercent   decimal.Decimal `json:"todayPLPercent"`
}

// ClassAllocation is the market value held in one asset class.
type ClassAllocation struct {
	AssetClass  AssetClass      `json:"assetClass"`
	MarketValue decimal.Decimal `json:"marketValue"`
	Percent     decimal.Decimal `json:"percent"`
	Color       string          `json:"color"`
}

// PerformanceEntry ranks a position by unrealized return.
type PerformanceEntry struct {
	Symbol   string          `json:"symbol"`
	Percent  decimal.Decimal `json:"percent"`
	Positive bool            `json:"positive"`
}

// Analytics groups the derived views shown next to the totals.
type Analytics struct {
	AllocationByClass []ClassAllocation  `json:"allocationByClass"`
	Performance       []PerformanceEntry `json:"performance"`
	Concentration     string             `json:"concentration"`
}

// PortfolioValuation is the full output of one valuation pass.
type PortfolioValuation struct {
	Positions []Position  `json:"positions"`
	Stats     GlobalStats `json:"stats"`
	Analytics Analytics   `json:"analytics"`
	Warnings  []string    `json:"warnings,omitempty"`
	ValuedAt  time.Time   `json:"valuedAt"`
}
