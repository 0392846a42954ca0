package export

import (
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/darkbear/internal/domain"
	"github.com/mtlprog/darkbear/internal/indicator"
)

var positionHeader = []any{
	"Symbol", "Name", "Class", "Quantity", "Avg Buy Price", "Current Price",
	"Cost Basis", "Market Value", "Unrealized P/L", "Unrealized P/L %", "Allocation %",
}

// buildPositionRows returns a header row followed by one row per position.
func buildPositionRows(positions []domain.Position) [][]any {
	rows := make([][]any, 0, len(positions)+1)
	rows = append(rows, positionHeader)
	for _, p := range positions {
		rows = append(rows, []any{
			p.Symbol, p.Name, string(p.AssetClass),
			toFloat(p.Quantity), toFloat(p.AverageBuyPrice), toFloat(p.CurrentPrice),
			toFloat(p.CostBasis), toFloat(p.MarketValue), toFloat(p.UnrealizedPL),
			toFloat(p.UnrealizedPLPercent.Round(2)), toFloat(p.AllocationPercent.Round(2)),
		})
	}
	return rows
}

// buildSummaryRows returns label/value pairs for totals, analytics and any
// risk indicators.
func buildSummaryRows(val domain.PortfolioValuation, risk []indicator.Indicator) [][]any {
	s := val.Stats
	rows := [][]any{
		{"Metric", "Value", "Unit"},
		{"Total Value", toFloat(s.TotalValue), ""},
		{"Total Invested", toFloat(s.TotalInvested), ""},
		{"All-Time P/L", toFloat(s.AllTimePL), ""},
		{"All-Time P/L %", toFloat(s.AllTimePLPercent.Round(2)), "%"},
		{"Today P/L", toFloat(s.TodayPL), ""},
		{"Today P/L %", toFloat(s.TodayPLPercent.Round(2)), "%"},
		{"Open Positions", len(val.Positions), ""},
		{"Concentration", val.Analytics.Concentration, ""},
	}
	for _, a := range val.Analytics.AllocationByClass {
		rows = append(rows, []any{"Allocation " + string(a.AssetClass), toFloat(a.Percent.Round(2)), "%"})
	}
	for _, ind := range risk {
		rows = append(rows, []any{ind.Name, toFloat(ind.Value), ind.Unit})
	}
	if !val.ValuedAt.IsZero() {
		rows = append(rows, []any{"Valued At", val.ValuedAt.UTC().Format("2006-01-02 15:04 UTC"), ""})
	}
	return rows
}

// buildPerformanceRows ranks positions by unrealized return.
func buildPerformanceRows(perf []domain.PerformanceEntry) [][]any {
	return append([][]any{{"Symbol", "Unrealized P/L %"}}, lo.Map(perf, func(e domain.PerformanceEntry, _ int) []any {
		return []any{e.Symbol, toFloat(e.Percent.Round(2))}
	})...)
}

// buildJournalRows lists transactions oldest first.
func buildJournalRows(txs []domain.Transaction) [][]any {
	rows := make([][]any, 0, len(txs)+1)
	rows = append(rows, []any{"Date", "Symbol", "Type", "Quantity", "Price", "Notes", "ID"})
	for _, tx := range txs {
		rows = append(rows, []any{
			tx.Date.Format(domain.DateLayout), tx.Key(), string(tx.Side),
			toFloat(tx.Quantity), toFloat(tx.Price), tx.Notes, tx.ID,
		})
	}
	return rows
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
