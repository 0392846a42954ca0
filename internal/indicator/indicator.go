// Package indicator derives risk and performance figures from snapshot history.
package indicator

import (
	"github.com/shopspring/decimal"
)

// IndicatorMeta holds the canonical name and unit for an indicator.
type IndicatorMeta struct {
	Name string
	Unit string
}

// Indicator IDs.
const (
	IDVolatility   = 1
	IDMaxDrawdown  = 2
	IDSharpe       = 3
	IDSortino      = 4
	IDValueAtRisk  = 5
	IDTotalReturn  = 6
	IDObservations = 7
	IDChange7d     = 10
	IDChange30d    = 11
	IDChange90d    = 12
	IDChange365d   = 13
)

// indicatorRegistry maps indicator IDs to their canonical metadata.
var indicatorRegistry = map[int]IndicatorMeta{
	IDVolatility:   {Name: "Annualized Volatility", Unit: "%"},
	IDMaxDrawdown:  {Name: "Max Drawdown", Unit: "%"},
	IDSharpe:       {Name: "Sharpe Ratio", Unit: "ratio"},
	IDSortino:      {Name: "Sortino Ratio", Unit: "ratio"},
	IDValueAtRisk:  {Name: "Daily Value at Risk (95%)", Unit: "%"},
	IDTotalReturn:  {Name: "Time-Weighted Return", Unit: "%"},
	IDObservations: {Name: "Daily Returns Observed", Unit: "days"},
	IDChange7d:     {Name: "7d Change", Unit: "%"},
	IDChange30d:    {Name: "30d Change", Unit: "%"},
	IDChange90d:    {Name: "90d Change", Unit: "%"},
	IDChange365d:   {Name: "365d Change", Unit: "%"},
}

// periodIDs maps a lookback window in days to its change indicator.
var periodIDs = map[int]int{7: IDChange7d, 30: IDChange30d, 90: IDChange90d, 365: IDChange365d}

// Indicator represents a calculated statistical indicator.
type Indicator struct {
	ID    int             `json:"id"`
	Name  string          `json:"name"`
	Value decimal.Decimal `json:"value"`
	Unit  string          `json:"unit"`
}

// NewIndicator creates an indicator using the canonical metadata from the registry.
// Falls back to the provided name and unit if the ID is not registered.
func NewIndicator(id int, value decimal.Decimal, name, unit string) Indicator {
	if meta, ok := indicatorRegistry[id]; ok {
		return Indicator{ID: id, Name: meta.Name, Value: value, Unit: meta.Unit}
	}
	return Indicator{ID: id, Name: name, Value: value, Unit: unit}
}
