package indicator

import (
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/darkbear/internal/domain"
)

// Periods are the lookback windows reported as period changes.
var Periods = []int{7, 30, 90, 365}

var (
	daysPerYear = decimal.NewFromInt(365)
	hundred     = decimal.NewFromInt(100)
)

// HistoryPoint is the part of a daily snapshot used for risk figures.
type HistoryPoint struct {
	Date          time.Time       `json:"date"`
	TotalValue    decimal.Decimal `json:"totalValue"`
	TotalInvested decimal.Decimal `json:"totalInvested"`
	AllTimePL     decimal.Decimal `json:"allTimePL"`
}

// PeriodChange compares the latest point with the one N days earlier.
// PLChange excludes money added or withdrawn in between.
type PeriodChange struct {
	Days        int             `json:"days"`
	Available   bool            `json:"available"`
	From        time.Time       `json:"from,omitzero"`
	ValueChange decimal.Decimal `json:"valueChange"`
	PLChange    decimal.Decimal `json:"plChange"`
	Percent     decimal.Decimal `json:"percent"`
}

// Risk summarizes a run of daily snapshots. Percent fields are in percent,
// ratios are annualized with a zero risk-free rate.
type Risk struct {
	From          time.Time       `json:"from,omitzero"`
	To            time.Time       `json:"to,omitzero"`
	Observations  int             `json:"observations"`
	Volatility    decimal.Decimal `json:"volatility"`
	MaxDrawdown   decimal.Decimal `json:"maxDrawdown"`
	SharpeRatio   decimal.Decimal `json:"sharpeRatio"`
	SortinoRatio  decimal.Decimal `json:"sortinoRatio"`
	ValueAtRisk95 decimal.Decimal `json:"valueAtRisk95"`
	TotalReturn   decimal.Decimal `json:"totalReturn"`
	PeriodChanges []PeriodChange  `json:"periodChanges"`
}

// Indicators flattens r into registry indicators.
func (r Risk) Indicators() []Indicator {
	out := []Indicator{
		NewIndicator(IDVolatility, r.Volatility, "", ""),
		NewIndicator(IDMaxDrawdown, r.MaxDrawdown, "", ""),
		NewIndicator(IDSharpe, r.SharpeRatio, "", ""),
		NewIndicator(IDSortino, r.SortinoRatio, "", ""),
		NewIndicator(IDValueAtRisk, r.ValueAtRisk95, "", ""),
		NewIndicator(IDTotalReturn, r.TotalReturn, "", ""),
		NewIndicator(IDObservations, decimal.NewFromInt(int64(r.Observations)), "", ""),
	}
	for _, pc := range r.PeriodChanges {
		if !pc.Available {
			continue
		}
		id, ok := periodIDs[pc.Days]
		if !ok {
			out = append(out, NewIndicator(0, pc.Percent, fmt.Sprintf("%dd Change", pc.Days), "%"))
			continue
		}
		out = append(out, NewIndicator(id, pc.Percent, "", ""))
	}
	return out
}

// DailyReturns returns flow-adjusted returns between consecutive points:
// (value change - invested change) / previous value. Pairs whose previous
// value is not positive are skipped.
func DailyReturns(points []HistoryPoint) []decimal.Decimal {
	var returns []decimal.Decimal
	for i := 1; i < len(points); i++ {
		prev, cur := points[i-1], points[i]
		if !prev.TotalValue.IsPositive() {
			continue
		}
		gain := cur.TotalValue.Sub(prev.TotalValue).Sub(cur.TotalInvested.Sub(prev.TotalInvested))
		returns = append(returns, gain.Div(prev.TotalValue))
	}
	return returns
}

// ComputeRisk derives risk figures from points ordered oldest first.
func ComputeRisk(points []HistoryPoint) Risk {
	r := Risk{PeriodChanges: PeriodChanges(points, Periods)}
	if len(points) == 0 {
		return r
	}
	r.From = points[0].Date
	r.To = points[len(points)-1].Date

	returns := DailyReturns(points)
	r.Observations = len(returns)
	if len(returns) == 0 {
		return r
	}

	index := lo.Reduce(returns, func(acc []decimal.Decimal, ret decimal.Decimal, _ int) []decimal.Decimal {
		return append(acc, acc[len(acc)-1].Mul(decimal.NewFromInt(1).Add(ret)))
	}, []decimal.Decimal{decimal.NewFromInt(1)})
	r.TotalReturn = index[len(index)-1].Sub(decimal.NewFromInt(1)).Mul(hundred).Round(2)
	r.MaxDrawdown = MaxDrawdown(index).Mul(hundred).Round(2)

	if len(returns) < 2 {
		return r
	}

	annualize := sqrtDecimal(daysPerYear)
	mean := Mean(returns)
	std := StdDev(returns)
	r.Volatility = std.Mul(annualize).Mul(hundred)
	if std.IsPositive() {
		r.SharpeRatio = mean.Div(std).Mul(annualize)
	}
	if downside := DownsideStdDev(returns, decimal.Zero); downside.IsPositive() {
		r.SortinoRatio = mean.Div(downside).Mul(annualize)
	}

	z := decimal.NewFromFloat(NormalQuantile(0.05))
	if v := mean.Add(z.Mul(std)).Neg(); v.IsPositive() {
		r.ValueAtRisk95 = v.Mul(hundred)
	}

	r.Volatility = r.Volatility.Round(2)
	r.SharpeRatio = r.SharpeRatio.Round(2)
	r.SortinoRatio = r.SortinoRatio.Round(2)
	r.ValueAtRisk95 = r.ValueAtRisk95.Round(2)
	return r
}

// PeriodChanges compares the last point against the most recent point at
// least N days older, for each N in periods.
func PeriodChanges(points []HistoryPoint, periods []int) []PeriodChange {
	return lo.Map(periods, func(days int, _ int) PeriodChange {
		pc := PeriodChange{Days: days}
		if len(points) < 2 {
			return pc
		}
		last := points[len(points)-1]
		cutoff := last.Date.AddDate(0, 0, -days)
		base, _, ok := lo.FindLastIndexOf(points[:len(points)-1], func(p HistoryPoint) bool {
			return !p.Date.After(cutoff)
		})
		if !ok {
			return pc
		}
		pc.Available = true
		pc.From = base.Date
		pc.ValueChange = last.TotalValue.Sub(base.TotalValue)
		pc.PLChange = last.AllTimePL.Sub(base.AllTimePL)
		pc.Percent = domain.Percent(pc.PLChange, base.TotalValue).Round(2)
		return pc
	})
}
