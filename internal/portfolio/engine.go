// Package portfolio folds a transaction ledger into valued open positions
// using average-cost accounting.
package portfolio

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/darkbear/internal/classify"
	"github.com/mtlprog/darkbear/internal/domain"
)

// ViolationKind classifies a sell that the ledger cannot back.
type ViolationKind string

const (
	// ViolationUnbacked is a sell with nothing held.
	ViolationUnbacked ViolationKind = "unbacked"
	// ViolationOversell is a sell larger than the held quantity.
	ViolationOversell ViolationKind = "oversell"
)

// Violation records a sell that exceeded the holding at the time it was applied.
type Violation struct {
	TransactionID string          `json:"transactionId"`
	Symbol        string          `json:"symbol"`
	Kind          ViolationKind   `json:"kind"`
	Requested     decimal.Decimal `json:"requested"`
	Held          decimal.Decimal `json:"held"`
}

func (v Violation) String() string {
	switch v.Kind {
	case ViolationUnbacked:
		return fmt.Sprintf("sell of %s %s ignored: nothing held", v.Requested, v.Symbol)
	default:
		return fmt.Sprintf("sell of %s %s exceeds holding of %s", v.Requested, v.Symbol, v.Held)
	}
}

// Result is the output of one aggregation pass.
type Result struct {
	Positions  []domain.Position
	Violations []Violation
	Warnings   []string
}

// Engine computes positions. It holds configuration only and is safe for
// concurrent use.
type Engine struct {
	classifier classify.Classifier
	policy     SellPolicy
}

// Option configures an Engine.
type Option func(*Engine)

// WithClassifier replaces the default heuristic classifier.
func WithClassifier(c classify.Classifier) Option {
	return func(e *Engine) {
		if c != nil {
			e.classifier = c
		}
	}
}

// WithSellPolicy sets how oversized sells are handled.
func WithSellPolicy(p SellPolicy) Option {
	return func(e *Engine) { e.policy = p }
}

// New creates an Engine with the heuristic classifier and SellIgnore.
func New(opts ...Option) *Engine {
	e := &Engine{classifier: classify.Default(), policy: SellIgnore}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Policy returns the configured sell policy.
func (e *Engine) Policy() SellPolicy { return e.policy }

// ComputePositions folds txs (oldest first) and values the open holdings
// against quotes using a default Engine.
func ComputePositions(txs []domain.Transaction, quotes domain.Quotes) []domain.Position {
	return New().ComputePositions(txs, quotes).Positions
}

// ComputePositions folds txs (oldest first) into per-symbol holdings and
// values every holding with a positive quantity. Positions are returned in
// the order their symbol first appears in txs.
func (e *Engine) ComputePositions(txs []domain.Transaction, quotes domain.Quotes) Result {
	state := e.fold(txs)

	open := lo.FilterMap(state.order, func(key string, _ int) (holding, bool) {
		h := state.holdings[key]
		return h, h.quantity.IsPositive()
	})

	var warnings []string
	positions := lo.Map(open, func(h holding, _ int) domain.Position {
		q, ok := quotes.Lookup(h.key)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("no quote for %s, valued at 0", h.key))
		}
		return h.value(q.Price)
	})

	total := lo.Reduce(positions, func(acc decimal.Decimal, p domain.Position, _ int) decimal.Decimal {
		return acc.Add(p.MarketValue)
	}, decimal.Zero)
	for i := range positions {
		positions[i].AllocationPercent = domain.Percent(positions[i].MarketValue, total)
	}

	return Result{
		Positions:  positions,
		Violations: state.violations,
		Warnings: append(lo.Map(state.violations, func(v Violation, _ int) string {
			return v.String()
		}), warnings...),
	}
}

// Violations replays txs and reports every sell the ledger cannot back.
func (e *Engine) Violations(txs []domain.Transaction) []Violation {
	return e.fold(txs).violations
}

// holding is the running state of one symbol during a fold.
type holding struct {
	key      string
	name     string
	class    domain.AssetClass
	quantity decimal.Decimal
	cost     decimal.Decimal
}

func (h holding) value(price decimal.Decimal) domain.Position {
	units := h.quantity.Mul(h.class.UnitMultiplier())
	marketValue := units.Mul(price)
	pl := marketValue.Sub(h.cost)
	return domain.Position{
		Symbol:              h.key,
		Name:                h.name,
		AssetClass:          h.class,
		Quantity:            h.quantity,
		AverageBuyPrice:     domain.SafeDiv(h.cost, units),
		CurrentPrice:        price,
		CostBasis:           h.cost,
		MarketValue:         marketValue,
		UnrealizedPL:        pl,
		UnrealizedPLPercent: domain.Percent(pl, h.cost),
		Color:               h.class.Color(),
	}
}

// ledgerState is the accumulator of a fold. Each call to fold owns a fresh one.
type ledgerState struct {
	order      []string
	holdings   map[string]holding
	violations []Violation
}

func (e *Engine) fold(txs []domain.Transaction) ledgerState {
	return lo.Reduce(txs, func(s ledgerState, tx domain.Transaction, _ int) ledgerState {
		key := tx.Key()
		h, seen := s.holdings[key]
		if !seen {
			// Class is fixed at first sight and never re-resolved.
			h = holding{key: key, name: key, class: e.classifier.Classify(tx.Symbol)}
			s.order = append(s.order, key)
		}
		if h.name == key && tx.Name != "" {
			h.name = tx.Name
		}

		var v *Violation
		switch tx.Side {
		case domain.SideBuy:
			h = h.buy(tx)
		case domain.SideSell:
			h, v = e.sell(h, tx)
		}
		if v != nil {
			s.violations = append(s.violations, *v)
		}
		// The map is shared by every step of this fold and by nothing else,
		// so writing through the value copy is safe.
		s.holdings[key] = h
		return s
	}, ledgerState{holdings: make(map[string]holding)})
}

func (h holding) buy(tx domain.Transaction) holding {
	h.quantity = h.quantity.Add(tx.Quantity)
	h.cost = h.cost.Add(tx.Gross(h.class))
	return h
}

// sell reduces the holding at the current average price, so the average
// itself is unchanged.
func (e *Engine) sell(h holding, tx domain.Transaction) (holding, *Violation) {
	if !h.quantity.IsPositive() {
		return h, &Violation{
			TransactionID: tx.ID,
			Symbol:        h.key,
			Kind:          ViolationUnbacked,
			Requested:     tx.Quantity,
			Held:          h.quantity,
		}
	}

	qty := tx.Quantity
	var v *Violation
	if qty.GreaterThan(h.quantity) {
		v = &Violation{
			TransactionID: tx.ID,
			Symbol:        h.key,
			Kind:          ViolationOversell,
			Requested:     qty,
			Held:          h.quantity,
		}
		switch e.policy {
		case SellReject:
			return h, v
		case SellClamp:
			qty = h.quantity
		}
	}

	// qty * multiplier * (cost / (held * multiplier)) == cost * qty / held
	h.cost = h.cost.Sub(h.cost.Mul(qty).Div(h.quantity))
	h.quantity = h.quantity.Sub(qty)
	return h, v
}
