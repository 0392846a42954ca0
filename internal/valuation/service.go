// Package valuation assembles the full portfolio view from the journal and
// the stored quotes.
package valuation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"

	"github.com/mtlprog/darkbear/internal/domain"
	"github.com/mtlprog/darkbear/internal/portfolio"
	"github.com/mtlprog/darkbear/internal/stats"
)

// TransactionLister provides the journal, oldest first.
type TransactionLister interface {
	List(ctx context.Context) ([]domain.Transaction, error)
}

// QuoteSource provides the latest quotes and their freshness.
type QuoteSource interface {
	Quotes(ctx context.Context) (domain.Quotes, error)
	Stale(ctx context.Context, threshold time.Duration) ([]string, error)
}

// Service orchestrates one valuation pass.
type Service struct {
	journal    TransactionLister
	quotes     QuoteSource
	engine     *portfolio.Engine
	staleAfter time.Duration
	now        func() time.Time
}

// NewService creates a valuation Service. journal and quotes are required;
// a nil engine uses the defaults. staleAfter <= 0 disables stale warnings.
func NewService(journal TransactionLister, quotes QuoteSource, engine *portfolio.Engine, staleAfter time.Duration) *Service {
	if journal == nil {
		panic("valuation.NewService: journal is nil")
	}
	if quotes == nil {
		panic("valuation.NewService: quotes is nil")
	}
	if engine == nil {
		engine = portfolio.New()
	}
	return &Service{
		journal:    journal,
		quotes:     quotes,
		engine:     engine,
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

// Valuate loads the journal and quotes and computes positions, totals and analytics.
func (s *Service) Valuate(ctx context.Context) (domain.PortfolioValuation, error) {
	txs, err := s.journal.List(ctx)
	if err != nil {
		return domain.PortfolioValuation{}, fmt.Errorf("listing transactions: %w", err)
	}
	quotes, err := s.quotes.Quotes(ctx)
	if err != nil {
		return domain.PortfolioValuation{}, fmt.Errorf("loading quotes: %w", err)
	}

	val := Assemble(s.engine, txs, quotes, s.now())

	if s.staleAfter > 0 {
		stale, err := s.quotes.Stale(ctx, s.staleAfter)
		if err != nil {
			slog.Warn("failed to check quote freshness", "error", err)
		}
		held := lo.SliceToMap(val.Positions, func(p domain.Position) (string, bool) { return p.Symbol, true })
		for _, sym := range stale {
			if held[domain.SymbolKey(sym)] {
				val.Warnings = append(val.Warnings, fmt.Sprintf("quote for %s is older than %s", domain.SymbolKey(sym), s.staleAfter))
			}
		}
	}

	return val, nil
}

// Assemble computes a valuation from an in-memory journal and quote set.
func Assemble(engine *portfolio.Engine, txs []domain.Transaction, quotes domain.Quotes, at time.Time) domain.PortfolioValuation {
	if engine == nil {
		engine = portfolio.New()
	}
	res := engine.ComputePositions(txs, quotes)
	positions := res.Positions
	if positions == nil {
		positions = []domain.Position{}
	}
	totals := stats.ComputeStats(positions, quotes)

	return domain.PortfolioValuation{
		Positions: positions,
		Stats:     totals,
		Analytics: stats.Summarize(positions, totals),
		Warnings:  res.Warnings,
		ValuedAt:  at.UTC(),
	}
}
