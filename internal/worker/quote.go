package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"

	"github.com/mtlprog/darkbear/internal/domain"
)

// QuoteRefresher fetches and stores quotes for a set of symbols.
type QuoteRefresher interface {
	Refresh(ctx context.Context, symbols []string) (domain.Quotes, error)
}

// SymbolSource lists the symbols present in the journal.
type SymbolSource interface {
	Symbols(ctx context.Context) ([]string, error)
}

// QuoteWorker periodically refreshes quotes for held and watched symbols.
type QuoteWorker struct {
	refresher QuoteRefresher
	symbols   SymbolSource
	watchlist []string
	interval  time.Duration
}

// NewQuoteWorker creates a new QuoteWorker. symbols may be nil, in which case
// only the watchlist is refreshed.
func NewQuoteWorker(refresher QuoteRefresher, symbols SymbolSource, watchlist []string, interval time.Duration) *QuoteWorker {
	return &QuoteWorker{
		refresher: refresher,
		symbols:   symbols,
		watchlist: watchlist,
		interval:  interval,
	}
}

// Tick runs one refresh over journal symbols followed by the watchlist.
func (w *QuoteWorker) Tick(ctx context.Context) error {
	var symbols []string
	if w.symbols != nil {
		held, err := w.symbols.Symbols(ctx)
		if err != nil {
			return fmt.Errorf("listing journal symbols: %w", err)
		}
		symbols = held
	}
	symbols = lo.Uniq(lo.Map(append(symbols, w.watchlist...), func(s string, _ int) string {
		return domain.SymbolKey(s)
	}))
	if len(symbols) == 0 {
		return nil
	}

	quotes, err := w.refresher.Refresh(ctx, symbols)
	if err != nil {
		return err
	}
	slog.Debug("QuoteWorker: refreshed", "symbols", len(symbols), "quotes", len(quotes))
	return nil
}

// Run starts the quote worker loop. It blocks until the context is cancelled.
func (w *QuoteWorker) Run(ctx context.Context) {
	slog.Info("QuoteWorker: starting", "interval", w.interval)

	// Fetch immediately on startup
	if err := w.Tick(ctx); err != nil {
		slog.Error("QuoteWorker: initial fetch failed", "error", err)
	} else {
		slog.Info("QuoteWorker: initial fetch completed")
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("QuoteWorker: shutting down")
			return
		case <-ticker.C:
			if err := w.Tick(ctx); err != nil {
				slog.Error("QuoteWorker: fetch failed", "error", err)
			} else {
				slog.Info("QuoteWorker: fetch completed")
			}
		}
	}
}
