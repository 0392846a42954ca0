package quote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/mtlprog/darkbear/internal/classify"
	"github.com/mtlprog/darkbear/internal/domain"
)

// ErrNoQuotes is returned when a refresh could not price any symbol.
var ErrNoQuotes = errors.New("no quotes fetched")

// Service routes symbols to providers, stores the results and serves the
// latest quote set.
type Service struct {
	providers  []Provider
	repo       Repository
	classifier classify.Classifier
	cache      *quoteCache
	now        func() time.Time
}

// NewService creates a quote service. Providers are tried in order; the
// first one that supports a symbol owns it.
func NewService(repo Repository, classifier classify.Classifier, cacheTTL time.Duration, providers ...Provider) *Service {
	if repo == nil {
		panic("quote.NewService: repo must not be nil")
	}
	if classifier == nil {
		classifier = classify.Default()
	}
	return &Service{
		providers:  lo.Filter(providers, func(p Provider, _ int) bool { return p != nil }),
		repo:       repo,
		classifier: classifier,
		cache:      newQuoteCache(cacheTTL),
		now:        time.Now,
	}
}

// Refresh fetches quotes for symbols and stores them. Provider failures are
// logged and skipped. It fails only when no quote at all was fetched.
func (s *Service) Refresh(ctx context.Context, symbols []string) (domain.Quotes, error) {
	keys := lo.Uniq(lo.FilterMap(symbols, func(sym string, _ int) (string, bool) {
		k := domain.SymbolKey(sym)
		return k, k != ""
	}))
	if len(keys) == 0 {
		return domain.Quotes{}, nil
	}

	routed := lo.GroupBy(keys, func(sym string) int {
		class := s.classifier.Classify(sym)
		_, idx, ok := lo.FindIndexOf(s.providers, func(p Provider) bool { return p.Supports(sym, class) })
		if !ok {
			return -1
		}
		return idx
	})
	if unsupported := routed[-1]; len(unsupported) > 0 {
		slog.Warn("no quote provider for symbols", "symbols", unsupported)
	}

	fetched := make(domain.Quotes)
	for idx, p := range s.providers {
		batch := routed[idx]
		if len(batch) == 0 {
			continue
		}
		quotes, err := p.Fetch(ctx, batch)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			slog.Error("quote provider failed", "provider", p.Name(), "symbols", batch, "error", err)
			continue
		}
		for sym, q := range quotes {
			q.Symbol = domain.SymbolKey(sym)
			if q.Provider == "" {
				q.Provider = p.Name()
			}
			if err := s.repo.Save(ctx, q); err != nil {
				slog.Error("failed to store quote", "symbol", q.Symbol, "error", err)
				continue
			}
			fetched[q.Symbol] = q
		}
	}

	s.cache.invalidate()

	if len(fetched) == 0 {
		return nil, fmt.Errorf("refreshing %d symbols: %w", len(keys), ErrNoQuotes)
	}
	slog.Info("quotes refreshed", "requested", len(keys), "fetched", len(fetched))
	return fetched, nil
}

// Quotes returns every stored quote, served from cache while fresh. The
// returned map belongs to the caller.
func (s *Service) Quotes(ctx context.Context) (domain.Quotes, error) {
	now := s.now()
	if q, ok := s.cache.get(now); ok {
		return maps.Clone(q), nil
	}

	list, err := s.repo.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading quotes: %w", err)
	}
	quotes := domain.QuotesFrom(list)
	s.cache.set(quotes, now)
	return maps.Clone(quotes), nil
}

// Stale lists symbols whose stored quote is older than threshold, sorted.
func (s *Service) Stale(ctx context.Context, threshold time.Duration) ([]string, error) {
	quotes, err := s.Quotes(ctx)
	if err != nil {
		return nil, err
	}
	cutoff := s.now().Add(-threshold)
	stale := lo.FilterMap(lo.Values(quotes), func(q domain.MarketQuote, _ int) (string, bool) {
		return q.Symbol, q.UpdatedAt.Before(cutoff)
	})
	sort.Strings(stale)
	return stale, nil
}
