// Package quote fetches, stores and serves market quotes.
package quote

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/darkbear/internal/domain"
)

// Provider fetches quotes for the symbols it supports.
type Provider interface {
	Name() string
	Supports(symbol string, class domain.AssetClass) bool
	Fetch(ctx context.Context, symbols []string) (map[string]domain.MarketQuote, error)
}

// ConvertFlat multiplies the quote price by rate. The 24h change is a
// percentage and stays as is.
func ConvertFlat(q domain.MarketQuote, rate decimal.Decimal) domain.MarketQuote {
	q.Price = q.Price.Mul(rate)
	return q
}

// converting wraps a provider whose prices are in a foreign currency.
type converting struct {
	Provider
	rate decimal.Decimal
}

// Converting returns a provider that converts every quote from p with ConvertFlat.
// A rate of 1 returns p unchanged.
func Converting(p Provider, rate decimal.Decimal) Provider {
	if rate.Equal(decimal.NewFromInt(1)) {
		return p
	}
	return &converting{Provider: p, rate: rate}
}

func (c *converting) Fetch(ctx context.Context, symbols []string) (map[string]domain.MarketQuote, error) {
	quotes, err := c.Provider.Fetch(ctx, symbols)
	for sym, q := range quotes {
		quotes[sym] = ConvertFlat(q, c.rate)
	}
	return quotes, err
}
