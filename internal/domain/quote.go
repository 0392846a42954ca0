package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Source is a web page a quote was derived from.
type Source struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

// MarketQuote is a price snapshot for one symbol in the reporting currency.
type MarketQuote struct {
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	Change24h decimal.Decimal `json:"change24h"`
	UpdatedAt time.Time       `json:"lastUpdated"`
	Sources   []Source        `json:"sources,omitempty"`
	Provider  string          `json:"provider,omitempty"`
}

// Quotes maps uppercase symbols to their latest quote.
type Quotes map[string]MarketQuote

// Lookup returns the quote for symbol, matching case-insensitively.
func (q Quotes) Lookup(symbol string) (MarketQuote, bool) {
	if q == nil {
		return MarketQuote{}, false
	}
	mq, ok := q[SymbolKey(symbol)]
	return mq, ok
}

// QuotesFrom indexes a quote list by normalized symbol. Later entries win.
func QuotesFrom(list []MarketQuote) Quotes {
	out := make(Quotes, len(list))
	for _, mq := range list {
		out[SymbolKey(mq.Symbol)] = mq
	}
	return out
}
