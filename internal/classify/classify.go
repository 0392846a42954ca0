// Package classify maps free-text symbols to asset classes.
package classify

import (
	"strings"
	"unicode"

	"github.com/samber/lo"

	"github.com/mtlprog/darkbear/internal/domain"
)

// Classifier resolves the asset class of a symbol. Implementations must be
// total and deterministic.
type Classifier interface {
	Classify(symbol string) domain.AssetClass
}

// Func adapts a plain function to Classifier.
type Func func(symbol string) domain.AssetClass

// Classify calls f.
func (f Func) Classify(symbol string) domain.AssetClass { return f(symbol) }

// DefaultCryptoMarkers are ticker fragments that identify crypto assets.
var DefaultCryptoMarkers = []string{"BTC", "ETH", "SOL", "BNB"}

// DefaultCryptoTickers identify crypto assets only as a whole token of the
// symbol. Short tickers such as ADA occur inside unrelated names (PEGADAIAN).
var DefaultCryptoTickers = []string{"XRP", "ADA", "DOGE", "USDT"}

// DefaultMetalMarkers are fragments that identify precious metals and gold platforms.
var DefaultMetalMarkers = []string{"GOLD", "ANTM", "EMAS", "TREASURY", "UBS", "XAU"}

// Heuristic classifies by substring and whole-token match. Crypto is checked
// before metal markers; anything else is a stock.
type Heuristic struct {
	crypto  []string
	tickers []string
	metal   []string
}

// NewHeuristic creates a Heuristic with the given marker sets. Markers are
// matched case-insensitively.
func NewHeuristic(crypto, metal []string) *Heuristic {
	return &Heuristic{crypto: markers(crypto), metal: markers(metal)}
}

// WithTickers returns a copy of h that also treats each ticker as crypto
// when it appears as a whole token of the symbol.
func (h *Heuristic) WithTickers(tickers ...string) *Heuristic {
	out := *h
	out.tickers = append(append([]string(nil), h.tickers...), markers(tickers)...)
	return &out
}

// Default returns the Heuristic with the built-in marker sets.
func Default() *Heuristic {
	return NewHeuristic(DefaultCryptoMarkers, DefaultMetalMarkers).WithTickers(DefaultCryptoTickers...)
}

func markers(in []string) []string {
	return lo.FilterMap(in, func(m string, _ int) (string, bool) {
		m = strings.ToUpper(strings.TrimSpace(m))
		return m, m != ""
	})
}

// tokens splits a symbol on every non-alphanumeric rune: "ADA-USD" is ADA and USD.
func tokens(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Classify implements Classifier.
func (h *Heuristic) Classify(symbol string) domain.AssetClass {
	s := strings.ToUpper(symbol)
	contains := func(m string) bool { return strings.Contains(s, m) }
	switch {
	case lo.SomeBy(h.crypto, contains):
		return domain.AssetClassCrypto
	case len(h.tickers) > 0 && lo.Some(tokens(s), h.tickers):
		return domain.AssetClassCrypto
	case lo.SomeBy(h.metal, contains):
		return domain.AssetClassGold
	default:
		return domain.AssetClassStock
	}
}

// Registry classifies from an explicit symbol table and defers unknown
// symbols to a fallback.
type Registry struct {
	classes  map[string]domain.AssetClass
	fallback Classifier
}

// NewRegistry creates a Registry. A nil fallback classifies unknown symbols as stocks.
func NewRegistry(classes map[string]domain.AssetClass, fallback Classifier) *Registry {
	return &Registry{
		classes: lo.MapKeys(classes, func(_ domain.AssetClass, k string) string {
			return domain.SymbolKey(k)
		}),
		fallback: fallback,
	}
}

// Classify implements Classifier.
func (r *Registry) Classify(symbol string) domain.AssetClass {
	if c, ok := r.classes[domain.SymbolKey(symbol)]; ok {
		return c
	}
	if r.fallback == nil {
		return domain.AssetClassStock
	}
	return r.fallback.Classify(symbol)
}
