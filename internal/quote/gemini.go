package quote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"google.golang.org/genai"

	"github.com/mtlprog/darkbear/internal/domain"
)

// ErrNoPrice is returned when a search answer carries no usable price.
var ErrNoPrice = errors.New("no price in answer")

// contentGenerator is the part of *genai.Models used here.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiProvider looks prices up through Gemini with Google Search grounding.
// It handles any symbol and is meant to sit after the specialized providers.
type GeminiProvider struct {
	models   contentGenerator
	model    string
	currency string
	now      func() time.Time
}

// NewGeminiProvider creates a provider using an API-key Gemini client.
func NewGeminiProvider(ctx context.Context, apiKey, model, currency string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating Gemini client: %w", err)
	}
	return newGeminiProvider(client.Models, model, currency), nil
}

func newGeminiProvider(models contentGenerator, model, currency string) *GeminiProvider {
	return &GeminiProvider{
		models:   models,
		model:    model,
		currency: strings.ToUpper(currency),
		now:      time.Now,
	}
}

func (g *GeminiProvider) Name() string { return "gemini" }

func (g *GeminiProvider) Supports(string, domain.AssetClass) bool { return true }

// Fetch queries each symbol in turn. Symbols that fail are logged and left
// out; an error is returned only when nothing could be priced.
func (g *GeminiProvider) Fetch(ctx context.Context, symbols []string) (map[string]domain.MarketQuote, error) {
	result := make(map[string]domain.MarketQuote, len(symbols))
	var lastErr error
	for _, symbol := range lo.Uniq(lo.Map(symbols, func(s string, _ int) string { return domain.SymbolKey(s) })) {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		q, err := g.search(ctx, symbol)
		if err != nil {
			slog.Warn("Gemini price search failed", "symbol", symbol, "error", err)
			lastErr = err
			continue
		}
		result[symbol] = q
	}
	if len(result) == 0 && lastErr != nil {
		return nil, fmt.Errorf("searching prices: %w", lastErr)
	}
	return result, nil
}

type searchAnswer struct {
	Symbol        string          `json:"symbol"`
	PriceIDR      decimal.Decimal `json:"price_idr"`
	ChangePercent decimal.Decimal `json:"change_percent"`
}

func (g *GeminiProvider) prompt(symbol string) string {
	return fmt.Sprintf(`Get the current price and 24h percentage change for %s from Google Finance. `+
		`Return strictly a JSON object with keys: symbol, price_idr, change_percent. `+
		`Example: {"symbol": "BBCA", "price_idr": 10200, "change_percent": 1.5}. `+
		`price_idr must be expressed in %s; convert foreign listings using current exchange rates.`,
		symbol, g.currency)
}

func (g *GeminiProvider) search(ctx context.Context, symbol string) (domain.MarketQuote, error) {
	// Search grounding does not combine with a JSON response MIME type, so
	// the answer is extracted from free text.
	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(g.prompt(symbol)), &genai.GenerateContentConfig{
		Tools: []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
	})
	if err != nil {
		return domain.MarketQuote{}, fmt.Errorf("generating content for %s: %w", symbol, err)
	}

	answer, err := parseAnswer(resp.Text())
	if err != nil {
		return domain.MarketQuote{}, fmt.Errorf("parsing answer for %s: %w", symbol, err)
	}

	return domain.MarketQuote{
		Symbol:    symbol,
		Price:     answer.PriceIDR,
		Change24h: answer.ChangePercent,
		UpdatedAt: g.now().UTC(),
		Sources:   groundingSources(resp),
		Provider:  g.Name(),
	}, nil
}

// parseAnswer extracts the first JSON object from text.
func parseAnswer(text string) (searchAnswer, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return searchAnswer{}, fmt.Errorf("%w: no JSON object", ErrNoPrice)
	}

	var a searchAnswer
	if err := json.Unmarshal([]byte(text[start:end+1]), &a); err != nil {
		return searchAnswer{}, fmt.Errorf("decoding JSON: %w", err)
	}
	if !a.PriceIDR.IsPositive() {
		return searchAnswer{}, ErrNoPrice
	}
	return a, nil
}

func groundingSources(resp *genai.GenerateContentResponse) []domain.Source {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].GroundingMetadata == nil {
		return nil
	}
	return lo.FilterMap(resp.Candidates[0].GroundingMetadata.GroundingChunks, func(c *genai.GroundingChunk, _ int) (domain.Source, bool) {
		if c == nil || c.Web == nil || c.Web.URI == "" {
			return domain.Source{}, false
		}
		return domain.Source{URI: c.Web.URI, Title: c.Web.Title}, true
	})
}
