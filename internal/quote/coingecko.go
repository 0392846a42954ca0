package quote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/darkbear/internal/domain"
)

// SymbolMapping maps portfolio symbols to CoinGecko IDs.
var SymbolMapping = map[string]string{
	"BTC":  "bitcoin",
	"ETH":  "ethereum",
	"SOL":  "solana",
	"BNB":  "binancecoin",
	"XRP":  "ripple",
	"ADA":  "cardano",
	"DOGE": "dogecoin",
	"USDT": "tether",
	"GOLD": "pax-gold",
	"XAU":  "pax-gold",
}

// gramsPerTroyOunce converts PAXG (one troy ounce) to a per-gram price.
var gramsPerTroyOunce = decimal.RequireFromString("31.1035")

// CoinGeckoClient fetches USD prices from the CoinGecko API.
type CoinGeckoClient struct {
	baseURL    string
	httpClient *http.Client
	delay      time.Duration
	maxRetries int
	now        func() time.Time
}

// NewCoinGeckoClient creates a new CoinGecko API client.
func NewCoinGeckoClient(baseURL string, delay time.Duration, maxRetries int) *CoinGeckoClient {
	return &CoinGeckoClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		delay:      delay,
		maxRetries: maxRetries,
		now:        time.Now,
	}
}

func (c *CoinGeckoClient) Name() string { return "coingecko" }

// Supports reports whether symbol has a CoinGecko ID.
func (c *CoinGeckoClient) Supports(symbol string, _ domain.AssetClass) bool {
	_, ok := SymbolMapping[domain.SymbolKey(symbol)]
	return ok
}

type coinPrice struct {
	USD       decimal.Decimal `json:"usd"`
	Change24h decimal.Decimal `json:"usd_24h_change"`
}

// Fetch returns USD quotes for the supported symbols among symbols.
func (c *CoinGeckoClient) Fetch(ctx context.Context, symbols []string) (map[string]domain.MarketQuote, error) {
	keys := lo.Filter(lo.Uniq(lo.Map(symbols, func(s string, _ int) string { return domain.SymbolKey(s) })),
		func(s string, _ int) bool { return c.Supports(s, "") })
	if len(keys) == 0 {
		return map[string]domain.MarketQuote{}, nil
	}

	ids := lo.Uniq(lo.Map(keys, func(s string, _ int) string { return SymbolMapping[s] }))
	sort.Strings(ids)

	url := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd&include_24hr_change=true", c.baseURL, strings.Join(ids, ","))

	body, err := c.fetchWithRetry(ctx, url)
	if err != nil {
		return nil, err
	}

	// {"bitcoin":{"usd":65000,"usd_24h_change":-1.2},...}
	var raw map[string]coinPrice
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parsing CoinGecko response: %w", err)
	}

	now := c.now().UTC()
	result := make(map[string]domain.MarketQuote, len(keys))
	for _, symbol := range keys {
		p, ok := raw[SymbolMapping[symbol]]
		if !ok || !p.USD.IsPositive() {
			continue
		}
		price := p.USD
		if SymbolMapping[symbol] == "pax-gold" {
			price = price.Div(gramsPerTroyOunce)
		}
		result[symbol] = domain.MarketQuote{
			Symbol:    symbol,
			Price:     price,
			Change24h: p.Change24h,
			UpdatedAt: now,
			Provider:  c.Name(),
		}
	}

	return result, nil
}

func (c *CoinGeckoClient) fetchWithRetry(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := range c.maxRetries + 1 {
		if attempt > 0 {
			baseDelay := c.delay
			if baseDelay == 0 {
				baseDelay = 10 * time.Second
			}
			delay := baseDelay * time.Duration(1<<uint(attempt-1))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("creating CoinGecko request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("CoinGecko request failed: %w", err)
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("reading CoinGecko response: %w", err)
		}

		if resp.StatusCode == http.StatusOK {
			return body, nil
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("CoinGecko rate limited (attempt %d/%d)", attempt+1, c.maxRetries+1)
			continue
		}

		return nil, fmt.Errorf("CoinGecko HTTP %d: %s", resp.StatusCode, string(body))
	}

	return nil, lastErr
}
