package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	DatabaseURL           string
	HTTPPort              string
	AdminAPIKey           string
	PortfolioSlug         string
	ReportingCurrency     string
	FXRate                decimal.Decimal
	SellPolicy            string
	Watchlist             []string
	CoinGeckoURL          string
	CoinGeckoDelay        time.Duration
	CoinGeckoRetryMax     int
	GeminiAPIKey          string
	GeminiModel           string
	QuoteStaleThreshold   time.Duration
	QuoteCacheTTL         time.Duration
	QuoteWorkerInterval   time.Duration
	ReportWorkerInterval  time.Duration
	GoogleSheetsID        string
	GoogleCredentialsJSON string
	LogLevel              string
	LogFormat             string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	return Config{
		DatabaseURL:           envOrDefaultWarn("DATABASE_URL", ""),
		HTTPPort:              envOrDefault("HTTP_PORT", "8080"),
		AdminAPIKey:           envOrDefault("ADMIN_API_KEY", ""),
		PortfolioSlug:         envOrDefault("PORTFOLIO_SLUG", "default"),
		ReportingCurrency:     strings.ToUpper(envOrDefault("REPORTING_CURRENCY", "IDR")),
		FXRate:                envOrDefaultDecimal("FX_RATE", decimal.NewFromInt(15800)),
		SellPolicy:            envOrDefault("SELL_POLICY", "ignore"),
		Watchlist:             envOrDefaultList("WATCHLIST", []string{"MSFT", "GOOGL", "AMZN", "META", "ETH", "SOL"}),
		CoinGeckoURL:          envOrDefault("COINGECKO_URL", "https://api.coingecko.com/api/v3"),
		CoinGeckoDelay:        envOrDefaultDuration("COINGECKO_DELAY", 6*time.Second),
		CoinGeckoRetryMax:     envOrDefaultInt("COINGECKO_RETRY_MAX", 5),
		GeminiAPIKey:          envOrDefault("GEMINI_API_KEY", ""),
		GeminiModel:           envOrDefault("GEMINI_MODEL", "gemini-2.5-flash"),
		QuoteStaleThreshold:   envOrDefaultDuration("QUOTE_STALE_THRESHOLD", 2*time.Hour),
		QuoteCacheTTL:         envOrDefaultDuration("QUOTE_CACHE_TTL", 30*time.Second),
		QuoteWorkerInterval:   envOrDefaultDuration("QUOTE_WORKER_INTERVAL", 1*time.Minute),
		ReportWorkerInterval:  envOrDefaultDuration("REPORT_WORKER_INTERVAL", 24*time.Hour),
		GoogleSheetsID:        envOrDefault("GOOGLE_SHEETS_ID", ""),
		GoogleCredentialsJSON: envOrDefault("GOOGLE_CREDENTIALS_JSON", ""),
		LogLevel:              envOrDefault("LOG_LEVEL", "info"),
		LogFormat:             envOrDefault("LOG_FORMAT", "text"),
	}
}

// SlogLevel maps LogLevel to a slog level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrDefaultWarn(key, defaultVal string) string {
	v := envOrDefault(key, defaultVal)
	if v == "" {
		slog.Warn("required env var not set", "key", key)
	}
	return v
}

func envOrDefaultInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			slog.Warn("invalid integer env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return n
	}
	return defaultVal
}

func envOrDefaultDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			slog.Warn("invalid duration env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return d
	}
	return defaultVal
}

func envOrDefaultDecimal(key string, defaultVal decimal.Decimal) decimal.Decimal {
	if v := os.Getenv(key); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil || !d.IsPositive() {
			slog.Warn("invalid decimal env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return d
	}
	return defaultVal
}

func envOrDefaultList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.ToUpper(strings.TrimSpace(item)); item != "" {
			out = append(out, item)
		}
	}
	return out
}
