package quote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mtlprog/darkbear/internal/domain"
)

// ErrNotFound indicates that no quote is stored for the symbol.
var ErrNotFound = errors.New("quote not found")

// Repository defines persistent storage for market quotes.
type Repository interface {
	Save(ctx context.Context, q domain.MarketQuote) error
	Get(ctx context.Context, symbol string) (domain.MarketQuote, error)
	All(ctx context.Context) ([]domain.MarketQuote, error)
}

// PgRepository implements Repository with PostgreSQL.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewPgRepository creates a new PostgreSQL quote repository.
func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) Save(ctx context.Context, q domain.MarketQuote) error {
	sources, err := json.Marshal(nonNilSources(q.Sources))
	if err != nil {
		return fmt.Errorf("encoding sources for %s: %w", q.Symbol, err)
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO market_quotes (symbol, price, change_24h, provider, sources, updated_at)
		 VALUES ($1, $2, $3, $4, $5::jsonb, $6)
		 ON CONFLICT (symbol) DO UPDATE
		 SET price = $2, change_24h = $3, provider = $4, sources = $5::jsonb, updated_at = $6`,
		domain.SymbolKey(q.Symbol), q.Price, q.Change24h, q.Provider, sources, q.UpdatedAt)
	if err != nil {
		return fmt.Errorf("saving quote for %s: %w", q.Symbol, err)
	}
	return nil
}

const selectQuote = `SELECT symbol, price, change_24h, provider, sources, updated_at FROM market_quotes`

func (r *PgRepository) Get(ctx context.Context, symbol string) (domain.MarketQuote, error) {
	q, err := scanQuote(r.pool.QueryRow(ctx, selectQuote+` WHERE symbol = $1`, domain.SymbolKey(symbol)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.MarketQuote{}, ErrNotFound
		}
		return domain.MarketQuote{}, fmt.Errorf("getting quote for %s: %w", symbol, err)
	}
	return q, nil
}

func (r *PgRepository) All(ctx context.Context) ([]domain.MarketQuote, error) {
	rows, err := r.pool.Query(ctx, selectQuote+` ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("getting all quotes: %w", err)
	}
	defer rows.Close()

	var quotes []domain.MarketQuote
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning quote: %w", err)
		}
		quotes = append(quotes, q)
	}
	return quotes, rows.Err()
}

func scanQuote(row pgx.Row) (domain.MarketQuote, error) {
	var (
		q       domain.MarketQuote
		sources []byte
	)
	if err := row.Scan(&q.Symbol, &q.Price, &q.Change24h, &q.Provider, &sources, &q.UpdatedAt); err != nil {
		return domain.MarketQuote{}, err
	}
	if len(sources) > 0 {
		if err := json.Unmarshal(sources, &q.Sources); err != nil {
			return domain.MarketQuote{}, fmt.Errorf("decoding sources for %s: %w", q.Symbol, err)
		}
	}
	return q, nil
}

func nonNilSources(s []domain.Source) []domain.Source {
	if s == nil {
		return []domain.Source{}
	}
	return s
}

// LoadFile reads quotes from a JSON file holding either a list of quotes or
// an object keyed by symbol.
func LoadFile(path string) (domain.Quotes, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading quotes %s: %w", path, err)
	}

	var list []domain.MarketQuote
	if err := json.Unmarshal(data, &list); err == nil {
		return domain.QuotesFrom(list), nil
	}

	var byKey map[string]domain.MarketQuote
	if err := json.Unmarshal(data, &byKey); err != nil {
		return nil, fmt.Errorf("decoding quotes %s: %w", path, err)
	}
	out := make(domain.Quotes, len(byKey))
	for sym, q := range byKey {
		if q.Symbol == "" {
			q.Symbol = sym
		}
		out[domain.SymbolKey(sym)] = q
	}
	return out, nil
}
