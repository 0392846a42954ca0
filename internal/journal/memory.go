package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/darkbear/internal/domain"
)

// MemoryRepository keeps the journal in memory. It backs the offline CLI
// (persisted to a JSON ledger file) and tests.
type MemoryRepository struct {
	mu  sync.RWMutex
	txs []domain.Transaction
}

// NewMemoryRepository creates a repository seeded with txs.
func NewMemoryRepository(txs ...domain.Transaction) *MemoryRepository {
	r := &MemoryRepository{}
	r.txs = append(r.txs, txs...)
	return r
}

func (r *MemoryRepository) Insert(_ context.Context, tx domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.indexOf(tx.ID); ok {
		return fmt.Errorf("inserting transaction %s: duplicate id", tx.ID)
	}
	r.txs = append(r.txs, tx)
	return nil
}

func (r *MemoryRepository) Update(_ context.Context, tx domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.indexOf(tx.ID)
	if !ok {
		return ErrNotFound
	}
	tx.CreatedAt = r.txs[i].CreatedAt
	r.txs[i] = tx
	return nil
}

func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.indexOf(id)
	if !ok {
		return ErrNotFound
	}
	r.txs = append(r.txs[:i:i], r.txs[i+1:]...)
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, id string) (domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.indexOf(id)
	if !ok {
		return domain.Transaction{}, ErrNotFound
	}
	return r.txs[i], nil
}

func (r *MemoryRepository) List(_ context.Context) ([]domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Chronological(r.txs), nil
}

func (r *MemoryRepository) indexOf(id string) (int, bool) {
	_, i, ok := lo.FindIndexOf(r.txs, func(tx domain.Transaction) bool { return tx.ID == id })
	return i, ok
}

// record is the on-disk shape of a ledger entry. Dates are plain calendar
// dates; RFC 3339 timestamps are accepted on load.
type record struct {
	ID        string          `json:"id"`
	Symbol    string          `json:"symbol"`
	Name      string          `json:"name,omitempty"`
	Side      string          `json:"type"`
	Date      string          `json:"date"`
	Quantity  decimal.Decimal `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Notes     string          `json:"notes,omitempty"`
	CreatedAt *time.Time      `json:"createdAt,omitempty"`
}

// LoadFile reads a JSON ledger file. A missing file yields an empty journal.
// Entries without an id get a fresh one.
func LoadFile(path string) (*MemoryRepository, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NewMemoryRepository(), nil
		}
		return nil, fmt.Errorf("reading ledger %s: %w", path, err)
	}

	var records []record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decoding ledger %s: %w", path, err)
	}

	txs := make([]domain.Transaction, 0, len(records))
	for i, rec := range records {
		tx, err := rec.transaction()
		if err != nil {
			return nil, fmt.Errorf("ledger entry %d: %w", i, err)
		}
		txs = append(txs, tx)
	}
	return NewMemoryRepository(txs...), nil
}

// SaveFile writes the journal to path as indented JSON, oldest first.
func (r *MemoryRepository) SaveFile(path string) error {
	txs, _ := r.List(context.Background())
	records := lo.Map(txs, func(tx domain.Transaction, _ int) record {
		created := tx.CreatedAt
		return record{
			ID:        tx.ID,
			Symbol:    tx.Symbol,
			Name:      tx.Name,
			Side:      string(tx.Side),
			Date:      tx.Date.Format(domain.DateLayout),
			Quantity:  tx.Quantity,
			Price:     tx.Price,
			Notes:     tx.Notes,
			CreatedAt: &created,
		}
	})

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding ledger: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing ledger %s: %w", path, err)
	}
	return nil
}

func (rec record) transaction() (domain.Transaction, error) {
	side, err := domain.ParseSide(rec.Side)
	if err != nil {
		return domain.Transaction{}, err
	}
	date, err := ParseDate(rec.Date)
	if err != nil {
		return domain.Transaction{}, err
	}
	tx := domain.Transaction{
		ID:       rec.ID,
		Symbol:   rec.Symbol,
		Name:     rec.Name,
		Side:     side,
		Date:     date,
		Quantity: rec.Quantity,
		Price:    rec.Price,
		Notes:    rec.Notes,
	}
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if rec.CreatedAt != nil {
		tx.CreatedAt = rec.CreatedAt.UTC()
	}
	return tx, nil
}

// ParseDate parses a calendar date (2006-01-02) or an RFC 3339 timestamp
// and truncates it to midnight UTC.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(domain.DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return domain.TruncateDate(t), nil
}
