// Package journal records trades and keeps the ledger consistent with the
// configured sell policy.
package journal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/darkbear/internal/domain"
	"github.com/mtlprog/darkbear/internal/portfolio"
)

var (
	// ErrInvalid wraps every validation failure.
	ErrInvalid = errors.New("invalid transaction")
	// ErrOversell is returned under the reject policy when a change would
	// leave a sell without enough holdings behind it.
	ErrOversell = errors.New("sell exceeds holdings")
)

// NewTransaction is the user-supplied part of a trade.
type NewTransaction struct {
	Symbol   string          `json:"symbol"`
	Name     string          `json:"name"`
	Side     string          `json:"type"`
	Date     string          `json:"date"`
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Notes    string          `json:"notes"`
}

// Service manages the transaction journal.
type Service struct {
	mu     sync.Mutex
	repo   Repository
	engine *portfolio.Engine
	now    func() time.Time
	newID  func() string
}

// NewService creates a journal service. engine decides whether oversized
// sells are rejected; nil uses the default engine.
func NewService(repo Repository, engine *portfolio.Engine) *Service {
	if repo == nil {
		panic("journal.NewService: repo must not be nil")
	}
	if engine == nil {
		engine = portfolio.New()
	}
	return &Service{
		repo:   repo,
		engine: engine,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Add validates nt and appends it to the journal.
func (s *Service) Add(ctx context.Context, nt NewTransaction) (domain.Transaction, error) {
	tx, err := s.build(nt)
	if err != nil {
		return domain.Transaction{}, err
	}
	tx.ID = s.newID()
	tx.CreatedAt = s.now().UTC()

	err = s.write(ctx, func(ctx context.Context) error {
		if err := s.checkLedger(ctx, func(txs []domain.Transaction) []domain.Transaction {
			return append(txs, tx)
		}); err != nil {
			return err
		}
		if err := s.repo.Insert(ctx, tx); err != nil {
			return fmt.Errorf("adding transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Transaction{}, err
	}
	return tx, nil
}

// Update replaces the trade identified by id. CreatedAt is preserved.
func (s *Service) Update(ctx context.Context, id string, nt NewTransaction) (domain.Transaction, error) {
	var tx domain.Transaction
	err := s.write(ctx, func(ctx context.Context) error {
		existing, err := s.repo.Get(ctx, id)
		if err != nil {
			return err
		}
		tx, err = s.build(nt)
		if err != nil {
			return err
		}
		tx.ID = existing.ID
		tx.CreatedAt = existing.CreatedAt

		if err := s.checkLedger(ctx, func(txs []domain.Transaction) []domain.Transaction {
			return lo.Map(txs, func(t domain.Transaction, _ int) domain.Transaction {
				if t.ID == id {
					return tx
				}
				return t
			})
		}); err != nil {
			return err
		}

		if err := s.repo.Update(ctx, tx); err != nil {
			if errors.Is(err, ErrNotFound) {
				return err
			}
			return fmt.Errorf("updating transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Transaction{}, err
	}
	return tx, nil
}

// Delete removes the trade identified by id.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.write(ctx, func(ctx context.Context) error {
		if _, err := s.repo.Get(ctx, id); err != nil {
			return err
		}
		if err := s.checkLedger(ctx, func(txs []domain.Transaction) []domain.Transaction {
			return lo.Reject(txs, func(t domain.Transaction, _ int) bool { return t.ID == id })
		}); err != nil {
			return err
		}
		if err := s.repo.Delete(ctx, id); err != nil {
			if errors.Is(err, ErrNotFound) {
				return err
			}
			return fmt.Errorf("deleting transaction: %w", err)
		}
		return nil
	})
}

// write runs a read-check-write sequence with no other write of this
// service in between. Repositories implementing Locker extend the
// exclusion to every process sharing the store.
func (s *Service) write(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.repo.(Locker); ok {
		return l.WithWriteLock(ctx, fn)
	}
	return fn(ctx)
}

// List returns the journal oldest first.
func (s *Service) List(ctx context.Context) ([]domain.Transaction, error) {
	txs, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	return Chronological(txs), nil
}

// Symbols returns the distinct normalized symbols in first-seen order.
func (s *Service) Symbols(ctx context.Context) ([]string, error) {
	txs, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return lo.Uniq(lo.Map(txs, func(tx domain.Transaction, _ int) string { return tx.Key() })), nil
}

// checkLedger replays the journal before and after change. Under the reject
// policy a change that introduces any new violation fails with ErrOversell.
func (s *Service) checkLedger(ctx context.Context, change func([]domain.Transaction) []domain.Transaction) error {
	if s.engine.Policy() != portfolio.SellReject {
		return nil
	}
	current, err := s.List(ctx)
	if err != nil {
		return err
	}

	before := lo.SliceToMap(s.engine.Violations(current), func(v portfolio.Violation) (string, bool) {
		return v.TransactionID, true
	})
	candidate := Chronological(change(append([]domain.Transaction(nil), current...)))
	introduced := lo.Filter(s.engine.Violations(candidate), func(v portfolio.Violation, _ int) bool {
		return !before[v.TransactionID]
	})
	if len(introduced) > 0 {
		return fmt.Errorf("%w: %s", ErrOversell, introduced[0])
	}
	return nil
}

func (s *Service) build(nt NewTransaction) (domain.Transaction, error) {
	symbol := strings.TrimSpace(nt.Symbol)
	if symbol == "" {
		return domain.Transaction{}, fmt.Errorf("%w: symbol is required", ErrInvalid)
	}
	side, err := domain.ParseSide(nt.Side)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if !nt.Quantity.IsPositive() {
		return domain.Transaction{}, fmt.Errorf("%w: quantity must be positive", ErrInvalid)
	}
	if nt.Price.IsNegative() {
		return domain.Transaction{}, fmt.Errorf("%w: price must not be negative", ErrInvalid)
	}

	date := domain.TruncateDate(s.now())
	if strings.TrimSpace(nt.Date) != "" {
		date, err = ParseDate(strings.TrimSpace(nt.Date))
		if err != nil {
			return domain.Transaction{}, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
	}
	if date.After(domain.TruncateDate(s.now())) {
		return domain.Transaction{}, fmt.Errorf("%w: date %s is in the future", ErrInvalid, date.Format(domain.DateLayout))
	}

	return domain.Transaction{
		Symbol:   strings.ToUpper(symbol),
		Name:     strings.TrimSpace(nt.Name),
		Side:     side,
		Date:     date,
		Quantity: nt.Quantity,
		Price:    nt.Price,
		Notes:    strings.TrimSpace(nt.Notes),
	}, nil
}
