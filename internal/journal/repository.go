package journal

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mtlprog/darkbear/internal/domain"
)

// ErrNotFound indicates that the requested transaction does not exist.
var ErrNotFound = errors.New("transaction not found")

// Repository defines persistent storage for the transaction journal.
// List returns transactions oldest first.
type Repository interface {
	Insert(ctx context.Context, tx domain.Transaction) error
	Update(ctx context.Context, tx domain.Transaction) error
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (domain.Transaction, error)
	List(ctx context.Context) ([]domain.Transaction, error)
}

// Locker is implemented by repositories that can hold a store-wide lock
// over a journal write.
type Locker interface {
	WithWriteLock(ctx context.Context, fn func(ctx context.Context) error) error
}

// Chronological returns a copy of txs ordered by trade date, then by
// creation time. Transactions on the same date keep their relative order
// when CreatedAt ties.
func Chronological(txs []domain.Transaction) []domain.Transaction {
	out := make([]domain.Transaction, len(txs))
	copy(out, txs)
	sort.SliceStable(out, func(i, j int) bool {
		di, dj := domain.TruncateDate(out[i].Date), domain.TruncateDate(out[j].Date)
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// PgRepository implements Repository with PostgreSQL.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewPgRepository creates a new PostgreSQL journal repository.
func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// journalLockKey identifies the advisory lock taken around journal writes.
const journalLockKey int64 = 0x6461726b62656172

// WithWriteLock runs fn while holding a transaction-scoped advisory lock,
// so writers in other processes wait for fn to return.
func (r *PgRepository) WithWriteLock(ctx context.Context, fn func(ctx context.Context) error) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, journalLockKey); err != nil {
			return fmt.Errorf("locking journal: %w", err)
		}
		return fn(ctx)
	})
}

const selectColumns = `SELECT id::text, symbol, name, side, trade_date, quantity, price, notes, created_at FROM transactions`

func (r *PgRepository) Insert(ctx context.Context, tx domain.Transaction) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO transactions (id, symbol, name, side, trade_date, quantity, price, notes, created_at)
		 VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9)`,
		tx.ID, tx.Symbol, tx.Name, string(tx.Side), tx.Date, tx.Quantity, tx.Price, tx.Notes, tx.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting transaction %s: %w", tx.ID, err)
	}
	return nil
}

func (r *PgRepository) Update(ctx context.Context, tx domain.Transaction) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE transactions
		 SET symbol = $2, name = $3, side = $4, trade_date = $5, quantity = $6, price = $7, notes = $8
		 WHERE id = $1::uuid`,
		tx.ID, tx.Symbol, tx.Name, string(tx.Side), tx.Date, tx.Quantity, tx.Price, tx.Notes)
	if err != nil {
		return fmt.Errorf("updating transaction %s: %w", tx.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PgRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM transactions WHERE id = $1::uuid`, id)
	if err != nil {
		return fmt.Errorf("deleting transaction %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PgRepository) Get(ctx context.Context, id string) (domain.Transaction, error) {
	row := r.pool.QueryRow(ctx, selectColumns+` WHERE id = $1::uuid`, id)
	tx, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Transaction{}, ErrNotFound
		}
		return domain.Transaction{}, fmt.Errorf("getting transaction %s: %w", id, err)
	}
	return tx, nil
}

func (r *PgRepository) List(ctx context.Context) ([]domain.Transaction, error) {
	rows, err := r.pool.Query(ctx, selectColumns+` ORDER BY trade_date, created_at`)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	defer rows.Close()

	var txs []domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transactions: %w", err)
	}
	return txs, nil
}

func scanTransaction(row pgx.Row) (domain.Transaction, error) {
	var (
		tx   domain.Transaction
		side string
	)
	if err := row.Scan(&tx.ID, &tx.Symbol, &tx.Name, &side, &tx.Date, &tx.Quantity, &tx.Price, &tx.Notes, &tx.CreatedAt); err != nil {
		return domain.Transaction{}, err
	}
	tx.Side = domain.Side(side)
	tx.Date = domain.TruncateDate(tx.Date)
	return tx, nil
}
