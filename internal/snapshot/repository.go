package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mtlprog/darkbear/internal/domain"
)

// ErrNotFound indicates that the requested snapshot or portfolio was not found.
var ErrNotFound = errors.New("snapshot not found")

// Snapshot is a stored daily valuation of one portfolio.
type Snapshot struct {
	ID           int             `json:"id"`
	PortfolioID  int             `json:"portfolioId"`
	SnapshotDate time.Time       `json:"snapshotDate"`
	Data         json.RawMessage `json:"data"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// Valuation decodes the stored valuation.
func (s Snapshot) Valuation() (domain.PortfolioValuation, error) {
	var v domain.PortfolioValuation
	if err := json.Unmarshal(s.Data, &v); err != nil {
		return domain.PortfolioValuation{}, fmt.Errorf("decoding snapshot %s: %w", s.SnapshotDate.Format(domain.DateLayout), err)
	}
	return v, nil
}

// Repository defines persistent storage for snapshots.
type Repository interface {
	Save(ctx context.Context, portfolioID int, date time.Time, data json.RawMessage) error
	GetLatest(ctx context.Context, slug string) (*Snapshot, error)
	GetByDate(ctx context.Context, slug string, date time.Time) (*Snapshot, error)
	GetNearestBefore(ctx context.Context, slug string, date time.Time) (*Snapshot, error)
	List(ctx context.Context, slug string, limit int) ([]Snapshot, error)
	GetPortfolioID(ctx context.Context, slug string) (int, error)
	EnsurePortfolio(ctx context.Context, slug, name, description string) (int, error)
}

// PgRepository implements Repository with PostgreSQL.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewPgRepository creates a new PostgreSQL snapshot repository.
func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const selectSnapshot = `SELECT ps.id, ps.portfolio_id, ps.snapshot_date, ps.data, ps.created_at
	FROM portfolio_snapshots ps
	JOIN portfolios p ON p.id = ps.portfolio_id`

func (r *PgRepository) Save(ctx context.Context, portfolioID int, date time.Time, data json.RawMessage) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO portfolio_snapshots (portfolio_id, snapshot_date, data)
		 VALUES ($1, $2, $3::jsonb)
		 ON CONFLICT (portfolio_id, snapshot_date)
		 DO UPDATE SET data = $3::jsonb`,
		portfolioID, date, data)
	if err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}

func (r *PgRepository) GetLatest(ctx context.Context, slug string) (*Snapshot, error) {
	return r.getOne(ctx, "getting latest snapshot",
		selectSnapshot+` WHERE p.slug = $1 ORDER BY ps.snapshot_date DESC LIMIT 1`, slug)
}

func (r *PgRepository) GetByDate(ctx context.Context, slug string, date time.Time) (*Snapshot, error) {
	return r.getOne(ctx, "getting snapshot by date",
		selectSnapshot+` WHERE p.slug = $1 AND ps.snapshot_date = $2`, slug, date)
}

func (r *PgRepository) GetNearestBefore(ctx context.Context, slug string, date time.Time) (*Snapshot, error) {
	return r.getOne(ctx, "getting nearest snapshot",
		selectSnapshot+` WHERE p.slug = $1 AND ps.snapshot_date <= $2 ORDER BY ps.snapshot_date DESC LIMIT 1`, slug, date)
}

func (r *PgRepository) getOne(ctx context.Context, op, query string, args ...any) (*Snapshot, error) {
	var s Snapshot
	err := r.pool.QueryRow(ctx, query, args...).Scan(&s.ID, &s.PortfolioID, &s.SnapshotDate, &s.Data, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &s, nil
}

func (r *PgRepository) List(ctx context.Context, slug string, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 30
	}

	rows, err := r.pool.Query(ctx, selectSnapshot+` WHERE p.slug = $1 ORDER BY ps.snapshot_date DESC LIMIT $2`, slug, limit)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []Snapshot
	for rows.Next() {
		var s Snapshot
		if err := rows.Scan(&s.ID, &s.PortfolioID, &s.SnapshotDate, &s.Data, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		snapshots = append(snapshots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating snapshots: %w", err)
	}
	return snapshots, nil
}

func (r *PgRepository) GetPortfolioID(ctx context.Context, slug string) (int, error) {
	var id int
	err := r.pool.QueryRow(ctx, `SELECT id FROM portfolios WHERE slug = $1`, slug).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("getting portfolio ID for %s: %w", slug, err)
	}
	return id, nil
}

func (r *PgRepository) EnsurePortfolio(ctx context.Context, slug, name, description string) (int, error) {
	var id int
	err := r.pool.QueryRow(ctx,
		`INSERT INTO portfolios (slug, name, description)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (slug) DO UPDATE SET name = $2
		 RETURNING id`,
		slug, name, description).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("ensuring portfolio %s: %w", slug, err)
	}
	return id, nil
}
