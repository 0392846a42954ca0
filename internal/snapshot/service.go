// Package snapshot stores daily portfolio valuations for history and risk metrics.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mtlprog/darkbear/internal/domain"
)

// Valuator produces the current portfolio valuation.
type Valuator interface {
	Valuate(ctx context.Context) (domain.PortfolioValuation, error)
}

// Service manages snapshot generation and retrieval.
type Service struct {
	valuator Valuator
	repo     Repository
}

// NewService creates a new snapshot Service.
func NewService(valuator Valuator, repo Repository) *Service {
	return &Service{valuator: valuator, repo: repo}
}

// EnsurePortfolio creates the portfolio row for slug if it does not exist.
func (s *Service) EnsurePortfolio(ctx context.Context, slug, name string) (int, error) {
	return s.repo.EnsurePortfolio(ctx, slug, name, "")
}

// Generate values the portfolio and stores it as the snapshot for date.
// A second call for the same date overwrites the earlier snapshot.
func (s *Service) Generate(ctx context.Context, slug string, date time.Time) (domain.PortfolioValuation, error) {
	portfolioID, err := s.repo.GetPortfolioID(ctx, slug)
	if err != nil {
		return domain.PortfolioValuation{}, fmt.Errorf("getting portfolio: %w", err)
	}

	val, err := s.valuator.Valuate(ctx)
	if err != nil {
		return domain.PortfolioValuation{}, fmt.Errorf("valuating portfolio: %w", err)
	}

	data, err := json.Marshal(val)
	if err != nil {
		return domain.PortfolioValuation{}, fmt.Errorf("marshaling valuation: %w", err)
	}

	if err := s.repo.Save(ctx, portfolioID, domain.TruncateDate(date), data); err != nil {
		return domain.PortfolioValuation{}, fmt.Errorf("saving snapshot: %w", err)
	}

	return val, nil
}

// GetLatest retrieves the most recent snapshot for the portfolio.
func (s *Service) GetLatest(ctx context.Context, slug string) (*Snapshot, error) {
	return s.repo.GetLatest(ctx, slug)
}

// GetByDate retrieves a snapshot for a specific date.
func (s *Service) GetByDate(ctx context.Context, slug string, date time.Time) (*Snapshot, error) {
	return s.repo.GetByDate(ctx, slug, domain.TruncateDate(date))
}

// GetNearestBefore retrieves the latest snapshot on or before date.
func (s *Service) GetNearestBefore(ctx context.Context, slug string, date time.Time) (*Snapshot, error) {
	return s.repo.GetNearestBefore(ctx, slug, domain.TruncateDate(date))
}

// List retrieves recent snapshots, newest first.
func (s *Service) List(ctx context.Context, slug string, limit int) ([]Snapshot, error) {
	return s.repo.List(ctx, slug, limit)
}
