// Package export renders portfolio valuations to spreadsheets.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mtlprog/darkbear/internal/domain"
	"github.com/mtlprog/darkbear/internal/indicator"
)

// SheetWriter writes a valuation to a spreadsheet destination.
type SheetWriter interface {
	Write(ctx context.Context, val domain.PortfolioValuation, risk []indicator.Indicator) error
	AppendHistory(ctx context.Context, val domain.PortfolioValuation, at time.Time) error
}

// RiskSource computes risk figures for a portfolio.
type RiskSource interface {
	Risk(ctx context.Context, slug string, days int) (indicator.Risk, error)
}

// Service mirrors snapshots into a spreadsheet.
type Service struct {
	writer SheetWriter
	risk   RiskSource
	slug   string
	now    func() time.Time
}

// NewService creates a new export Service. risk may be nil.
func NewService(writer SheetWriter, risk RiskSource, slug string) *Service {
	return &Service{writer: writer, risk: risk, slug: slug, now: time.Now}
}

// Export rewrites the current sheets and appends a history row.
// Implements worker.AfterSnapshotHook.
func (s *Service) Export(ctx context.Context, val domain.PortfolioValuation) error {
	var inds []indicator.Indicator
	if s.risk != nil {
		r, err := s.risk.Risk(ctx, s.slug, 30)
		if err != nil {
			slog.Warn("export: risk figures unavailable", "error", err)
		} else {
			inds = r.Indicators()
		}
	}

	if err := s.writer.Write(ctx, val, inds); err != nil {
		return fmt.Errorf("writing sheets: %w", err)
	}
	if err := s.writer.AppendHistory(ctx, val, s.now()); err != nil {
		return fmt.Errorf("appending history: %w", err)
	}
	return nil
}
