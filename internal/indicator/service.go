package indicator

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/samber/lo"

	"github.com/mtlprog/darkbear/internal/snapshot"
)

// SnapshotSource lists stored snapshots, newest first.
type SnapshotSource interface {
	List(ctx context.Context, slug string, limit int) ([]snapshot.Snapshot, error)
}

// Service computes risk figures from snapshot history.
type Service struct {
	snapshots SnapshotSource
}

// NewService creates a new indicator Service.
func NewService(snapshots SnapshotSource) *Service {
	return &Service{snapshots: snapshots}
}

// History loads up to limit daily points for slug, oldest first. Snapshots
// that fail to decode are logged and skipped.
func (s *Service) History(ctx context.Context, slug string, limit int) ([]HistoryPoint, error) {
	snaps, err := s.snapshots.List(ctx, slug, limit)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}

	points := lo.FilterMap(snaps, func(snap snapshot.Snapshot, _ int) (HistoryPoint, bool) {
		val, err := snap.Valuation()
		if err != nil {
			slog.Warn("skipping unreadable snapshot", "date", snap.SnapshotDate, "error", err)
			return HistoryPoint{}, false
		}
		return HistoryPoint{
			Date:          snap.SnapshotDate,
			TotalValue:    val.Stats.TotalValue,
			TotalInvested: val.Stats.TotalInvested,
			AllTimePL:     val.Stats.AllTimePL,
		}, true
	})
	slices.Reverse(points)
	return points, nil
}

// Risk computes risk figures over the last days daily returns. Period
// changes always look back up to a year.
func (s *Service) Risk(ctx context.Context, slug string, days int) (Risk, error) {
	if days <= 0 {
		days = 30
	}
	points, err := s.History(ctx, slug, max(days, Periods[len(Periods)-1])+1)
	if err != nil {
		return Risk{}, err
	}

	window := points
	if len(window) > days+1 {
		window = window[len(window)-days-1:]
	}
	r := ComputeRisk(window)
	r.PeriodChanges = PeriodChanges(points, Periods)
	return r, nil
}
