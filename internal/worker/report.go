package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/mtlprog/darkbear/internal/domain"
)

// SnapshotGenerator defines the interface for generating snapshots.
type SnapshotGenerator interface {
	Generate(ctx context.Context, slug string, date time.Time) (domain.PortfolioValuation, error)
}

// AfterSnapshotHook is called after each successful snapshot generation.
type AfterSnapshotHook interface {
	Export(ctx context.Context, val domain.PortfolioValuation) error
}

// ReportWorker periodically generates portfolio snapshots.
type ReportWorker struct {
	generator SnapshotGenerator
	slug      string
	interval  time.Duration
	hook      AfterSnapshotHook // optional
}

// NewReportWorker creates a new ReportWorker with an optional post-generation hook.
func NewReportWorker(generator SnapshotGenerator, slug string, interval time.Duration, hook AfterSnapshotHook) *ReportWorker {
	return &ReportWorker{
		generator: generator,
		slug:      slug,
		interval:  interval,
		hook:      hook,
	}
}

// runHook calls the post-generation hook if one is configured.
func (w *ReportWorker) runHook(ctx context.Context, val domain.PortfolioValuation) {
	if w.hook == nil {
		return
	}
	if err := w.hook.Export(ctx, val); err != nil {
		slog.Error("ReportWorker: export hook failed", "error", err)
	} else {
		slog.Info("ReportWorker: export hook completed")
	}
}

func (w *ReportWorker) generate(ctx context.Context, phase string) {
	val, err := w.generator.Generate(ctx, w.slug, domain.TruncateDate(time.Now()))
	if err != nil {
		slog.Error("ReportWorker: "+phase+" failed", "slug", w.slug, "error", err)
		return
	}
	slog.Info("ReportWorker: "+phase+" completed", "slug", w.slug, "positions", len(val.Positions))
	w.runHook(ctx, val)
}

// Run starts the report worker loop. It blocks until the context is cancelled.
func (w *ReportWorker) Run(ctx context.Context) {
	slog.Info("ReportWorker: starting", "slug", w.slug, "interval", w.interval)

	// Generate immediately on startup
	w.generate(ctx, "initial generation")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("ReportWorker: shutting down")
			return
		case <-ticker.C:
			w.generate(ctx, "generation")
		}
	}
}
