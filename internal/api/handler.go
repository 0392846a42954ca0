package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/mtlprog/darkbear/internal/database"
	"github.com/mtlprog/darkbear/internal/domain"
	"github.com/mtlprog/darkbear/internal/indicator"
	"github.com/mtlprog/darkbear/internal/journal"
	"github.com/mtlprog/darkbear/internal/render"
	"github.com/mtlprog/darkbear/internal/snapshot"
)

// Valuator produces the current portfolio valuation.
type Valuator interface {
	Valuate(ctx context.Context) (domain.PortfolioValuation, error)
}

// Journal manages recorded transactions.
type Journal interface {
	Add(ctx context.Context, nt journal.NewTransaction) (domain.Transaction, error)
	Update(ctx context.Context, id string, nt journal.NewTransaction) (domain.Transaction, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]domain.Transaction, error)
}

// QuoteStore serves the latest stored quotes.
type QuoteStore interface {
	Quotes(ctx context.Context) (domain.Quotes, error)
}

// QuoteRefresher runs one quote refresh over every tracked symbol.
type QuoteRefresher interface {
	Tick(ctx context.Context) error
}

// SnapshotStore generates and reads stored snapshots.
type SnapshotStore interface {
	Generate(ctx context.Context, slug string, date time.Time) (domain.PortfolioValuation, error)
	GetLatest(ctx context.Context, slug string) (*snapshot.Snapshot, error)
	GetByDate(ctx context.Context, slug string, date time.Time) (*snapshot.Snapshot, error)
	List(ctx context.Context, slug string, limit int) ([]snapshot.Snapshot, error)
}

// RiskSource computes risk figures from snapshot history.
type RiskSource interface {
	History(ctx context.Context, slug string, limit int) ([]indicator.HistoryPoint, error)
	Risk(ctx context.Context, slug string, days int) (indicator.Risk, error)
}

// Services bundles the dependencies of the HTTP API. Snapshots, Risk,
// Refresher and DB are optional; their routes are not registered when nil.
type Services struct {
	Slug      string
	Valuation Valuator
	Journal   Journal
	Quotes    QuoteStore
	Refresher QuoteRefresher
	Snapshots SnapshotStore
	Risk      RiskSource
	DB        database.Pinger
}

// Handler provides HTTP endpoints for the portfolio API.
type Handler struct {
	svc Services
}

// NewHandler creates a new API handler.
func NewHandler(svc Services) *Handler {
	return &Handler{svc: svc}
}

// privacy reports whether the request asked for masked amounts.
func privacy(r *http.Request) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get("privacy"))
	return v
}

func (h *Handler) valuate(w http.ResponseWriter, r *http.Request) (domain.PortfolioValuation, bool) {
	val, err := h.svc.Valuation.Valuate(r.Context())
	if err != nil {
		slog.Error("failed to valuate portfolio", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return domain.PortfolioValuation{}, false
	}
	if privacy(r) {
		val = render.Mask(val)
	}
	return val, true
}

// GetPortfolio handles GET /api/v1/portfolio.
func (h *Handler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	if val, ok := h.valuate(w, r); ok {
		writeJSON(w, http.StatusOK, val)
	}
}

// GetPositions handles GET /api/v1/positions.
func (h *Handler) GetPositions(w http.ResponseWriter, r *http.Request) {
	if val, ok := h.valuate(w, r); ok {
		writeJSON(w, http.StatusOK, val.Positions)
	}
}

// GetStats handles GET /api/v1/stats.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	if val, ok := h.valuate(w, r); ok {
		writeJSON(w, http.StatusOK, val.Stats)
	}
}

// GetAnalytics handles GET /api/v1/analytics.
func (h *Handler) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	if val, ok := h.valuate(w, r); ok {
		writeJSON(w, http.StatusOK, val.Analytics)
	}
}

// GetQuotes handles GET /api/v1/quotes.
func (h *Handler) GetQuotes(w http.ResponseWriter, r *http.Request) {
	quotes, err := h.svc.Quotes.Quotes(r.Context())
	if err != nil {
		slog.Error("failed to load quotes", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, quotes)
}

// RefreshQuotes handles POST /api/v1/quotes/refresh.
func (h *Handler) RefreshQuotes(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Refresher.Tick(r.Context()); err != nil {
		slog.Error("failed to refresh quotes", "error", err)
		writeError(w, http.StatusBadGateway, "failed to refresh quotes")
		return
	}
	h.GetQuotes(w, r)
}

// Healthz handles GET /healthz.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	if h.svc.DB != nil {
		if err := database.Healthy(r.Context(), h.svc.DB); err != nil {
			slog.Warn("health check failed", "error", err)
			writeError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetLatestSnapshot handles GET /api/v1/snapshots/latest.
func (h *Handler) GetLatestSnapshot(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.Snapshots.GetLatest(r.Context(), h.svc.Slug)
	if err != nil {
		if errors.Is(err, snapshot.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no snapshots found")
			return
		}
		slog.Error("failed to get latest snapshot", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeSnapshot(w, r, s)
}

// GetSnapshotByDate handles GET /api/v1/snapshots/{date}.
func (h *Handler) GetSnapshotByDate(w http.ResponseWriter, r *http.Request) {
	dateStr := r.PathValue("date")
	date, err := time.Parse(domain.DateLayout, dateStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format, expected YYYY-MM-DD")
		return
	}

	s, err := h.svc.Snapshots.GetByDate(r.Context(), h.svc.Slug, date)
	if err != nil {
		if errors.Is(err, snapshot.ErrNotFound) {
			writeError(w, http.StatusNotFound, "snapshot not found for date")
			return
		}
		slog.Error("failed to get snapshot by date", "date", dateStr, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeSnapshot(w, r, s)
}

// ListSnapshots handles GET /api/v1/snapshots.
func (h *Handler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	snapshots, err := h.svc.Snapshots.List(r.Context(), h.svc.Slug, limitParam(r, 30))
	if err != nil {
		slog.Error("failed to list snapshots", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if privacy(r) {
		for i := range snapshots {
			snapshots[i].Data = maskData(snapshots[i].Data)
		}
	}
	writeJSON(w, http.StatusOK, snapshots)
}

// GenerateSnapshot handles POST /api/v1/snapshots/generate.
func (h *Handler) GenerateSnapshot(w http.ResponseWriter, r *http.Request) {
	data, err := h.svc.Snapshots.Generate(r.Context(), h.svc.Slug, time.Now())
	if err != nil {
		slog.Error("failed to generate snapshot", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to generate snapshot")
		return
	}
	writeJSON(w, http.StatusOK, data)
}

func writeSnapshot(w http.ResponseWriter, r *http.Request, s *snapshot.Snapshot) {
	if privacy(r) {
		masked := *s
		masked.Data = maskData(s.Data)
		s = &masked
	}
	writeJSON(w, http.StatusOK, s)
}

// maskData masks a stored valuation. Data that fails to decode is dropped
// rather than leaked.
func maskData(data json.RawMessage) json.RawMessage {
	var val domain.PortfolioValuation
	if err := json.Unmarshal(data, &val); err != nil {
		return json.RawMessage("null")
	}
	out, err := json.Marshal(render.Mask(val))
	if err != nil {
		return json.RawMessage("null")
	}
	return out
}

// limitParam parses ?limit= capped at one year of daily points.
func limitParam(r *http.Request, def int) int {
	const maxLimit = 365
	limit := def
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = min(n, maxLimit)
		}
	}
	return limit
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to marshal JSON response", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		slog.Warn("failed to write HTTP response body", "error", err)
		return
	}
	_, _ = w.Write([]byte("\n"))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
