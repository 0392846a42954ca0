package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/mtlprog/darkbear/internal/export"
	"github.com/mtlprog/darkbear/internal/indicator"
)

func (h *Handler) risk(w http.ResponseWriter, r *http.Request) (indicator.Risk, bool) {
	days := 30
	if d := r.URL.Query().Get("days"); d != "" {
		n, err := strconv.Atoi(d)
		if err != nil || n <= 0 || n > 365 {
			writeError(w, http.StatusBadRequest, "days must be between 1 and 365")
			return indicator.Risk{}, false
		}
		days = n
	}
	risk, err := h.svc.Risk.Risk(r.Context(), h.svc.Slug, days)
	if err != nil {
		slog.Error("failed to compute risk", "days", days, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return indicator.Risk{}, false
	}
	return risk, true
}

// GetRisk handles GET /api/v1/risk.
func (h *Handler) GetRisk(w http.ResponseWriter, r *http.Request) {
	if risk, ok := h.risk(w, r); ok {
		writeJSON(w, http.StatusOK, risk)
	}
}

// GetIndicators handles GET /api/v1/indicators, the flat list of risk figures.
func (h *Handler) GetIndicators(w http.ResponseWriter, r *http.Request) {
	if risk, ok := h.risk(w, r); ok {
		writeJSON(w, http.StatusOK, risk.Indicators())
	}
}

// GetHistory handles GET /api/v1/history.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	if privacy(r) {
		writeError(w, http.StatusForbidden, "history is not available in privacy mode")
		return
	}
	points, err := h.svc.Risk.History(r.Context(), h.svc.Slug, limitParam(r, 90))
	if err != nil {
		slog.Error("failed to load history", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, points)
}

// GetWorkbook handles GET /api/v1/export.xlsx.
func (h *Handler) GetWorkbook(w http.ResponseWriter, r *http.Request) {
	val, ok := h.valuate(w, r)
	if !ok {
		return
	}
	txs, err := h.svc.Journal.List(r.Context())
	if err != nil {
		slog.Error("failed to list transactions", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if privacy(r) {
		txs = nil
	}

	var inds []indicator.Indicator
	if h.svc.Risk != nil {
		if risk, err := h.svc.Risk.Risk(r.Context(), h.svc.Slug, 30); err != nil {
			slog.Warn("workbook: risk figures unavailable", "error", err)
		} else {
			inds = risk.Indicators()
		}
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="portfolio-`+val.ValuedAt.Format("2006-01-02")+`.xlsx"`)
	if err := export.WriteWorkbook(w, val, txs, inds...); err != nil {
		slog.Error("failed to write workbook", "error", err)
	}
}
