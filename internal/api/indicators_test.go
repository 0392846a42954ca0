package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/darkbear/internal/domain"
	"github.com/mtlprog/darkbear/internal/indicator"
	"github.com/mtlprog/darkbear/internal/portfolio"
	"github.com/mtlprog/darkbear/internal/snapshot"
)

// historySnapshots returns n daily snapshots newest first, with a flat
// invested amount and value growing by 1% a day.
func historySnapshots(t *testing.T, n int) []snapshot.Snapshot {
	t.Helper()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]snapshot.Snapshot, 0, n)
	value := decimal.NewFromInt(1000)
	for i := range n {
		data, err := json.Marshal(domain.PortfolioValuation{Stats: domain.GlobalStats{
			TotalValue:    value,
			TotalInvested: decimal.NewFromInt(1000),
			AllTimePL:     value.Sub(decimal.NewFromInt(1000)),
		}})
		if err != nil {
			t.Fatal(err)
		}
		out = append([]snapshot.Snapshot{{ID: i + 1, SnapshotDate: start.AddDate(0, 0, i), Data: data}}, out...)
		value = value.Mul(decimal.RequireFromString("1.01"))
	}
	return out
}

func newRiskServices(t *testing.T, n int) Services {
	svc, repo := newTestServices(portfolio.SellIgnore)
	repo.snapshots = historySnapshots(t, n)
	svc.Risk = indicator.NewService(svc.Snapshots)
	return svc
}

func TestGetRisk(t *testing.T) {
	handler := NewHandler(newRiskServices(t, 10))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/risk?days=7", nil)
	w := httptest.NewRecorder()
	handler.GetRisk(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var risk indicator.Risk
	if err := json.NewDecoder(w.Body).Decode(&risk); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if risk.Observations != 7 {
		t.Errorf("observations = %d, want 7", risk.Observations)
	}
	if !risk.MaxDrawdown.IsZero() {
		t.Errorf("max drawdown = %s, want 0 for a rising series", risk.MaxDrawdown)
	}
}

func TestGetRiskInvalidDays(t *testing.T) {
	handler := NewHandler(newRiskServices(t, 3))
	for _, q := range []string{"0", "-1", "366", "abc"} {
		t.Run(q, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/risk?days="+q, nil)
			w := httptest.NewRecorder()
			handler.GetRisk(w, req)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestGetIndicators(t *testing.T) {
	handler := NewHandler(newRiskServices(t, 10))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/indicators", nil)
	w := httptest.NewRecorder()
	handler.GetIndicators(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var indicators []indicator.Indicator
	if err := json.NewDecoder(w.Body).Decode(&indicators); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(indicators) == 0 {
		t.Error("expected non-empty indicators list")
	}
	for _, ind := range indicators {
		if ind.Name == "" {
			t.Errorf("indicator %d has no name", ind.ID)
		}
	}
}

func TestGetHistory(t *testing.T) {
	handler := NewHandler(newRiskServices(t, 5))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/history?limit=3", nil)
	w := httptest.NewRecorder()
	handler.GetHistory(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var points []indicator.HistoryPoint
	if err := json.NewDecoder(w.Body).Decode(&points); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(points) != 3 {
		t.Fatalf("points = %d, want 3", len(points))
	}
	if !points[0].Date.Before(points[2].Date) {
		t.Error("history must be oldest first")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/history?privacy=1", nil)
	w = httptest.NewRecorder()
	handler.GetHistory(w, req)
	if w.Code != http.StatusForbidden {
		t.Errorf("privacy status = %d, want 403", w.Code)
	}
}

func TestGetWorkbook(t *testing.T) {
	handler := NewHandler(newRiskServices(t, 5))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/export.xlsx", nil)
	w := httptest.NewRecorder()
	handler.GetWorkbook(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "spreadsheetml") {
		t.Errorf("content type = %q", ct)
	}
	// xlsx files are zip archives
	if body := w.Body.Bytes(); len(body) < 4 || string(body[:2]) != "PK" {
		t.Errorf("body is not a zip archive: %q", body[:min(len(body), 8)])
	}
}
