package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mtlprog/darkbear/internal/portfolio"
)

func TestRequireAuthValidToken(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})

	handler := requireAuth("secret-key", next)
	req := httptest.NewRequest(http.MethodPost, "/test", nil)
	req.Header.Set("Authorization", "Bearer secret-key")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if !called {
		t.Error("next handler was not called")
	}
}

func TestRequireAuthRejects(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong token", "Bearer wrong-key"},
		{"malformed header", "Basic secret-key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Error("next handler should not be called")
			})

			handler := requireAuth("secret-key", next)
			req := httptest.NewRequest(http.MethodPost, "/test", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", w.Code)
			}
		})
	}
}

func TestMuxRoutes(t *testing.T) {
	svc := newRiskServices(t, 3)
	svc.Refresher = &mockRefresher{}
	mux := NewMux(svc, "secret-key")

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		auth   bool
		want   int
	}{
		{"healthz", http.MethodGet, "/healthz", "", false, http.StatusOK},
		{"portfolio", http.MethodGet, "/api/v1/portfolio", "", false, http.StatusOK},
		{"positions", http.MethodGet, "/api/v1/positions", "", false, http.StatusOK},
		{"stats", http.MethodGet, "/api/v1/stats", "", false, http.StatusOK},
		{"analytics", http.MethodGet, "/api/v1/analytics", "", false, http.StatusOK},
		{"quotes", http.MethodGet, "/api/v1/quotes", "", false, http.StatusOK},
		{"transactions", http.MethodGet, "/api/v1/transactions", "", false, http.StatusOK},
		{"snapshots", http.MethodGet, "/api/v1/snapshots", "", false, http.StatusOK},
		{"latest snapshot", http.MethodGet, "/api/v1/snapshots/latest", "", false, http.StatusOK},
		{"snapshot by date", http.MethodGet, "/api/v1/snapshots/2024-01-02", "", false, http.StatusOK},
		{"risk", http.MethodGet, "/api/v1/risk", "", false, http.StatusOK},
		{"indicators", http.MethodGet, "/api/v1/indicators", "", false, http.StatusOK},
		{"history", http.MethodGet, "/api/v1/history", "", false, http.StatusOK},
		{"workbook", http.MethodGet, "/api/v1/export.xlsx", "", false, http.StatusOK},
		{"create unauthorized", http.MethodPost, "/api/v1/transactions", `{}`, false, http.StatusUnauthorized},
		{"create authorized", http.MethodPost, "/api/v1/transactions", `{"symbol":"ETH","type":"BUY","date":"2024-01-02","quantity":1,"price":1}`, true, http.StatusCreated},
		{"delete unauthorized", http.MethodDelete, "/api/v1/transactions/tx-1", "", false, http.StatusUnauthorized},
		{"refresh unauthorized", http.MethodPost, "/api/v1/quotes/refresh", "", false, http.StatusUnauthorized},
		{"refresh authorized", http.MethodPost, "/api/v1/quotes/refresh", "", true, http.StatusOK},
		{"generate unauthorized", http.MethodPost, "/api/v1/snapshots/generate", "", false, http.StatusUnauthorized},
		{"wrong method", http.MethodDelete, "/api/v1/portfolio", "", false, http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			if tt.auth {
				req.Header.Set("Authorization", "Bearer secret-key")
			}
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("%s %s: status = %d, want %d", tt.method, tt.path, w.Code, tt.want)
			}
		})
	}
}

func TestMuxOptionalRoutes(t *testing.T) {
	svc, _ := newTestServices(portfolio.SellIgnore)
	svc.Snapshots = nil
	mux := NewMux(svc, "")

	for _, path := range []string{"/api/v1/snapshots", "/api/v1/risk"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)
		if w.Code != http.StatusNotFound {
			t.Errorf("%s: status = %d, want 404", path, w.Code)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions",
		strings.NewReader(`{"symbol":"ETH","type":"BUY","date":"2024-01-02","quantity":1,"price":1}`))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Errorf("unprotected create: status = %d, want 201", w.Code)
	}
}
