package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"
)

// NewServer creates an HTTP server with all routes configured.
func NewServer(port string, svc Services, adminAPIKey string) *http.Server {
	return &http.Server{
		Addr:         ":" + port,
		Handler:      NewMux(svc, adminAPIKey),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// NewMux registers every route. Write endpoints require a bearer token when
// adminAPIKey is set.
func NewMux(svc Services, adminAPIKey string) *http.ServeMux {
	handler := NewHandler(svc)
	protect := func(h http.HandlerFunc) http.Handler {
		if adminAPIKey == "" {
			return h
		}
		return requireAuth(adminAPIKey, h)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handler.Healthz)

	mux.HandleFunc("GET /api/v1/portfolio", handler.GetPortfolio)
	mux.HandleFunc("GET /api/v1/positions", handler.GetPositions)
	mux.HandleFunc("GET /api/v1/stats", handler.GetStats)
	mux.HandleFunc("GET /api/v1/analytics", handler.GetAnalytics)
	mux.HandleFunc("GET /api/v1/export.xlsx", handler.GetWorkbook)

	mux.HandleFunc("GET /api/v1/transactions", handler.ListTransactions)
	mux.Handle("POST /api/v1/transactions", protect(handler.CreateTransaction))
	mux.Handle("PUT /api/v1/transactions/{id}", protect(handler.UpdateTransaction))
	mux.Handle("DELETE /api/v1/transactions/{id}", protect(handler.DeleteTransaction))

	mux.HandleFunc("GET /api/v1/quotes", handler.GetQuotes)
	if svc.Refresher != nil {
		mux.Handle("POST /api/v1/quotes/refresh", protect(handler.RefreshQuotes))
	}

	if svc.Snapshots != nil {
		mux.HandleFunc("GET /api/v1/snapshots/latest", handler.GetLatestSnapshot)
		mux.HandleFunc("GET /api/v1/snapshots/{date}", handler.GetSnapshotByDate)
		mux.HandleFunc("GET /api/v1/snapshots", handler.ListSnapshots)
		mux.Handle("POST /api/v1/snapshots/generate", protect(handler.GenerateSnapshot))
	}

	if svc.Risk != nil {
		mux.HandleFunc("GET /api/v1/risk", handler.GetRisk)
		mux.HandleFunc("GET /api/v1/indicators", handler.GetIndicators)
		mux.HandleFunc("GET /api/v1/history", handler.GetHistory)
	}

	return mux
}

func requireAuth(apiKey string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		token := strings.TrimPrefix(auth, "Bearer ")
		if !strings.HasPrefix(auth, "Bearer ") || subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}
