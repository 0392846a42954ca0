package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mtlprog/darkbear/internal/journal"
)

// maxBodyBytes bounds request bodies for write endpoints.
const maxBodyBytes = 1 << 20

// ListTransactions handles GET /api/v1/transactions.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.svc.Journal.List(r.Context())
	if err != nil {
		slog.Error("failed to list transactions", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

// CreateTransaction handles POST /api/v1/transactions.
func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	nt, ok := decodeTransaction(w, r)
	if !ok {
		return
	}
	tx, err := h.svc.Journal.Add(r.Context(), nt)
	if err != nil {
		writeJournalError(w, "failed to add transaction", err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

// UpdateTransaction handles PUT /api/v1/transactions/{id}.
func (h *Handler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	nt, ok := decodeTransaction(w, r)
	if !ok {
		return
	}
	tx, err := h.svc.Journal.Update(r.Context(), r.PathValue("id"), nt)
	if err != nil {
		writeJournalError(w, "failed to update transaction", err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

// DeleteTransaction handles DELETE /api/v1/transactions/{id}.
func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Journal.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeJournalError(w, "failed to delete transaction", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeTransaction(w http.ResponseWriter, r *http.Request) (journal.NewTransaction, bool) {
	var nt journal.NewTransaction
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&nt); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return journal.NewTransaction{}, false
	}
	return nt, true
}

func writeJournalError(w http.ResponseWriter, msg string, err error) {
	switch {
	case errors.Is(err, journal.ErrInvalid):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, journal.ErrNotFound):
		writeError(w, http.StatusNotFound, "transaction not found")
	case errors.Is(err, journal.ErrOversell):
		writeError(w, http.StatusConflict, err.Error())
	default:
		slog.Error(msg, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
