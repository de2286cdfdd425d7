package api

import (
	"bytes"
	"log/slog"
	"net/http"

	"github.com/mtlprog/forex/internal/domain"
	"github.com/mtlprog/forex/internal/export"
)

// GetDashboard handles GET /api/v1/dashboard.
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := h.ledger.Dashboard(r.Context())
	if err != nil {
		writeLedgerError(w, "dashboard", err)
		return
	}
	writeJSON(w, http.StatusOK, dash)
}

// ListTransactions handles GET /api/v1/transactions.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.ledger.List(r.Context())
	if err != nil {
		writeLedgerError(w, "list", err)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

// CreateTransaction handles POST /api/v1/transactions.
func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var tx domain.Transaction
	if err := decodeBody(w, r, &tx); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	created, err := h.ledger.Add(r.Context(), tx)
	if err != nil {
		writeLedgerError(w, "add", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// UpdateTransaction handles PUT /api/v1/transactions/{id}.
func (h *Handler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var tx domain.Transaction
	if err := decodeBody(w, r, &tx); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	tx.ID = r.PathValue("id")

	updated, err := h.ledger.Update(r.Context(), tx)
	if err != nil {
		writeLedgerError(w, "update", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteTransaction handles DELETE /api/v1/transactions/{id}.
func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := h.ledger.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeLedgerError(w, "delete", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExportWorkbook handles GET /api/v1/export.xlsx.
func (h *Handler) ExportWorkbook(w http.ResponseWriter, r *http.Request) {
	dash, err := h.ledger.Dashboard(r.Context())
	if err != nil {
		writeLedgerError(w, "export", err)
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, dash.Stats, dash.Transactions); err != nil {
		slog.Error("failed to build workbook", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to build workbook")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="forex.xlsx"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Warn("failed to write workbook", "error", err)
	}
}
