package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mtlprog/forex/internal/auth"
	"github.com/mtlprog/forex/internal/domain"
	"github.com/mtlprog/forex/internal/ledger"
	"github.com/mtlprog/forex/internal/rates"
)

const maxBodyBytes = 1 << 20

// PasswordVerifier checks the dashboard password.
type PasswordVerifier interface {
	Verify(ctx context.Context, password string) (bool, error)
}

// RateProvider supplies current market rates.
type RateProvider interface {
	Rates(ctx context.Context) (rates.Snapshot, error)
}

// Handler provides HTTP endpoints for the tracker API.
type Handler struct {
	ledger   *ledger.Service
	rates    RateProvider
	verifier PasswordVerifier
	sessions *auth.Sessions
	catalog  domain.Catalog
}

// NewHandler creates a new API handler.
func NewHandler(l *ledger.Service, rp RateProvider, v PasswordVerifier, s *auth.Sessions, catalog domain.Catalog) *Handler {
	return &Handler{
		ledger:   l,
		rates:    rp,
		verifier: v,
		sessions: s,
		catalog:  catalog,
	}
}

type loginRequest struct {
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// Login handles POST /api/v1/auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ok, err := h.verifier.Verify(r.Context(), req.Password)
	if err != nil {
		slog.Error("password verification failed", "error", err)
		writeError(w, http.StatusBadGateway, "authentication service unavailable")
		return
	}
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid password")
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: h.sessions.Issue()})
}

// Logout handles POST /api/v1/auth/logout.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if token, ok := bearerToken(r); ok {
		h.sessions.Revoke(token)
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetRates handles GET /api/v1/rates.
func (h *Handler) GetRates(w http.ResponseWriter, r *http.Request) {
	snap, err := h.rates.Rates(r.Context())
	if err != nil {
		slog.Error("failed to get rates", "error", err)
		writeError(w, http.StatusServiceUnavailable, "rates unavailable")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// GetCurrencies handles GET /api/v1/currencies.
func (h *Handler) GetCurrencies(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.catalog)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}

// writeLedgerError maps ledger failures to HTTP statuses.
func writeLedgerError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ledger.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrNotFound):
		writeError(w, http.StatusNotFound, "transaction not found")
	case errors.Is(err, ledger.ErrInsufficientHoldings):
		writeError(w, http.StatusConflict, err.Error())
	default:
		slog.Error("ledger operation failed", "op", op, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
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
