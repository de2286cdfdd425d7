package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/mtlprog/forex/internal/auth"
)

// NewServer creates an HTTP server with all routes configured.
func NewServer(port string, handler *Handler, sessions *auth.Sessions, apiKey string) *http.Server {
	return &http.Server{
		Addr:         ":" + port,
		Handler:      NewMux(handler, sessions, apiKey),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// NewMux registers all routes. Routes that read or change the ledger
// require a session token or the static API key.
func NewMux(handler *Handler, sessions *auth.Sessions, apiKey string) *http.ServeMux {
	protect := func(h http.HandlerFunc) http.Handler {
		return requireAuth(sessions, apiKey, h)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/login", handler.Login)
	mux.Handle("POST /api/v1/auth/logout", protect(handler.Logout))

	mux.HandleFunc("GET /api/v1/rates", handler.GetRates)
	mux.HandleFunc("GET /api/v1/currencies", handler.GetCurrencies)

	mux.Handle("GET /api/v1/dashboard", protect(handler.GetDashboard))
	mux.Handle("GET /api/v1/transactions", protect(handler.ListTransactions))
	mux.Handle("POST /api/v1/transactions", protect(handler.CreateTransaction))
	mux.Handle("PUT /api/v1/transactions/{id}", protect(handler.UpdateTransaction))
	mux.Handle("DELETE /api/v1/transactions/{id}", protect(handler.DeleteTransaction))
	mux.Handle("GET /api/v1/export.xlsx", protect(handler.ExportWorkbook))
	return mux
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	return strings.TrimPrefix(header, "Bearer "), true
}

func requireAuth(sessions *auth.Sessions, apiKey string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		keyMatch := apiKey != "" && subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) == 1
		if !keyMatch && (sessions == nil || !sessions.Valid(token)) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}
