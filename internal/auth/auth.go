// Package auth verifies the dashboard password against the web app and
// issues bearer sessions.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mtlprog/forex/internal/remote"
)

// ErrInvalidPassword indicates the password was rejected.
var ErrInvalidPassword = errors.New("invalid password")

// Verifier checks a password with the remote endpoint.
type Verifier struct {
	client   *remote.Client
	endpoint string
}

// NewVerifier creates a Verifier. An empty endpoint rejects every password.
func NewVerifier(client *remote.Client, endpoint string) *Verifier {
	return &Verifier{client: client, endpoint: endpoint}
}

type authRequest struct {
	Type     string `json:"type"`
	Password string `json:"password"`
}

type authResponse struct {
	Success bool `json:"success"`
}

// Verify reports whether the endpoint accepted the password.
func (v *Verifier) Verify(ctx context.Context, password string) (bool, error) {
	if v.endpoint == "" {
		return false, nil
	}

	var resp authResponse
	if err := v.client.PostJSON(ctx, v.endpoint, authRequest{Type: "auth", Password: password}, &resp); err != nil {
		return false, fmt.Errorf("verifying password: %w", err)
	}
	return resp.Success, nil
}

// Sessions is an in-memory bearer token registry.
type Sessions struct {
	mu     sync.Mutex
	ttl    time.Duration
	tokens map[string]time.Time
	now    func() time.Time
}

// NewSessions creates a registry whose tokens expire after ttl.
func NewSessions(ttl time.Duration) *Sessions {
	return &Sessions{
		ttl:    ttl,
		tokens: make(map[string]time.Time),
		now:    time.Now,
	}
}

// Issue creates a new token.
func (s *Sessions) Issue() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evictLocked()
	token := uuid.NewString()
	s.tokens[token] = s.now().Add(s.ttl)
	return token
}

// Valid reports whether token was issued and has not expired or been revoked.
func (s *Sessions) Valid(token string) bool {
	if token == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	expires, ok := s.tokens[token]
	if !ok {
		return false
	}
	if s.now().After(expires) {
		delete(s.tokens, token)
		return false
	}
	return true
}

// Revoke invalidates token.
func (s *Sessions) Revoke(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
}

func (s *Sessions) evictLocked() {
	now := s.now()
	for token, expires := range s.tokens {
		if now.After(expires) {
			delete(s.tokens, token)
		}
	}
}

// Login verifies the password and issues a session token.
func Login(ctx context.Context, v *Verifier, s *Sessions, password string) (string, error) {
	ok, err := v.Verify(ctx, password)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrInvalidPassword
	}
	return s.Issue(), nil
}
