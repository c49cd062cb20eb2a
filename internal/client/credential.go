package client

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Credential holds the backend access token. It is safe for concurrent use.
type Credential struct {
	mu    sync.RWMutex
	token string
}

// NewCredential wraps a previously captured token.
func NewCredential(token string) *Credential {
	return &Credential{token: token}
}

// Token returns the raw token, empty when signed out.
func (c *Credential) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Set replaces the token.
func (c *Credential) Set(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Clear forgets the token.
func (c *Credential) Clear() {
	c.Set("")
}

// TokenClaims are the fields the backend puts in its access token.
type TokenClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Claims decodes the token payload without verifying the signature. The
// result is for display and expiry bookkeeping only; the backend verifies
// the token on every request.
func (c *Credential) Claims() (*TokenClaims, bool) {
	token := c.Token()
	if token == "" {
		return nil, false
	}
	claims := &TokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, false
	}
	return claims, true
}

// ExpiresAt returns the token expiry if the token carries one.
func (c *Credential) ExpiresAt() (time.Time, bool) {
	claims, ok := c.Claims()
	if !ok || claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
