package core

import (
	"strings"
	"time"
)

// Session represents an authenticated wallet session
type Session struct {
	Token     string    `json:"token"`      // Opaque bearer credential issued by the token service
	ExpiresAt time.Time `json:"expires_at"` // When the bearer token stops being accepted
	Address   string    `json:"address"`    // Lower-cased wallet address the token is bound to
}

// Valid reports whether the session can still be used.
// A session with no bound address is never valid.
func (s *Session) Valid(now time.Time) bool {
	if s == nil || s.Address == "" || s.Token == "" {
		return false
	}
	return now.Before(s.ExpiresAt)
}

// NormalizeAddress converts a wallet address to its canonical lower-cased form.
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}
