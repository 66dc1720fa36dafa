package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/layer-3/salvo/core"
	"github.com/layer-3/salvo/ports"
)

const sessionKey = "salvo:session"

// DefaultTokenLifetime is the nominal lifetime of an issued bearer token,
// used when the token itself carries no expiry claim.
const DefaultTokenLifetime = 24 * time.Hour

// SessionStore persists the bearer session. It performs no network or
// cryptographic side effects; invariant enforcement (account-change
// invalidation) belongs to the AuthService.
type SessionStore struct {
	store ports.Store
	clock ports.Clock
}

// NewSessionStore creates a session store over a KV backend.
func NewSessionStore(store ports.Store, clock ports.Clock) *SessionStore {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	return &SessionStore{store: store, clock: clock}
}

// Load returns the stored session, or nil when absent. A stored session
// whose expiry has passed is cleared and reported absent.
func (s *SessionStore) Load(ctx context.Context) (*core.Session, error) {
	raw, err := s.store.Get(ctx, sessionKey)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load session: %w", err)
	}

	var session core.Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		// Unreadable state is treated like an expired session.
		_ = s.store.Delete(ctx, sessionKey)
		return nil, nil
	}

	if !session.Valid(s.clock.Now()) {
		if err := s.Clear(ctx); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return &session, nil
}

// Save overwrites any prior session unconditionally.
func (s *SessionStore) Save(ctx context.Context, session *core.Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	ttl := session.ExpiresAt.Sub(s.clock.Now())
	if ttl <= 0 {
		ttl = time.Minute
	}
	if err := s.store.Set(ctx, sessionKey, string(raw), ttl); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Clear removes the stored session.
func (s *SessionStore) Clear(ctx context.Context) error {
	if err := s.store.Delete(ctx, sessionKey); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// IsValid reports whether the session is currently usable.
func (s *SessionStore) IsValid(session *core.Session) bool {
	return session.Valid(s.clock.Now())
}

// TokenExpiry derives a token's expiry. Issued tokens are JWTs in practice,
// so the exp claim is read without verification (the issuer remains the
// authority); opaque tokens fall back to the nominal lifetime.
func TokenExpiry(token string, now time.Time) time.Time {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			return exp.Time
		}
	}
	return now.Add(DefaultTokenLifetime)
}
