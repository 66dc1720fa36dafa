package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/layer-3/salvo/core"
	"github.com/layer-3/salvo/ports"
)

// AuthService exchanges a wallet signature for a bearer token and owns the
// session lifecycle. Concurrent Authenticate calls share a single in-flight
// challenge/sign/exchange cycle so the user is never prompted twice.
type AuthService struct {
	sessions  *SessionStore
	challenge ports.ChallengeIssuer
	issuer    ports.TokenIssuer
	clock     ports.Clock
	log       zerolog.Logger

	inflight singleflight.Group

	mu      sync.Mutex
	account string
}

// NewAuthService creates an authentication service.
func NewAuthService(sessions *SessionStore, challenge ports.ChallengeIssuer, issuer ports.TokenIssuer, clock ports.Clock, log zerolog.Logger) *AuthService {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	return &AuthService{
		sessions:  sessions,
		challenge: challenge,
		issuer:    issuer,
		clock:     clock,
		log:       log.With().Str("component", "auth").Logger(),
	}
}

// SetAccount binds the service to a wallet account. Switching to a
// different account destroys any prior session: a token bound to one
// address must never be served for another.
func (s *AuthService) SetAccount(ctx context.Context, address string) error {
	normalized := core.NormalizeAddress(address)

	s.mu.Lock()
	s.account = normalized
	s.mu.Unlock()

	session, err := s.sessions.Load(ctx)
	if err != nil {
		return err
	}
	if session != nil && session.Address != normalized {
		s.log.Info().Str("address", normalized).Msg("account changed, clearing session")
		return s.sessions.Clear(ctx)
	}
	return nil
}

// Account returns the currently bound account address.
func (s *AuthService) Account() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.account
}

// GetChallenge requests a one-time message for the account to sign.
func (s *AuthService) GetChallenge(ctx context.Context, address string) (string, error) {
	message, err := s.challenge.Challenge(ctx, address)
	if err != nil {
		return "", fmt.Errorf("%w: %w", core.ErrChallengeUnavailable, err)
	}
	if message == "" {
		return "", core.ErrChallengeUnavailable
	}
	return message, nil
}

// Sign delegates message signing to the wallet provider. A user rejection
// passes through as core.ErrSigningRejected; any other provider error is
// reported as core.ErrSigningFailed.
func (s *AuthService) Sign(ctx context.Context, provider ports.WalletProvider, account, message string) (string, error) {
	signature, err := provider.Sign(ctx, account, message)
	if err != nil {
		if errors.Is(err, core.ErrSigningRejected) {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", core.ErrSigningFailed, err)
	}
	return signature, nil
}

// ExchangeForToken trades a signed challenge for a bearer token.
func (s *AuthService) ExchangeForToken(ctx context.Context, address, signature string) (string, error) {
	token, err := s.issuer.Exchange(ctx, address, signature)
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", core.ErrInvalidLoginResponse
	}
	return token, nil
}

// Authenticate runs the full challenge, sign, exchange cycle and persists
// the resulting session. If a cycle is already in flight every caller
// attaches to it and receives the same result; the in-flight marker is
// cleared before any waiter observes the outcome, so the next call starts
// fresh.
func (s *AuthService) Authenticate(ctx context.Context, provider ports.WalletProvider) (string, error) {
	if provider == nil {
		return "", core.ErrProviderRequired
	}

	token, err, _ := s.inflight.Do("authenticate", func() (interface{}, error) {
		return s.authenticate(ctx, provider)
	})
	if err != nil {
		return "", err
	}
	return token.(string), nil
}

func (s *AuthService) authenticate(ctx context.Context, provider ports.WalletProvider) (string, error) {
	account := s.Account()
	if account == "" {
		accounts, err := provider.RequestAccounts(ctx)
		if err != nil {
			return "", fmt.Errorf("request accounts: %w", err)
		}
		if len(accounts) == 0 {
			return "", fmt.Errorf("wallet exposed no accounts")
		}
		if err := s.SetAccount(ctx, accounts[0]); err != nil {
			return "", err
		}
		account = s.Account()
	}

	message, err := s.GetChallenge(ctx, account)
	if err != nil {
		return "", err
	}

	signature, err := s.Sign(ctx, provider, account, message)
	if err != nil {
		return "", err
	}

	token, err := s.ExchangeForToken(ctx, account, signature)
	if err != nil {
		return "", err
	}

	now := s.clock.Now()
	session := &core.Session{
		Token:     token,
		ExpiresAt: TokenExpiry(token, now),
		Address:   account,
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return "", err
	}

	s.log.Info().Str("address", account).Time("expires_at", session.ExpiresAt).Msg("authenticated")
	return token, nil
}

// GetToken returns the cached bearer token when it is still valid, and
// otherwise authenticates with the given provider. forceRefresh skips the
// cached token.
func (s *AuthService) GetToken(ctx context.Context, provider ports.WalletProvider, forceRefresh bool) (string, error) {
	if !forceRefresh {
		session, err := s.sessions.Load(ctx)
		if err != nil {
			return "", err
		}
		if session != nil && session.Address == s.Account() {
			return session.Token, nil
		}
	}
	if provider == nil {
		return "", core.ErrProviderRequired
	}
	return s.Authenticate(ctx, provider)
}

// Disconnect destroys the current session.
func (s *AuthService) Disconnect(ctx context.Context) error {
	s.mu.Lock()
	s.account = ""
	s.mu.Unlock()
	return s.sessions.Clear(ctx)
}
