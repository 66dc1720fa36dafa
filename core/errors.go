package core

import (
	"errors"
	"fmt"
)

var (
	// ErrChallengeUnavailable is returned when the issuer does not provide a challenge message
	ErrChallengeUnavailable = errors.New("challenge unavailable")

	// ErrSigningRejected is returned when the user declines the wallet signing prompt
	ErrSigningRejected = errors.New("signing rejected by user")

	// ErrSigningFailed is returned for any other wallet provider signing error
	ErrSigningFailed = errors.New("signing failed")

	// ErrInvalidLoginResponse is returned when no token can be located in the issuer response
	ErrInvalidLoginResponse = errors.New("invalid login response")

	// ErrSignaturesExpired is returned when a bundle's on-chain expiration has passed.
	// Callers must purge the cached bundle so the next attempt re-collects.
	ErrSignaturesExpired = errors.New("withdrawal signatures expired, retry to collect fresh ones")

	// ErrUserRejected is returned when the user declines the transaction prompt
	ErrUserRejected = errors.New("transaction rejected by user")

	// ErrReverted is returned when the chain reports the withdrawal transaction failed
	ErrReverted = errors.New("withdrawal transaction reverted")

	// ErrConfirmationTimeout is returned when no receipt was observed within
	// the poll budget. It says nothing about the transaction's validity.
	ErrConfirmationTimeout = errors.New("timed out waiting for transaction confirmation")

	// ErrNoSession is returned when an operation requires an authenticated session
	ErrNoSession = errors.New("no active session")

	// ErrProviderRequired is returned when authentication is needed but no wallet provider was supplied
	ErrProviderRequired = errors.New("wallet provider required")
)

// InsufficientSignaturesError is returned when a collection round fails to
// reach quorum. This is an expected operational state: the caller should
// tell the user to wait and retry, not retry automatically.
type InsufficientSignaturesError struct {
	Got  int
	Need int
}

func (e *InsufficientSignaturesError) Error() string {
	return fmt.Sprintf("insufficient signatures: got %d, need %d; wait a few minutes and retry", e.Got, e.Need)
}

// WrongNetworkError is returned when the connected chain does not match the
// expected one. No transaction is sent.
type WrongNetworkError struct {
	Have uint64
	Want uint64
}

func (e *WrongNetworkError) Error() string {
	return fmt.Sprintf("wrong network: connected to chain %d, expected %d", e.Have, e.Want)
}
