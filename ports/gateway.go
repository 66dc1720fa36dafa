package ports

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/layer-3/salvo/core"
)

// ChallengeIssuer hands out one-time messages for wallets to sign.
type ChallengeIssuer interface {
	Challenge(ctx context.Context, address string) (string, error)
}

// TokenIssuer exchanges a signed challenge for a bearer token.
type TokenIssuer interface {
	Exchange(ctx context.Context, address, signature string) (string, error)
}

// DirectoryProvider lists the current signer server fleet. Requires a valid
// bearer token; the directory itself is never cached.
type DirectoryProvider interface {
	Servers(ctx context.Context, bearer string) ([]core.ServerDirectoryEntry, error)
}

// WithdrawalSigner requests one server's attestation of a withdrawal.
type WithdrawalSigner interface {
	SignWithdrawal(ctx context.Context, endpointURL, address string, amount decimal.Decimal) (core.ServerSignature, error)
}
