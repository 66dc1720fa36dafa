package ports

import (
	"context"
	"math/big"

	"github.com/layer-3/salvo/core"
)

// WalletProvider is the narrow capability surface the core needs from a
// wallet integration. The core never branches on provider identity.
type WalletProvider interface {
	// RequestAccounts returns the accounts the wallet exposes.
	RequestAccounts(ctx context.Context) ([]string, error)

	// Sign signs a human-readable message with the given account.
	// Implementations return core.ErrSigningRejected when the user
	// declines the prompt.
	Sign(ctx context.Context, account, message string) (string, error)

	// ChainID returns the id of the connected network.
	ChainID(ctx context.Context) (*big.Int, error)

	// SendTransaction submits a transaction and returns its id.
	// Implementations return core.ErrUserRejected when the user declines.
	SendTransaction(ctx context.Context, tx core.TransactionRequest) (string, error)

	// TransactionReceipt returns the receipt for a transaction id, or
	// (nil, nil) while the transaction is not yet mined.
	TransactionReceipt(ctx context.Context, txID string) (*core.Receipt, error)
}
