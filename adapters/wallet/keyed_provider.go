// Package wallet implements the WalletProvider capability over a local
// private key and an Ethereum JSON-RPC endpoint. Browser wallets implement
// the same interface on the dashboard side; the core never distinguishes
// between them.
package wallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/layer-3/salvo/core"
)

// EthClient is the subset of the Ethereum RPC the provider uses.
type EthClient interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *gethtypes.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*gethtypes.Receipt, error)
}

// Dial initialises an Ethereum RPC client for the provided endpoint.
func Dial(endpoint string) (*ethclient.Client, error) {
	trimmed := strings.TrimSpace(endpoint)
	if trimmed == "" {
		return nil, fmt.Errorf("eth endpoint required")
	}
	return ethclient.Dial(trimmed)
}

// KeyedProvider signs and submits with a locally held key.
type KeyedProvider struct {
	key     *ecdsa.PrivateKey
	address common.Address
	client  EthClient
}

// NewKeyedProvider creates a provider for the given key.
func NewKeyedProvider(key *ecdsa.PrivateKey, client EthClient) *KeyedProvider {
	return &KeyedProvider{
		key:     key,
		address: gethcrypto.PubkeyToAddress(key.PublicKey),
		client:  client,
	}
}

// RequestAccounts returns the single account the key controls.
func (p *KeyedProvider) RequestAccounts(ctx context.Context) ([]string, error) {
	return []string{strings.ToLower(p.address.Hex())}, nil
}

// Sign produces an EIP-191 personal signature over the message.
func (p *KeyedProvider) Sign(ctx context.Context, account, message string) (string, error) {
	if core.NormalizeAddress(account) != strings.ToLower(p.address.Hex()) {
		return "", fmt.Errorf("account %s is not controlled by this provider", account)
	}

	digest := accounts.TextHash([]byte(message))
	sig, err := gethcrypto.Sign(digest, p.key)
	if err != nil {
		return "", fmt.Errorf("sign message: %w", err)
	}
	// Wallets report v as 27/28.
	sig[64] += 27
	return hexutil.Encode(sig), nil
}

// ChainID reports the connected network.
func (p *KeyedProvider) ChainID(ctx context.Context) (*big.Int, error) {
	return p.client.ChainID(ctx)
}

// SendTransaction signs and broadcasts a contract call, returning its hash.
func (p *KeyedProvider) SendTransaction(ctx context.Context, req core.TransactionRequest) (string, error) {
	data, err := hexutil.Decode(req.Data)
	if err != nil {
		return "", fmt.Errorf("decode call data: %w", err)
	}
	to := common.HexToAddress(req.To)

	chainID, err := p.client.ChainID(ctx)
	if err != nil {
		return "", fmt.Errorf("read chain id: %w", err)
	}
	nonce, err := p.client.PendingNonceAt(ctx, p.address)
	if err != nil {
		return "", fmt.Errorf("read nonce: %w", err)
	}
	gasPrice, err := p.client.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("suggest gas price: %w", err)
	}
	gasLimit, err := p.client.EstimateGas(ctx, ethereum.CallMsg{
		From: p.address,
		To:   &to,
		Data: data,
	})
	if err != nil {
		return "", fmt.Errorf("estimate gas: %w", err)
	}

	tx := gethtypes.NewTx(&gethtypes.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})
	signed, err := gethtypes.SignTx(tx, gethtypes.LatestSignerForChainID(chainID), p.key)
	if err != nil {
		return "", fmt.Errorf("sign transaction: %w", err)
	}
	if err := p.client.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("broadcast transaction: %w", err)
	}
	return signed.Hash().Hex(), nil
}

// TransactionReceipt returns the receipt for a transaction hash, or
// (nil, nil) while the transaction is still pending.
func (p *KeyedProvider) TransactionReceipt(ctx context.Context, txID string) (*core.Receipt, error) {
	receipt, err := p.client.TransactionReceipt(ctx, common.HexToHash(txID))
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch receipt: %w", err)
	}
	if receipt == nil {
		return nil, nil
	}

	out := &core.Receipt{
		TxHash: receipt.TxHash.Hex(),
		Status: receipt.Status,
	}
	if receipt.BlockNumber != nil {
		out.BlockNumber = receipt.BlockNumber.Uint64()
	}
	return out, nil
}
