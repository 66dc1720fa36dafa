package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/layer-3/salvo/abi"
	"github.com/layer-3/salvo/core"
	"github.com/layer-3/salvo/ports"
)

// WithdrawalConfig pins the on-chain targets of a withdrawal.
type WithdrawalConfig struct {
	TokenAddress    common.Address
	ContractAddress common.Address
	TokenDecimals   int32
}

// WithdrawalService runs a withdrawal end to end: bearer token, quorum
// collection, payload encoding, submission and confirmation.
type WithdrawalService struct {
	auth       *AuthService
	collector  *QuorumCollector
	settlement *SettlementDriver
	cache      *SignatureCache
	events     ports.EventPublisher
	cfg        WithdrawalConfig
	log        zerolog.Logger
}

// NewWithdrawalService wires the withdrawal pipeline.
func NewWithdrawalService(auth *AuthService, collector *QuorumCollector, settlement *SettlementDriver, cache *SignatureCache, events ports.EventPublisher, cfg WithdrawalConfig, log zerolog.Logger) *WithdrawalService {
	return &WithdrawalService{
		auth:       auth,
		collector:  collector,
		settlement: settlement,
		cache:      cache,
		events:     events,
		cfg:        cfg,
		log:        log.With().Str("component", "withdrawal").Logger(),
	}
}

// Withdraw authorizes and settles a withdrawal of the given display amount
// for the bound account. When settlement reports the collected signatures
// expired, the cached bundle is purged before the error is returned so the
// next attempt collects fresh material.
func (w *WithdrawalService) Withdraw(ctx context.Context, provider ports.WalletProvider, address string, amount decimal.Decimal) (*core.SettlementAttempt, error) {
	address = core.NormalizeAddress(address)
	attemptID := uuid.New().String()
	log := w.log.With().Str("attempt", attemptID).Str("address", address).Logger()

	token, err := w.auth.GetToken(ctx, provider, false)
	if err != nil {
		return nil, err
	}

	bundle, err := w.collector.Collect(ctx, token, address, amount)
	if err != nil {
		return nil, err
	}
	w.publishCollected(ctx, address, bundle)

	payload, err := abi.EncodeWithdrawalCall(
		w.cfg.TokenAddress,
		common.HexToAddress(address),
		core.ToWei(amount, w.cfg.TokenDecimals),
		bundle.ExpectedExpiration,
		bundle.Code,
		bundle.Signatures,
	)
	if err != nil {
		return nil, fmt.Errorf("encode withdrawal: %w", err)
	}

	attempt, err := w.settlement.SubmitAndConfirm(ctx, bundle, payload, address, w.cfg.ContractAddress.Hex())
	if err != nil && errors.Is(err, core.ErrSignaturesExpired) {
		if purgeErr := w.cache.Invalidate(ctx, address); purgeErr != nil {
			log.Error().Err(purgeErr).Msg("failed to purge expired bundle")
		}
		return nil, err
	}
	if attempt != nil {
		w.publishSettlement(ctx, address, attempt)
	}
	if err != nil {
		return attempt, err
	}

	log.Info().Str("tx", attempt.TransactionID).Msg("withdrawal settled")
	return attempt, nil
}

// Disconnect tears down the session and any cached bundle for the account.
func (w *WithdrawalService) Disconnect(ctx context.Context) error {
	address := w.auth.Account()
	if err := w.auth.Disconnect(ctx); err != nil {
		return err
	}
	if address == "" {
		return nil
	}
	return w.cache.Invalidate(ctx, address)
}

func (w *WithdrawalService) publishCollected(ctx context.Context, address string, bundle *core.SignatureBundle) {
	if w.events == nil {
		return
	}
	if err := w.events.PublishBundleCollected(ctx, address, bundle); err != nil {
		w.log.Warn().Err(err).Msg("failed to publish bundle event")
	}
}

func (w *WithdrawalService) publishSettlement(ctx context.Context, address string, attempt *core.SettlementAttempt) {
	if w.events == nil {
		return
	}
	if err := w.events.PublishSettlement(ctx, address, attempt); err != nil {
		w.log.Warn().Err(err).Msg("failed to publish settlement event")
	}
}
