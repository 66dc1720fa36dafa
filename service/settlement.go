package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/layer-3/salvo/core"
	"github.com/layer-3/salvo/ports"
)

const (
	// DefaultPollInterval is the spacing between receipt polls.
	DefaultPollInterval = 2 * time.Second

	// DefaultMaxPolls bounds the confirmation wait to roughly two minutes.
	DefaultMaxPolls = 60
)

// SettlementDriver submits an encoded withdrawal and drives it to a
// terminal state by polling for its receipt.
type SettlementDriver struct {
	provider ports.WalletProvider
	clock    ports.Clock
	log      zerolog.Logger

	expectedChainID uint64
	pollInterval    time.Duration
	maxPolls        uint64

	// newTimer lets tests replace the poll timer with one that does not
	// touch the wall clock.
	newTimer func() backoff.Timer
}

// NewSettlementDriver creates a driver bound to the expected chain.
func NewSettlementDriver(provider ports.WalletProvider, expectedChainID uint64, clock ports.Clock, log zerolog.Logger) *SettlementDriver {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	return &SettlementDriver{
		provider:        provider,
		clock:           clock,
		log:             log.With().Str("component", "settlement").Logger(),
		expectedChainID: expectedChainID,
		pollInterval:    DefaultPollInterval,
		maxPolls:        DefaultMaxPolls,
		newTimer:        func() backoff.Timer { return nil },
	}
}

// SubmitAndConfirm sends the call data and polls for its receipt.
// Pre-checks fail fast without submitting: a chain mismatch returns
// *core.WrongNetworkError, an already-expired bundle returns
// core.ErrSignaturesExpired (the caller must purge the signature cache).
// The returned attempt always carries the transaction id once submission
// succeeded, even when confirmation fails.
func (d *SettlementDriver) SubmitAndConfirm(ctx context.Context, bundle *core.SignatureBundle, payload, fromAddress, toContract string) (*core.SettlementAttempt, error) {
	chainID, err := d.provider.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("read chain id: %w", err)
	}
	if chainID.Uint64() != d.expectedChainID {
		return nil, &core.WrongNetworkError{Have: chainID.Uint64(), Want: d.expectedChainID}
	}

	if d.clock.Now().Unix() >= bundle.ExpectedExpiration {
		return nil, core.ErrSignaturesExpired
	}

	txID, err := d.provider.SendTransaction(ctx, core.TransactionRequest{
		From: fromAddress,
		To:   toContract,
		Data: payload,
	})
	if err != nil {
		if errors.Is(err, core.ErrUserRejected) {
			return nil, err
		}
		return nil, fmt.Errorf("submit withdrawal: %w", err)
	}

	attempt := &core.SettlementAttempt{
		TransactionID: txID,
		State:         core.SettlementSubmitted,
	}
	d.log.Info().Str("tx", txID).Msg("withdrawal submitted")

	receipt, err := d.pollReceipt(ctx, txID)
	if err != nil {
		attempt.State = core.SettlementTimedOut
		d.log.Warn().Str("tx", txID).Msg("confirmation poll budget exhausted")
		return attempt, core.ErrConfirmationTimeout
	}

	attempt.Receipt = receipt
	if !receipt.Succeeded() {
		attempt.State = core.SettlementReverted
		d.log.Warn().Str("tx", txID).Uint64("block", receipt.BlockNumber).Msg("withdrawal reverted")
		return attempt, core.ErrReverted
	}

	attempt.State = core.SettlementConfirmed
	d.log.Info().Str("tx", txID).Uint64("block", receipt.BlockNumber).Msg("withdrawal confirmed")
	return attempt, nil
}

var errReceiptPending = errors.New("receipt not yet available")

// pollReceipt asks for the receipt at a constant interval until it appears
// or the attempt budget runs out. Transport errors during a poll count as
// a missing receipt and are retried.
func (d *SettlementDriver) pollReceipt(ctx context.Context, txID string) (*core.Receipt, error) {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(d.pollInterval), d.maxPolls-1),
		ctx,
	)

	var receipt *core.Receipt
	operation := func() error {
		r, err := d.provider.TransactionReceipt(ctx, txID)
		if err != nil {
			d.log.Debug().Err(err).Str("tx", txID).Msg("receipt poll failed")
			return errReceiptPending
		}
		if r == nil {
			return errReceiptPending
		}
		receipt = r
		return nil
	}

	if err := backoff.RetryNotifyWithTimer(operation, policy, nil, d.newTimer()); err != nil {
		return nil, err
	}
	return receipt, nil
}
