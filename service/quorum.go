package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/layer-3/salvo/core"
	"github.com/layer-3/salvo/ports"
)

// DefaultSignRequestTimeout bounds each per-server signature request. It is
// independent of the overall collection: the fan-out returns once every
// dispatched request has settled on its own clock.
const DefaultSignRequestTimeout = 5 * time.Second

// QuorumCollector fans a withdrawal attestation request out to the signer
// fleet and accepts the result only when a minimum number of servers
// responded. No single server is authoritative.
type QuorumCollector struct {
	cache     *SignatureCache
	directory ports.DirectoryProvider
	signer    ports.WithdrawalSigner
	clock     ports.Clock
	log       zerolog.Logger

	timeout       time.Duration
	minQuorum     int
	maxSignatures int
}

// NewQuorumCollector creates a collector with the production quorum bounds.
func NewQuorumCollector(cache *SignatureCache, directory ports.DirectoryProvider, signer ports.WithdrawalSigner, clock ports.Clock, log zerolog.Logger) *QuorumCollector {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	return &QuorumCollector{
		cache:         cache,
		directory:     directory,
		signer:        signer,
		clock:         clock,
		log:           log.With().Str("component", "quorum").Logger(),
		timeout:       DefaultSignRequestTimeout,
		minQuorum:     core.MinQuorum,
		maxSignatures: core.MaxSignatures,
	}
}

type signOutcome struct {
	sig core.ServerSignature
	err error
}

// Collect returns a usable signature bundle for the account, reusing a
// cached bundle when one is still live so a UI refresh never hammers the
// fleet. A fresh collection dispatches every directory entry concurrently,
// tolerates individual failures, and fails with
// *core.InsufficientSignaturesError when fewer than the quorum minimum
// succeed.
func (q *QuorumCollector) Collect(ctx context.Context, bearer, address string, amount decimal.Decimal) (*core.SignatureBundle, error) {
	address = core.NormalizeAddress(address)

	if cached, err := q.cache.Load(ctx, address); err != nil {
		return nil, err
	} else if cached != nil {
		q.log.Debug().Str("address", address).Int("signatures", len(cached.Signatures)).Msg("reusing cached bundle")
		return cached, nil
	}

	// The directory is fetched fresh for every attempt; failure here is
	// fatal to the whole collection, not a soft partial.
	servers, err := q.directory.Servers(ctx, bearer)
	if err != nil {
		return nil, err
	}

	// All requests start together and settle independently. The buffered
	// channel lets every goroutine deliver its outcome even after the
	// signature cap is reached, so nothing is cancelled mid-flight.
	results := make(chan signOutcome, len(servers))
	for _, server := range servers {
		go func(endpoint string) {
			reqCtx, cancel := context.WithTimeout(ctx, q.timeout)
			defer cancel()
			sig, err := q.signer.SignWithdrawal(reqCtx, endpoint, address, amount)
			results <- signOutcome{sig: sig, err: err}
		}(server.EndpointURL)
	}

	bundle := &core.SignatureBundle{
		Address:     address,
		CollectedAt: q.clock.Now(),
	}
	var failed int
	for range servers {
		outcome := <-results
		if outcome.err != nil {
			// Soft failure: counted and excluded, never fatal to the batch.
			failed++
			q.log.Debug().Err(outcome.err).Msg("signature request failed")
			continue
		}
		if len(bundle.Signatures) >= q.maxSignatures {
			// Over-collection beyond the cap is discarded.
			continue
		}
		if bundle.Code != "" && bundle.Code != outcome.sig.Code {
			// Servers are trusted to agree; divergence is observable but
			// not validated here.
			q.log.Debug().Str("have", bundle.Code).Str("got", outcome.sig.Code).Msg("batch code divergence")
		}
		bundle.Signatures = append(bundle.Signatures, outcome.sig.Signature)
		bundle.ExpectedExpiration = outcome.sig.ExpectedExpiration
		bundle.Code = outcome.sig.Code
	}

	if len(bundle.Signatures) < q.minQuorum {
		q.log.Warn().Int("got", len(bundle.Signatures)).Int("need", q.minQuorum).Int("failed", failed).Msg("quorum not met")
		return nil, &core.InsufficientSignaturesError{Got: len(bundle.Signatures), Need: q.minQuorum}
	}

	if err := q.cache.Save(ctx, bundle); err != nil {
		return nil, err
	}

	q.log.Info().Str("address", address).Int("signatures", len(bundle.Signatures)).
		Int64("expected_expiration", bundle.ExpectedExpiration).Msg("quorum collected")
	return bundle, nil
}
