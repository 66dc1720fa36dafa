package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/layer-3/salvo/core"
	"github.com/layer-3/salvo/ports"
)

const bundleKeyPrefix = "salvo:bundle:"

// SignatureCache persists collected quorum bundles keyed by account. The
// cache TTL is intentionally short and independent of the blockchain
// expiration embedded in the bundle.
type SignatureCache struct {
	store ports.Store
	clock ports.Clock
}

// NewSignatureCache creates a signature cache over a KV backend.
func NewSignatureCache(store ports.Store, clock ports.Clock) *SignatureCache {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	return &SignatureCache{store: store, clock: clock}
}

// Load returns a cached bundle for the account when it is still usable by
// both the cache TTL and the on-chain expiration, and nil otherwise.
func (c *SignatureCache) Load(ctx context.Context, address string) (*core.SignatureBundle, error) {
	raw, err := c.store.Get(ctx, bundleKeyPrefix+core.NormalizeAddress(address))
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load bundle: %w", err)
	}

	var bundle core.SignatureBundle
	if err := json.Unmarshal([]byte(raw), &bundle); err != nil {
		return nil, nil
	}
	if !bundle.Usable(c.clock.Now()) {
		return nil, nil
	}
	return &bundle, nil
}

// Save stores a bundle under its account for the cache TTL.
func (c *SignatureCache) Save(ctx context.Context, bundle *core.SignatureBundle) error {
	raw, err := json.Marshal(bundle)
	if err != nil {
		return fmt.Errorf("encode bundle: %w", err)
	}
	key := bundleKeyPrefix + core.NormalizeAddress(bundle.Address)
	if err := c.store.Set(ctx, key, string(raw), core.BundleTTL); err != nil {
		return fmt.Errorf("save bundle: %w", err)
	}
	return nil
}

// Invalidate drops any cached bundle for the account. Called when
// settlement reports the signatures expired, so the next attempt
// re-collects instead of retrying with dead material.
func (c *SignatureCache) Invalidate(ctx context.Context, address string) error {
	if err := c.store.Delete(ctx, bundleKeyPrefix+core.NormalizeAddress(address)); err != nil {
		return fmt.Errorf("invalidate bundle: %w", err)
	}
	return nil
}
