package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/salvo/adapters/store"
	"github.com/layer-3/salvo/core"
)

func fleet(n int) []core.ServerDirectoryEntry {
	servers := make([]core.ServerDirectoryEntry, n)
	for i := range servers {
		servers[i] = core.ServerDirectoryEntry{EndpointURL: fmt.Sprintf("https://pr-%d.example.com", i)}
	}
	return servers
}

// fleetSigner builds a mock where the first ok servers succeed and the rest
// time out.
func fleetSigner(servers []core.ServerDirectoryEntry, ok int, expiration int64, code string) *mockSigner {
	outcomes := make(map[string]func() (core.ServerSignature, error))
	for i, server := range servers {
		if i >= ok {
			break
		}
		i := i
		outcomes[server.EndpointURL] = func() (core.ServerSignature, error) {
			return core.ServerSignature{
				Signature:          fmt.Sprintf("0xsig-%d", i),
				ExpectedExpiration: expiration,
				Code:               code,
			}, nil
		}
	}
	return &mockSigner{outcomes: outcomes}
}

func newTestCollector(directory *mockDirectory, signer *mockSigner) (*QuorumCollector, *SignatureCache, *fakeClock) {
	clock := newFakeClock(time.Unix(1_700_000_000, 0))
	cache := NewSignatureCache(store.NewMemoryStore(), clock)
	collector := NewQuorumCollector(cache, directory, signer, clock, zerolog.Nop())
	return collector, cache, clock
}

func TestCollectQuorumMet(t *testing.T) {
	servers := fleet(20)
	directory := &mockDirectory{servers: servers}
	signer := fleetSigner(servers, 19, 1_700_009_000, "BATCH-1")
	collector, cache, _ := newTestCollector(directory, signer)

	bundle, err := collector.Collect(context.Background(), "bearer", "0xAbC", decimal.NewFromInt(100))
	require.NoError(t, err)

	assert.Len(t, bundle.Signatures, 19)
	assert.EqualValues(t, 1_700_009_000, bundle.ExpectedExpiration)
	assert.Equal(t, "BATCH-1", bundle.Code)
	assert.Equal(t, "0xabc", bundle.Address)

	cached, err := cache.Load(context.Background(), "0xabc")
	require.NoError(t, err)
	require.NotNil(t, cached, "successful bundle must be cached")
	assert.Equal(t, bundle.Signatures, cached.Signatures)
}

func TestCollectQuorumNotMet(t *testing.T) {
	servers := fleet(20)
	directory := &mockDirectory{servers: servers}
	signer := fleetSigner(servers, 10, 1_700_009_000, "BATCH-1")
	collector, cache, _ := newTestCollector(directory, signer)

	_, err := collector.Collect(context.Background(), "bearer", "0xabc", decimal.NewFromInt(100))

	var insufficient *core.InsufficientSignaturesError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 10, insufficient.Got)
	assert.Equal(t, core.MinQuorum, insufficient.Need)

	cached, err := cache.Load(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.Nil(t, cached, "failed collections must not be cached")
}

func TestCollectQuorumInvariant(t *testing.T) {
	// collect succeeds iff successful responses >= MinQuorum, for any mix
	// of per-server outcomes.
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 25; i++ {
		ok := rng.Intn(21)
		servers := fleet(20)
		collector, _, _ := newTestCollector(
			&mockDirectory{servers: servers},
			fleetSigner(servers, ok, 1_700_009_000, "B"),
		)

		bundle, err := collector.Collect(context.Background(), "bearer", "0xabc", decimal.NewFromInt(1))
		if ok >= core.MinQuorum {
			require.NoError(t, err, "ok=%d", ok)
			assert.Len(t, bundle.Signatures, ok)
		} else {
			var insufficient *core.InsufficientSignaturesError
			require.ErrorAs(t, err, &insufficient, "ok=%d", ok)
			assert.Equal(t, ok, insufficient.Got)
		}
	}
}

func TestCollectCapsSignatures(t *testing.T) {
	servers := fleet(25)
	directory := &mockDirectory{servers: servers}
	signer := fleetSigner(servers, 25, 1_700_009_000, "B")
	collector, _, _ := newTestCollector(directory, signer)

	bundle, err := collector.Collect(context.Background(), "bearer", "0xabc", decimal.NewFromInt(1))
	require.NoError(t, err)
	assert.Len(t, bundle.Signatures, core.MaxSignatures, "over-collection is discarded")
	assert.EqualValues(t, 25, signer.calls.Load(), "in-flight requests are not cancelled")
}

func TestCollectUsesCachedBundle(t *testing.T) {
	directory := &mockDirectory{err: errors.New("directory must not be called")}
	signer := &mockSigner{}
	collector, cache, clock := newTestCollector(directory, signer)

	cached := &core.SignatureBundle{
		Signatures:         make([]string, core.MinQuorum),
		ExpectedExpiration: clock.Now().Unix() + 600,
		Code:               "CACHED",
		CollectedAt:        clock.Now(),
		Address:            "0xabc",
	}
	require.NoError(t, cache.Save(context.Background(), cached))

	bundle, err := collector.Collect(context.Background(), "bearer", "0xabc", decimal.NewFromInt(1))
	require.NoError(t, err)
	assert.Equal(t, "CACHED", bundle.Code)
	assert.EqualValues(t, 0, directory.calls.Load(), "cache hit must issue zero network calls")
	assert.EqualValues(t, 0, signer.calls.Load())
}

func TestCollectIgnoresCachedBundlePastTTL(t *testing.T) {
	servers := fleet(20)
	directory := &mockDirectory{servers: servers}
	signer := fleetSigner(servers, 20, 1_800_000_000, "FRESH")
	collector, cache, clock := newTestCollector(directory, signer)

	stale := &core.SignatureBundle{
		Signatures:         make([]string, core.MinQuorum),
		ExpectedExpiration: clock.Now().Unix() + 3600,
		Code:               "STALE",
		CollectedAt:        clock.Now(),
		Address:            "0xabc",
	}
	require.NoError(t, cache.Save(context.Background(), stale))

	clock.Advance(core.BundleTTL + time.Minute)

	bundle, err := collector.Collect(context.Background(), "bearer", "0xabc", decimal.NewFromInt(1))
	require.NoError(t, err)
	assert.Equal(t, "FRESH", bundle.Code)
	assert.EqualValues(t, 1, directory.calls.Load())
}

func TestCollectIgnoresCachedBundlePastChainExpiry(t *testing.T) {
	servers := fleet(20)
	directory := &mockDirectory{servers: servers}
	signer := fleetSigner(servers, 20, 1_800_000_000, "FRESH")
	collector, cache, clock := newTestCollector(directory, signer)

	expired := &core.SignatureBundle{
		Signatures:         make([]string, core.MinQuorum),
		ExpectedExpiration: clock.Now().Unix() - 1,
		Code:               "DEAD",
		CollectedAt:        clock.Now(),
		Address:            "0xabc",
	}
	require.NoError(t, cache.Save(context.Background(), expired))

	bundle, err := collector.Collect(context.Background(), "bearer", "0xabc", decimal.NewFromInt(1))
	require.NoError(t, err)
	assert.Equal(t, "FRESH", bundle.Code)
}

func TestCollectDirectoryFailureIsFatal(t *testing.T) {
	directory := &mockDirectory{err: errors.New("503 from directory")}
	collector, _, _ := newTestCollector(directory, &mockSigner{})

	_, err := collector.Collect(context.Background(), "bearer", "0xabc", decimal.NewFromInt(1))
	require.Error(t, err)

	var insufficient *core.InsufficientSignaturesError
	assert.False(t, errors.As(err, &insufficient), "directory failure is not a quorum failure")
}
