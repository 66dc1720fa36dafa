package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionValid(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	live := &Session{Token: "t", Address: "0xabc", ExpiresAt: now.Add(time.Hour)}
	assert.True(t, live.Valid(now))

	expired := &Session{Token: "t", Address: "0xabc", ExpiresAt: now.Add(-time.Second)}
	assert.False(t, expired.Valid(now))

	unbound := &Session{Token: "t", ExpiresAt: now.Add(time.Hour)}
	assert.False(t, unbound.Valid(now), "session without an address is never valid")

	var nilSession *Session
	assert.False(t, nilSession.Valid(now))
}

func TestNormalizeAddress(t *testing.T) {
	assert.Equal(t, "0xabcdef", NormalizeAddress("  0xAbCdEf "))
}

func TestBundleUsable(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	base := SignatureBundle{
		Signatures:         make([]string, MinQuorum),
		ExpectedExpiration: now.Unix() + 600,
		CollectedAt:        now,
	}

	usable := base
	assert.True(t, usable.Usable(now))

	short := base
	short.Signatures = make([]string, MinQuorum-1)
	assert.False(t, short.Usable(now), "below-quorum bundles are rejected, not repaired")

	stale := base
	assert.False(t, stale.Usable(now.Add(BundleTTL+time.Second)))

	chainExpired := base
	chainExpired.ExpectedExpiration = now.Unix()
	assert.False(t, chainExpired.Usable(now))
}

func TestParseAmount(t *testing.T) {
	d, err := ParseAmount("12.5")
	require.NoError(t, err)
	assert.True(t, d.Equal(decimal.RequireFromString("12.5")))

	_, err = ParseAmount("0")
	assert.Error(t, err)
	_, err = ParseAmount("-3")
	assert.Error(t, err)
	_, err = ParseAmount("abc")
	assert.Error(t, err)
}

func TestToWei(t *testing.T) {
	wei := ToWei(decimal.RequireFromString("1.5"), 18)
	assert.Equal(t, "1500000000000000000", wei.String())

	truncated := ToWei(decimal.RequireFromString("0.1234567"), 6)
	assert.Equal(t, "123456", truncated.String())
}
