package core

import "time"

const (
	// MinQuorum is the minimum number of independent server signatures
	// required to authorize a withdrawal.
	MinQuorum = 18

	// MaxSignatures caps how many signatures are kept from a collection round.
	MaxSignatures = 20

	// BundleTTL is how long a collected bundle may be reused before the
	// fleet is asked again. Distinct from the on-chain expiration carried
	// inside the bundle.
	BundleTTL = 10 * time.Minute
)

// ServerSignature is one signer server's attestation of a withdrawal.
type ServerSignature struct {
	Signature          string `json:"signature"`
	ExpectedExpiration int64  `json:"expected_expiration"`
	Code               string `json:"code"`
}

// SignatureBundle is the aggregate of a quorum collection round.
// Signatures are kept in completion order; the bundle is never mutated
// once created.
type SignatureBundle struct {
	Signatures         []string  `json:"signatures"`
	ExpectedExpiration int64     `json:"expected_expiration"` // UNIX seconds, blockchain-relative
	Code               string    `json:"code"`                // batch identifier shared by all signatures
	CollectedAt        time.Time `json:"collected_at"`
	Address            string    `json:"address"`
}

// Usable reports whether the bundle still meets quorum and has not expired
// by either the local cache TTL or the on-chain expiration.
func (b *SignatureBundle) Usable(now time.Time) bool {
	if b == nil || len(b.Signatures) < MinQuorum {
		return false
	}
	if now.After(b.CollectedAt.Add(BundleTTL)) {
		return false
	}
	return now.Unix() < b.ExpectedExpiration
}

// ServerDirectoryEntry is one node of the signer fleet.
type ServerDirectoryEntry struct {
	EndpointURL string `json:"endpoint_url"`
}
