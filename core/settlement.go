package core

// SettlementState is the lifecycle state of a submitted withdrawal.
type SettlementState string

const (
	SettlementSubmitted SettlementState = "submitted"
	SettlementConfirmed SettlementState = "confirmed"
	SettlementReverted  SettlementState = "reverted"
	SettlementTimedOut  SettlementState = "timed_out"
)

// Receipt is the chain's record of a mined transaction, reduced to the
// fields this service acts on. TxHash is what callers surface as an
// explorer link.
type Receipt struct {
	TxHash      string `json:"tx_hash"`
	BlockNumber uint64 `json:"block_number"`
	Status      uint64 `json:"status"` // 1 = success, 0 = reverted
}

// Succeeded reports whether the transaction executed without reverting.
func (r *Receipt) Succeeded() bool {
	return r != nil && r.Status == 1
}

// SettlementAttempt tracks one submitted withdrawal to a terminal state.
type SettlementAttempt struct {
	TransactionID string          `json:"transaction_id,omitempty"`
	State         SettlementState `json:"state"`
	Receipt       *Receipt        `json:"receipt,omitempty"`
}

// Terminal reports whether the attempt has reached an end state.
func (a *SettlementAttempt) Terminal() bool {
	if a == nil {
		return false
	}
	return a.State != SettlementSubmitted
}

// TransactionRequest is the provider-facing shape of a contract call.
type TransactionRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
	Data string `json:"data"` // 0x-prefixed call data
}
