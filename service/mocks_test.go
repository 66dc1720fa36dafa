package service

import (
	"context"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/layer-3/salvo/core"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type mockChallengeIssuer struct {
	message string
	err     error
	calls   atomic.Int32

	// block, when set, holds every call until released so tests can pile
	// up concurrent authentication attempts.
	block chan struct{}
}

func (m *mockChallengeIssuer) Challenge(ctx context.Context, address string) (string, error) {
	m.calls.Add(1)
	if m.block != nil {
		<-m.block
	}
	return m.message, m.err
}

type mockTokenIssuer struct {
	token string
	err   error
	calls atomic.Int32
}

func (m *mockTokenIssuer) Exchange(ctx context.Context, address, signature string) (string, error) {
	m.calls.Add(1)
	return m.token, m.err
}

type mockProvider struct {
	accounts  []string
	signature string
	signErr   error
	signCalls atomic.Int32

	chainID *big.Int
	txID    string
	sendErr error

	// receiptAfter is how many polls return no receipt before receipt is
	// served. Negative means never.
	receiptAfter int
	receipt      *core.Receipt
	receiptCalls atomic.Int32
}

func (m *mockProvider) RequestAccounts(ctx context.Context) ([]string, error) {
	return m.accounts, nil
}

func (m *mockProvider) Sign(ctx context.Context, account, message string) (string, error) {
	m.signCalls.Add(1)
	if m.signErr != nil {
		return "", m.signErr
	}
	return m.signature, nil
}

func (m *mockProvider) ChainID(ctx context.Context) (*big.Int, error) {
	if m.chainID == nil {
		return big.NewInt(1), nil
	}
	return m.chainID, nil
}

func (m *mockProvider) SendTransaction(ctx context.Context, tx core.TransactionRequest) (string, error) {
	if m.sendErr != nil {
		return "", m.sendErr
	}
	return m.txID, nil
}

func (m *mockProvider) TransactionReceipt(ctx context.Context, txID string) (*core.Receipt, error) {
	calls := int(m.receiptCalls.Add(1))
	if m.receiptAfter < 0 || calls <= m.receiptAfter {
		return nil, nil
	}
	return m.receipt, nil
}

type mockDirectory struct {
	servers []core.ServerDirectoryEntry
	err     error
	calls   atomic.Int32
}

func (m *mockDirectory) Servers(ctx context.Context, bearer string) ([]core.ServerDirectoryEntry, error) {
	m.calls.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	return m.servers, nil
}

// mockSigner routes each endpoint to a per-endpoint outcome.
type mockSigner struct {
	outcomes map[string]func() (core.ServerSignature, error)
	calls    atomic.Int32
}

func (m *mockSigner) SignWithdrawal(ctx context.Context, endpointURL, address string, amount decimal.Decimal) (core.ServerSignature, error) {
	m.calls.Add(1)
	fn, ok := m.outcomes[endpointURL]
	if !ok {
		return core.ServerSignature{}, context.DeadlineExceeded
	}
	return fn()
}
