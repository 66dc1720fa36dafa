package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/layer-3/salvo/core"
	"github.com/layer-3/salvo/ports"
)

const (
	// BundleCollectedTopic carries quorum collection results.
	BundleCollectedTopic = "salvo.bundle.collected"

	// SettlementTopic carries terminal settlement states.
	SettlementTopic = "salvo.settlement"
)

// BundleCollectedEvent is published after a successful quorum collection.
type BundleCollectedEvent struct {
	Address            string    `json:"address"`
	Signatures         int       `json:"signatures"`
	ExpectedExpiration int64     `json:"expected_expiration"`
	Code               string    `json:"code"`
	CollectedAt        time.Time `json:"collected_at"`
}

// SettlementEvent is published when a settlement attempt reaches a state
// worth broadcasting.
type SettlementEvent struct {
	Address       string `json:"address"`
	TransactionID string `json:"transaction_id,omitempty"`
	State         string `json:"state"`
	BlockNumber   uint64 `json:"block_number,omitempty"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill.
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher creates a new Watermill publisher.
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{publisher: publisher}
}

// PublishBundleCollected publishes a bundle collection event.
func (p *WatermillPublisher) PublishBundleCollected(ctx context.Context, address string, bundle *core.SignatureBundle) error {
	return p.publish(BundleCollectedTopic, BundleCollectedEvent{
		Address:            address,
		Signatures:         len(bundle.Signatures),
		ExpectedExpiration: bundle.ExpectedExpiration,
		Code:               bundle.Code,
		CollectedAt:        bundle.CollectedAt,
	})
}

// PublishSettlement publishes a settlement state event.
func (p *WatermillPublisher) PublishSettlement(ctx context.Context, address string, attempt *core.SettlementAttempt) error {
	event := SettlementEvent{
		Address:       address,
		TransactionID: attempt.TransactionID,
		State:         string(attempt.State),
	}
	if attempt.Receipt != nil {
		event.BlockNumber = attempt.Receipt.BlockNumber
	}
	return p.publish(SettlementTopic, event)
}

func (p *WatermillPublisher) publish(topic string, event interface{}) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(uuid.New().String(), payload)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}
