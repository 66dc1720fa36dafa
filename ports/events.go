package ports

import (
	"context"

	"github.com/layer-3/salvo/core"
)

// EventPublisher notifies other components about withdrawal lifecycle
// transitions.
type EventPublisher interface {
	PublishBundleCollected(ctx context.Context, address string, bundle *core.SignatureBundle) error
	PublishSettlement(ctx context.Context, address string, attempt *core.SettlementAttempt) error
}
