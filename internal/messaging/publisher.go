package messaging

import (
	"context"

	"github.com/Sogo28/chaincode-blockchain/internal/domain"
)

// Publisher defines the interface for announcing title events to the
// notification channel. Delivery is best-effort from the engine's
// perspective.
//
//go:generate mockgen -source=publisher.go -destination=../mocks/publisher.go -package=mocks -mock_names=Publisher=MockPublisher
type Publisher interface {
	// PublishEvent publishes a title event to the message broker
	PublishEvent(ctx context.Context, event *domain.TitleEvent) error
	// Close closes the connection
	Close()
}
