package mocks

import (
	"github.com/Billy-Davies-2/xpulse-cards/internal/logger"
	"github.com/Billy-Davies-2/xpulse-cards/internal/pubsub"
)

// MockNATSPubSub stands in for NATS when EVENT_BUS=memory
type MockNATSPubSub struct {
	*pubsub.PubSub
}

// NewMockNATSPubSub creates a mock NATS pub/sub using the in-memory implementation
func NewMockNATSPubSub() *MockNATSPubSub {
	logger.Info("Using MOCK NATS/JetStream (in-memory pub/sub) for local development")

	return &MockNATSPubSub{
		PubSub: pubsub.New(),
	}
}

// SubscribeJetStream delivers every event to handler from a local subscription.
// There is no durability, so the consumer name is only logged.
func (m *MockNATSPubSub) SubscribeJetStream(consumerName string, handler func(pubsub.Event)) error {
	ch := m.Subscribe()
	logger.Debug("Mock NATS: consumer attached", "consumer", consumerName)
	go func() {
		for e := range ch {
			handler(e)
		}
	}()
	return nil
}

// Close is a no-op for mock
func (m *MockNATSPubSub) Close() {}
