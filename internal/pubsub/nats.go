package pubsub

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/Billy-Davies-2/xpulse-cards/internal/logger"
)

// DefaultStreamName is the JetStream stream holding card events
const DefaultStreamName = "CARD_EVENTS"

// jetStreamBridge fans JetStream messages on one subject out to local channels.
// Both the external and the embedded NATS pubsubs are built on it.
type jetStreamBridge struct {
	nc          *nats.Conn
	js          nats.JetStreamContext
	subject     string
	subscribers []chan Event
	mu          sync.RWMutex
}

// ensureStream creates the stream if it does not already exist
func ensureStream(js nats.JetStreamContext, name, subject string, storage nats.StorageType, maxAge time.Duration) error {
	if _, err := js.StreamInfo(name); err == nil {
		return nil
	}
	_, err := js.AddStream(&nats.StreamConfig{
		Name:     name,
		Subjects: []string{subject},
		Storage:  storage,
		MaxAge:   maxAge,
	})
	if err != nil {
		return fmt.Errorf("failed to create stream %s: %w", name, err)
	}
	logger.Info("JetStream stream created", "stream", name, "subject", subject)
	return nil
}

// startFanout subscribes to new messages on the subject and hands them to local subscribers
func (b *jetStreamBridge) startFanout() error {
	_, err := b.js.Subscribe(b.subject, func(msg *nats.Msg) {
		var event Event
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			logger.Error("Failed to unmarshal event from JetStream", "error", err)
			_ = msg.Nak()
			return
		}

		b.mu.RLock()
		for _, sub := range b.subscribers {
			select {
			case sub <- event:
			default:
				logger.Warn("NATS: Skipping slow subscriber", "event_type", event.Type)
			}
		}
		b.mu.RUnlock()

		_ = msg.Ack()
	}, nats.ManualAck(), nats.DeliverNew())
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", b.subject, err)
	}
	logger.Debug("Subscribed to JetStream", "subject", b.subject)
	return nil
}

// Publish publishes an event to JetStream; local delivery happens through the fanout
func (b *jetStreamBridge) Publish(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		logger.Error("Failed to marshal event", "error", err, "event_type", event.Type)
		return
	}

	if _, err := b.js.Publish(b.subject, data); err != nil {
		logger.Error("Failed to publish to NATS", "error", err, "subject", b.subject, "event_type", event.Type)
		return
	}
	logger.Debug("Published event to NATS", "event_type", event.Type, "subject", b.subject)
}

// Subscribe creates a subscription channel for events
func (b *jetStreamBridge) Subscribe() chan Event {
	ch := make(chan Event, 100)

	b.mu.Lock()
	b.subscribers = append(b.subscribers, ch)
	subCount := len(b.subscribers)
	b.mu.Unlock()

	logger.Debug("NATS: New subscriber added", "total_subscribers", subCount)
	return ch
}

// Unsubscribe removes a subscription channel
func (b *jetStreamBridge) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, sub := range b.subscribers {
		if sub == ch {
			b.subscribers = append(b.subscribers[:i], b.subscribers[i+1:]...)
			close(ch)
			break
		}
	}
}

// SubscribeJetStream creates a durable JetStream consumer so that several
// bot instances can share one analytics sink without double counting.
func (b *jetStreamBridge) SubscribeJetStream(consumerName string, handler func(Event)) error {
	_, err := b.js.Subscribe(b.subject, func(msg *nats.Msg) {
		var event Event
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			logger.Error("Failed to unmarshal event", "error", err, "consumer", consumerName)
			_ = msg.Nak()
			return
		}

		handler(event)
		_ = msg.Ack()
	}, nats.Durable(consumerName), nats.ManualAck())

	return err
}

// GetSubscriberCount returns the number of active local subscribers
func (b *jetStreamBridge) GetSubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

func (b *jetStreamBridge) close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subscribers {
		close(sub)
	}
	b.subscribers = nil

	if b.nc != nil {
		b.nc.Close()
	}
}

// NATSPubSub implements pub/sub against an external NATS JetStream server
type NATSPubSub struct {
	*jetStreamBridge
}

// NewNATSPubSub connects to natsURL and makes sure the card event stream exists
func NewNATSPubSub(natsURL, subject string) (*NATSPubSub, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name("xpulse-cards"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	// Card events are kept for a month so the analytics consumer can replay
	if err := ensureStream(js, DefaultStreamName, subject, nats.FileStorage, 30*24*time.Hour); err != nil {
		nc.Close()
		return nil, err
	}

	ps := &NATSPubSub{&jetStreamBridge{
		nc:          nc,
		js:          js,
		subject:     subject,
		subscribers: make([]chan Event, 0),
	}}
	if err := ps.startFanout(); err != nil {
		nc.Close()
		return nil, err
	}
	logger.Info("Connected to NATS", "url", natsURL, "subject", subject)
	return ps, nil
}

// Close closes the NATS connection
func (p *NATSPubSub) Close() {
	p.close()
}
