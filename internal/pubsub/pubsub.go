package pubsub

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Billy-Davies-2/xpulse-cards/internal/logger"
)

// Event types published after a committed profile change
const (
	EventStarterGranted = "card:starter"
	EventCardSelected   = "card:selected"
	EventCardTrained    = "card:trained"
	EventCardWorked     = "card:worked"
	EventCardAscended   = "card:ascended"
	EventCardBought     = "card:bought"
	EventMailGranted    = "mailbox:granted"
	EventMailUsed       = "mailbox:used"
	EventProfileReset   = "profile:reset"
)

// Event represents a pubsub event
type Event struct {
	ID      string                 `json:"id"`
	Type    string                 `json:"type"`
	TS      int64                  `json:"ts"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// NewEvent stamps an event with a fresh id and the current time
func NewEvent(eventType string, payload map[string]interface{}) Event {
	return Event{
		ID:      uuid.NewString(),
		Type:    eventType,
		TS:      time.Now().UnixMilli(),
		Payload: payload,
	}
}

// Publisher is the write side used by the progression engine
type Publisher interface {
	Publish(Event)
}

// Upstream is an interface for upstream publishers (e.g., NATS)
type Upstream interface {
	Publish(Event)
	Subscribe() chan Event
	Unsubscribe(chan Event)
}

// PubSub implements a simple publish-subscribe system
type PubSub struct {
	mu          sync.RWMutex
	subscribers []chan Event
	upstream    Upstream // Optional upstream publisher (e.g., NATS)
}

// New creates a new PubSub instance
func New() *PubSub {
	return &PubSub{
		subscribers: []chan Event{},
	}
}

// NewWithUpstream creates a PubSub that bridges to an upstream publisher (e.g., NATS)
// When Publish is called, events are sent to the upstream, which broadcasts to all instances.
// Events from the upstream are forwarded to local subscribers.
func NewWithUpstream(upstream Upstream) *PubSub {
	ps := &PubSub{
		subscribers: []chan Event{},
		upstream:    upstream,
	}

	go func() {
		ch := upstream.Subscribe()
		logger.Debug("PubSub: Subscribed to upstream, waiting for events")
		for event := range ch {
			ps.publishLocal(event)
		}
		logger.Debug("PubSub: Upstream channel closed")
	}()

	return ps
}

// Subscribe adds a new subscriber and returns a channel for receiving events
func (ps *PubSub) Subscribe() chan Event {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	ch := make(chan Event, 10)
	ps.subscribers = append(ps.subscribers, ch)
	logger.Debug("PubSub: New subscriber added", "totalSubscribers", len(ps.subscribers))
	return ch
}

// Unsubscribe removes a subscriber
func (ps *PubSub) Unsubscribe(ch chan Event) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	for i, sub := range ps.subscribers {
		if sub == ch {
			close(ch)
			ps.subscribers = append(ps.subscribers[:i], ps.subscribers[i+1:]...)
			break
		}
	}
}

// Publish sends an event to all subscribers
// If an upstream is configured, the event is published to the upstream,
// which will broadcast it back to all instances (including this one)
func (ps *PubSub) Publish(event Event) {
	if ps.upstream != nil {
		ps.upstream.Publish(event)
		return
	}
	ps.publishLocal(event)
}

// publishLocal sends an event to local subscribers only
func (ps *PubSub) publishLocal(event Event) {
	// Sends are non-blocking, so holding the read lock keeps Unsubscribe
	// from closing a channel mid-send.
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	for _, ch := range ps.subscribers {
		select {
		case ch <- event:
		default:
			logger.Warn("PubSub: Dropping event for slow subscriber", "type", event.Type)
		}
	}
}
