package realtime

import (
	"sync"

	"go.uber.org/zap"

	"github.com/mizan-meet/mizan-api/chat"
)

// subscriberBuffer is the per-subscriber delivery channel depth. A
// subscriber that falls further behind than this loses deliveries; the
// session re-sorts and de-duplicates, so a dropped record only shows up
// after the next history fetch.
const subscriberBuffer = 32

// Broker fans confirmed message records out to conversation subscribers.
// It is the in-process replacement for the realtime document stream the
// mobile client used to get from its backend vendor.
type Broker struct {
	mu     sync.RWMutex
	topics map[string]map[uint64]chan chat.Message
	nextID uint64
	closed bool
}

// NewBroker creates an empty broker
func NewBroker() *Broker {
	return &Broker{topics: make(map[string]map[uint64]chan chat.Message)}
}

// Subscribe registers for deliveries on one conversation. The cancel func
// releases the subscription and closes the channel; it is safe to call
// more than once.
func (b *Broker) Subscribe(conversationID string) (<-chan chat.Message, func()) {
	ch := make(chan chat.Message, subscriberBuffer)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	b.nextID++
	id := b.nextID
	subs, ok := b.topics[conversationID]
	if !ok {
		subs = make(map[uint64]chan chat.Message)
		b.topics[conversationID] = subs
	}
	subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			// Only close the channel if this call removed the
			// subscription; Broker.Close may have beaten us to it.
			b.mu.Lock()
			removed := false
			if subs, ok := b.topics[conversationID]; ok {
				if _, ok := subs[id]; ok {
					delete(subs, id)
					removed = true
				}
				if len(subs) == 0 {
					delete(b.topics, conversationID)
				}
			}
			b.mu.Unlock()
			if removed {
				close(ch)
			}
		})
	}
	return ch, cancel
}

// Publish delivers a confirmed record to every current subscriber of the
// conversation without blocking the caller
func (b *Broker) Publish(conversationID string, msg chat.Message) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for id, ch := range b.topics[conversationID] {
		select {
		case ch <- msg:
		default:
			zap.S().Warnw("dropping delivery for slow subscriber",
				"conversation", conversationID,
				"subscriber", id,
			)
		}
	}
}

// Close shuts the broker down and closes all subscriber channels
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, subs := range b.topics {
		for _, ch := range subs {
			close(ch)
		}
	}
	b.topics = make(map[string]map[uint64]chan chat.Message)
}
