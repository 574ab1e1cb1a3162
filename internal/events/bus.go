package events

import (
	"sync"
	"time"
)

// Topics, one per persisted collection.
const (
	TopicDonations     = "donations"
	TopicNotifications = "notifications"
	TopicChats         = "chats"
)

// Event describes a committed change on one collection. UserIDs lists the
// users the change is relevant to, so transports can route it.
type Event struct {
	Topic    string    `json:"topic"`
	Action   string    `json:"action"`
	EntityID string    `json:"entity_id"`
	UserIDs  []string  `json:"-"`
	Payload  any       `json:"payload,omitempty"`
	At       time.Time `json:"at"`
}

type subscriber struct {
	topic string
	ch    chan Event
}

// Bus is an in-process publish/subscribe channel per collection. A subscriber
// registers and receives change events until it unsubscribes; publishing
// never blocks, slow subscribers drop events.
type Bus struct {
	mu   sync.RWMutex
	subs map[int]*subscriber
	next int
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]*subscriber)}
}

// Subscribe registers for events on one topic. The returned func cancels the
// subscription and closes the channel.
func (b *Bus) Subscribe(topic string, buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	sub := &subscriber{topic: topic, ch: make(chan Event, buffer)}

	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = sub
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if s, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(s.ch)
		}
		b.mu.Unlock()
	}
	return sub.ch, cancel
}

// Publish fans the event out to all subscribers of its topic.
func (b *Bus) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subs {
		if sub.topic != ev.Topic {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			// subscriber is not keeping up, drop
		}
	}
}
