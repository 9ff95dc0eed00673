// Package notify is the property change bus between the controller and its
// transports.
package notify

import (
	"sync"
)

// Property names a published value.
type Property string

const (
	Homed          Property = "homed"
	Moving         Property = "moving"
	Position       Property = "position"
	PositionTarget Property = "position_target"
	State          Property = "state"
	NightMode      Property = "night_mode"
	Config         Property = "config"
)

// Notification is one property change.
type Notification struct {
	Sender   string   `json:"-"`
	Property Property `json:"property"`
	Value    any      `json:"value"`
}

// Bus delivers notifications synchronously on the publishing goroutine.
// Subscribers must not block; transports copy into their own queues.
type Bus struct {
	mu     sync.RWMutex
	subs   []*Subscription
	lastID uint64
}

func NewBus() *Bus { return &Bus{} }

// Subscription lives until Close.
type Subscription struct {
	bus  *Bus
	id   uint64
	name string
	fn   func(Notification)
}

// Subscribe registers fn under name. Notifications published by the same
// name are not delivered back to it.
func (b *Bus) Subscribe(name string, fn func(Notification)) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastID++
	s := &Subscription{bus: b, id: b.lastID, name: name, fn: fn}
	b.subs = append(b.subs, s)
	return s
}

// Publish sends a change to every other subscriber in subscription order.
func (b *Bus) Publish(sender string, p Property, v any) {
	b.mu.RLock()
	subs := make([]*Subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	n := Notification{Sender: sender, Property: p, Value: v}
	for _, s := range subs {
		if s.name == sender {
			continue
		}
		s.fn(n)
	}
}

// Len is the number of live subscriptions.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close removes the subscription. Calling it more than once is harmless.
func (s *Subscription) Close() {
	if s == nil || s.bus == nil {
		return
	}
	b := s.bus
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, other := range b.subs {
		if other.id == s.id {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			break
		}
	}
	s.bus = nil
}
