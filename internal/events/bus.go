// Package events routes named events to the views subscribed to a window
// label.
package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// DefaultBuffer is the per-subscriber queue length. A subscriber that falls
// further behind loses events.
const DefaultBuffer = 64

// ErrClosed is returned once the bus has been shut down.
var ErrClosed = errors.New("event bus closed")

// Event is the envelope delivered to subscribers and written to websocket
// clients as-is.
type Event struct {
	Name    string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// Bus fans events out to subscribers grouped by window label.
type Bus struct {
	logger *slog.Logger

	mu     sync.RWMutex
	subs   map[string]map[*Subscription]struct{}
	closed bool
}

// NewBus creates an empty bus.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		logger: logger,
		subs:   make(map[string]map[*Subscription]struct{}),
	}
}

// Subscription is one consumer of a label's events.
type Subscription struct {
	bus   *Bus
	label string
	ch    chan Event
}

// Events returns the receive channel. It is closed by Close or when the bus
// shuts down.
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// Label returns the window label this subscription listens on.
func (s *Subscription) Label() string {
	return s.label
}

// Close unsubscribes. Safe to call more than once.
func (s *Subscription) Close() {
	b := s.bus
	b.mu.Lock()
	defer b.mu.Unlock()

	set, ok := b.subs[s.label]
	if !ok {
		return
	}
	if _, ok := set[s]; !ok {
		return
	}
	delete(set, s)
	if len(set) == 0 {
		delete(b.subs, s.label)
	}
	close(s.ch)
}

// Subscribe registers a consumer for label.
func (b *Bus) Subscribe(label string, buffer int) (*Subscription, error) {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}

	s := &Subscription{bus: b, label: label, ch: make(chan Event, buffer)}
	set, ok := b.subs[label]
	if !ok {
		set = make(map[*Subscription]struct{})
		b.subs[label] = set
	}
	set[s] = struct{}{}
	return s, nil
}

// Emit delivers one event to every subscriber of label and returns how many
// received it. Having no subscribers is not an error.
func (b *Bus) Emit(label, name string, payload any) (int, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("failed to encode %s payload: %w", name, err)
	}
	ev := Event{Name: name, Payload: raw}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return 0, ErrClosed
	}

	delivered := 0
	for s := range b.subs[label] {
		select {
		case s.ch <- ev:
			delivered++
		default:
			b.logger.Warn("dropping event for slow subscriber", "label", label, "event", name)
		}
	}
	return delivered, nil
}

// Subscribers returns the number of subscribers on label.
func (b *Bus) Subscribers(label string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[label])
}

// Close shuts the bus down and closes every subscription channel.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for label, set := range b.subs {
		for s := range set {
			close(s.ch)
		}
		delete(b.subs, label)
	}
}
