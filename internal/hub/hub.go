// Package hub implements a best-effort fan-out of event messages to live
// subscribers. Every message is sequence-numbered at ingress so subscribers
// can detect loss. A subscriber that cannot keep up is dropped rather than
// allowed to block publishers or other subscribers.
package hub

import (
	"sync"

	"github.com/rs/zerolog"
)

// DefaultBuffer is the per-subscriber channel capacity used when Subscribe
// is called with a non-positive buffer size.
const DefaultBuffer = 16

// Message is one broadcast payload with its ingress sequence number.
type Message struct {
	Seq     uint64
	Payload []byte
}

// Hub fans out messages to all live subscribers. It keeps no history:
// delivery is at-most-once, and only for messages published while a
// subscriber is registered. Safe for concurrent use.
type Hub struct {
	logger zerolog.Logger

	mu     sync.Mutex
	seq    uint64
	subs   map[*Subscriber]struct{}
	closed bool
}

// Subscriber is one live recipient. Messages arrive on its channel in
// publish order. After Close (or after the hub drops it for falling
// behind) the channel is closed and no further messages arrive.
type Subscriber struct {
	hub    *Hub
	ch     chan Message
	closed bool // guarded by hub.mu
}

// New creates an empty Hub.
func New(logger zerolog.Logger) *Hub {
	return &Hub{
		logger: logger,
		subs:   make(map[*Subscriber]struct{}),
	}
}

// Subscribe registers a new subscriber with its own bounded delivery
// channel. The caller must drain Messages() and call Close when done.
// Returns nil if the hub is already closed.
func (h *Hub) Subscribe(buffer int) *Subscriber {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	s := &Subscriber{hub: h, ch: make(chan Message, buffer)}
	h.subs[s] = struct{}{}
	h.logger.Debug().Int("subscribers", len(h.subs)).Msg("subscriber registered")
	return s
}

// Publish assigns the next sequence number and delivers the message to every
// live subscriber without blocking. A subscriber whose channel is full is
// dropped and its channel closed; the message is lost for that subscriber
// only. Returns the assigned sequence number, or 0 if the hub is closed.
//
// Sequence assignment and enqueueing happen under one lock, so every
// subscriber observes messages in global publish order. Sends are
// non-blocking, so the lock is never held waiting on a consumer.
func (h *Hub) Publish(payload []byte) uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return 0
	}
	h.seq++
	msg := Message{Seq: h.seq, Payload: payload}
	for s := range h.subs {
		select {
		case s.ch <- msg:
		default:
			h.dropLocked(s)
			h.logger.Warn().Uint64("seq", msg.Seq).Msg("subscriber delivery path full, dropping subscriber")
		}
	}
	return h.seq
}

// Len returns the number of live subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close drops every subscriber and rejects future subscriptions and
// publishes. Safe to call more than once.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for s := range h.subs {
		h.dropLocked(s)
	}
}

// dropLocked removes a subscriber and closes its channel. Caller holds h.mu.
func (h *Hub) dropLocked(s *Subscriber) {
	delete(h.subs, s)
	s.closed = true
	close(s.ch)
}

// Messages returns the subscriber's delivery channel. It is closed when the
// subscriber is unregistered, by Close or by the hub dropping it.
func (s *Subscriber) Messages() <-chan Message {
	return s.ch
}

// Close unregisters the subscriber and closes its channel. Safe to call
// after the hub has already dropped the subscriber.
func (s *Subscriber) Close() {
	h := s.hub
	h.mu.Lock()
	defer h.mu.Unlock()
	if s.closed {
		return
	}
	h.dropLocked(s)
	h.logger.Debug().Int("subscribers", len(h.subs)).Msg("subscriber unregistered")
}
