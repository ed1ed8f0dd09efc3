// Package control serves the assistant's HTTP control surface: health and
// readiness probes, Prometheus metrics, a small JSON API for driving the
// session, and a websocket stream of the conversation as it happens.
//
// The server is deliberately passive. It never initiates work on its own;
// every endpoint maps one-to-one onto a session operation or a read-only
// snapshot, so a misbehaving client cannot put the assistant into a state
// the voice path could not.
package control

import (
	"log/slog"
	"strings"
	"sync"
	"time"
)

// subscriberBuffer is each subscriber's queue length. A subscriber that
// falls this far behind starts losing events.
const subscriberBuffer = 64

// Event is one line of the assistant's activity stream: what the user said,
// what the assistant answered, state changes, and warnings.
type Event struct {
	Time     time.Time `json:"time"`
	Severity string    `json:"severity"`
	Message  string    `json:"message"`
}

// Hub fans session events out to websocket subscribers. Publishing never
// blocks: a subscriber with a full buffer loses the event instead of
// stalling the session. Safe for concurrent use.
type Hub struct {
	mu     sync.Mutex
	subs   map[chan Event]struct{}
	closed bool
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[chan Event]struct{})}
}

// Publish delivers one event to every current subscriber. The signature
// matches the session's OnEvent dependency, so a hub method value can be
// wired in directly.
func (h *Hub) Publish(severity slog.Level, message string) {
	ev := Event{
		Time:     time.Now(),
		Severity: strings.ToLower(severity.String()),
		Message:  message,
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
			// Slow subscriber, drop the event rather than stall.
		}
	}
}

// Subscribe registers a subscriber and returns its event channel plus a
// cancel function. Cancel is idempotent and closes the channel. After
// [Hub.Close] the returned channel is already closed.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
	}
	return ch, cancel
}

// Close closes every subscriber channel so streaming handlers unblock and
// finish. Further Publish calls are dropped and further Subscribe calls get
// a closed channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for ch := range h.subs {
		delete(h.subs, ch)
		close(ch)
	}
}
