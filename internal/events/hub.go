package events

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/jason-s-yu/fittogether/internal/partner"
	"github.com/sirupsen/logrus"
)

const subscriberBuffer = 16

// Hub routes events to the websocket connections of the users involved.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uuid.UUID]map[chan partner.Event]struct{}
	logger *logrus.Logger
}

func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		subs:   make(map[uuid.UUID]map[chan partner.Event]struct{}),
		logger: logger,
	}
}

// Subscribe registers a connection for userID. The returned cancel func
// must be called when the connection goes away. The channel is closed by
// cancel, or by Notify when the subscriber falls behind.
func (h *Hub) Subscribe(userID uuid.UUID) (<-chan partner.Event, func()) {
	ch := make(chan partner.Event, subscriberBuffer)

	h.mu.Lock()
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[chan partner.Event]struct{})
	}
	h.subs[userID][ch] = struct{}{}
	h.mu.Unlock()

	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.drop(userID, ch)
	}
}

// drop unregisters and closes ch unless that already happened. h.mu must
// be held.
func (h *Hub) drop(userID uuid.UUID, ch chan partner.Event) {
	if _, ok := h.subs[userID][ch]; !ok {
		return
	}
	delete(h.subs[userID], ch)
	if len(h.subs[userID]) == 0 {
		delete(h.subs, userID)
	}
	close(ch)
}

// Subscribers returns how many connections userID currently has.
func (h *Hub) Subscribers(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}

// Notify never blocks. A subscriber whose buffer is full is dropped and its
// channel closed, so the connection can tell the client it missed events.
func (h *Hub) Notify(ctx context.Context, ev partner.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, id := range []uuid.UUID{ev.From, ev.To} {
		if id == uuid.Nil {
			continue
		}
		for ch := range h.subs[id] {
			select {
			case ch <- ev:
			default:
				h.logger.WithFields(logrus.Fields{"user": id, "event": ev.Type}).Warn("websocket subscriber lagging, closing subscription")
				h.drop(id, ch)
			}
		}
	}
	return nil
}
