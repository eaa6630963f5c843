// Package fanout implements the publisher contract over an in-process hub
// and over Redis pub/sub.
package fanout

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"wachat-server/internal/domain/message"
	"wachat-server/internal/domain/status"
)

// Event names mirror the wire events clients subscribe to.
const (
	EventNewMessage   = "newMessage"
	EventStatusUpdate = "statusUpdate"
)

// Event is what a subscriber receives. Message is set for newMessage and for
// global statusUpdate events; Status carries the minimal conversation-scoped
// status payload.
type Event struct {
	Type    string               `json:"event"`
	Message *message.Message     `json:"message,omitempty"`
	Status  *message.StatusEvent `json:"status,omitempty"`
	WaID    string               `json:"waId,omitempty"`
}

type subscriber struct {
	ch   chan Event
	waID string // empty subscribes to the global stream
}

// Hub is the in-process publisher: a subscriber registry keyed by
// conversation, with a global audience for unscoped subscribers. Delivery is
// non-blocking; a subscriber that cannot keep up loses events rather than
// stalling the pipeline.
type Hub struct {
	mu   sync.RWMutex
	subs map[*subscriber]struct{}
	log  zerolog.Logger
}

// NewHub builds an empty hub.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		subs: make(map[*subscriber]struct{}),
		log:  log.With().Str("component", "fanout-hub").Logger(),
	}
}

// Subscribe registers a listener. waID scopes the subscription to one
// conversation; the empty string subscribes to everything. The returned
// cancel func must be called to release the subscription.
func (h *Hub) Subscribe(waID string, buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	sub := &subscriber{ch: make(chan Event, buffer), waID: waID}

	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subs[sub]; ok {
			delete(h.subs, sub)
			close(sub.ch)
		}
		h.mu.Unlock()
	}
	return sub.ch, cancel
}

// PublishNewMessage implements message.Publisher.
func (h *Hub) PublishNewMessage(_ context.Context, msg *message.Message) error {
	h.deliver(Event{Type: EventNewMessage, Message: msg, WaID: msg.WaID})
	return nil
}

// PublishStatusUpdate implements message.Publisher. Global subscribers get
// the full record; conversation subscribers get the minimal status payload.
func (h *Hub) PublishStatusUpdate(_ context.Context, msg *message.Message, newStatus status.Status) error {
	h.deliverGlobal(Event{Type: EventStatusUpdate, Message: msg, WaID: msg.WaID})
	h.deliverScoped(msg.WaID, Event{
		Type:   EventStatusUpdate,
		Status: &message.StatusEvent{MessageID: msg.MessageID, Status: newStatus},
		WaID:   msg.WaID,
	})
	return nil
}

func (h *Hub) deliver(event Event) {
	h.deliverGlobal(event)
	h.deliverScoped(event.WaID, event)
}

func (h *Hub) deliverGlobal(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs {
		if sub.waID == "" {
			h.send(sub, event)
		}
	}
}

func (h *Hub) deliverScoped(waID string, event Event) {
	if waID == "" {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs {
		if sub.waID == waID {
			h.send(sub, event)
		}
	}
}

func (h *Hub) send(sub *subscriber, event Event) {
	select {
	case sub.ch <- event:
	default:
		h.log.Warn().Str("event", event.Type).Str("wa_id", sub.waID).Msg("slow subscriber, event dropped")
	}
}
