// Package broadcast fans lifecycle events out to subscriber channels. The
// realtime transport (websocket framing, keepalive) lives outside this
// service; a transport adapter subscribes here and forwards frames.
package broadcast

import (
	"encoding/json"
	"fmt"
	"sync"

	"fareanomaly-service/internal/domain/entity"
	"fareanomaly-service/pkg/logger"
)

// subscriberBuffer bounds how far one slow subscriber may lag before its
// frames are dropped.
const subscriberBuffer = 64

// Hub implements the Broadcaster capability over an explicit subscriber
// list. Delivery is at-least-zero: a message sent while no subscriber is
// connected is gone, matching the fire-and-forget contract.
type Hub struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]chan []byte
	logger logger.Logger
}

// NewHub creates a new broadcast hub
func NewHub(logger logger.Logger) *Hub {
	return &Hub{
		subs:   make(map[int]chan []byte),
		logger: logger,
	}
}

// Subscribe registers a new subscriber and returns its message channel and
// a cancel function. The channel is closed on cancel.
func (h *Hub) Subscribe() (<-chan []byte, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++

	ch := make(chan []byte, subscriberBuffer)
	h.subs[id] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if sub, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(sub)
		}
	}

	return ch, cancel
}

// PublishStatusUpdate broadcasts one lifecycle transition
func (h *Hub) PublishStatusUpdate(id string, status entity.Status, description string) error {
	return h.send(entity.BroadcastEnvelope{
		Type: entity.BroadcastStatusUpdate,
		Data: entity.StatusUpdateMessage{
			ID:                id,
			Status:            status,
			StatusDescription: description,
		},
	})
}

// PublishNewEntry broadcasts a freshly created history entry
func (h *Hub) PublishNewEntry(entry *entity.HistoryEntry) error {
	return h.send(entity.BroadcastEnvelope{
		Type: entity.BroadcastNewEntry,
		Data: entity.NewEntryMessage{Entry: entry},
	})
}

func (h *Hub) send(envelope entity.BroadcastEnvelope) error {
	frame, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal broadcast frame: %w", err)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, sub := range h.subs {
		select {
		case sub <- frame:
		default:
			// Slow subscriber; drop the frame rather than stall the pipeline
			h.logger.Warn("Dropping broadcast frame for slow subscriber", "subscriber", id, "type", envelope.Type)
		}
	}

	return nil
}
