// Package realtime fans committed property events out to live subscribers.
package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"estate-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// SendBuffer is the number of pending messages a subscriber may lag behind before it is dropped.
const SendBuffer = 16

// Message is what subscribers receive for each property event.
type Message struct {
	Type       string          `json:"type"`
	PropertyID uuid.UUID       `json:"property_id"`
	FromState  string          `json:"from_state"`
	ToState    string          `json:"to_state"`
	Data       json.RawMessage `json:"data,omitempty"`
	At         time.Time       `json:"at"`
}

// Subscriber receives messages for one property on Send. Send is closed when the
// subscriber is removed.
type Subscriber struct {
	PropertyID uuid.UUID
	Send       chan []byte
}

// Hub keeps subscribers per property.
type Hub struct {
	mu    sync.Mutex
	rooms map[uuid.UUID]map[*Subscriber]struct{}
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[uuid.UUID]map[*Subscriber]struct{})}
}

// Subscribe registers a subscriber for propertyID.
func (h *Hub) Subscribe(propertyID uuid.UUID) *Subscriber {
	s := &Subscriber{PropertyID: propertyID, Send: make(chan []byte, SendBuffer)}
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[propertyID]
	if !ok {
		room = make(map[*Subscriber]struct{})
		h.rooms[propertyID] = room
	}
	room[s] = struct{}{}
	return s
}

// Unsubscribe removes s. Safe to call more than once.
func (h *Hub) Unsubscribe(s *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(s)
}

func (h *Hub) removeLocked(s *Subscriber) {
	room, ok := h.rooms[s.PropertyID]
	if !ok {
		return
	}
	if _, ok := room[s]; !ok {
		return
	}
	delete(room, s)
	close(s.Send)
	if len(room) == 0 {
		delete(h.rooms, s.PropertyID)
	}
}

// Subscribers returns how many subscribers watch propertyID.
func (h *Hub) Subscribers(propertyID uuid.UUID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[propertyID])
}

// Broadcast sends payload to every subscriber of propertyID. Subscribers whose buffer is full are dropped.
func (h *Hub) Broadcast(propertyID uuid.UUID, payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.rooms[propertyID] {
		select {
		case s.Send <- payload:
		default:
			log.Warn().Str("property_id", propertyID.String()).Msg("realtime: dropping slow subscriber")
			h.removeLocked(s)
		}
	}
}

// PublishPropertyEvents broadcasts committed events to their property's subscribers.
func (h *Hub) PublishPropertyEvents(ctx context.Context, events []domain.PropertyEvent) {
	for _, ev := range events {
		at := ev.CreatedAt
		if at.IsZero() {
			at = time.Now().UTC()
		}
		payload, err := json.Marshal(Message{
			Type:       ev.EventType,
			PropertyID: ev.PropertyID,
			FromState:  ev.FromState,
			ToState:    ev.ToState,
			Data:       json.RawMessage(ev.EventData),
			At:         at,
		})
		if err != nil {
			log.Warn().Err(err).Msg("realtime: encode event failed")
			continue
		}
		h.Broadcast(ev.PropertyID, payload)
	}
}
