package broadcaster

import (
	"context"
	"sync"
	"time"

	"memebid-service/internal/domain/shared"
	"memebid-service/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Hub is the in-process broadcaster: room membership plus delivery through the Registry
type Hub struct {
	registry    *Registry
	mu          sync.RWMutex
	rooms       map[string]map[string]struct{} // room -> clientIDs
	clientRooms map[string]map[string]struct{} // clientID -> rooms
	logger      zerolog.Logger
}

type HubParams struct {
	Logger zerolog.Logger
}

func NewHub(params HubParams) *Hub {
	return &Hub{
		registry:    NewRegistry(params.Logger),
		rooms:       make(map[string]map[string]struct{}),
		clientRooms: make(map[string]map[string]struct{}),
		logger:      params.Logger.With().Str("component", "hub").Logger(),
	}
}

func (h *Hub) Registry() *Registry {
	return h.registry
}

// Connect registers a client and returns its event channel
func (h *Hub) Connect(clientID string, userID uuid.UUID) <-chan outbound.Event {
	return h.registry.Register(clientID, userID)
}

// Disconnect leaves every room and closes the client's channel.
// Lock order is h.mu then the registry, as in Subscribe.
func (h *Hub) Disconnect(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for room := range h.clientRooms[clientID] {
		h.removeMember(room, clientID)
	}
	delete(h.clientRooms, clientID)

	h.registry.Unregister(clientID)
}

// Subscribe subscribes a connected client to a room
func (h *Hub) Subscribe(_ context.Context, room string, clientID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.registry.Has(clientID) {
		return shared.ErrClientEventChannelNotFound
	}

	if h.rooms[room] == nil {
		h.rooms[room] = make(map[string]struct{})
	}
	h.rooms[room][clientID] = struct{}{}

	if h.clientRooms[clientID] == nil {
		h.clientRooms[clientID] = make(map[string]struct{})
	}
	h.clientRooms[clientID][room] = struct{}{}

	h.logger.Debug().Str("client_id", clientID).Str("room_id", room).Msg("Client joined room")
	return nil
}

// Unsubscribe removes a client from a room
func (h *Hub) Unsubscribe(_ context.Context, room string, clientID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeMember(room, clientID)
	if rooms := h.clientRooms[clientID]; rooms != nil {
		delete(rooms, room)
		if len(rooms) == 0 {
			delete(h.clientRooms, clientID)
		}
	}
	return nil
}

func (h *Hub) removeMember(room, clientID string) {
	members := h.rooms[room]
	if members == nil {
		return
	}
	delete(members, clientID)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

// JoinUserToRoom subscribes the user's live connection; an offline user is ignored
func (h *Hub) JoinUserToRoom(ctx context.Context, userID uuid.UUID, room string) error {
	clientID, ok := h.registry.ClientFor(userID)
	if !ok {
		h.logger.Debug().Str("user_id", userID.String()).Str("room_id", room).Msg("User not connected, skipping room join")
		return nil
	}
	return h.Subscribe(ctx, room, clientID)
}

func (h *Hub) IsSubscribed(_ context.Context, room string, clientID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	_, ok := h.rooms[room][clientID]
	return ok
}

// Members returns the clients currently in a room
func (h *Hub) Members(room string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	members := make([]string, 0, len(h.rooms[room]))
	for clientID := range h.rooms[room] {
		members = append(members, clientID)
	}
	return members
}

// Publish delivers an event to every member of a room
func (h *Hub) Publish(_ context.Context, room string, event outbound.Event) error {
	event = stamp(event)
	event.Room = room

	delivered := 0
	for _, clientID := range h.Members(room) {
		if h.registry.Deliver(clientID, event) {
			delivered++
		}
	}

	h.logger.Debug().
		Str("event_type", string(event.Type)).
		Str("room_id", room).
		Int("delivered", delivered).
		Msg("Published event to room")
	return nil
}

// PublishAll delivers an event to every connected client
func (h *Hub) PublishAll(_ context.Context, event outbound.Event) error {
	delivered := h.registry.DeliverAll(stamp(event))
	h.logger.Debug().Str("event_type", string(event.Type)).Int("delivered", delivered).Msg("Published event to all clients")
	return nil
}

// SendToUser delivers an event to one user's live connection
func (h *Hub) SendToUser(_ context.Context, userID uuid.UUID, event outbound.Event) error {
	if !h.registry.DeliverToUser(userID, stamp(event)) {
		h.logger.Debug().Str("event_type", string(event.Type)).Str("user_id", userID.String()).Msg("User not reachable, event dropped")
	}
	return nil
}

func stamp(event outbound.Event) outbound.Event {
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().Unix()
	}
	return event
}
