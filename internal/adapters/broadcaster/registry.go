package broadcaster

import (
	"sync"

	"memebid-service/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ClientBufferSize is the capacity of each client's event channel
const ClientBufferSize = 256

type clientEntry struct {
	userID uuid.UUID
	events chan outbound.Event
}

// Registry maps users to their live connection and connections to their event channel
type Registry struct {
	mu      sync.RWMutex
	users   map[uuid.UUID]string // userID -> clientID
	clients map[string]*clientEntry
	logger  zerolog.Logger
}

func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		users:   make(map[uuid.UUID]string),
		clients: make(map[string]*clientEntry),
		logger:  logger.With().Str("component", "connection_registry").Logger(),
	}
}

// Register stores the client and maps the user to it, replacing any earlier connection
func (r *Registry) Register(clientID string, userID uuid.UUID) <-chan outbound.Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, exists := r.clients[clientID]; exists {
		return entry.events
	}

	entry := &clientEntry{userID: userID, events: make(chan outbound.Event, ClientBufferSize)}
	r.clients[clientID] = entry
	if previous, ok := r.users[userID]; ok && previous != clientID {
		r.logger.Info().Str("user_id", userID.String()).Str("client_id", clientID).Str("previous_client_id", previous).Msg("User reconnected, replacing mapping")
	}
	r.users[userID] = clientID

	return entry.events
}

// Unregister removes the client; the user mapping is removed only if it still points to this client
func (r *Registry) Unregister(clientID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, exists := r.clients[clientID]
	if !exists {
		return
	}
	delete(r.clients, clientID)
	close(entry.events)

	if r.users[entry.userID] == clientID {
		delete(r.users, entry.userID)
	}
}

// ClientFor returns the live client of a user
func (r *Registry) ClientFor(userID uuid.UUID) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clientID, ok := r.users[userID]
	return clientID, ok
}

func (r *Registry) Has(clientID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.clients[clientID]
	return ok
}

// Deliver sends to one client without blocking; a full channel drops the event
func (r *Registry) Deliver(clientID string, event outbound.Event) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.clients[clientID]
	if !ok {
		return false
	}
	return r.send(clientID, entry, event)
}

// DeliverToUser sends to the live connection of a user, if any
func (r *Registry) DeliverToUser(userID uuid.UUID, event outbound.Event) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clientID, ok := r.users[userID]
	if !ok {
		return false
	}
	return r.send(clientID, r.clients[clientID], event)
}

// DeliverAll sends to every registered client and returns how many accepted the event
func (r *Registry) DeliverAll(event outbound.Event) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	delivered := 0
	for clientID, entry := range r.clients {
		if r.send(clientID, entry, event) {
			delivered++
		}
	}
	return delivered
}

// send must be called with the read lock held so the channel cannot be closed underneath it
func (r *Registry) send(clientID string, entry *clientEntry, event outbound.Event) bool {
	select {
	case entry.events <- event:
		return true
	default:
		r.logger.Warn().Str("client_id", clientID).Str("event_type", string(event.Type)).Msg("Client channel full, dropping event")
		return false
	}
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}
