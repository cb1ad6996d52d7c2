package outbound

import (
	"context"

	"github.com/google/uuid"
)

//go:generate mockgen -destination=mocks/broadcaster_mock.go -package=mocks memebid-service/internal/ports/outbound Broadcaster

// EventType represents the type of event being broadcasted
type EventType string

const (
	EventTypeNewAuction            EventType = "new_auction"
	EventTypeNewBid                EventType = "new_bid"
	EventTypeAuctionEnded          EventType = "auction_ended"
	EventTypeBalanceUpdate         EventType = "balance_update"
	EventTypeVoteUpdate            EventType = "vote_update"
	EventTypeVoteSuccess           EventType = "vote_success"
	EventTypeCompetitionQueued     EventType = "competition_queued"
	EventTypeCompetitionStart      EventType = "competition_start"
	EventTypeCompetitionReady      EventType = "competition_ready"
	EventTypeCompetitionVoteUpdate EventType = "competition_vote_update"
	EventTypeCompetitionResult     EventType = "competition_result"
	EventTypeCompetitionAbandoned  EventType = "competition_abandoned"
)

// Event represents a broadcast event
type Event struct {
	Type      EventType              `json:"type"`
	Room      string                 `json:"room,omitempty"`
	Data      map[string]interface{} `json:"data"`
	Timestamp int64                  `json:"timestamp"`
}

// Broadcaster fans events out to rooms, to everyone, or to one user.
// Delivery is fire-and-forget: absent recipients are ignored.
type Broadcaster interface {
	// Subscribe adds a connected client to a room
	Subscribe(ctx context.Context, room string, clientID string) error

	// Unsubscribe removes a client from a room
	Unsubscribe(ctx context.Context, room string, clientID string) error

	// JoinUserToRoom subscribes the live connection of a user, if any, to a room
	JoinUserToRoom(ctx context.Context, userID uuid.UUID, room string) error

	// Publish sends an event to every subscriber of a room
	Publish(ctx context.Context, room string, event Event) error

	// PublishAll sends an event to every connected client
	PublishAll(ctx context.Context, event Event) error

	// SendToUser sends an event to the live connection of one user
	SendToUser(ctx context.Context, userID uuid.UUID, event Event) error

	// IsSubscribed checks if a client is subscribed to a room
	IsSubscribed(ctx context.Context, room string, clientID string) bool
}

// ConnectionRegistry tracks live connections and hands out their delivery channels
type ConnectionRegistry interface {
	// Connect registers a client for a user and returns its event channel.
	// A reconnecting user is remapped to the new client.
	Connect(clientID string, userID uuid.UUID) <-chan Event

	// Disconnect drops the client from every room and closes its channel
	Disconnect(clientID string)
}
