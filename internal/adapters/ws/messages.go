package ws

import (
	"encoding/json"
	"fmt"
	"time"

	"memebid-service/internal/domain/meme"
	"memebid-service/internal/domain/shared"
	"memebid-service/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type MessageType string

const (
	// Client to Server message types
	MessageTypeJoinAuction           MessageType = "join_auction"
	MessageTypeLeaveAuction          MessageType = "leave_auction"
	MessageTypePlaceBid              MessageType = "place_bid"
	MessageTypeVoteMeme              MessageType = "vote_meme"
	MessageTypeJoinCompetitionQueue  MessageType = "join_competition_queue"
	MessageTypeLeaveCompetitionQueue MessageType = "leave_competition_queue"
	MessageTypeSubmitCompetitionMeme MessageType = "submit_competition_meme"
	MessageTypeJoinCompetitionRoom   MessageType = "join_competition_room"
	MessageTypeVoteCompetitionMeme   MessageType = "vote_competition_meme"
	MessageTypePing                  MessageType = "ping"

	// Server to Client message types; broadcast events keep their outbound.EventType name
	MessageTypeBidError              MessageType = "bid_error"
	MessageTypeVoteAlreadyRegistered MessageType = "vote_already_registered"
	MessageTypeVoteError             MessageType = "vote_error"
	MessageTypeCompetitionError      MessageType = "competition_error"
	MessageTypeRoomJoined            MessageType = "room_joined"
	MessageTypeRoomLeft              MessageType = "room_left"
	MessageTypeError                 MessageType = "error"
	MessageTypePong                  MessageType = "pong"
)

// ClientMessage is an inbound frame; Data is decoded per type
type ClientMessage struct {
	Type MessageType     `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ServerMessage represents a message sent from server to client
type ServerMessage struct {
	Type      MessageType            `json:"type"`
	Room      string                 `json:"room,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Error     *string                `json:"error,omitempty"`
	Timestamp int64                  `json:"timestamp"`
}

type auctionPayload struct {
	AuctionID uuid.UUID `json:"auctionId"`
}

type placeBidPayload struct {
	AuctionID uuid.UUID       `json:"auctionId"`
	BidAmount decimal.Decimal `json:"bidAmount"`
}

type voteMemePayload struct {
	MemeID   uuid.UUID     `json:"memeId"`
	VoteType meme.VoteType `json:"voteType"`
}

type roomPayload struct {
	RoomID string `json:"roomId"`
}

type competitionMemePayload struct {
	RoomID string    `json:"roomId"`
	MemeID uuid.UUID `json:"memeId"`
}

func NewServerMessage(msgType MessageType) *ServerMessage {
	return &ServerMessage{
		Type:      msgType,
		Data:      make(map[string]interface{}),
		Timestamp: time.Now().Unix(),
	}
}

func NewErrorMessage(msgType MessageType, err string, room string) *ServerMessage {
	return &ServerMessage{
		Type:      msgType,
		Room:      room,
		Data:      map[string]interface{}{"message": err},
		Error:     &err,
		Timestamp: time.Now().Unix(),
	}
}

// NewEventMessage converts a broadcast event into its wire form
func NewEventMessage(event outbound.Event) *ServerMessage {
	timestamp := event.Timestamp
	if timestamp == 0 {
		timestamp = time.Now().Unix()
	}
	return &ServerMessage{
		Type:      MessageType(event.Type),
		Room:      event.Room,
		Data:      event.Data,
		Timestamp: timestamp,
	}
}

// ParseClientMessage parses a JSON message from client
func ParseClientMessage(data []byte) (*ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse client message: %w", err)
	}

	if msg.Type == "" {
		return nil, shared.ErrMessageTypeRequired
	}

	return &msg, nil
}

// decodePayload unmarshals the data of a message into T
func decodePayload[T any](msg *ClientMessage) (T, error) {
	var payload T
	if len(msg.Data) == 0 {
		return payload, shared.ErrInvalidRequest
	}
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		return payload, shared.ErrInvalidRequest
	}
	return payload, nil
}

// errorTypeFor picks the scoped error event for a failed request
func errorTypeFor(msgType MessageType) MessageType {
	switch msgType {
	case MessageTypePlaceBid:
		return MessageTypeBidError
	case MessageTypeVoteMeme:
		return MessageTypeVoteError
	case MessageTypeJoinCompetitionQueue, MessageTypeLeaveCompetitionQueue, MessageTypeSubmitCompetitionMeme,
		MessageTypeJoinCompetitionRoom, MessageTypeVoteCompetitionMeme:
		return MessageTypeCompetitionError
	default:
		return MessageTypeError
	}
}
