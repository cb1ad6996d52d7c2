package inbound

import (
	"context"

	"memebid-service/internal/domain/competition"
	"memebid-service/internal/domain/shared"

	"github.com/google/uuid"
)

// CompetitionService matches users into head-to-head meme duels
type CompetitionService interface {
	// JoinQueue enqueues a user and pairs them if an opponent is waiting.
	// The returned snapshot is nil while the user keeps waiting.
	JoinQueue(ctx context.Context, user *shared.User) (*competition.Snapshot, error)

	// LeaveQueue removes a waiting user; a no-op if not queued
	LeaveQueue(ctx context.Context, userID uuid.UUID)

	// HandleDisconnect cleans up queue state for a user whose connection closed
	HandleDisconnect(ctx context.Context, userID uuid.UUID)

	// SubmitMeme stores a participant's entry
	SubmitMeme(ctx context.Context, req SubmitMemeRequest) (*competition.Snapshot, error)

	// Vote records a spectator or participant vote, replacing any earlier one
	Vote(ctx context.Context, req CompetitionVoteRequest) (*competition.Snapshot, error)

	// JoinRoom subscribes a client to a competition room and returns its state
	JoinRoom(ctx context.Context, roomID string, clientID string) (*competition.Snapshot, error)

	// GetCompetition returns the state of an unfinished competition
	GetCompetition(ctx context.Context, roomID string) (*competition.Snapshot, error)

	// Finalize closes an active competition and announces the winner
	Finalize(ctx context.Context, roomID string) (*competition.Result, error)
}

type SubmitMemeRequest struct {
	RoomID string
	UserID uuid.UUID
	MemeID uuid.UUID
}

type CompetitionVoteRequest struct {
	RoomID  string
	VoterID uuid.UUID
	MemeID  uuid.UUID
}
