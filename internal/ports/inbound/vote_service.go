package inbound

import (
	"context"

	"memebid-service/internal/domain/meme"
	"memebid-service/internal/domain/shared"

	"github.com/google/uuid"
)

// VoteService records up/down votes on memes
type VoteService interface {
	Vote(ctx context.Context, req VoteRequest) (*VoteResult, error)
}

type VoteRequest struct {
	User     *shared.User
	MemeID   uuid.UUID
	VoteType meme.VoteType
}

// VoteResult describes the outcome of a vote.
// AlreadyRegistered is set, and Counts left nil, when the same vote already existed.
type VoteResult struct {
	MemeID            uuid.UUID     `json:"meme_id"`
	VoteType          meme.VoteType `json:"vote_type"`
	Counts            *meme.Counts  `json:"counts,omitempty"`
	AlreadyRegistered bool          `json:"already_registered"`
}
