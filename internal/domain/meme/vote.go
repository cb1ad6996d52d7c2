package meme

import (
	"time"

	"github.com/google/uuid"
)

type VoteType string

const (
	Upvote   VoteType = "upvote"
	Downvote VoteType = "downvote"
)

func (t VoteType) IsValid() bool {
	return t == Upvote || t == Downvote
}

// Opposite returns the other vote type
func (t VoteType) Opposite() VoteType {
	if t == Upvote {
		return Downvote
	}
	return Upvote
}

// Vote is unique per (user, meme)
type Vote struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	MemeID    uuid.UUID `json:"meme_id" db:"meme_id"`
	Type      VoteType  `json:"vote_type" db:"vote_type"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Counts are the aggregate counters stored on a meme
type Counts struct {
	MemeID    uuid.UUID `json:"meme_id" db:"meme_id"`
	Upvotes   int       `json:"upvotes" db:"upvotes"`
	Downvotes int       `json:"downvotes" db:"downvotes"`
}

// VoteChange is a decided mutation of one (user, meme) vote row.
// Previous is nil for a first vote; otherwise the row must still hold Previous when applied.
type VoteChange struct {
	VoteID   uuid.UUID
	UserID   uuid.UUID
	MemeID   uuid.UUID
	Previous *VoteType
	Next     VoteType
	At       time.Time
}

// Delta returns the counter adjustments for the change
func (c VoteChange) Delta() (upvotes, downvotes int) {
	return Delta(c.Previous, c.Next)
}

// Delta computes counter adjustments: +1 to the chosen field, and -1 to the other on a flip
func Delta(previous *VoteType, next VoteType) (upvotes, downvotes int) {
	if next == Upvote {
		upvotes = 1
	} else {
		downvotes = 1
	}
	if previous != nil && *previous != next {
		if *previous == Upvote {
			upvotes--
		} else {
			downvotes--
		}
	}
	return upvotes, downvotes
}

// Decide returns the change to apply, or ok=false when the vote is already registered
func Decide(existing *Vote, userID, memeID uuid.UUID, next VoteType, now time.Time) (change VoteChange, ok bool) {
	if existing != nil && existing.Type == next {
		return VoteChange{}, false
	}
	change = VoteChange{UserID: userID, MemeID: memeID, Next: next, At: now}
	if existing == nil {
		change.VoteID = uuid.New()
		return change, true
	}
	prev := existing.Type
	change.VoteID = existing.ID
	change.Previous = &prev
	return change, true
}
