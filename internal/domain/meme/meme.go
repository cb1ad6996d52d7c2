package meme

import (
	"time"

	"github.com/google/uuid"
)

// Meme is an uploaded image that can be voted on, auctioned and entered into duels
type Meme struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	ImageURL    string    `json:"image_url" db:"image_url"`
	CreatorID   uuid.UUID `json:"creator_id" db:"creator_id"`
	OwnerID     uuid.UUID `json:"current_owner_id" db:"owner_id"`
	Upvotes     int       `json:"upvotes" db:"upvotes"`
	Downvotes   int       `json:"downvotes" db:"downvotes"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// OwnedBy reports whether userID currently owns the meme
func (m *Meme) OwnedBy(userID uuid.UUID) bool {
	return m.OwnerID == userID
}

// Counts returns the aggregate vote counts
func (m *Meme) Counts() Counts {
	return Counts{MemeID: m.ID, Upvotes: m.Upvotes, Downvotes: m.Downvotes}
}
