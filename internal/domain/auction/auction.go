package auction

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status represents the current status of an auction
type Status string

const (
	StatusActive Status = "active"
	StatusEnded  Status = "ended"
)

// ParseStatus accepts "active", "ended" or "all"/"" (nil, no filter)
func ParseStatus(raw string) (*Status, bool) {
	switch raw {
	case "", "all":
		return nil, true
	case string(StatusActive), string(StatusEnded):
		s := Status(raw)
		return &s, true
	default:
		return nil, false
	}
}

// Auction represents a timed auction for a meme
type Auction struct {
	ID                uuid.UUID       `json:"id" db:"id"`
	MemeID            uuid.UUID       `json:"meme_id" db:"meme_id"`
	SellerID          uuid.UUID       `json:"seller_id" db:"seller_id"`
	StartingPrice     decimal.Decimal `json:"starting_price" db:"starting_price"`
	CurrentHighestBid decimal.Decimal `json:"current_highest_bid" db:"current_highest_bid"`
	HighestBidderID   *uuid.UUID      `json:"highest_bidder_id" db:"highest_bidder_id"`
	Status            Status          `json:"status" db:"status"`
	EndTime           time.Time       `json:"end_time" db:"end_time"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at" db:"updated_at"`
}

// New builds an active auction seeded with the starting bid
func New(memeID, sellerID uuid.UUID, startingBid decimal.Decimal, duration time.Duration, now time.Time) *Auction {
	return &Auction{
		ID:                uuid.New(),
		MemeID:            memeID,
		SellerID:          sellerID,
		StartingPrice:     startingBid,
		CurrentHighestBid: startingBid,
		Status:            StatusActive,
		EndTime:           now.Add(duration),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// IsActive returns true if the auction is currently active
func (a *Auction) IsActive() bool {
	return a.Status == StatusActive
}

// IsExpired returns true from end_time on; a bid stamped exactly at end_time is too late
func (a *Auction) IsExpired(now time.Time) bool {
	return !now.Before(a.EndTime)
}

// CanBid returns true if a bid can be placed on this auction
func (a *Auction) CanBid(now time.Time) bool {
	return a.IsActive() && !a.IsExpired(now)
}

// Outbids reports whether amount strictly exceeds the current highest bid
func (a *Auction) Outbids(amount decimal.Decimal) bool {
	return amount.GreaterThan(a.CurrentHighestBid)
}

// HasBids returns true if a bidder holds the auction
func (a *Auction) HasBids() bool {
	return a.HighestBidderID != nil
}

// Settlement is the committed outcome of ending an auction
type Settlement struct {
	AuctionID uuid.UUID       `json:"auction_id"`
	MemeID    uuid.UUID       `json:"meme_id"`
	SellerID  uuid.UUID       `json:"seller_id"`
	WinnerID  *uuid.UUID      `json:"winner_id,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	EndedAt   time.Time       `json:"ended_at"`
}

// HasWinner returns true if ownership and funds moved
func (s *Settlement) HasWinner() bool {
	return s.WinnerID != nil
}

// Room returns the broadcast room for an auction
func Room(id uuid.UUID) string {
	return "auction_" + id.String()
}
