package bid

import (
	"time"

	"memebid-service/internal/domain/shared"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Bid is an append-only record of an accepted bid
type Bid struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	AuctionID uuid.UUID       `json:"auction_id" db:"auction_id"`
	BidderID  uuid.UUID       `json:"bidder_id" db:"bidder_id"`
	Amount    decimal.Decimal `json:"bid_amount" db:"amount"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

func New(auctionID, bidderID uuid.UUID, amount decimal.Decimal, now time.Time) *Bid {
	return &Bid{
		ID:        uuid.New(),
		AuctionID: auctionID,
		BidderID:  bidderID,
		Amount:    amount,
		CreatedAt: now,
	}
}

// IsValid returns true if the amount is positive and has at most two decimal places
func (b *Bid) IsValid() bool {
	return shared.IsValidAmount(b.Amount)
}
