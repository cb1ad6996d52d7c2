package inbound

import (
	"context"
	"time"

	"memebid-service/internal/domain/auction"
	"memebid-service/internal/domain/bid"
	"memebid-service/internal/domain/shared"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AuctionService defines the interface for auction operations
type AuctionService interface {
	// CreateAuction lists a meme owned by the seller for sale
	CreateAuction(ctx context.Context, req CreateAuctionRequest) (*auction.Auction, error)

	// GetAuction retrieves an auction by ID
	GetAuction(ctx context.Context, auctionID uuid.UUID) (*auction.Auction, error)

	// ListActiveAuctions lists active auctions, newest first
	ListActiveAuctions(ctx context.Context, page shared.Page) ([]*auction.Auction, error)

	// ListSellerAuctions lists the auctions of a seller; a nil status returns all of them
	ListSellerAuctions(ctx context.Context, sellerID uuid.UUID, status *auction.Status) ([]*auction.Auction, error)

	// EndAuction settles an auction on behalf of its seller
	EndAuction(ctx context.Context, req EndAuctionRequest) (*auction.Settlement, error)

	// ExpireAuction settles an auction whose end time passed, as the system
	ExpireAuction(ctx context.Context, auctionID uuid.UUID) (*auction.Settlement, error)

	// ProcessExpiredAuctions settles every expired auction independently
	ProcessExpiredAuctions(ctx context.Context) (*ProcessExpiredResult, error)
}

// BidService defines the interface for bid operations
type BidService interface {
	// PlaceBid places a new bid on an auction
	PlaceBid(ctx context.Context, req PlaceBidRequest) (*bid.Bid, error)

	// GetBidHistory lists the bids of an auction, newest first
	GetBidHistory(ctx context.Context, auctionID uuid.UUID, page shared.Page) ([]*bid.Bid, error)

	// ListBidderBids lists the bids of a user, newest first
	ListBidderBids(ctx context.Context, bidderID uuid.UUID) ([]*bid.Bid, error)
}

// request to create an auction
type CreateAuctionRequest struct {
	MemeID      uuid.UUID       `json:"memeId"`
	SellerID    uuid.UUID       `json:"-"`
	StartingBid decimal.Decimal `json:"startingBid"`
	// Duration in minutes
	Duration int `json:"duration"`
}

// DurationValue converts the requested duration to a time.Duration
func (r CreateAuctionRequest) DurationValue() time.Duration {
	return time.Duration(r.Duration) * time.Minute
}

// request to end an auction
type EndAuctionRequest struct {
	AuctionID uuid.UUID
	UserID    uuid.UUID
}

// request to place a bid
type PlaceBidRequest struct {
	AuctionID uuid.UUID       `json:"auction_id"`
	User      *shared.User    `json:"-"`
	ClientID  string          `json:"client_id"`
	Amount    decimal.Decimal `json:"bid_amount"`
}

// ProcessExpiredResult reports the auctions ended by one sweep
type ProcessExpiredResult struct {
	ProcessedCount int         `json:"processedCount"`
	AuctionIDs     []uuid.UUID `json:"auctionIds"`
	Failed         int         `json:"failed"`
}
