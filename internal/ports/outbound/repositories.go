package outbound

import (
	"context"
	"time"

	"memebid-service/internal/domain/auction"
	"memebid-service/internal/domain/bid"
	"memebid-service/internal/domain/competition"
	"memebid-service/internal/domain/meme"
	"memebid-service/internal/domain/shared"

	"github.com/google/uuid"
)

// AuctionRepository defines the interface for auction data operations
type AuctionRepository interface {
	// Create persists a new active auction; a second active auction for the same meme fails with ErrMemeAlreadyInAuction
	Create(ctx context.Context, auction *auction.Auction) error

	// GetByID retrieves an auction by ID
	GetByID(ctx context.Context, id uuid.UUID) (*auction.Auction, error)

	// GetActiveByMemeID returns the active auction of a meme or ErrAuctionNotFound
	GetActiveByMemeID(ctx context.Context, memeID uuid.UUID) (*auction.Auction, error)

	// ListActive lists active auctions, newest first
	ListActive(ctx context.Context, page shared.Page) ([]*auction.Auction, error)

	// ListBySeller lists a seller's auctions, optionally filtered by status
	ListBySeller(ctx context.Context, sellerID uuid.UUID, status *auction.Status) ([]*auction.Auction, error)

	// ListExpired lists active auctions whose end time is at or before now
	ListExpired(ctx context.Context, now time.Time) ([]*auction.Auction, error)

	// Settle ends an active auction and, if it has a highest bidder, transfers ownership and
	// funds in the same transaction. Nothing is committed if any step fails.
	Settle(ctx context.Context, auctionID uuid.UUID, now time.Time) (*auction.Settlement, error)
}

// BidRepository defines the interface for bid data operations
type BidRepository interface {
	// PlaceBid appends the bid and raises the auction's highest bid atomically.
	// The raise only happens if the amount still exceeds the stored highest bid.
	PlaceBid(ctx context.Context, bid *bid.Bid) error

	// ListByAuction returns an auction's bids, newest first
	ListByAuction(ctx context.Context, auctionID uuid.UUID, page shared.Page) ([]*bid.Bid, error)

	// ListByBidder returns a user's bids, newest first
	ListByBidder(ctx context.Context, bidderID uuid.UUID) ([]*bid.Bid, error)
}

// MemeRepository defines the interface for meme data operations
type MemeRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*meme.Meme, error)

	// List returns one page of the feed in the query's order
	List(ctx context.Context, query meme.FeedQuery) ([]*meme.Meme, error)

	// ListByCreator returns the memes a user created, newest first
	ListByCreator(ctx context.Context, creatorID uuid.UUID) ([]*meme.Meme, error)
}

// VoteRepository defines the interface for vote data operations
type VoteRepository interface {
	// Get returns the vote of a user on a meme or ErrVoteNotFound
	Get(ctx context.Context, userID, memeID uuid.UUID) (*meme.Vote, error)

	// Apply writes the vote row and the counter delta in one transaction and returns the new counts.
	// ErrVoteConflict means the stored row no longer matches change.Previous.
	Apply(ctx context.Context, change meme.VoteChange) (*meme.Counts, error)
}

// UserRepository defines the interface for user data operations
type UserRepository interface {
	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id uuid.UUID) (*shared.User, error)
}

// CompetitionRepository persists the audit mirror of competitions
type CompetitionRepository interface {
	Create(ctx context.Context, record *competition.Record) error
	UpdateSubmission(ctx context.Context, id string, slot int, memeID uuid.UUID) error
	UpdateStatus(ctx context.Context, id string, status competition.Status) error
	Finish(ctx context.Context, id string, winnerID *uuid.UUID, endedAt time.Time) error
}

// Repositories bundles every repository for dependency injection
type Repositories struct {
	Auctions     AuctionRepository
	Bids         BidRepository
	Memes        MemeRepository
	Votes        VoteRepository
	Users        UserRepository
	Competitions CompetitionRepository
}
