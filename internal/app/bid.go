package app

import (
	"context"
	"fmt"

	"memebid-service/internal/domain/auction"
	"memebid-service/internal/domain/bid"
	"memebid-service/internal/domain/shared"
	"memebid-service/internal/ports/inbound"
	"memebid-service/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const defaultBidPageSize = 20

// BidService implements the bid use cases
type BidService struct {
	bidRepo     outbound.BidRepository
	auctionRepo outbound.AuctionRepository
	userRepo    outbound.UserRepository
	broadcaster outbound.Broadcaster
	now         Clock
	logger      zerolog.Logger
}

type BidServiceParams struct {
	BidRepo     outbound.BidRepository
	AuctionRepo outbound.AuctionRepository
	UserRepo    outbound.UserRepository
	Broadcaster outbound.Broadcaster
	Clock       Clock
	Logger      zerolog.Logger
}

// NewBidService creates a new bid service
func NewBidService(params BidServiceParams) *BidService {
	return &BidService{
		bidRepo:     params.BidRepo,
		auctionRepo: params.AuctionRepo,
		userRepo:    params.UserRepo,
		broadcaster: params.Broadcaster,
		now:         clockOrDefault(params.Clock),
		logger:      params.Logger.With().Str("component", "bid_service").Logger(),
	}
}

// PlaceBid places a new bid on an auction. The checks here give precise errors;
// the repository re-validates the amount atomically at commit time.
func (s *BidService) PlaceBid(ctx context.Context, req inbound.PlaceBidRequest) (*bid.Bid, error) {
	if req.User == nil {
		return nil, shared.ErrUnauthorized
	}

	logger := s.logger.With().
		Str("auction_id", req.AuctionID.String()).
		Str("user_id", req.User.ID.String()).
		Str("amount", req.Amount.String()).
		Logger()

	logger.Info().Msg("Attempting to place bid")

	if !shared.IsValidAmount(req.Amount) {
		return nil, shared.ErrBidAmountInvalid
	}

	a, err := s.auctionRepo.GetByID(ctx, req.AuctionID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if !a.CanBid(now) {
		if !a.IsActive() {
			logger.Warn().Msg("Auction not accepting bids")
			return nil, shared.ErrAuctionNotActive
		}
		logger.Warn().Time("end_time", a.EndTime).Msg("Auction already past end time")
		return nil, shared.ErrAuctionExpired
	}

	switch {
	case a.SellerID == req.User.ID:
		logger.Warn().Msg("Seller attempted to bid on own auction")
		return nil, shared.ErrSelfBid
	case !a.Outbids(req.Amount):
		logger.Warn().Str("current_highest_bid", a.CurrentHighestBid.String()).Msg("Bid amount too low")
		return nil, shared.ErrBidTooLow
	}

	// The session user may be stale, read the wallet fresh
	bidder, err := s.userRepo.GetByID(ctx, req.User.ID)
	if err != nil {
		return nil, err
	}
	if !bidder.CanAfford(req.Amount) {
		logger.Warn().Str("wallet_balance", bidder.WalletBalance.String()).Msg("Insufficient balance")
		return nil, shared.ErrInsufficientFunds
	}

	newBid := bid.New(a.ID, bidder.ID, req.Amount, now)
	if err := s.bidRepo.PlaceBid(ctx, newBid); err != nil {
		logger.Warn().Err(err).Msg("Bid rejected at commit")
		return nil, err
	}

	room := auction.Room(a.ID)
	if req.ClientID != "" && !s.broadcaster.IsSubscribed(ctx, room, req.ClientID) {
		if err := s.broadcaster.Subscribe(ctx, room, req.ClientID); err != nil {
			logger.Warn().Err(err).Str("client_id", req.ClientID).Msg("Failed to subscribe bidder to auction")
		}
	}

	event := outbound.Event{
		Type: outbound.EventTypeNewBid,
		Data: map[string]interface{}{
			"bid":    newBid,
			"bidder": bidder.Profile(),
			"auction": map[string]interface{}{
				"id":                  a.ID,
				"current_highest_bid": newBid.Amount,
				"highest_bidder_id":   bidder.ID,
				"end_time":            a.EndTime,
			},
			"message": fmt.Sprintf("%s placed a bid of $%s", bidder.Username, newBid.Amount.StringFixed(2)),
		},
	}
	if err := s.broadcaster.Publish(ctx, room, event); err != nil {
		// The bid is committed, a failed broadcast does not undo it
		logger.Error().Err(err).Str("bid_id", newBid.ID.String()).Msg("Failed to broadcast bid event")
	}

	logger.Info().Str("bid_id", newBid.ID.String()).Msg("Bid placed successfully")
	return newBid, nil
}

// GetBidHistory retrieves the bids of an auction, newest first
func (s *BidService) GetBidHistory(ctx context.Context, auctionID uuid.UUID, page shared.Page) ([]*bid.Bid, error) {
	if _, err := s.auctionRepo.GetByID(ctx, auctionID); err != nil {
		return nil, err
	}
	return s.bidRepo.ListByAuction(ctx, auctionID, page.Normalize(defaultBidPageSize))
}

// ListBidderBids retrieves the bids of a user, newest first
func (s *BidService) ListBidderBids(ctx context.Context, bidderID uuid.UUID) ([]*bid.Bid, error) {
	return s.bidRepo.ListByBidder(ctx, bidderID)
}
