package app

import (
	"context"
	"errors"
	"fmt"

	"memebid-service/internal/domain/auction"
	"memebid-service/internal/domain/shared"
	"memebid-service/internal/ports/inbound"
	"memebid-service/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"
)

const (
	defaultAuctionPageSize = 10
	sweepConcurrency       = 4
)

// AuctionService implements the auction use cases and scheduler.AuctionExpirer
type AuctionService struct {
	auctionRepo outbound.AuctionRepository
	memeRepo    outbound.MemeRepository
	userRepo    outbound.UserRepository
	broadcaster outbound.Broadcaster
	scheduler   outbound.AuctionScheduler
	now         Clock
	logger      zerolog.Logger
}

type AuctionServiceParams struct {
	AuctionRepo outbound.AuctionRepository
	MemeRepo    outbound.MemeRepository
	UserRepo    outbound.UserRepository
	Broadcaster outbound.Broadcaster
	Scheduler   outbound.AuctionScheduler
	Clock       Clock
	Logger      zerolog.Logger
}

// NewAuctionService creates a new auction service
func NewAuctionService(params AuctionServiceParams) *AuctionService {
	return &AuctionService{
		auctionRepo: params.AuctionRepo,
		memeRepo:    params.MemeRepo,
		userRepo:    params.UserRepo,
		broadcaster: params.Broadcaster,
		scheduler:   params.Scheduler,
		now:         clockOrDefault(params.Clock),
		logger:      params.Logger.With().Str("component", "auction_service").Logger(),
	}
}

// SetScheduler sets the auction scheduler
func (service *AuctionService) SetScheduler(scheduler outbound.AuctionScheduler) {
	service.scheduler = scheduler
}

// CreateAuction creates a new auction
func (service *AuctionService) CreateAuction(ctx context.Context, req inbound.CreateAuctionRequest) (*auction.Auction, error) {
	logger := service.logger.With().
		Str("meme_id", req.MemeID.String()).
		Str("user_id", req.SellerID.String()).
		Logger()

	logger.Info().
		Str("starting_bid", req.StartingBid.String()).
		Int("duration_minutes", req.Duration).
		Msg("Attempting to create auction")

	if !shared.IsValidAmount(req.StartingBid) {
		return nil, shared.ErrInvalidStartingBid
	}
	if req.Duration <= 0 {
		return nil, shared.ErrInvalidDuration
	}

	m, err := service.memeRepo.GetByID(ctx, req.MemeID)
	if err != nil {
		logger.Warn().Err(err).Msg("Meme lookup failed")
		return nil, err
	}
	if !m.OwnedBy(req.SellerID) {
		logger.Warn().Msg("Seller does not own meme")
		return nil, shared.ErrNotMemeOwner
	}

	existing, err := service.auctionRepo.GetActiveByMemeID(ctx, req.MemeID)
	if err != nil && !errors.Is(err, shared.ErrAuctionNotFound) {
		logger.Error().Err(err).Msg("Failed to check for active auctions")
		return nil, err
	}
	if existing != nil {
		logger.Warn().Str("auction_id", existing.ID.String()).Msg("Meme is already in an active auction")
		return nil, shared.ErrMemeAlreadyInAuction
	}

	a := auction.New(req.MemeID, req.SellerID, req.StartingBid, req.DurationValue(), service.now())

	// The store enforces one active auction per meme, covering a race with the check above
	if err := service.auctionRepo.Create(ctx, a); err != nil {
		logger.Error().Err(err).Str("auction_id", a.ID.String()).Msg("Failed to save auction")
		return nil, err
	}

	logger.Info().Str("auction_id", a.ID.String()).Time("end_time", a.EndTime).Msg("Auction created successfully")

	if service.scheduler != nil {
		if err := service.scheduler.ScheduleAuction(ctx, a.ID, a.EndTime); err != nil {
			// The periodic sweep still ends the auction
			logger.Error().Err(err).Str("auction_id", a.ID.String()).Msg("Failed to schedule auction for expiration")
		}
	}

	event := outbound.Event{
		Type: outbound.EventTypeNewAuction,
		Data: map[string]interface{}{
			"auction": a,
			"message": fmt.Sprintf("New auction started for %q", m.Title),
		},
	}
	if err := service.broadcaster.PublishAll(ctx, event); err != nil {
		logger.Error().Err(err).Str("auction_id", a.ID.String()).Msg("Failed to broadcast new auction")
	}

	return a, nil
}

// GetAuction retrieves an auction by ID
func (service *AuctionService) GetAuction(ctx context.Context, auctionID uuid.UUID) (*auction.Auction, error) {
	return service.auctionRepo.GetByID(ctx, auctionID)
}

// ListActiveAuctions retrieves active auctions, newest first
func (service *AuctionService) ListActiveAuctions(ctx context.Context, page shared.Page) ([]*auction.Auction, error) {
	return service.auctionRepo.ListActive(ctx, page.Normalize(defaultAuctionPageSize))
}

// ListSellerAuctions retrieves the auctions of a seller
func (service *AuctionService) ListSellerAuctions(ctx context.Context, sellerID uuid.UUID, status *auction.Status) ([]*auction.Auction, error) {
	return service.auctionRepo.ListBySeller(ctx, sellerID, status)
}

// EndAuction ends an auction on behalf of its seller
func (service *AuctionService) EndAuction(ctx context.Context, req inbound.EndAuctionRequest) (*auction.Settlement, error) {
	a, err := service.auctionRepo.GetByID(ctx, req.AuctionID)
	if err != nil {
		return nil, err
	}
	if a.SellerID != req.UserID {
		service.logger.Warn().
			Str("auction_id", a.ID.String()).
			Str("user_id", req.UserID.String()).
			Msg("Only the seller can end the auction")
		return nil, shared.ErrNotSeller
	}
	if !a.IsActive() {
		return nil, shared.ErrAuctionNotActive
	}

	return service.settle(ctx, a.ID)
}

// ExpireAuction ends an auction whose end time has passed
func (service *AuctionService) ExpireAuction(ctx context.Context, auctionID uuid.UUID) (*auction.Settlement, error) {
	a, err := service.auctionRepo.GetByID(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	if !a.IsActive() {
		return nil, shared.ErrAuctionNotActive
	}
	if !a.IsExpired(service.now()) {
		return nil, shared.ErrAuctionNotExpired
	}

	return service.settle(ctx, a.ID)
}

type sweepOutcome struct {
	auctionID uuid.UUID
	err       error
}

// ProcessExpiredAuctions settles every expired auction. Each one succeeds or fails on its own;
// failures are logged and left active for the next pass.
func (service *AuctionService) ProcessExpiredAuctions(ctx context.Context) (*inbound.ProcessExpiredResult, error) {
	expired, err := service.auctionRepo.ListExpired(ctx, service.now())
	if err != nil {
		service.logger.Error().Err(err).Msg("Failed to list expired auctions")
		return nil, err
	}

	p := pool.NewWithResults[sweepOutcome]().WithMaxGoroutines(sweepConcurrency)
	for _, a := range expired {
		p.Go(func() sweepOutcome {
			_, err := service.settle(ctx, a.ID)
			return sweepOutcome{auctionID: a.ID, err: err}
		})
	}

	result := &inbound.ProcessExpiredResult{AuctionIDs: []uuid.UUID{}}
	for _, outcome := range p.Wait() {
		switch {
		case outcome.err == nil:
			result.AuctionIDs = append(result.AuctionIDs, outcome.auctionID)
		case errors.Is(outcome.err, shared.ErrAuctionNotActive):
			// Ended concurrently by the seller or the scheduler
		default:
			result.Failed++
			service.logger.Error().Err(outcome.err).Str("auction_id", outcome.auctionID.String()).Msg("Failed to settle expired auction")
		}
	}
	result.ProcessedCount = len(result.AuctionIDs)

	service.logger.Info().
		Int("expired", len(expired)).
		Int("processed", result.ProcessedCount).
		Int("failed", result.Failed).
		Msg("Processed expired auctions")

	return result, nil
}

// settle commits the settlement and announces it
func (service *AuctionService) settle(ctx context.Context, auctionID uuid.UUID) (*auction.Settlement, error) {
	logger := service.logger.With().Str("auction_id", auctionID.String()).Logger()

	settlement, err := service.auctionRepo.Settle(ctx, auctionID, service.now())
	if err != nil {
		logger.Error().Err(err).Msg("Failed to settle auction")
		return nil, err
	}

	data := map[string]interface{}{
		"auction_id": settlement.AuctionID,
		"meme_id":    settlement.MemeID,
		"winner":     nil,
		"winningBid": nil,
		"message":    "Auction ended with no bids",
	}

	if settlement.HasWinner() {
		winner, err := service.userRepo.GetByID(ctx, *settlement.WinnerID)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to load winner profile")
			data["winner"] = shared.PublicProfile{ID: *settlement.WinnerID}
			data["message"] = fmt.Sprintf("Auction ended! Sold for $%s", settlement.Amount.StringFixed(2))
		} else {
			data["winner"] = winner.Profile()
			data["message"] = fmt.Sprintf("Auction ended! Won by %s for $%s", winner.Username, settlement.Amount.StringFixed(2))
			service.notifyBalance(ctx, winner)
		}
		data["winningBid"] = settlement.Amount

		if seller, err := service.userRepo.GetByID(ctx, settlement.SellerID); err == nil {
			service.notifyBalance(ctx, seller)
		}

		logger.Info().
			Str("winner_id", settlement.WinnerID.String()).
			Str("amount", settlement.Amount.String()).
			Msg("Auction ended with winner")
	} else {
		logger.Info().Msg("Auction ended with no bids")
	}

	event := outbound.Event{Type: outbound.EventTypeAuctionEnded, Data: data}
	if err := service.broadcaster.Publish(ctx, auction.Room(auctionID), event); err != nil {
		logger.Error().Err(err).Msg("Failed to broadcast auction end event")
	}

	return settlement, nil
}

// notifyBalance tells a connected user their wallet changed
func (service *AuctionService) notifyBalance(ctx context.Context, user *shared.User) {
	event := outbound.Event{
		Type: outbound.EventTypeBalanceUpdate,
		Data: map[string]interface{}{"wallet_balance": user.WalletBalance},
	}
	if err := service.broadcaster.SendToUser(ctx, user.ID, event); err != nil {
		service.logger.Error().Err(err).Str("user_id", user.ID.String()).Msg("Failed to send balance update")
	}
}
