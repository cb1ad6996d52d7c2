package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"memebid-service/internal/domain/auction"
	"memebid-service/internal/domain/shared"
	"memebid-service/internal/ports/inbound"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const expirationsKey = "auction:expirations"

// AuctionExpirer is the part of the auction service the scheduler drives
type AuctionExpirer interface {
	ExpireAuction(ctx context.Context, auctionID uuid.UUID) (*auction.Settlement, error)
	ProcessExpiredAuctions(ctx context.Context) (*inbound.ProcessExpiredResult, error)
}

// AuctionScheduler ends auctions on time. A Redis sorted set indexes end times and is
// polled every second; a slower database sweep catches anything the index missed.
// Without a Redis client only the sweep runs.
type AuctionScheduler struct {
	redis          *redis.Client
	auctionService AuctionExpirer
	pollInterval   time.Duration
	sweepInterval  time.Duration
	logger         zerolog.Logger
	ctx            context.Context
	cancel         context.CancelFunc
	wg             sync.WaitGroup
}

type AuctionSchedulerParams struct {
	RedisClient    *redis.Client
	AuctionService AuctionExpirer
	SweepInterval  time.Duration
	Logger         zerolog.Logger
}

func NewAuctionScheduler(params AuctionSchedulerParams) *AuctionScheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &AuctionScheduler{
		redis:          params.RedisClient,
		auctionService: params.AuctionService,
		pollInterval:   time.Second,
		sweepInterval:  params.SweepInterval,
		logger:         params.Logger.With().Str("component", "auction_scheduler").Logger(),
		ctx:            ctx,
		cancel:         cancel,
	}
}

// ScheduleAuction adds an auction to the expiration schedule
func (s *AuctionScheduler) ScheduleAuction(ctx context.Context, auctionID uuid.UUID, endTime time.Time) error {
	if s.redis == nil {
		return nil
	}

	err := s.redis.ZAdd(ctx, expirationsKey, redis.Z{
		Score:  float64(endTime.UnixMilli()),
		Member: auctionID.String(),
	}).Err()
	if err != nil {
		s.logger.Error().Err(err).Str("auction_id", auctionID.String()).Msg("Failed to schedule auction")
		return fmt.Errorf("failed to schedule auction: %w", err)
	}

	s.logger.Info().
		Str("auction_id", auctionID.String()).
		Time("end_time", endTime).
		Msg("Auction scheduled for expiration")

	return nil
}

// Start begins the scheduler loops
func (s *AuctionScheduler) Start() {
	s.logger.Info().Msg("Starting auction scheduler")

	if s.redis != nil {
		s.wg.Add(1)
		go s.schedulerLoop()
	}

	if s.sweepInterval > 0 {
		s.wg.Add(1)
		go s.sweepLoop()
	}
}

// Stop gracefully stops the scheduler
func (s *AuctionScheduler) Stop() {
	s.logger.Info().Msg("Stopping auction scheduler")
	s.cancel()
	s.wg.Wait()
}

func (s *AuctionScheduler) schedulerLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.checkExpiredAuctions(time.Now())
		case <-s.ctx.Done():
			s.logger.Info().Msg("Scheduler loop stopped")
			return
		}
	}
}

func (s *AuctionScheduler) sweepLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.ctx.Done():
			s.logger.Info().Msg("Sweep loop stopped")
			return
		}
	}
}

func (s *AuctionScheduler) sweep() {
	result, err := s.auctionService.ProcessExpiredAuctions(s.ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Expired auction sweep failed")
		return
	}
	if result.ProcessedCount > 0 || result.Failed > 0 {
		s.logger.Info().Int("processed", result.ProcessedCount).Int("failed", result.Failed).Msg("Expired auction sweep finished")
	}
}

// checkExpiredAuctions ends the auctions whose score is due
func (s *AuctionScheduler) checkExpiredAuctions(now time.Time) {
	due, err := s.redis.ZRangeByScore(s.ctx, expirationsKey, &redis.ZRangeBy{
		Min:   "0",
		Max:   strconv.FormatInt(now.UnixMilli(), 10),
		Count: 10,
	}).Result()
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to get expired auctions")
		return
	}

	if len(due) > 0 {
		s.logger.Debug().Int("count", len(due)).Msg("Found expired auctions")
	}

	for _, member := range due {
		auctionID, err := uuid.Parse(member)
		if err != nil {
			s.logger.Error().Err(err).Str("auction_id", member).Msg("Invalid auction ID, removing from schedule")
			s.unschedule(member)
			continue
		}
		s.endAuction(auctionID)
	}
}

// endAuction settles one due auction. Dependency failures and not-yet-due auctions stay
// scheduled for the next tick; every other outcome removes the entry.
func (s *AuctionScheduler) endAuction(auctionID uuid.UUID) {
	logger := s.logger.With().Str("auction_id", auctionID.String()).Logger()

	settlement, err := s.auctionService.ExpireAuction(s.ctx, auctionID)
	switch {
	case err == nil:
		event := logger.Info()
		if settlement.HasWinner() {
			event = event.Str("winner_id", settlement.WinnerID.String()).Str("amount", settlement.Amount.String())
		}
		event.Msg("Auction ended by scheduler")
	case errors.Is(err, shared.ErrAuctionNotExpired):
		return
	case shared.KindOf(err) == shared.KindDependency:
		logger.Error().Err(err).Msg("Failed to end auction, will retry")
		return
	default:
		logger.Warn().Err(err).Msg("Auction could not be ended by scheduler")
	}

	s.unschedule(auctionID.String())
}

func (s *AuctionScheduler) unschedule(member string) {
	if err := s.redis.ZRem(s.ctx, expirationsKey, member).Err(); err != nil {
		s.logger.Error().Err(err).Str("auction_id", member).Msg("Failed to remove auction from schedule")
	}
}
