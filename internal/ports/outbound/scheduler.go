package outbound

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AuctionScheduler registers auctions to be ended at their end time
type AuctionScheduler interface {
	ScheduleAuction(ctx context.Context, auctionID uuid.UUID, endTime time.Time) error
}
