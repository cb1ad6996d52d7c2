package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"memebid-service/internal/domain/auction"
	"memebid-service/internal/domain/bid"
	"memebid-service/internal/domain/shared"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const bidColumns = `id, auction_id, bidder_id, amount, created_at`

// BidRepository implements the bid repository interface
type BidRepository struct {
	conn *Connection
}

// NewBidRepository creates a new bid repository
func NewBidRepository(conn *Connection) *BidRepository {
	return &BidRepository{conn: conn}
}

// PlaceBid raises the auction's highest bid and appends the bid row in one transaction
func (r *BidRepository) PlaceBid(ctx context.Context, b *bid.Bid) error {
	// NUMERIC(18,2) would round the stored amount while the guard compares the raw one
	if !b.IsValid() {
		return shared.ErrBidAmountInvalid
	}

	return r.conn.ExecuteTransaction(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE auctions
			SET current_highest_bid = $2, highest_bidder_id = $3, updated_at = $4
			WHERE id = $1 AND status = 'active' AND end_time > $4 AND current_highest_bid < $2
		`, b.AuctionID, b.Amount, b.BidderID, b.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to raise highest bid: %w", err)
		}

		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if n == 0 {
			return rejectedBidReason(ctx, tx, b)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO bids (`+bidColumns+`) VALUES ($1, $2, $3, $4, $5)`,
			b.ID, b.AuctionID, b.BidderID, b.Amount, b.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to create bid: %w", err)
		}

		return nil
	})
}

// rejectedBidReason tells apart why the guarded update matched no row
func rejectedBidReason(ctx context.Context, tx *sqlx.Tx, b *bid.Bid) error {
	var a auction.Auction
	err := tx.GetContext(ctx, &a, `SELECT `+auctionColumns+` FROM auctions WHERE id = $1`, b.AuctionID)
	if errors.Is(err, sql.ErrNoRows) {
		return shared.ErrAuctionNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to get auction: %w", err)
	}

	switch {
	case !a.IsActive():
		return shared.ErrAuctionNotActive
	case a.IsExpired(b.CreatedAt):
		return shared.ErrAuctionExpired
	default:
		return shared.ErrBidTooLow
	}
}

// ListByAuction retrieves the bids of an auction, newest first
func (r *BidRepository) ListByAuction(ctx context.Context, auctionID uuid.UUID, page shared.Page) ([]*bid.Bid, error) {
	query := `
		SELECT ` + bidColumns + `
		FROM bids
		WHERE auction_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	bids := []*bid.Bid{}
	if err := r.conn.GetDB().SelectContext(ctx, &bids, query, auctionID, page.Size, page.Offset()); err != nil {
		return nil, fmt.Errorf("failed to get bids: %w", err)
	}

	return bids, nil
}

// ListByBidder retrieves the bids of a user, newest first
func (r *BidRepository) ListByBidder(ctx context.Context, bidderID uuid.UUID) ([]*bid.Bid, error) {
	query := `SELECT ` + bidColumns + ` FROM bids WHERE bidder_id = $1 ORDER BY created_at DESC`

	bids := []*bid.Bid{}
	if err := r.conn.GetDB().SelectContext(ctx, &bids, query, bidderID); err != nil {
		return nil, fmt.Errorf("failed to get bidder bids: %w", err)
	}

	return bids, nil
}
