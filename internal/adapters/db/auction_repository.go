package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"memebid-service/internal/domain/auction"
	"memebid-service/internal/domain/shared"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

const auctionColumns = `id, meme_id, seller_id, starting_price, current_highest_bid, highest_bidder_id, status, end_time, created_at, updated_at`

// AuctionRepository implements the auction repository interface
type AuctionRepository struct {
	conn *Connection
}

// NewAuctionRepository creates a new auction repository
func NewAuctionRepository(conn *Connection) *AuctionRepository {
	return &AuctionRepository{conn: conn}
}

// Create creates a new auction
func (r *AuctionRepository) Create(ctx context.Context, auction *auction.Auction) error {
	query := `
		INSERT INTO auctions (` + auctionColumns + `)
		VALUES (:id, :meme_id, :seller_id, :starting_price, :current_highest_bid, :highest_bidder_id, :status, :end_time, :created_at, :updated_at)
	`

	_, err := r.conn.GetDB().NamedExecContext(ctx, query, auction)
	if err != nil {
		if constraint, ok := constraintViolation(err, uniqueViolation); ok && constraint == "auctions_one_active_per_meme" {
			return shared.ErrMemeAlreadyInAuction
		}
		if constraint, ok := constraintViolation(err, foreignKeyViolation); ok {
			if constraint == "auctions_meme_id_fkey" {
				return shared.ErrMemeNotFound
			}
			return shared.ErrUserNotFound
		}
		return fmt.Errorf("failed to create auction: %w", err)
	}

	return nil
}

// GetByID retrieves an auction by ID
func (r *AuctionRepository) GetByID(ctx context.Context, id uuid.UUID) (*auction.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE id = $1`

	var a auction.Auction
	if err := r.conn.GetDB().GetContext(ctx, &a, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, shared.ErrAuctionNotFound
		}
		return nil, fmt.Errorf("failed to get auction: %w", err)
	}

	return &a, nil
}

// GetActiveByMemeID retrieves the active auction for a meme
func (r *AuctionRepository) GetActiveByMemeID(ctx context.Context, memeID uuid.UUID) (*auction.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE meme_id = $1 AND status = 'active'`

	var a auction.Auction
	if err := r.conn.GetDB().GetContext(ctx, &a, query, memeID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, shared.ErrAuctionNotFound
		}
		return nil, fmt.Errorf("failed to get active auction by meme ID: %w", err)
	}

	return &a, nil
}

// ListActive retrieves active auctions, newest first
func (r *AuctionRepository) ListActive(ctx context.Context, page shared.Page) ([]*auction.Auction, error) {
	query := `
		SELECT ` + auctionColumns + `
		FROM auctions
		WHERE status = 'active'
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	auctions := []*auction.Auction{}
	if err := r.conn.GetDB().SelectContext(ctx, &auctions, query, page.Size, page.Offset()); err != nil {
		return nil, fmt.Errorf("failed to list active auctions: %w", err)
	}

	return auctions, nil
}

// ListBySeller retrieves the auctions of a seller with an optional status filter
func (r *AuctionRepository) ListBySeller(ctx context.Context, sellerID uuid.UUID, status *auction.Status) ([]*auction.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE seller_id = $1`
	args := []interface{}{sellerID}

	if status != nil {
		query += ` AND status = $2`
		args = append(args, *status)
	}
	query += ` ORDER BY created_at DESC`

	auctions := []*auction.Auction{}
	if err := r.conn.GetDB().SelectContext(ctx, &auctions, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list seller auctions: %w", err)
	}

	return auctions, nil
}

// ListExpired retrieves active auctions whose end time has passed
func (r *AuctionRepository) ListExpired(ctx context.Context, now time.Time) ([]*auction.Auction, error) {
	query := `
		SELECT ` + auctionColumns + `
		FROM auctions
		WHERE status = 'active' AND end_time <= $1
		ORDER BY end_time ASC
	`

	auctions := []*auction.Auction{}
	if err := r.conn.GetDB().SelectContext(ctx, &auctions, query, now); err != nil {
		return nil, fmt.Errorf("failed to list expired auctions: %w", err)
	}

	return auctions, nil
}

type endedAuctionRow struct {
	ID              uuid.UUID       `db:"id"`
	MemeID          uuid.UUID       `db:"meme_id"`
	SellerID        uuid.UUID       `db:"seller_id"`
	Amount          decimal.Decimal `db:"current_highest_bid"`
	HighestBidderID *uuid.UUID      `db:"highest_bidder_id"`
}

// Settle ends the auction and moves the meme and the funds in one transaction
func (r *AuctionRepository) Settle(ctx context.Context, auctionID uuid.UUID, now time.Time) (*auction.Settlement, error) {
	var settlement *auction.Settlement

	err := r.conn.ExecuteTransaction(ctx, func(tx *sqlx.Tx) error {
		var row endedAuctionRow
		err := tx.GetContext(ctx, &row, `
			UPDATE auctions
			SET status = 'ended', updated_at = $2
			WHERE id = $1 AND status = 'active'
			RETURNING id, meme_id, seller_id, current_highest_bid, highest_bidder_id
		`, auctionID, now)
		if errors.Is(err, sql.ErrNoRows) {
			return r.notActiveReason(ctx, tx, auctionID)
		}
		if err != nil {
			return fmt.Errorf("failed to end auction: %w", err)
		}

		settlement = &auction.Settlement{
			AuctionID: row.ID,
			MemeID:    row.MemeID,
			SellerID:  row.SellerID,
			WinnerID:  row.HighestBidderID,
			Amount:    row.Amount,
			EndedAt:   now,
		}
		if !settlement.HasWinner() {
			settlement.Amount = decimal.Zero
			return nil
		}

		return transferToWinner(ctx, tx, settlement)
	})
	if err != nil {
		return nil, err
	}

	return settlement, nil
}

func (r *AuctionRepository) notActiveReason(ctx context.Context, tx *sqlx.Tx, auctionID uuid.UUID) error {
	var exists bool
	if err := tx.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM auctions WHERE id = $1)`, auctionID); err != nil {
		return fmt.Errorf("failed to check auction: %w", err)
	}
	if !exists {
		return shared.ErrAuctionNotFound
	}
	return shared.ErrAuctionNotActive
}

func transferToWinner(ctx context.Context, tx *sqlx.Tx, s *auction.Settlement) error {
	winnerID := *s.WinnerID

	result, err := tx.ExecContext(ctx,
		`UPDATE memes SET owner_id = $1 WHERE id = $2 AND owner_id = $3`,
		winnerID, s.MemeID, s.SellerID)
	if err != nil {
		return fmt.Errorf("failed to transfer meme ownership: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	} else if n == 0 {
		return shared.ErrOwnershipChanged
	}

	result, err = tx.ExecContext(ctx,
		`UPDATE users SET wallet_balance = wallet_balance - $1 WHERE id = $2 AND wallet_balance >= $1`,
		s.Amount, winnerID)
	if err != nil {
		return fmt.Errorf("failed to debit winner: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	} else if n == 0 {
		return shared.ErrInsufficientFunds
	}

	result, err = tx.ExecContext(ctx,
		`UPDATE users SET wallet_balance = wallet_balance + $1 WHERE id = $2`,
		s.Amount, s.SellerID)
	if err != nil {
		return fmt.Errorf("failed to credit seller: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	} else if n == 0 {
		return shared.ErrUserNotFound
	}

	return nil
}
