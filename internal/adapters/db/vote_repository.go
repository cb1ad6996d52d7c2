package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"memebid-service/internal/domain/meme"
	"memebid-service/internal/domain/shared"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// VoteRepository implements the vote repository interface
type VoteRepository struct {
	conn *Connection
}

func NewVoteRepository(conn *Connection) *VoteRepository {
	return &VoteRepository{conn: conn}
}

// Get retrieves the vote of a user on a meme
func (r *VoteRepository) Get(ctx context.Context, userID, memeID uuid.UUID) (*meme.Vote, error) {
	query := `
		SELECT id, user_id, meme_id, vote_type, created_at, updated_at
		FROM votes
		WHERE user_id = $1 AND meme_id = $2
	`

	var v meme.Vote
	if err := r.conn.GetDB().GetContext(ctx, &v, query, userID, memeID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, shared.ErrVoteNotFound
		}
		return nil, fmt.Errorf("failed to get vote: %w", err)
	}

	return &v, nil
}

// Apply writes the vote row and adjusts the meme counters in one transaction
func (r *VoteRepository) Apply(ctx context.Context, change meme.VoteChange) (*meme.Counts, error) {
	var counts meme.Counts

	err := r.conn.ExecuteTransaction(ctx, func(tx *sqlx.Tx) error {
		if err := writeVote(ctx, tx, change); err != nil {
			return err
		}

		up, down := change.Delta()
		err := tx.GetContext(ctx, &counts, `
			UPDATE memes
			SET upvotes = upvotes + $2, downvotes = downvotes + $3
			WHERE id = $1
			RETURNING id AS meme_id, upvotes, downvotes
		`, change.MemeID, up, down)
		if errors.Is(err, sql.ErrNoRows) {
			return shared.ErrMemeNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to update vote counts: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &counts, nil
}

func writeVote(ctx context.Context, tx *sqlx.Tx, change meme.VoteChange) error {
	var (
		result sql.Result
		err    error
	)

	if change.Previous == nil {
		result, err = tx.ExecContext(ctx, `
			INSERT INTO votes (id, user_id, meme_id, vote_type, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $5)
			ON CONFLICT (user_id, meme_id) DO NOTHING
		`, change.VoteID, change.UserID, change.MemeID, change.Next, change.At)
	} else {
		result, err = tx.ExecContext(ctx, `
			UPDATE votes
			SET vote_type = $3, updated_at = $4
			WHERE user_id = $1 AND meme_id = $2 AND vote_type = $5
		`, change.UserID, change.MemeID, change.Next, change.At, *change.Previous)
	}

	if err != nil {
		if constraint, ok := constraintViolation(err, foreignKeyViolation); ok {
			if constraint == "votes_user_id_fkey" {
				return shared.ErrUserNotFound
			}
			return shared.ErrMemeNotFound
		}
		return fmt.Errorf("failed to write vote: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return shared.ErrVoteConflict
	}
	return nil
}
