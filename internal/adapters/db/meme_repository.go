package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"memebid-service/internal/domain/meme"
	"memebid-service/internal/domain/shared"

	"github.com/google/uuid"
)

const memeColumns = `id, title, description, image_url, creator_id, owner_id, upvotes, downvotes, created_at`

// MemeRepository implements the meme repository interface
type MemeRepository struct {
	conn *Connection
}

func NewMemeRepository(conn *Connection) *MemeRepository {
	return &MemeRepository{conn: conn}
}

// GetByID retrieves a meme by ID
func (r *MemeRepository) GetByID(ctx context.Context, id uuid.UUID) (*meme.Meme, error) {
	query := `
		SELECT ` + memeColumns + `
		FROM memes
		WHERE id = $1
	`

	var m meme.Meme
	if err := r.conn.GetDB().GetContext(ctx, &m, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, shared.ErrMemeNotFound
		}
		return nil, fmt.Errorf("failed to get meme: %w", err)
	}

	return &m, nil
}

// List retrieves one page of the feed. The sort column comes from the meme.SortField whitelist.
func (r *MemeRepository) List(ctx context.Context, q meme.FeedQuery) ([]*meme.Meme, error) {
	column, ok := meme.ParseSortField(string(q.Sort))
	if !ok {
		return nil, shared.ErrInvalidSort
	}
	direction := "DESC"
	if q.Ascending {
		direction = "ASC"
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM memes
		ORDER BY %s %s, id ASC
		LIMIT $1 OFFSET $2
	`, memeColumns, column, direction)

	memes := []*meme.Meme{}
	if err := r.conn.GetDB().SelectContext(ctx, &memes, query, q.Page.Size, q.Page.Offset()); err != nil {
		return nil, fmt.Errorf("failed to list memes: %w", err)
	}

	return memes, nil
}

// ListByCreator retrieves the memes a user created, newest first
func (r *MemeRepository) ListByCreator(ctx context.Context, creatorID uuid.UUID) ([]*meme.Meme, error) {
	query := `
		SELECT ` + memeColumns + `
		FROM memes
		WHERE creator_id = $1
		ORDER BY created_at DESC, id ASC
	`

	memes := []*meme.Meme{}
	if err := r.conn.GetDB().SelectContext(ctx, &memes, query, creatorID); err != nil {
		return nil, fmt.Errorf("failed to list creator memes: %w", err)
	}

	return memes, nil
}
