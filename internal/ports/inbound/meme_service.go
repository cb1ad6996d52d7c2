package inbound

import (
	"context"

	"memebid-service/internal/domain/meme"
	"memebid-service/internal/domain/shared"

	"github.com/google/uuid"
)

// MemeService serves the read side of memes
type MemeService interface {
	// ListMemes returns one page of the public feed
	ListMemes(ctx context.Context, query meme.FeedQuery) ([]*meme.Meme, error)

	// ListCreatedMemes returns the memes a user created, newest first
	ListCreatedMemes(ctx context.Context, creatorID uuid.UUID) ([]*meme.Meme, error)
}

// UserService serves the authenticated user's own account
type UserService interface {
	// GetProfile returns the stored user including wallet balance and reputation
	GetProfile(ctx context.Context, userID uuid.UUID) (*shared.User, error)
}
