package app

import (
	"context"

	"memebid-service/internal/domain/meme"
	"memebid-service/internal/domain/shared"
	"memebid-service/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	defaultMemePageSize = 20
	maxMemePageSize     = 100
)

// MemeService lists memes and reads user profiles
type MemeService struct {
	memeRepo outbound.MemeRepository
	userRepo outbound.UserRepository
	logger   zerolog.Logger
}

type MemeServiceParams struct {
	MemeRepo outbound.MemeRepository
	UserRepo outbound.UserRepository
	Logger   zerolog.Logger
}

func NewMemeService(params MemeServiceParams) *MemeService {
	return &MemeService{
		memeRepo: params.MemeRepo,
		userRepo: params.UserRepo,
		logger:   params.Logger.With().Str("component", "meme_service").Logger(),
	}
}

// ListMemes returns one page of the feed, twenty memes by default
func (s *MemeService) ListMemes(ctx context.Context, query meme.FeedQuery) ([]*meme.Meme, error) {
	sortField, ok := meme.ParseSortField(string(query.Sort))
	if !ok {
		return nil, shared.ErrInvalidSort
	}
	query.Sort = sortField
	query.Page = query.Page.Normalize(defaultMemePageSize)
	if query.Page.Size > maxMemePageSize {
		query.Page.Size = maxMemePageSize
	}

	memes, err := s.memeRepo.List(ctx, query)
	if err != nil {
		s.logger.Error().Err(err).Str("sort", string(query.Sort)).Msg("Failed to list memes")
		return nil, err
	}
	return memes, nil
}

func (s *MemeService) ListCreatedMemes(ctx context.Context, creatorID uuid.UUID) ([]*meme.Meme, error) {
	memes, err := s.memeRepo.ListByCreator(ctx, creatorID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", creatorID.String()).Msg("Failed to list created memes")
		return nil, err
	}
	return memes, nil
}

// GetProfile reads the user fresh from storage so wallet and reputation are current
func (s *MemeService) GetProfile(ctx context.Context, userID uuid.UUID) (*shared.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}
