package app

import (
	"context"
	"errors"
	"fmt"

	"memebid-service/internal/domain/meme"
	"memebid-service/internal/domain/shared"
	"memebid-service/internal/ports/inbound"
	"memebid-service/internal/ports/outbound"

	"github.com/rs/zerolog"
)

// maxVoteAttempts bounds re-decisions after losing a race on the same vote row
const maxVoteAttempts = 3

// VoteService enforces one vote per user and meme and broadcasts the new counts
type VoteService struct {
	voteRepo    outbound.VoteRepository
	broadcaster outbound.Broadcaster
	now         Clock
	logger      zerolog.Logger
}

type VoteServiceParams struct {
	VoteRepo    outbound.VoteRepository
	Broadcaster outbound.Broadcaster
	Clock       Clock
	Logger      zerolog.Logger
}

func NewVoteService(params VoteServiceParams) *VoteService {
	return &VoteService{
		voteRepo:    params.VoteRepo,
		broadcaster: params.Broadcaster,
		now:         clockOrDefault(params.Clock),
		logger:      params.Logger.With().Str("component", "vote_service").Logger(),
	}
}

// Vote registers an up or down vote
func (s *VoteService) Vote(ctx context.Context, req inbound.VoteRequest) (*inbound.VoteResult, error) {
	if req.User == nil {
		return nil, shared.ErrUnauthorized
	}
	if !req.VoteType.IsValid() {
		return nil, shared.ErrInvalidVoteType
	}

	logger := s.logger.With().
		Str("meme_id", req.MemeID.String()).
		Str("user_id", req.User.ID.String()).
		Str("vote_type", string(req.VoteType)).
		Logger()

	for attempt := 1; attempt <= maxVoteAttempts; attempt++ {
		existing, err := s.voteRepo.Get(ctx, req.User.ID, req.MemeID)
		if err != nil && !errors.Is(err, shared.ErrVoteNotFound) {
			logger.Error().Err(err).Msg("Failed to read existing vote")
			return nil, err
		}

		change, ok := meme.Decide(existing, req.User.ID, req.MemeID, req.VoteType, s.now())
		if !ok {
			logger.Debug().Msg("Vote already registered")
			return &inbound.VoteResult{MemeID: req.MemeID, VoteType: req.VoteType, AlreadyRegistered: true}, nil
		}

		counts, err := s.voteRepo.Apply(ctx, change)
		if errors.Is(err, shared.ErrVoteConflict) {
			logger.Debug().Int("attempt", attempt).Msg("Vote changed concurrently, retrying")
			continue
		}
		if err != nil {
			logger.Error().Err(err).Msg("Failed to apply vote")
			return nil, err
		}

		s.announce(ctx, req, counts)
		logger.Info().Int("upvotes", counts.Upvotes).Int("downvotes", counts.Downvotes).Msg("Vote registered")

		return &inbound.VoteResult{MemeID: req.MemeID, VoteType: req.VoteType, Counts: counts}, nil
	}

	logger.Warn().Msg("Vote kept conflicting, giving up")
	return nil, shared.ErrVoteConflict
}

func (s *VoteService) announce(ctx context.Context, req inbound.VoteRequest, counts *meme.Counts) {
	update := outbound.Event{
		Type: outbound.EventTypeVoteUpdate,
		Data: map[string]interface{}{
			"meme_id":   counts.MemeID,
			"upvotes":   counts.Upvotes,
			"downvotes": counts.Downvotes,
			"vote_type": req.VoteType,
			"user_id":   req.User.ID,
			"username":  req.User.Username,
		},
	}
	if err := s.broadcaster.PublishAll(ctx, update); err != nil {
		s.logger.Error().Err(err).Str("meme_id", counts.MemeID.String()).Msg("Failed to broadcast vote update")
	}

	ack := outbound.Event{
		Type: outbound.EventTypeVoteSuccess,
		Data: map[string]interface{}{
			"message":   fmt.Sprintf("Successfully %sd meme", req.VoteType),
			"meme_id":   counts.MemeID,
			"upvotes":   counts.Upvotes,
			"downvotes": counts.Downvotes,
		},
	}
	if err := s.broadcaster.SendToUser(ctx, req.User.ID, ack); err != nil {
		s.logger.Error().Err(err).Str("user_id", req.User.ID.String()).Msg("Failed to send vote acknowledgement")
	}
}
