package db

import (
	"context"
	"fmt"
	"time"

	"memebid-service/internal/domain/competition"

	"github.com/google/uuid"
)

// CompetitionRepository stores the audit mirror of competitions
type CompetitionRepository struct {
	conn *Connection
}

func NewCompetitionRepository(conn *Connection) *CompetitionRepository {
	return &CompetitionRepository{conn: conn}
}

func (r *CompetitionRepository) Create(ctx context.Context, record *competition.Record) error {
	query := `
		INSERT INTO competitions (id, user1_id, user2_id, meme1_id, meme2_id, status, winner_id, created_at, ended_at)
		VALUES (:id, :user1_id, :user2_id, :meme1_id, :meme2_id, :status, :winner_id, :created_at, :ended_at)
	`

	if _, err := r.conn.GetDB().NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("failed to create competition: %w", err)
	}
	return nil
}

// UpdateSubmission stores the meme of slot 1 or 2
func (r *CompetitionRepository) UpdateSubmission(ctx context.Context, id string, slot int, memeID uuid.UUID) error {
	var query string
	switch slot {
	case 1:
		query = `UPDATE competitions SET meme1_id = $2 WHERE id = $1`
	case 2:
		query = `UPDATE competitions SET meme2_id = $2 WHERE id = $1`
	default:
		return fmt.Errorf("invalid competition slot %d", slot)
	}

	if _, err := r.conn.GetDB().ExecContext(ctx, query, id, memeID); err != nil {
		return fmt.Errorf("failed to update competition submission: %w", err)
	}
	return nil
}

// UpdateStatus never moves a finished row back
func (r *CompetitionRepository) UpdateStatus(ctx context.Context, id string, status competition.Status) error {
	query := `UPDATE competitions SET status = $2 WHERE id = $1 AND status <> 'finished'`

	if _, err := r.conn.GetDB().ExecContext(ctx, query, id, status); err != nil {
		return fmt.Errorf("failed to update competition status: %w", err)
	}
	return nil
}

// Finish marks the competition finished; a nil winner records an abandoned duel
func (r *CompetitionRepository) Finish(ctx context.Context, id string, winnerID *uuid.UUID, endedAt time.Time) error {
	query := `UPDATE competitions SET status = 'finished', winner_id = $2, ended_at = $3 WHERE id = $1`

	if _, err := r.conn.GetDB().ExecContext(ctx, query, id, winnerID, endedAt); err != nil {
		return fmt.Errorf("failed to finish competition: %w", err)
	}
	return nil
}
