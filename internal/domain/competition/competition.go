package competition

import (
	"time"

	"memebid-service/internal/domain/shared"

	"github.com/google/uuid"
)

// Status represents the lifecycle of a duel
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusActive   Status = "active"
	StatusFinished Status = "finished"
)

// Competition is a head-to-head duel between two users.
// It is owned by the matchmaker and mutated only under its lock.
type Competition struct {
	ID          string
	User1       uuid.UUID
	User2       uuid.UUID
	Meme1       *uuid.UUID
	Meme2       *uuid.UUID
	Votes       map[uuid.UUID]uuid.UUID // voter -> meme
	Status      Status
	Seq         int64
	CreatedAt   time.Time
	ActivatedAt *time.Time
}

// NewRoomID returns a fresh unique room identifier
func NewRoomID() string {
	return "competition_" + uuid.NewString()
}

func New(id string, user1, user2 uuid.UUID, now time.Time) *Competition {
	return &Competition{
		ID:        id,
		User1:     user1,
		User2:     user2,
		Votes:     make(map[uuid.UUID]uuid.UUID),
		Status:    StatusWaiting,
		CreatedAt: now,
	}
}

func (c *Competition) IsParticipant(userID uuid.UUID) bool {
	return userID == c.User1 || userID == c.User2
}

// Slot returns 1 or 2 for a participant, 0 otherwise
func (c *Competition) Slot(userID uuid.UUID) int {
	switch userID {
	case c.User1:
		return 1
	case c.User2:
		return 2
	default:
		return 0
	}
}

// Submit stores a participant's meme in their own slot. It reports whether
// the duel just moved from waiting to active.
func (c *Competition) Submit(userID, memeID uuid.UUID, now time.Time) (activated bool, err error) {
	if c.Status == StatusFinished {
		return false, shared.ErrCompetitionFinished
	}
	if !c.IsParticipant(userID) {
		return false, shared.ErrNotParticipant
	}
	if c.Slot(userID) == 1 {
		c.Meme1 = &memeID
	} else {
		c.Meme2 = &memeID
	}

	if c.Meme1 != nil && c.Meme2 != nil && c.Status == StatusWaiting {
		c.Status = StatusActive
		c.ActivatedAt = &now
		return true, nil
	}
	return false, nil
}

// CastVote records the voter's choice, replacing any earlier one
func (c *Competition) CastVote(voterID, memeID uuid.UUID) error {
	if c.Status != StatusActive {
		return shared.ErrCompetitionNotActive
	}
	c.Votes[voterID] = memeID
	c.Seq++
	return nil
}

// Tally counts votes for the submitted memes; unknown meme ids are ignored
func (c *Competition) Tally() map[uuid.UUID]int {
	counts := make(map[uuid.UUID]int, 2)
	if c.Meme1 != nil {
		counts[*c.Meme1] = 0
	}
	if c.Meme2 != nil {
		counts[*c.Meme2] = 0
	}
	for _, memeID := range c.Votes {
		if _, ok := counts[memeID]; ok {
			counts[memeID]++
		}
	}
	return counts
}

// Result is the outcome of a finished duel
type Result struct {
	RoomID     string            `json:"room_id"`
	WinnerID   *uuid.UUID        `json:"winner_user,omitempty"`
	WinnerMeme *uuid.UUID        `json:"winner_meme,omitempty"`
	VoteCounts map[uuid.UUID]int `json:"vote_counts"`
	Abandoned  bool              `json:"abandoned"`
	EndedAt    time.Time         `json:"ended_at"`
}

// Finish closes an active duel. meme2 must have strictly more votes to win,
// otherwise meme1's submitter wins, including 0-0.
func (c *Competition) Finish(now time.Time) (*Result, bool) {
	if c.Status != StatusActive {
		return nil, false
	}
	counts := c.Tally()

	winnerMeme := *c.Meme1
	winnerUser := c.User1
	if counts[*c.Meme2] > counts[*c.Meme1] {
		winnerMeme = *c.Meme2
		winnerUser = c.User2
	}
	c.Status = StatusFinished

	return &Result{
		RoomID:     c.ID,
		WinnerID:   &winnerUser,
		WinnerMeme: &winnerMeme,
		VoteCounts: counts,
		EndedAt:    now,
	}, true
}

// Abandon closes a duel that never received both submissions
func (c *Competition) Abandon(now time.Time) (*Result, bool) {
	if c.Status != StatusWaiting {
		return nil, false
	}
	c.Status = StatusFinished
	return &Result{
		RoomID:     c.ID,
		VoteCounts: c.Tally(),
		Abandoned:  true,
		EndedAt:    now,
	}, true
}

// Snapshot is a copy safe to hand out of the matchmaker lock
type Snapshot struct {
	RoomID     string            `json:"room_id"`
	User1      uuid.UUID         `json:"user1"`
	User2      uuid.UUID         `json:"user2"`
	Meme1      *uuid.UUID        `json:"meme1"`
	Meme2      *uuid.UUID        `json:"meme2"`
	Status     Status            `json:"status"`
	VoteCounts map[uuid.UUID]int `json:"vote_counts"`
	Seq        int64             `json:"seq"`
	CreatedAt  time.Time         `json:"created_at"`
}

func (c *Competition) Snapshot() Snapshot {
	s := Snapshot{
		RoomID:     c.ID,
		User1:      c.User1,
		User2:      c.User2,
		Status:     c.Status,
		VoteCounts: c.Tally(),
		Seq:        c.Seq,
		CreatedAt:  c.CreatedAt,
	}
	if c.Meme1 != nil {
		m := *c.Meme1
		s.Meme1 = &m
	}
	if c.Meme2 != nil {
		m := *c.Meme2
		s.Meme2 = &m
	}
	return s
}

// Record is the persisted mirror row of a competition
type Record struct {
	ID        string     `db:"id"`
	User1ID   uuid.UUID  `db:"user1_id"`
	User2ID   uuid.UUID  `db:"user2_id"`
	Meme1ID   *uuid.UUID `db:"meme1_id"`
	Meme2ID   *uuid.UUID `db:"meme2_id"`
	Status    Status     `db:"status"`
	WinnerID  *uuid.UUID `db:"winner_id"`
	CreatedAt time.Time  `db:"created_at"`
	EndedAt   *time.Time `db:"ended_at"`
}

func (c *Competition) Record() *Record {
	s := c.Snapshot()
	return &Record{
		ID:        c.ID,
		User1ID:   c.User1,
		User2ID:   c.User2,
		Meme1ID:   s.Meme1,
		Meme2ID:   s.Meme2,
		Status:    c.Status,
		CreatedAt: c.CreatedAt,
	}
}
