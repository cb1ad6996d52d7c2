package app

import (
	"context"
	"sync"
	"time"

	"memebid-service/internal/domain/competition"
	"memebid-service/internal/domain/shared"
	"memebid-service/internal/ports/inbound"
	"memebid-service/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// finishedRetention is how long a finished room id is remembered for error reporting
const finishedRetention = 10 * time.Minute

// CompetitionService owns the matchmaking queue and every unfinished duel.
// All state changes happen under mu; persistence and broadcasts run after it is released,
// one room turn at a time in the order the changes were made.
type CompetitionService struct {
	mu           sync.Mutex
	queue        []shared.PublicProfile
	queued       map[uuid.UUID]struct{}
	active       map[string]*competition.Competition
	participants map[uuid.UUID]string // user -> room of their unfinished duel
	finished     map[string]time.Time
	timers       map[string]*time.Timer
	turns        map[string]chan struct{} // room -> completion of its latest queued side effects

	memeRepo         outbound.MemeRepository
	competitionRepo  outbound.CompetitionRepository
	broadcaster      outbound.Broadcaster
	votingWindow     time.Duration
	submissionWindow time.Duration
	now              Clock
	logger           zerolog.Logger
}

type CompetitionServiceParams struct {
	MemeRepo         outbound.MemeRepository
	CompetitionRepo  outbound.CompetitionRepository
	Broadcaster      outbound.Broadcaster
	VotingWindow     time.Duration
	SubmissionWindow time.Duration
	Clock            Clock
	Logger           zerolog.Logger
}

func NewCompetitionService(params CompetitionServiceParams) *CompetitionService {
	return &CompetitionService{
		queued:           make(map[uuid.UUID]struct{}),
		active:           make(map[string]*competition.Competition),
		participants:     make(map[uuid.UUID]string),
		finished:         make(map[string]time.Time),
		timers:           make(map[string]*time.Timer),
		turns:            make(map[string]chan struct{}),
		memeRepo:         params.MemeRepo,
		competitionRepo:  params.CompetitionRepo,
		broadcaster:      params.Broadcaster,
		votingWindow:     params.VotingWindow,
		submissionWindow: params.SubmissionWindow,
		now:              clockOrDefault(params.Clock),
		logger:           params.Logger.With().Str("component", "competition_service").Logger(),
	}
}

// JoinQueue enqueues the user and pairs the two longest-waiting users
func (s *CompetitionService) JoinQueue(ctx context.Context, user *shared.User) (*competition.Snapshot, error) {
	if user == nil {
		return nil, shared.ErrUnauthorized
	}
	logger := s.logger.With().Str("user_id", user.ID.String()).Logger()

	s.mu.Lock()
	if roomID, busy := s.participants[user.ID]; busy {
		s.mu.Unlock()
		logger.Warn().Str("room_id", roomID).Msg("User already in a competition")
		return nil, shared.ErrAlreadyInCompetition
	}
	if _, waiting := s.queued[user.ID]; waiting {
		s.mu.Unlock()
		return nil, nil
	}

	s.queue = append(s.queue, user.Profile())
	s.queued[user.ID] = struct{}{}
	position := len(s.queue)

	var (
		c                *competition.Competition
		player1, player2 shared.PublicProfile
		snapshot         competition.Snapshot
		record           *competition.Record
		turn             roomTurn
	)
	if len(s.queue) >= 2 {
		player1, player2 = s.queue[0], s.queue[1]
		s.queue = s.queue[2:]
		delete(s.queued, player1.ID)
		delete(s.queued, player2.ID)

		c = competition.New(competition.NewRoomID(), player1.ID, player2.ID, s.now())
		s.active[c.ID] = c
		s.participants[player1.ID] = c.ID
		s.participants[player2.ID] = c.ID
		s.startTimer(c.ID, s.submissionWindow, s.abandon)

		snapshot = c.Snapshot()
		record = c.Record()
		turn = s.takeTurn(c.ID)
	}
	s.mu.Unlock()

	if c == nil {
		logger.Info().Int("position", position).Msg("User queued for competition")
		s.sendToUser(ctx, user.ID, outbound.Event{
			Type: outbound.EventTypeCompetitionQueued,
			Data: map[string]interface{}{"position": position},
		})
		return nil, nil
	}

	turn.wait()
	defer turn.release()

	logger.Info().
		Str("room_id", c.ID).
		Str("user1", player1.ID.String()).
		Str("user2", player2.ID.String()).
		Msg("Competition paired")

	if err := s.competitionRepo.Create(ctx, record); err != nil {
		logger.Error().Err(err).Str("room_id", c.ID).Msg("Failed to persist competition")
	}

	for _, pair := range [][2]shared.PublicProfile{{player1, player2}, {player2, player1}} {
		self, opponent := pair[0], pair[1]
		if err := s.broadcaster.JoinUserToRoom(ctx, self.ID, c.ID); err != nil {
			logger.Error().Err(err).Str("room_id", c.ID).Msg("Failed to join participant to room")
		}
		s.sendToUser(ctx, self.ID, outbound.Event{
			Type: outbound.EventTypeCompetitionStart,
			Room: c.ID,
			Data: map[string]interface{}{
				"room_id":  c.ID,
				"opponent": opponent,
			},
		})
	}

	return &snapshot, nil
}

// LeaveQueue removes a waiting user
func (s *CompetitionService) LeaveQueue(_ context.Context, userID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, waiting := s.queued[userID]; !waiting {
		return
	}
	delete(s.queued, userID)
	for i, p := range s.queue {
		if p.ID == userID {
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			break
		}
	}
	s.logger.Info().Str("user_id", userID.String()).Msg("User left competition queue")
}

// HandleDisconnect only drops queue membership; a running duel keeps going
func (s *CompetitionService) HandleDisconnect(ctx context.Context, userID uuid.UUID) {
	s.LeaveQueue(ctx, userID)
}

// QueueLength returns the number of waiting users
func (s *CompetitionService) QueueLength() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// SubmitMeme stores a participant's meme and opens voting once both are in
func (s *CompetitionService) SubmitMeme(ctx context.Context, req inbound.SubmitMemeRequest) (*competition.Snapshot, error) {
	if req.RoomID == "" {
		return nil, shared.ErrCompetitionIDRequired
	}
	if _, err := s.memeRepo.GetByID(ctx, req.MemeID); err != nil {
		return nil, err
	}

	logger := s.logger.With().
		Str("room_id", req.RoomID).
		Str("user_id", req.UserID.String()).
		Str("meme_id", req.MemeID.String()).
		Logger()

	s.mu.Lock()
	c, err := s.lookup(req.RoomID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	activated, err := c.Submit(req.UserID, req.MemeID, s.now())
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	slot := c.Slot(req.UserID)
	if activated {
		s.startTimer(c.ID, s.votingWindow, s.finalize)
	}
	snapshot := c.Snapshot()
	turn := s.takeTurn(c.ID)
	s.mu.Unlock()

	turn.wait()
	defer turn.release()

	logger.Info().Int("slot", slot).Bool("activated", activated).Msg("Competition meme submitted")

	if err := s.competitionRepo.UpdateSubmission(ctx, req.RoomID, slot, req.MemeID); err != nil {
		logger.Error().Err(err).Msg("Failed to persist submission")
	}

	if activated {
		if err := s.competitionRepo.UpdateStatus(ctx, req.RoomID, competition.StatusActive); err != nil {
			logger.Error().Err(err).Msg("Failed to persist competition status")
		}
		s.publish(ctx, req.RoomID, outbound.Event{
			Type: outbound.EventTypeCompetitionReady,
			Data: map[string]interface{}{
				"room_id":        req.RoomID,
				"meme1":          snapshot.Meme1,
				"meme2":          snapshot.Meme2,
				"voting_ends_at": s.now().Add(s.votingWindow),
			},
		})
	}

	return &snapshot, nil
}

// Vote records the voter's choice and broadcasts the recount
func (s *CompetitionService) Vote(ctx context.Context, req inbound.CompetitionVoteRequest) (*competition.Snapshot, error) {
	if req.RoomID == "" {
		return nil, shared.ErrCompetitionIDRequired
	}

	s.mu.Lock()
	c, err := s.lookup(req.RoomID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if err := c.CastVote(req.VoterID, req.MemeID); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	snapshot := c.Snapshot()
	turn := s.takeTurn(c.ID)
	s.mu.Unlock()

	turn.wait()
	defer turn.release()

	s.publish(ctx, req.RoomID, outbound.Event{
		Type: outbound.EventTypeCompetitionVoteUpdate,
		Data: map[string]interface{}{
			"room_id":     req.RoomID,
			"vote_counts": snapshot.VoteCounts,
			"seq":         snapshot.Seq,
		},
	})

	return &snapshot, nil
}

// JoinRoom subscribes a spectator connection and returns the current state
func (s *CompetitionService) JoinRoom(ctx context.Context, roomID string, clientID string) (*competition.Snapshot, error) {
	snapshot, err := s.GetCompetition(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if err := s.broadcaster.Subscribe(ctx, roomID, clientID); err != nil {
		return nil, err
	}
	return snapshot, nil
}

// GetCompetition returns the state of an unfinished competition
func (s *CompetitionService) GetCompetition(_ context.Context, roomID string) (*competition.Snapshot, error) {
	if roomID == "" {
		return nil, shared.ErrCompetitionIDRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.lookup(roomID)
	if err != nil {
		return nil, err
	}
	snapshot := c.Snapshot()
	return &snapshot, nil
}

// Finalize closes an active competition now instead of at the end of the voting window
func (s *CompetitionService) Finalize(ctx context.Context, roomID string) (*competition.Result, error) {
	if result, ok := s.finalizeCtx(ctx, roomID); ok {
		return result, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.lookup(roomID); err != nil {
		return nil, err
	}
	return nil, shared.ErrCompetitionNotActive
}

// Close stops every pending timer
func (s *CompetitionService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for roomID, timer := range s.timers {
		timer.Stop()
		delete(s.timers, roomID)
	}
}

func (s *CompetitionService) finalize(roomID string) {
	s.finalizeCtx(context.Background(), roomID)
}

// finalizeCtx is idempotent: only the first call on an active duel produces a result
func (s *CompetitionService) finalizeCtx(ctx context.Context, roomID string) (*competition.Result, bool) {
	s.mu.Lock()
	c, exists := s.active[roomID]
	if !exists {
		s.mu.Unlock()
		return nil, false
	}
	result, ok := c.Finish(s.now())
	if !ok {
		s.mu.Unlock()
		return nil, false
	}
	turn := s.takeTurn(roomID)
	s.retire(c)
	s.mu.Unlock()

	turn.wait()
	defer turn.release()

	s.logger.Info().
		Str("room_id", roomID).
		Str("winner_id", result.WinnerID.String()).
		Str("meme_id", result.WinnerMeme.String()).
		Msg("Competition finished")

	if err := s.competitionRepo.Finish(ctx, roomID, result.WinnerID, result.EndedAt); err != nil {
		s.logger.Error().Err(err).Str("room_id", roomID).Msg("Failed to persist competition result")
	}

	s.publish(ctx, roomID, outbound.Event{
		Type: outbound.EventTypeCompetitionResult,
		Data: map[string]interface{}{
			"room_id":     roomID,
			"winner_user": result.WinnerID,
			"winner_meme": result.WinnerMeme,
			"vote_counts": result.VoteCounts,
		},
	})

	return result, true
}

// abandon finishes a duel that never got both submissions, with no winner
func (s *CompetitionService) abandon(roomID string) {
	s.mu.Lock()
	c, exists := s.active[roomID]
	if !exists {
		s.mu.Unlock()
		return
	}
	result, ok := c.Abandon(s.now())
	if !ok {
		s.mu.Unlock()
		return
	}
	turn := s.takeTurn(roomID)
	s.retire(c)
	s.mu.Unlock()

	turn.wait()
	defer turn.release()

	ctx := context.Background()
	s.logger.Info().Str("room_id", roomID).Msg("Competition abandoned, submission window elapsed")

	if err := s.competitionRepo.Finish(ctx, roomID, nil, result.EndedAt); err != nil {
		s.logger.Error().Err(err).Str("room_id", roomID).Msg("Failed to persist abandoned competition")
	}

	s.publish(ctx, roomID, outbound.Event{
		Type: outbound.EventTypeCompetitionAbandoned,
		Data: map[string]interface{}{
			"room_id": roomID,
			"message": "Competition abandoned: both memes were not submitted in time",
		},
	})
}

// lookup must be called with mu held
func (s *CompetitionService) lookup(roomID string) (*competition.Competition, error) {
	if c, ok := s.active[roomID]; ok {
		return c, nil
	}
	if _, ok := s.finished[roomID]; ok {
		return nil, shared.ErrCompetitionFinished
	}
	return nil, shared.ErrCompetitionNotFound
}

// retire must be called with mu held
func (s *CompetitionService) retire(c *competition.Competition) {
	delete(s.active, c.ID)
	delete(s.turns, c.ID)
	if s.participants[c.User1] == c.ID {
		delete(s.participants, c.User1)
	}
	if s.participants[c.User2] == c.ID {
		delete(s.participants, c.User2)
	}
	if timer, ok := s.timers[c.ID]; ok {
		timer.Stop()
		delete(s.timers, c.ID)
	}

	now := s.now()
	s.finished[c.ID] = now
	for roomID, at := range s.finished {
		if now.Sub(at) > finishedRetention {
			delete(s.finished, roomID)
		}
	}
}

// roomTurn orders a room's persistence and broadcasts behind the ones queued before it
type roomTurn struct {
	prev <-chan struct{}
	done chan struct{}
}

func (t roomTurn) wait() {
	if t.prev != nil {
		<-t.prev
	}
}

func (t roomTurn) release() {
	close(t.done)
}

// takeTurn must be called with mu held, right after the state change it follows
func (s *CompetitionService) takeTurn(roomID string) roomTurn {
	t := roomTurn{prev: s.turns[roomID], done: make(chan struct{})}
	s.turns[roomID] = t.done
	return t
}

// startTimer replaces the room's pending timer; must be called with mu held
func (s *CompetitionService) startTimer(roomID string, after time.Duration, fire func(string)) {
	if previous, ok := s.timers[roomID]; ok {
		previous.Stop()
	}
	s.timers[roomID] = time.AfterFunc(after, func() { fire(roomID) })
}

func (s *CompetitionService) publish(ctx context.Context, roomID string, event outbound.Event) {
	if err := s.broadcaster.Publish(ctx, roomID, event); err != nil {
		s.logger.Error().Err(err).Str("room_id", roomID).Str("event_type", string(event.Type)).Msg("Failed to broadcast competition event")
	}
}

func (s *CompetitionService) sendToUser(ctx context.Context, userID uuid.UUID, event outbound.Event) {
	if err := s.broadcaster.SendToUser(ctx, userID, event); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID.String()).Str("event_type", string(event.Type)).Msg("Failed to send competition event")
	}
}
