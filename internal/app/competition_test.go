package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"memebid-service/internal/adapters/memory"
	"memebid-service/internal/domain/competition"
	"memebid-service/internal/domain/shared"
	"memebid-service/internal/ports/inbound"
	"memebid-service/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type competitionEnv struct {
	store   *memory.Store
	events  *eventLog
	service *CompetitionService
}

func newCompetitionEnv(t *testing.T, submissionWindow, votingWindow time.Duration) *competitionEnv {
	t.Helper()
	return newCompetitionEnvWith(t, submissionWindow, votingWindow, nil)
}

// newCompetitionEnvWith lets a test wrap the competition repository
func newCompetitionEnvWith(t *testing.T, submissionWindow, votingWindow time.Duration, wrap func(outbound.CompetitionRepository) outbound.CompetitionRepository) *competitionEnv {
	t.Helper()
	store := memory.NewStore()
	repos := store.Repositories()
	broadcaster, events := recordingBroadcaster(t)

	competitions := repos.Competitions
	if wrap != nil {
		competitions = wrap(competitions)
	}

	service := NewCompetitionService(CompetitionServiceParams{
		MemeRepo:         repos.Memes,
		CompetitionRepo:  competitions,
		Broadcaster:      broadcaster,
		SubmissionWindow: submissionWindow,
		VotingWindow:     votingWindow,
		Logger:           zerolog.Nop(),
	})
	t.Cleanup(service.Close)

	return &competitionEnv{store: store, events: events, service: service}
}

// pair queues two fresh users and returns them with their room
func (e *competitionEnv) pair(t *testing.T) (*shared.User, *shared.User, *competition.Snapshot) {
	t.Helper()
	ctx := context.Background()
	u1 := seedUser(e.store, "player-"+uuid.NewString()[:6], 0)
	u2 := seedUser(e.store, "player-"+uuid.NewString()[:6], 0)

	snapshot, err := e.service.JoinQueue(ctx, u1)
	require.NoError(t, err)
	require.Nil(t, snapshot)

	snapshot, err = e.service.JoinQueue(ctx, u2)
	require.NoError(t, err)
	require.NotNil(t, snapshot)
	return u1, u2, snapshot
}

func TestJoinQueue_PairsTwoUsers(t *testing.T) {
	env := newCompetitionEnv(t, time.Hour, time.Hour)
	u1, u2, snapshot := env.pair(t)

	assert.Equal(t, u1.ID, snapshot.User1)
	assert.Equal(t, u2.ID, snapshot.User2)
	assert.Equal(t, competition.StatusWaiting, snapshot.Status)
	assert.Equal(t, 0, env.service.QueueLength())

	queued := env.events.ofType(outbound.EventTypeCompetitionQueued)
	require.Len(t, queued, 1)
	assert.Equal(t, "user:"+u1.ID.String(), queued[0].target)
	assert.Equal(t, 1, queued[0].event.Data["position"])

	starts := env.events.ofType(outbound.EventTypeCompetitionStart)
	require.Len(t, starts, 2)
	opponents := map[string]uuid.UUID{}
	for _, start := range starts {
		assert.Equal(t, snapshot.RoomID, start.event.Data["room_id"])
		opponents[start.target] = start.event.Data["opponent"].(shared.PublicProfile).ID
	}
	assert.Equal(t, u2.ID, opponents["user:"+u1.ID.String()])
	assert.Equal(t, u1.ID, opponents["user:"+u2.ID.String()])

	assert.Equal(t, []string{snapshot.RoomID}, env.events.roomsJoined(u1.ID))
	assert.Equal(t, []string{snapshot.RoomID}, env.events.roomsJoined(u2.ID))

	record, ok := env.store.Competition(snapshot.RoomID)
	require.True(t, ok)
	assert.Equal(t, competition.StatusWaiting, record.Status)
}

func TestJoinQueue_Membership(t *testing.T) {
	ctx := context.Background()
	env := newCompetitionEnv(t, time.Hour, time.Hour)
	waiting := seedUser(env.store, "waiting", 0)

	_, err := env.service.JoinQueue(ctx, waiting)
	require.NoError(t, err)
	_, err = env.service.JoinQueue(ctx, waiting)
	require.NoError(t, err)
	assert.Equal(t, 1, env.service.QueueLength())

	env.service.LeaveQueue(ctx, waiting.ID)
	assert.Equal(t, 0, env.service.QueueLength())
	env.service.HandleDisconnect(ctx, waiting.ID)

	u1, _, _ := env.pair(t)
	_, err = env.service.JoinQueue(ctx, u1)
	assert.ErrorIs(t, err, shared.ErrAlreadyInCompetition)

	_, err = env.service.JoinQueue(ctx, nil)
	assert.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestCompetition_SubmitVoteFinalize(t *testing.T) {
	ctx := context.Background()
	env := newCompetitionEnv(t, time.Hour, time.Hour)
	u1, u2, snapshot := env.pair(t)
	room := snapshot.RoomID
	m1 := seedMeme(env.store, u1, "first")
	m2 := seedMeme(env.store, u2, "second")
	spectator := uuid.New()

	_, err := env.service.Vote(ctx, inbound.CompetitionVoteRequest{RoomID: room, VoterID: spectator, MemeID: m1.ID})
	assert.ErrorIs(t, err, shared.ErrCompetitionNotActive)

	_, err = env.service.SubmitMeme(ctx, inbound.SubmitMemeRequest{RoomID: room, UserID: spectator, MemeID: m1.ID})
	assert.ErrorIs(t, err, shared.ErrNotParticipant)

	_, err = env.service.SubmitMeme(ctx, inbound.SubmitMemeRequest{RoomID: room, UserID: u1.ID, MemeID: uuid.New()})
	assert.ErrorIs(t, err, shared.ErrMemeNotFound)

	state, err := env.service.SubmitMeme(ctx, inbound.SubmitMemeRequest{RoomID: room, UserID: u1.ID, MemeID: m1.ID})
	require.NoError(t, err)
	assert.Equal(t, competition.StatusWaiting, state.Status)
	assert.Empty(t, env.events.ofType(outbound.EventTypeCompetitionReady))

	state, err = env.service.SubmitMeme(ctx, inbound.SubmitMemeRequest{RoomID: room, UserID: u2.ID, MemeID: m2.ID})
	require.NoError(t, err)
	assert.Equal(t, competition.StatusActive, state.Status)

	ready := env.events.ofType(outbound.EventTypeCompetitionReady)
	require.Len(t, ready, 1)
	assert.Equal(t, room, ready[0].target)

	_, err = env.service.Vote(ctx, inbound.CompetitionVoteRequest{RoomID: room, VoterID: spectator, MemeID: m1.ID})
	require.NoError(t, err)
	state, err = env.service.Vote(ctx, inbound.CompetitionVoteRequest{RoomID: room, VoterID: spectator, MemeID: m2.ID})
	require.NoError(t, err)
	assert.Equal(t, map[uuid.UUID]int{m1.ID: 0, m2.ID: 1}, state.VoteCounts)
	assert.Equal(t, int64(2), state.Seq)

	updates := env.events.ofType(outbound.EventTypeCompetitionVoteUpdate)
	require.Len(t, updates, 2)
	assert.Equal(t, int64(2), updates[1].event.Data["seq"])

	result, err := env.service.Finalize(ctx, room)
	require.NoError(t, err)
	assert.Equal(t, u2.ID, *result.WinnerID)
	assert.Equal(t, m2.ID, *result.WinnerMeme)

	_, err = env.service.Finalize(ctx, room)
	assert.ErrorIs(t, err, shared.ErrCompetitionFinished)
	_, err = env.service.Vote(ctx, inbound.CompetitionVoteRequest{RoomID: room, VoterID: spectator, MemeID: m1.ID})
	assert.ErrorIs(t, err, shared.ErrCompetitionFinished)
	assert.Len(t, env.events.ofType(outbound.EventTypeCompetitionResult), 1)

	record, ok := env.store.Competition(room)
	require.True(t, ok)
	assert.Equal(t, competition.StatusFinished, record.Status)
	assert.Equal(t, u2.ID, *record.WinnerID)

	// both players are free to queue again
	_, err = env.service.JoinQueue(ctx, u1)
	assert.NoError(t, err)
}

func TestCompetition_TieGoesToFirstSubmitter(t *testing.T) {
	ctx := context.Background()
	env := newCompetitionEnv(t, time.Hour, time.Hour)
	u1, u2, snapshot := env.pair(t)
	m1 := seedMeme(env.store, u1, "first")
	m2 := seedMeme(env.store, u2, "second")

	_, err := env.service.SubmitMeme(ctx, inbound.SubmitMemeRequest{RoomID: snapshot.RoomID, UserID: u2.ID, MemeID: m2.ID})
	require.NoError(t, err)
	_, err = env.service.SubmitMeme(ctx, inbound.SubmitMemeRequest{RoomID: snapshot.RoomID, UserID: u1.ID, MemeID: m1.ID})
	require.NoError(t, err)

	result, err := env.service.Finalize(ctx, snapshot.RoomID)
	require.NoError(t, err)
	assert.Equal(t, u1.ID, *result.WinnerID)
}

func TestCompetition_VotingWindowFinalizes(t *testing.T) {
	ctx := context.Background()
	env := newCompetitionEnv(t, time.Hour, 20*time.Millisecond)
	u1, u2, snapshot := env.pair(t)
	m1 := seedMeme(env.store, u1, "first")
	m2 := seedMeme(env.store, u2, "second")

	_, err := env.service.SubmitMeme(ctx, inbound.SubmitMemeRequest{RoomID: snapshot.RoomID, UserID: u1.ID, MemeID: m1.ID})
	require.NoError(t, err)
	_, err = env.service.SubmitMeme(ctx, inbound.SubmitMemeRequest{RoomID: snapshot.RoomID, UserID: u2.ID, MemeID: m2.ID})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(env.events.ofType(outbound.EventTypeCompetitionResult)) == 1
	}, time.Second, 5*time.Millisecond)

	_, err = env.service.GetCompetition(ctx, snapshot.RoomID)
	assert.ErrorIs(t, err, shared.ErrCompetitionFinished)
}

func TestCompetition_AbandonedWithoutSubmissions(t *testing.T) {
	ctx := context.Background()
	env := newCompetitionEnv(t, 20*time.Millisecond, time.Hour)
	u1, _, snapshot := env.pair(t)

	require.Eventually(t, func() bool {
		return len(env.events.ofType(outbound.EventTypeCompetitionAbandoned)) == 1
	}, time.Second, 5*time.Millisecond)

	assert.Empty(t, env.events.ofType(outbound.EventTypeCompetitionResult))

	record, ok := env.store.Competition(snapshot.RoomID)
	require.True(t, ok)
	assert.Equal(t, competition.StatusFinished, record.Status)
	assert.Nil(t, record.WinnerID)

	_, err := env.service.JoinQueue(ctx, u1)
	assert.NoError(t, err)
}

func TestCompetition_UnknownRoom(t *testing.T) {
	ctx := context.Background()
	env := newCompetitionEnv(t, time.Hour, time.Hour)

	_, err := env.service.GetCompetition(ctx, "")
	assert.ErrorIs(t, err, shared.ErrCompetitionIDRequired)

	_, err = env.service.JoinRoom(ctx, "competition_missing", "client-1")
	assert.ErrorIs(t, err, shared.ErrCompetitionNotFound)

	_, err = env.service.Finalize(ctx, "competition_missing")
	assert.ErrorIs(t, err, shared.ErrCompetitionNotFound)

	_, _, snapshot := env.pair(t)
	_, err = env.service.Finalize(ctx, snapshot.RoomID)
	assert.ErrorIs(t, err, shared.ErrCompetitionNotActive)

	state, err := env.service.JoinRoom(ctx, snapshot.RoomID, "client-1")
	require.NoError(t, err)
	assert.Equal(t, snapshot.RoomID, state.RoomID)
}

func TestJoinQueue_ConcurrentJoinsPairEachUserOnce(t *testing.T) {
	ctx := context.Background()
	env := newCompetitionEnv(t, time.Hour, time.Hour)

	const players = 101
	users := make([]*shared.User, players)
	for i := range users {
		users[i] = seedUser(env.store, fmt.Sprintf("player-%d", i), 0)
	}

	var wg sync.WaitGroup
	for _, u := range users {
		wg.Add(1)
		go func(u *shared.User) {
			defer wg.Done()
			_, err := env.service.JoinQueue(ctx, u)
			assert.NoError(t, err)
		}(u)
	}
	wg.Wait()

	assert.Equal(t, 1, env.service.QueueLength())

	rooms := map[string][]string{}
	starts := map[string]int{}
	for _, start := range env.events.ofType(outbound.EventTypeCompetitionStart) {
		roomID := start.event.Data["room_id"].(string)
		rooms[roomID] = append(rooms[roomID], start.target)
		starts[start.target]++
	}

	assert.Len(t, rooms, players/2)
	for roomID, members := range rooms {
		require.Len(t, members, 2, roomID)
		assert.NotEqual(t, members[0], members[1], roomID)
	}
	assert.Len(t, starts, players-1)
	for target, n := range starts {
		assert.Equal(t, 1, n, target)
	}
}

func TestCompetition_TimerAndManualFinalizeProduceOneResult(t *testing.T) {
	ctx := context.Background()
	env := newCompetitionEnv(t, time.Hour, time.Millisecond)
	u1, u2, snapshot := env.pair(t)
	room := snapshot.RoomID
	m1 := seedMeme(env.store, u1, "first")
	m2 := seedMeme(env.store, u2, "second")

	_, err := env.service.SubmitMeme(ctx, inbound.SubmitMemeRequest{RoomID: room, UserID: u1.ID, MemeID: m1.ID})
	require.NoError(t, err)
	_, err = env.service.SubmitMeme(ctx, inbound.SubmitMemeRequest{RoomID: room, UserID: u2.ID, MemeID: m2.ID})
	require.NoError(t, err)

	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := env.service.Finalize(ctx, room); err != nil {
				assert.ErrorIs(t, err, shared.ErrCompetitionFinished)
				return
			}
			wins.Add(1)
		}()
	}
	wg.Wait()

	require.Eventually(t, func() bool {
		return len(env.events.ofType(outbound.EventTypeCompetitionResult)) == 1
	}, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	assert.Len(t, env.events.ofType(outbound.EventTypeCompetitionResult), 1)
	assert.LessOrEqual(t, wins.Load(), int32(1))

	record, ok := env.store.Competition(room)
	require.True(t, ok)
	assert.Equal(t, competition.StatusFinished, record.Status)
}

// gatedCompetitions holds UpdateStatus until release is closed
type gatedCompetitions struct {
	outbound.CompetitionRepository
	entered chan struct{}
	release chan struct{}
}

func (g *gatedCompetitions) UpdateStatus(ctx context.Context, id string, status competition.Status) error {
	close(g.entered)
	<-g.release
	return g.CompetitionRepository.UpdateStatus(ctx, id, status)
}

func TestCompetition_FinalizeDuringActivationKeepsMirrorFinished(t *testing.T) {
	ctx := context.Background()
	gate := &gatedCompetitions{entered: make(chan struct{}), release: make(chan struct{})}
	env := newCompetitionEnvWith(t, time.Hour, time.Hour, func(repo outbound.CompetitionRepository) outbound.CompetitionRepository {
		gate.CompetitionRepository = repo
		return gate
	})
	u1, u2, snapshot := env.pair(t)
	room := snapshot.RoomID
	m1 := seedMeme(env.store, u1, "first")
	m2 := seedMeme(env.store, u2, "second")

	_, err := env.service.SubmitMeme(ctx, inbound.SubmitMemeRequest{RoomID: room, UserID: u1.ID, MemeID: m1.ID})
	require.NoError(t, err)

	submitted := make(chan error, 1)
	go func() {
		_, err := env.service.SubmitMeme(ctx, inbound.SubmitMemeRequest{RoomID: room, UserID: u2.ID, MemeID: m2.ID})
		submitted <- err
	}()
	select {
	case <-gate.entered:
	case <-time.After(time.Second):
		t.Fatal("activation was never persisted")
	}

	finalized := make(chan error, 1)
	go func() {
		_, err := env.service.Finalize(ctx, room)
		finalized <- err
	}()
	require.Eventually(t, func() bool {
		_, err := env.service.GetCompetition(ctx, room)
		return errors.Is(err, shared.ErrCompetitionFinished)
	}, time.Second, time.Millisecond)

	close(gate.release)
	require.NoError(t, <-submitted)
	require.NoError(t, <-finalized)

	record, ok := env.store.Competition(room)
	require.True(t, ok)
	assert.Equal(t, competition.StatusFinished, record.Status)
	require.NotNil(t, record.WinnerID)
	assert.NotNil(t, record.EndedAt)

	ready := env.events.position(outbound.EventTypeCompetitionReady)
	result := env.events.position(outbound.EventTypeCompetitionResult)
	require.NotEqual(t, -1, ready)
	require.NotEqual(t, -1, result)
	assert.Less(t, ready, result)
}
