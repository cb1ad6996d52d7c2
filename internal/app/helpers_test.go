package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"memebid-service/internal/adapters/memory"
	"memebid-service/internal/domain/meme"
	"memebid-service/internal/domain/shared"
	"memebid-service/internal/ports/outbound"
	"memebid-service/internal/ports/outbound/mocks"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordedEvent struct {
	target string // room, "all" or "user:<id>"
	event  outbound.Event
}

// eventLog captures everything sent through a mocked broadcaster
type eventLog struct {
	mu     sync.Mutex
	events []recordedEvent
	joins  map[uuid.UUID][]string
}

func (l *eventLog) add(target string, event outbound.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, recordedEvent{target: target, event: event})
}

func (l *eventLog) ofType(eventType outbound.EventType) []recordedEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []recordedEvent
	for _, e := range l.events {
		if e.event.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

// position returns the index of the first event of the given type, or -1
func (l *eventLog) position(eventType outbound.EventType) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, e := range l.events {
		if e.event.Type == eventType {
			return i
		}
	}
	return -1
}

func (l *eventLog) roomsJoined(userID uuid.UUID) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.joins[userID]...)
}

// recordingBroadcaster returns a mock that accepts any fan-out call and logs it
func recordingBroadcaster(t *testing.T) (*mocks.MockBroadcaster, *eventLog) {
	t.Helper()
	ctrl := gomock.NewController(t)
	b := mocks.NewMockBroadcaster(ctrl)
	log := &eventLog{joins: make(map[uuid.UUID][]string)}

	b.EXPECT().Publish(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes().
		DoAndReturn(func(_ context.Context, room string, event outbound.Event) error {
			log.add(room, event)
			return nil
		})
	b.EXPECT().PublishAll(gomock.Any(), gomock.Any()).AnyTimes().
		DoAndReturn(func(_ context.Context, event outbound.Event) error {
			log.add("all", event)
			return nil
		})
	b.EXPECT().SendToUser(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes().
		DoAndReturn(func(_ context.Context, userID uuid.UUID, event outbound.Event) error {
			log.add("user:"+userID.String(), event)
			return nil
		})
	b.EXPECT().JoinUserToRoom(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes().
		DoAndReturn(func(_ context.Context, userID uuid.UUID, room string) error {
			log.mu.Lock()
			defer log.mu.Unlock()
			log.joins[userID] = append(log.joins[userID], room)
			return nil
		})
	b.EXPECT().Subscribe(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes().Return(nil)
	b.EXPECT().IsSubscribed(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes().Return(false)

	return b, log
}

func seedUser(store *memory.Store, name string, balance int64) *shared.User {
	u := shared.User{ID: uuid.New(), Username: name, WalletBalance: decimal.NewFromInt(balance)}
	store.AddUser(u)
	return &u
}

func seedMeme(store *memory.Store, owner *shared.User, title string) meme.Meme {
	m := meme.Meme{ID: uuid.New(), Title: title, ImageURL: "https://img/" + title, CreatorID: owner.ID, OwnerID: owner.ID}
	store.AddMeme(m)
	return m
}

func dec(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}
