package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"memebid-service/internal/adapters/auth"
	"memebid-service/internal/adapters/broadcaster"
	"memebid-service/internal/adapters/memory"
	"memebid-service/internal/app"
	"memebid-service/internal/domain/auction"
	"memebid-service/internal/domain/meme"
	"memebid-service/internal/domain/shared"
	"memebid-service/internal/ports/inbound"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	store         *memory.Store
	authenticator *auth.Authenticator
	auctions      *app.AuctionService
	competitions  *app.CompetitionService
	handler       *WsHandler
	server        *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zerolog.Nop()
	store := memory.NewStore()
	repos := store.Repositories()
	hub := broadcaster.NewHub(broadcaster.HubParams{Logger: logger})

	authenticator := auth.NewAuthenticator(auth.AuthenticatorParams{
		Secret:   "ws-secret",
		UserRepo: repos.Users,
		Logger:   logger,
	})
	auctions := app.NewAuctionService(app.AuctionServiceParams{
		AuctionRepo: repos.Auctions,
		MemeRepo:    repos.Memes,
		UserRepo:    repos.Users,
		Broadcaster: hub,
		Logger:      logger,
	})
	bids := app.NewBidService(app.BidServiceParams{
		BidRepo:     repos.Bids,
		AuctionRepo: repos.Auctions,
		UserRepo:    repos.Users,
		Broadcaster: hub,
		Logger:      logger,
	})
	votes := app.NewVoteService(app.VoteServiceParams{
		VoteRepo:    repos.Votes,
		Broadcaster: hub,
		Logger:      logger,
	})
	competitions := app.NewCompetitionService(app.CompetitionServiceParams{
		MemeRepo:         repos.Memes,
		CompetitionRepo:  repos.Competitions,
		Broadcaster:      hub,
		VotingWindow:     time.Hour,
		SubmissionWindow: time.Hour,
		Logger:           logger,
	})
	t.Cleanup(competitions.Close)

	handler := NewHandler(WsHandlerParams{
		Authenticator:      authenticator,
		Registry:           hub,
		Broadcaster:        hub,
		AuctionService:     auctions,
		BidService:         bids,
		VoteService:        votes,
		CompetitionService: competitions,
		Logger:             logger,
	})

	server := httptest.NewServer(handler)
	t.Cleanup(func() {
		handler.CloseAll()
		server.Close()
	})

	return &testEnv{
		store:         store,
		authenticator: authenticator,
		auctions:      auctions,
		competitions:  competitions,
		handler:       handler,
		server:        server,
	}
}

func (e *testEnv) user(t *testing.T, name string, balance int64) *shared.User {
	t.Helper()
	u := shared.User{ID: uuid.New(), Username: name, WalletBalance: decimal.NewFromInt(balance)}
	e.store.AddUser(u)
	return &u
}

func (e *testEnv) dial(t *testing.T, user *shared.User) *websocket.Conn {
	t.Helper()
	token, err := e.authenticator.IssueToken(user.ID, time.Hour)
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(e.server.URL, "http") + "?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msgType MessageType, data interface{}) {
	t.Helper()
	frame := map[string]interface{}{"type": msgType}
	if data != nil {
		frame["data"] = data
	}
	require.NoError(t, conn.WriteJSON(frame))
}

// readUntil skips unrelated broadcasts until a message of msgType arrives
func readUntil(t *testing.T, conn *websocket.Conn, msgType MessageType) ServerMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var msg ServerMessage
		require.NoError(t, conn.ReadJSON(&msg), "waiting for %s", msgType)
		if msg.Type == msgType {
			return msg
		}
	}
}

func TestRejectsUnauthenticatedConnection(t *testing.T) {
	env := newTestEnv(t)
	url := "ws" + strings.TrimPrefix(env.server.URL, "http")

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestPingAndUnknownType(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t, env.user(t, "alice", 0))

	send(t, conn, MessageTypePing, nil)
	readUntil(t, conn, MessageTypePong)

	send(t, conn, "dance", nil)
	msg := readUntil(t, conn, MessageTypeError)
	require.NotNil(t, msg.Error)
	assert.Equal(t, shared.ErrUnknownMessageType.Error(), *msg.Error)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	msg = readUntil(t, conn, MessageTypeError)
	assert.Equal(t, shared.ErrInvalidRequest.Error(), *msg.Error)
}

func TestAuctionRoomAndBids(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	seller := env.user(t, "seller", 0)
	watcher := env.user(t, "watcher", 0)
	bidder := env.user(t, "bidder", 100)

	m := meme.Meme{ID: uuid.New(), Title: "doge", CreatorID: seller.ID, OwnerID: seller.ID}
	env.store.AddMeme(m)
	a, err := env.auctions.CreateAuction(ctx, inbound.CreateAuctionRequest{
		MemeID:      m.ID,
		SellerID:    seller.ID,
		StartingBid: decimal.NewFromInt(10),
		Duration:    30,
	})
	require.NoError(t, err)
	room := auction.Room(a.ID)

	watcherConn := env.dial(t, watcher)
	send(t, watcherConn, MessageTypeJoinAuction, map[string]string{"auctionId": a.ID.String()})
	joined := readUntil(t, watcherConn, MessageTypeRoomJoined)
	assert.Equal(t, room, joined.Room)

	bidderConn := env.dial(t, bidder)
	send(t, bidderConn, MessageTypePlaceBid, map[string]interface{}{"auctionId": a.ID.String(), "bidAmount": 5})
	bidErr := readUntil(t, bidderConn, MessageTypeBidError)
	assert.Equal(t, shared.ErrBidTooLow.Error(), *bidErr.Error)

	send(t, bidderConn, MessageTypePlaceBid, map[string]interface{}{"auctionId": a.ID.String(), "bidAmount": 15})
	seen := readUntil(t, watcherConn, "new_bid")
	assert.Equal(t, room, seen.Room)
	assert.Equal(t, "bidder placed a bid of $15.00", seen.Data["message"])

	// the bidder was subscribed to the room when the bid was accepted
	readUntil(t, bidderConn, "new_bid")

	send(t, watcherConn, MessageTypeLeaveAuction, map[string]string{"auctionId": a.ID.String()})
	left := readUntil(t, watcherConn, MessageTypeRoomLeft)
	assert.Equal(t, room, left.Room)

	send(t, watcherConn, MessageTypeJoinAuction, map[string]string{"auctionId": uuid.NewString()})
	notFound := readUntil(t, watcherConn, MessageTypeError)
	assert.Equal(t, shared.ErrAuctionNotFound.Error(), *notFound.Error)
}

func TestVoteMeme(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner", 0)
	voter := env.user(t, "voter", 0)
	m := meme.Meme{ID: uuid.New(), Title: "doge", CreatorID: owner.ID, OwnerID: owner.ID}
	env.store.AddMeme(m)

	conn := env.dial(t, voter)
	vote := map[string]string{"memeId": m.ID.String(), "voteType": "upvote"}

	send(t, conn, MessageTypeVoteMeme, vote)
	success := readUntil(t, conn, "vote_success")
	assert.Equal(t, "Successfully upvoted meme", success.Data["message"])
	assert.EqualValues(t, 1, success.Data["upvotes"])

	send(t, conn, MessageTypeVoteMeme, vote)
	already := readUntil(t, conn, MessageTypeVoteAlreadyRegistered)
	assert.Equal(t, "upvote", already.Data["vote_type"])

	send(t, conn, MessageTypeVoteMeme, map[string]string{"memeId": m.ID.String(), "voteType": "meh"})
	voteErr := readUntil(t, conn, MessageTypeVoteError)
	assert.Equal(t, shared.ErrInvalidVoteType.Error(), *voteErr.Error)
}

func TestCompetitionFlow(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user(t, "alice", 0)
	bob := env.user(t, "bob", 0)
	aliceMeme := meme.Meme{ID: uuid.New(), Title: "a", CreatorID: alice.ID, OwnerID: alice.ID}
	bobMeme := meme.Meme{ID: uuid.New(), Title: "b", CreatorID: bob.ID, OwnerID: bob.ID}
	env.store.AddMeme(aliceMeme)
	env.store.AddMeme(bobMeme)

	aliceConn := env.dial(t, alice)
	bobConn := env.dial(t, bob)

	send(t, aliceConn, MessageTypeJoinCompetitionQueue, nil)
	queued := readUntil(t, aliceConn, "competition_queued")
	assert.EqualValues(t, 1, queued.Data["position"])

	send(t, bobConn, MessageTypeJoinCompetitionQueue, nil)
	start := readUntil(t, aliceConn, "competition_start")
	roomID, _ := start.Data["room_id"].(string)
	require.NotEmpty(t, roomID)
	readUntil(t, bobConn, "competition_start")

	send(t, aliceConn, MessageTypeSubmitCompetitionMeme, map[string]string{"roomId": roomID, "memeId": aliceMeme.ID.String()})
	send(t, bobConn, MessageTypeSubmitCompetitionMeme, map[string]string{"roomId": roomID, "memeId": bobMeme.ID.String()})
	ready := readUntil(t, aliceConn, "competition_ready")
	assert.Equal(t, roomID, ready.Data["room_id"])

	spectator := env.dial(t, env.user(t, "spectator", 0))
	send(t, spectator, MessageTypeJoinCompetitionRoom, map[string]string{"roomId": roomID})
	joined := readUntil(t, spectator, MessageTypeRoomJoined)
	assert.Equal(t, roomID, joined.Room)

	send(t, spectator, MessageTypeVoteCompetitionMeme, map[string]string{"roomId": roomID, "memeId": bobMeme.ID.String()})
	update := readUntil(t, bobConn, "competition_vote_update")
	assert.EqualValues(t, 1, update.Data["seq"])

	_, err := env.competitions.Finalize(context.Background(), roomID)
	require.NoError(t, err)
	result := readUntil(t, spectator, "competition_result")
	assert.Equal(t, bob.ID.String(), result.Data["winner_user"])

	send(t, spectator, MessageTypeVoteCompetitionMeme, map[string]string{"roomId": roomID, "memeId": bobMeme.ID.String()})
	compErr := readUntil(t, spectator, MessageTypeCompetitionError)
	assert.Equal(t, shared.ErrCompetitionFinished.Error(), *compErr.Error)
}
