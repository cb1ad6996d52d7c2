package rest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"memebid-service/internal/adapters/auth"
	"memebid-service/internal/adapters/broadcaster"
	"memebid-service/internal/adapters/memory"
	"memebid-service/internal/app"
	"memebid-service/internal/domain/meme"
	"memebid-service/internal/domain/shared"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAdminKey = "admin-key"

type apiEnv struct {
	store         *memory.Store
	authenticator *auth.Authenticator
	router        chi.Router
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	logger := zerolog.Nop()
	store := memory.NewStore()
	repos := store.Repositories()
	hub := broadcaster.NewHub(broadcaster.HubParams{Logger: logger})

	authenticator := auth.NewAuthenticator(auth.AuthenticatorParams{
		Secret:   "rest-secret",
		UserRepo: repos.Users,
		Logger:   logger,
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
	memes := app.NewMemeService(app.MemeServiceParams{MemeRepo: repos.Memes, UserRepo: repos.Users, Logger: logger})

	handler := NewHandler(HandlerParams{
		AuctionService: app.NewAuctionService(app.AuctionServiceParams{
			AuctionRepo: repos.Auctions,
			MemeRepo:    repos.Memes,
			UserRepo:    repos.Users,
			Broadcaster: hub,
			Logger:      logger,
		}),
		BidService: app.NewBidService(app.BidServiceParams{
			BidRepo:     repos.Bids,
			AuctionRepo: repos.Auctions,
			UserRepo:    repos.Users,
			Broadcaster: hub,
			Logger:      logger,
		}),
		VoteService: app.NewVoteService(app.VoteServiceParams{
			VoteRepo:    repos.Votes,
			Broadcaster: hub,
			Logger:      logger,
		}),
		CompetitionService: competitions,
		MemeService:        memes,
		UserService:        memes,
		Logger:             logger,
	})

	return &apiEnv{
		store:         store,
		authenticator: authenticator,
		router: NewRouter(RouterParams{
			Handler:        handler,
			Authenticator:  authenticator,
			AdminKey:       testAdminKey,
			AllowedOrigins: []string{"*"},
			Logger:         logger,
		}),
	}
}

func (e *apiEnv) user(t *testing.T, name string, balance int64) *shared.User {
	t.Helper()
	u := shared.User{ID: uuid.New(), Username: name, WalletBalance: decimal.NewFromInt(balance)}
	e.store.AddUser(u)
	return &u
}

type response struct {
	StatusCode int             `json:"statusCode"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Success    bool            `json:"success"`
}

// do sends a request as user (nil for anonymous) and decodes the envelope
func (e *apiEnv) do(t *testing.T, method, path string, user *shared.User, body interface{}, headers ...string) (int, response) {
	t.Helper()
	var reader bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&reader).Encode(body))
	}
	req := httptest.NewRequest(method, path, &reader)
	if user != nil {
		token, err := e.authenticator.IssueToken(user.ID, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	var resp response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	assert.Equal(t, rec.Code, resp.StatusCode)
	return rec.Code, resp
}

func TestHealth(t *testing.T) {
	env := newAPIEnv(t)
	status, resp := env.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, resp.Success)
}

func TestAuctionEndpoints(t *testing.T) {
	env := newAPIEnv(t)
	seller := env.user(t, "seller", 0)
	bidder := env.user(t, "bidder", 100)
	m := meme.Meme{ID: uuid.New(), Title: "doge", CreatorID: seller.ID, OwnerID: seller.ID}
	env.store.AddMeme(m)

	createBody := map[string]interface{}{"memeId": m.ID, "startingBid": 10, "duration": 30}

	status, resp := env.do(t, http.MethodPost, "/api/auctions", nil, createBody)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.False(t, resp.Success)

	status, resp = env.do(t, http.MethodPost, "/api/auctions", seller, createBody)
	require.Equal(t, http.StatusCreated, status, resp.Message)
	var created struct {
		Auction struct {
			ID uuid.UUID `json:"id"`
		} `json:"auction"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &created))
	auctionID := created.Auction.ID

	status, _ = env.do(t, http.MethodPost, "/api/auctions", seller, createBody)
	assert.Equal(t, http.StatusConflict, status)

	status, resp = env.do(t, http.MethodGet, "/api/auctions/active?page=1&limit=5", nil, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(resp.Data), auctionID.String())

	status, _ = env.do(t, http.MethodGet, "/api/auctions/not-a-uuid", nil, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = env.do(t, http.MethodGet, "/api/auctions/"+uuid.NewString(), nil, nil)
	assert.Equal(t, http.StatusNotFound, status)

	bidPath := fmt.Sprintf("/api/auctions/%s/bid", auctionID)
	status, resp = env.do(t, http.MethodPost, bidPath, bidder, map[string]interface{}{"bidAmount": 10})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, shared.ErrBidTooLow.Error(), resp.Message)

	status, _ = env.do(t, http.MethodPost, bidPath, bidder, map[string]interface{}{"bidAmount": 500})
	assert.Equal(t, http.StatusPaymentRequired, status)

	status, _ = env.do(t, http.MethodPost, bidPath, seller, map[string]interface{}{"bidAmount": 20})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = env.do(t, http.MethodPost, bidPath, bidder, map[string]interface{}{"bidAmount": "25.50"})
	assert.Equal(t, http.StatusOK, status)

	status, resp = env.do(t, http.MethodGet, fmt.Sprintf("/api/auctions/%s/bids", auctionID), nil, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(resp.Data), "25.5")

	status, resp = env.do(t, http.MethodGet, "/api/auctions/user/my-bids", bidder, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(resp.Data), auctionID.String())

	endPath := fmt.Sprintf("/api/auctions/%s/end", auctionID)
	status, _ = env.do(t, http.MethodPost, endPath, bidder, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = env.do(t, http.MethodPost, endPath, seller, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = env.do(t, http.MethodPost, endPath, seller, nil)
	assert.Equal(t, http.StatusConflict, status)

	stored, _ := env.store.Meme(m.ID)
	assert.Equal(t, bidder.ID, stored.OwnerID)
	b, _ := env.store.User(bidder.ID)
	assert.True(t, b.WalletBalance.Equal(decimal.RequireFromString("74.5")))

	status, resp = env.do(t, http.MethodGet, "/api/auctions/user/my-auctions?status=ended", seller, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(resp.Data), auctionID.String())

	status, _ = env.do(t, http.MethodGet, "/api/auctions/user/my-auctions?status=paused", seller, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAdminEndpoints(t *testing.T) {
	env := newAPIEnv(t)

	status, _ := env.do(t, http.MethodPost, "/api/auctions/process-expired", nil, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, resp := env.do(t, http.MethodPost, "/api/auctions/process-expired", nil, nil, AdminKeyHeader, testAdminKey)
	require.Equal(t, http.StatusOK, status)
	var result struct {
		ProcessedCount int `json:"processedCount"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &result))
	assert.Equal(t, 0, result.ProcessedCount)

	status, _ = env.do(t, http.MethodPost, "/api/competitions/competition_x/finalize", nil, nil, AdminKeyHeader, "wrong")
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = env.do(t, http.MethodPost, "/api/competitions/competition_x/finalize", nil, nil, AdminKeyHeader, testAdminKey)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = env.do(t, http.MethodGet, "/api/competitions/competition_x", nil, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestVoteEndpoint(t *testing.T) {
	env := newAPIEnv(t)
	owner := env.user(t, "owner", 0)
	voter := env.user(t, "voter", 0)
	m := meme.Meme{ID: uuid.New(), Title: "doge", CreatorID: owner.ID, OwnerID: owner.ID}
	env.store.AddMeme(m)
	path := fmt.Sprintf("/api/memes/%s/vote", m.ID)

	status, resp := env.do(t, http.MethodPost, path, voter, map[string]string{"voteType": "upvote"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Vote registered successfully", resp.Message)

	status, resp = env.do(t, http.MethodPost, path, voter, map[string]string{"voteType": "upvote"})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Vote already registered", resp.Message)

	status, _ = env.do(t, http.MethodPost, path, voter, map[string]string{"voteType": "sideways"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = env.do(t, http.MethodPost, path, nil, map[string]string{"voteType": "upvote"})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestMemeAndProfileEndpoints(t *testing.T) {
	env := newAPIEnv(t)
	alice := env.user(t, "alice", 75)
	bob := env.user(t, "bob", 0)
	now := time.Now()
	old := meme.Meme{ID: uuid.New(), Title: "old", CreatorID: alice.ID, OwnerID: bob.ID, Upvotes: 8, CreatedAt: now.Add(-time.Hour)}
	recent := meme.Meme{ID: uuid.New(), Title: "recent", CreatorID: bob.ID, OwnerID: bob.ID, Upvotes: 1, CreatedAt: now}
	env.store.AddMeme(old)
	env.store.AddMeme(recent)

	var feed struct {
		Memes []meme.Meme `json:"memes"`
	}
	status, resp := env.do(t, http.MethodGet, "/api/memes", nil, nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(resp.Data, &feed))
	require.Len(t, feed.Memes, 2)
	assert.Equal(t, recent.ID, feed.Memes[0].ID)

	status, resp = env.do(t, http.MethodGet, "/api/memes?sort=upvotes&order=desc&page=1&limit=1", nil, nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(resp.Data, &feed))
	require.Len(t, feed.Memes, 1)
	assert.Equal(t, old.ID, feed.Memes[0].ID)

	status, _ = env.do(t, http.MethodGet, "/api/memes?sort=owner_id", nil, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = env.do(t, http.MethodGet, "/api/memes?order=up", nil, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, resp = env.do(t, http.MethodGet, "/api/memes/user-memes", alice, nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(resp.Data, &feed))
	require.Len(t, feed.Memes, 1)
	assert.Equal(t, old.ID, feed.Memes[0].ID)

	status, _ = env.do(t, http.MethodGet, "/api/memes/user-memes", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	var profile struct {
		User shared.User `json:"user"`
	}
	status, resp = env.do(t, http.MethodGet, "/api/users/profile", alice, nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(resp.Data, &profile))
	assert.Equal(t, alice.ID, profile.User.ID)
	assert.True(t, profile.User.WalletBalance.Equal(decimal.NewFromInt(75)))

	status, _ = env.do(t, http.MethodGet, "/api/users/profile", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{shared.ErrInvalidStartingBid, http.StatusBadRequest},
		{shared.ErrMemeNotFound, http.StatusNotFound},
		{shared.ErrAuctionNotActive, http.StatusConflict},
		{shared.ErrNotSeller, http.StatusForbidden},
		{shared.ErrMemeAlreadyInAuction, http.StatusConflict},
		{shared.ErrInsufficientFunds, http.StatusPaymentRequired},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
