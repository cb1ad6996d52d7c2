package db

import (
	"context"
	"os"
	"testing"
	"time"

	"memebid-service/internal/config"
	"memebid-service/internal/domain/auction"
	"memebid-service/internal/domain/bid"
	"memebid-service/internal/domain/meme"
	"memebid-service/internal/domain/shared"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestConnection connects to TEST_DATABASE_URL and applies the schema
func openTestConnection(t *testing.T) *Connection {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	conn, err := NewConnection(ctx, &config.Config{
		Database: config.DatabaseConfig{URL: url, Backend: config.BackendPostgres},
	})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.NoError(t, conn.Migrate(ctx))
	return conn
}

func insertUser(t *testing.T, conn *Connection, balance string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := conn.GetDB().Exec(
		`INSERT INTO users (id, username, wallet_balance) VALUES ($1, $2, $3)`,
		id, "user_"+id.String()[:8], decimal.RequireFromString(balance))
	require.NoError(t, err)
	return id
}

func insertMeme(t *testing.T, conn *Connection, owner uuid.UUID) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := conn.GetDB().Exec(
		`INSERT INTO memes (id, title, image_url, creator_id, owner_id) VALUES ($1, $2, $3, $4, $4)`,
		id, "meme "+id.String()[:8], "https://example.com/m.png", owner)
	require.NoError(t, err)
	return id
}

func TestRepositories_AuctionLifecycle(t *testing.T) {
	conn := openTestConnection(t)
	repos := NewRepositoryFactory(conn).GetAllRepositories()
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	seller := insertUser(t, conn, "100")
	bidder := insertUser(t, conn, "100")
	memeID := insertMeme(t, conn, seller)

	a := auction.New(memeID, seller, decimal.NewFromInt(10), time.Hour, now)
	require.NoError(t, repos.Auctions.Create(ctx, a))

	dup := auction.New(memeID, seller, decimal.NewFromInt(10), time.Hour, now)
	assert.ErrorIs(t, repos.Auctions.Create(ctx, dup), shared.ErrMemeAlreadyInAuction)

	low := bid.New(a.ID, bidder, decimal.NewFromInt(10), now)
	assert.ErrorIs(t, repos.Bids.PlaceBid(ctx, low), shared.ErrBidTooLow)

	require.NoError(t, repos.Bids.PlaceBid(ctx, bid.New(a.ID, bidder, decimal.NewFromInt(25), now)))

	history, err := repos.Bids.ListByAuction(ctx, a.ID, shared.Page{Number: 1, Size: 10})
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.True(t, history[0].Amount.Equal(decimal.NewFromInt(25)))

	settlement, err := repos.Auctions.Settle(ctx, a.ID, now.Add(time.Hour))
	require.NoError(t, err)
	require.True(t, settlement.HasWinner())
	assert.Equal(t, bidder, *settlement.WinnerID)

	m, err := repos.Memes.GetByID(ctx, memeID)
	require.NoError(t, err)
	assert.Equal(t, bidder, m.OwnerID)

	winner, err := repos.Users.GetByID(ctx, bidder)
	require.NoError(t, err)
	assert.True(t, winner.WalletBalance.Equal(decimal.NewFromInt(75)))

	sellerUser, err := repos.Users.GetByID(ctx, seller)
	require.NoError(t, err)
	assert.True(t, sellerUser.WalletBalance.Equal(decimal.NewFromInt(125)))

	_, err = repos.Auctions.Settle(ctx, a.ID, now.Add(time.Hour))
	assert.ErrorIs(t, err, shared.ErrAuctionNotActive)
}

func TestRepositories_SettleRollsBackOnInsufficientFunds(t *testing.T) {
	conn := openTestConnection(t)
	repos := NewRepositoryFactory(conn).GetAllRepositories()
	ctx := context.Background()
	now := time.Now().UTC()

	seller := insertUser(t, conn, "0")
	bidder := insertUser(t, conn, "50")
	memeID := insertMeme(t, conn, seller)

	a := auction.New(memeID, seller, decimal.NewFromInt(10), time.Hour, now)
	require.NoError(t, repos.Auctions.Create(ctx, a))
	require.NoError(t, repos.Bids.PlaceBid(ctx, bid.New(a.ID, bidder, decimal.NewFromInt(40), now)))

	_, err := conn.GetDB().Exec(`UPDATE users SET wallet_balance = 5 WHERE id = $1`, bidder)
	require.NoError(t, err)

	_, err = repos.Auctions.Settle(ctx, a.ID, now.Add(time.Hour))
	assert.ErrorIs(t, err, shared.ErrInsufficientFunds)

	stored, err := repos.Auctions.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, auction.StatusActive, stored.Status)

	m, err := repos.Memes.GetByID(ctx, memeID)
	require.NoError(t, err)
	assert.Equal(t, seller, m.OwnerID)
}

func TestRepositories_VoteApply(t *testing.T) {
	conn := openTestConnection(t)
	repos := NewRepositoryFactory(conn).GetAllRepositories()
	ctx := context.Background()
	now := time.Now().UTC()

	owner := insertUser(t, conn, "0")
	voter := insertUser(t, conn, "0")
	memeID := insertMeme(t, conn, owner)

	change, ok := meme.Decide(nil, voter, memeID, meme.Upvote, now)
	require.True(t, ok)
	counts, err := repos.Votes.Apply(ctx, change)
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Upvotes)
	assert.Equal(t, 0, counts.Downvotes)

	_, err = repos.Votes.Apply(ctx, change)
	assert.ErrorIs(t, err, shared.ErrVoteConflict)

	existing, err := repos.Votes.Get(ctx, voter, memeID)
	require.NoError(t, err)

	flip, ok := meme.Decide(existing, voter, memeID, meme.Downvote, now)
	require.True(t, ok)
	counts, err = repos.Votes.Apply(ctx, flip)
	require.NoError(t, err)
	assert.Equal(t, 0, counts.Upvotes)
	assert.Equal(t, 1, counts.Downvotes)
}
