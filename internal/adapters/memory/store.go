package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"memebid-service/internal/domain/auction"
	"memebid-service/internal/domain/bid"
	"memebid-service/internal/domain/competition"
	"memebid-service/internal/domain/meme"
	"memebid-service/internal/domain/shared"
	"memebid-service/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type voteKey struct {
	userID uuid.UUID
	memeID uuid.UUID
}

// Store is a process-local persistence gateway. A single mutex makes every
// operation, including the multi-row ones, atomic.
type Store struct {
	mu           sync.Mutex
	users        map[uuid.UUID]shared.User
	memes        map[uuid.UUID]meme.Meme
	votes        map[voteKey]meme.Vote
	auctions     map[uuid.UUID]auction.Auction
	bids         []bid.Bid
	competitions map[string]competition.Record
}

func NewStore() *Store {
	return &Store{
		users:        make(map[uuid.UUID]shared.User),
		memes:        make(map[uuid.UUID]meme.Meme),
		votes:        make(map[voteKey]meme.Vote),
		auctions:     make(map[uuid.UUID]auction.Auction),
		competitions: make(map[string]competition.Record),
	}
}

// Repositories exposes the store through the outbound ports
func (s *Store) Repositories() outbound.Repositories {
	return outbound.Repositories{
		Auctions:     (*auctionRepository)(s),
		Bids:         (*bidRepository)(s),
		Memes:        (*memeRepository)(s),
		Votes:        (*voteRepository)(s),
		Users:        (*userRepository)(s),
		Competitions: (*competitionRepository)(s),
	}
}

// AddUser seeds a user
func (s *Store) AddUser(user shared.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
}

// AddMeme seeds a meme
func (s *Store) AddMeme(m meme.Meme) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memes[m.ID] = m
}

// User returns a copy of a stored user
func (s *Store) User(id uuid.UUID) (shared.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	return u, ok
}

// Meme returns a copy of a stored meme
func (s *Store) Meme(id uuid.UUID) (meme.Meme, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.memes[id]
	return m, ok
}

// Competition returns a copy of a stored competition record
func (s *Store) Competition(id string) (competition.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.competitions[id]
	return r, ok
}

func paginate[T any](items []T, page shared.Page) []T {
	start := page.Offset()
	if start >= len(items) {
		return []T{}
	}
	end := start + page.Size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

type auctionRepository Store

func (r *auctionRepository) Create(_ context.Context, a *auction.Auction) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.memes[a.MemeID]; !ok {
		return shared.ErrMemeNotFound
	}
	if _, ok := s.users[a.SellerID]; !ok {
		return shared.ErrUserNotFound
	}
	for _, existing := range s.auctions {
		if existing.MemeID == a.MemeID && existing.IsActive() {
			return shared.ErrMemeAlreadyInAuction
		}
	}
	s.auctions[a.ID] = *a
	return nil
}

func (r *auctionRepository) GetByID(_ context.Context, id uuid.UUID) (*auction.Auction, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.auctions[id]
	if !ok {
		return nil, shared.ErrAuctionNotFound
	}
	return &a, nil
}

func (r *auctionRepository) GetActiveByMemeID(_ context.Context, memeID uuid.UUID) (*auction.Auction, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.auctions {
		if a.MemeID == memeID && a.IsActive() {
			return &a, nil
		}
	}
	return nil, shared.ErrAuctionNotFound
}

// filter returns matching auctions, newest first
func (r *auctionRepository) filter(keep func(auction.Auction) bool) []*auction.Auction {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []*auction.Auction{}
	for _, a := range s.auctions {
		if keep(a) {
			out = append(out, &a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *auctionRepository) ListActive(_ context.Context, page shared.Page) ([]*auction.Auction, error) {
	return paginate(r.filter(func(a auction.Auction) bool { return a.IsActive() }), page), nil
}

func (r *auctionRepository) ListBySeller(_ context.Context, sellerID uuid.UUID, status *auction.Status) ([]*auction.Auction, error) {
	return r.filter(func(a auction.Auction) bool {
		return a.SellerID == sellerID && (status == nil || a.Status == *status)
	}), nil
}

func (r *auctionRepository) ListExpired(_ context.Context, now time.Time) ([]*auction.Auction, error) {
	out := r.filter(func(a auction.Auction) bool { return a.IsActive() && a.IsExpired(now) })
	sort.Slice(out, func(i, j int) bool { return out[i].EndTime.Before(out[j].EndTime) })
	return out, nil
}

// Settle checks every guard before mutating anything, so a failure leaves the store untouched
func (r *auctionRepository) Settle(_ context.Context, auctionID uuid.UUID, now time.Time) (*auction.Settlement, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.auctions[auctionID]
	if !ok {
		return nil, shared.ErrAuctionNotFound
	}
	if !a.IsActive() {
		return nil, shared.ErrAuctionNotActive
	}

	settlement := &auction.Settlement{
		AuctionID: a.ID,
		MemeID:    a.MemeID,
		SellerID:  a.SellerID,
		Amount:    decimal.Zero,
		EndedAt:   now,
	}

	if a.HasBids() {
		winnerID := *a.HighestBidderID
		m, ok := s.memes[a.MemeID]
		if !ok || !m.OwnedBy(a.SellerID) {
			return nil, shared.ErrOwnershipChanged
		}
		winner, ok := s.users[winnerID]
		if !ok {
			return nil, shared.ErrUserNotFound
		}
		if !winner.CanAfford(a.CurrentHighestBid) {
			return nil, shared.ErrInsufficientFunds
		}
		seller, ok := s.users[a.SellerID]
		if !ok {
			return nil, shared.ErrUserNotFound
		}

		m.OwnerID = winnerID
		s.memes[m.ID] = m
		winner.WalletBalance = winner.WalletBalance.Sub(a.CurrentHighestBid)
		s.users[winner.ID] = winner
		seller.WalletBalance = seller.WalletBalance.Add(a.CurrentHighestBid)
		s.users[seller.ID] = seller

		settlement.WinnerID = &winnerID
		settlement.Amount = a.CurrentHighestBid
	}

	a.Status = auction.StatusEnded
	a.UpdatedAt = now
	s.auctions[a.ID] = a

	return settlement, nil
}

type bidRepository Store

func (r *bidRepository) PlaceBid(_ context.Context, b *bid.Bid) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.auctions[b.AuctionID]
	switch {
	case !b.IsValid():
		return shared.ErrBidAmountInvalid
	case !ok:
		return shared.ErrAuctionNotFound
	case !a.IsActive():
		return shared.ErrAuctionNotActive
	case a.IsExpired(b.CreatedAt):
		return shared.ErrAuctionExpired
	case !a.Outbids(b.Amount):
		return shared.ErrBidTooLow
	}

	bidderID := b.BidderID
	a.CurrentHighestBid = b.Amount
	a.HighestBidderID = &bidderID
	a.UpdatedAt = b.CreatedAt
	s.auctions[a.ID] = a
	s.bids = append(s.bids, *b)
	return nil
}

// newestFirst returns matching bids in reverse insertion order
func (r *bidRepository) newestFirst(keep func(bid.Bid) bool) []*bid.Bid {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []*bid.Bid{}
	for i := len(s.bids) - 1; i >= 0; i-- {
		if keep(s.bids[i]) {
			b := s.bids[i]
			out = append(out, &b)
		}
	}
	return out
}

func (r *bidRepository) ListByAuction(_ context.Context, auctionID uuid.UUID, page shared.Page) ([]*bid.Bid, error) {
	return paginate(r.newestFirst(func(b bid.Bid) bool { return b.AuctionID == auctionID }), page), nil
}

func (r *bidRepository) ListByBidder(_ context.Context, bidderID uuid.UUID) ([]*bid.Bid, error) {
	return r.newestFirst(func(b bid.Bid) bool { return b.BidderID == bidderID }), nil
}

type memeRepository Store

func (r *memeRepository) GetByID(_ context.Context, id uuid.UUID) (*meme.Meme, error) {
	m, ok := (*Store)(r).Meme(id)
	if !ok {
		return nil, shared.ErrMemeNotFound
	}
	return &m, nil
}

func (r *memeRepository) List(_ context.Context, q meme.FeedQuery) ([]*meme.Meme, error) {
	if _, ok := meme.ParseSortField(string(q.Sort)); !ok {
		return nil, shared.ErrInvalidSort
	}
	out := r.collect(func(meme.Meme) bool { return true })
	sort.Slice(out, func(i, j int) bool { return q.Less(out[i], out[j]) })
	return paginate(out, q.Page), nil
}

func (r *memeRepository) ListByCreator(_ context.Context, creatorID uuid.UUID) ([]*meme.Meme, error) {
	out := r.collect(func(m meme.Meme) bool { return m.CreatorID == creatorID })
	newest := meme.FeedQuery{Sort: meme.SortCreatedAt}
	sort.Slice(out, func(i, j int) bool { return newest.Less(out[i], out[j]) })
	return out, nil
}

func (r *memeRepository) collect(keep func(meme.Meme) bool) []*meme.Meme {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []*meme.Meme{}
	for _, m := range s.memes {
		if keep(m) {
			out = append(out, &m)
		}
	}
	return out
}

type userRepository Store

func (r *userRepository) GetByID(_ context.Context, id uuid.UUID) (*shared.User, error) {
	u, ok := (*Store)(r).User(id)
	if !ok {
		return nil, shared.ErrUserNotFound
	}
	return &u, nil
}

type voteRepository Store

func (r *voteRepository) Get(_ context.Context, userID, memeID uuid.UUID) (*meme.Vote, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.votes[voteKey{userID, memeID}]
	if !ok {
		return nil, shared.ErrVoteNotFound
	}
	return &v, nil
}

func (r *voteRepository) Apply(_ context.Context, change meme.VoteChange) (*meme.Counts, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.memes[change.MemeID]
	if !ok {
		return nil, shared.ErrMemeNotFound
	}
	if _, ok := s.users[change.UserID]; !ok {
		return nil, shared.ErrUserNotFound
	}

	key := voteKey{change.UserID, change.MemeID}
	existing, exists := s.votes[key]
	switch {
	case change.Previous == nil && exists:
		return nil, shared.ErrVoteConflict
	case change.Previous != nil && (!exists || existing.Type != *change.Previous):
		return nil, shared.ErrVoteConflict
	}

	if exists {
		existing.Type = change.Next
		existing.UpdatedAt = change.At
		s.votes[key] = existing
	} else {
		s.votes[key] = meme.Vote{
			ID:        change.VoteID,
			UserID:    change.UserID,
			MemeID:    change.MemeID,
			Type:      change.Next,
			CreatedAt: change.At,
			UpdatedAt: change.At,
		}
	}

	up, down := change.Delta()
	m.Upvotes += up
	m.Downvotes += down
	s.memes[m.ID] = m

	counts := m.Counts()
	return &counts, nil
}

type competitionRepository Store

func (r *competitionRepository) Create(_ context.Context, record *competition.Record) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.competitions[record.ID] = *record
	return nil
}

func (r *competitionRepository) update(id string, fn func(*competition.Record)) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.competitions[id]
	if !ok {
		return shared.ErrCompetitionNotFound
	}
	fn(&rec)
	s.competitions[id] = rec
	return nil
}

func (r *competitionRepository) UpdateSubmission(_ context.Context, id string, slot int, memeID uuid.UUID) error {
	return r.update(id, func(rec *competition.Record) {
		if slot == 1 {
			rec.Meme1ID = &memeID
		} else {
			rec.Meme2ID = &memeID
		}
	})
}

func (r *competitionRepository) UpdateStatus(_ context.Context, id string, status competition.Status) error {
	return r.update(id, func(rec *competition.Record) {
		if rec.Status != competition.StatusFinished {
			rec.Status = status
		}
	})
}

func (r *competitionRepository) Finish(_ context.Context, id string, winnerID *uuid.UUID, endedAt time.Time) error {
	return r.update(id, func(rec *competition.Record) {
		rec.Status = competition.StatusFinished
		rec.WinnerID = winnerID
		rec.EndedAt = &endedAt
	})
}
