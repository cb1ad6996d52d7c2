package rest

import (
	"encoding/json"
	"net/http"
	"strconv"

	"memebid-service/internal/adapters/auth"
	"memebid-service/internal/domain/auction"
	"memebid-service/internal/domain/meme"
	"memebid-service/internal/domain/shared"
	"memebid-service/internal/ports/inbound"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Handler serves the HTTP API
type Handler struct {
	auctionService     inbound.AuctionService
	bidService         inbound.BidService
	voteService        inbound.VoteService
	competitionService inbound.CompetitionService
	memeService        inbound.MemeService
	userService        inbound.UserService
	logger             zerolog.Logger
}

type HandlerParams struct {
	AuctionService     inbound.AuctionService
	BidService         inbound.BidService
	VoteService        inbound.VoteService
	CompetitionService inbound.CompetitionService
	MemeService        inbound.MemeService
	UserService        inbound.UserService
	Logger             zerolog.Logger
}

func NewHandler(params HandlerParams) *Handler {
	return &Handler{
		auctionService:     params.AuctionService,
		bidService:         params.BidService,
		voteService:        params.VoteService,
		competitionService: params.CompetitionService,
		memeService:        params.MemeService,
		userService:        params.UserService,
		logger:             params.Logger.With().Str("component", "rest_handler").Logger(),
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "meme-arena"}, "Service is healthy")
}

func (h *Handler) CreateAuction(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	var req inbound.CreateAuctionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, shared.ErrInvalidRequest)
		return
	}
	req.SellerID = user.ID

	a, err := h.auctionService.CreateAuction(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"auction": a}, "Auction created successfully")
}

func (h *Handler) ListActiveAuctions(w http.ResponseWriter, r *http.Request) {
	auctions, err := h.auctionService.ListActiveAuctions(r.Context(), pageFromQuery(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"auctions": auctions}, "Auctions fetched successfully")
}

func (h *Handler) GetAuction(w http.ResponseWriter, r *http.Request) {
	auctionID, err := uuidParam(r, "auctionId")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	a, err := h.auctionService.GetAuction(r.Context(), auctionID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"auction": a}, "Auction fetched successfully")
}

func (h *Handler) GetBidHistory(w http.ResponseWriter, r *http.Request) {
	auctionID, err := uuidParam(r, "auctionId")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	bids, err := h.bidService.GetBidHistory(r.Context(), auctionID, pageFromQuery(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"bids": bids}, "Bid history fetched successfully")
}

func (h *Handler) PlaceBid(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	auctionID, err := uuidParam(r, "auctionId")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var body struct {
		BidAmount decimal.Decimal `json:"bidAmount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, h.logger, shared.ErrBidAmountInvalid)
		return
	}

	b, err := h.bidService.PlaceBid(r.Context(), inbound.PlaceBidRequest{
		AuctionID: auctionID,
		User:      user,
		Amount:    body.BidAmount,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"bid": b}, "Bid placed successfully")
}

func (h *Handler) EndAuction(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	auctionID, err := uuidParam(r, "auctionId")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	settlement, err := h.auctionService.EndAuction(r.Context(), inbound.EndAuctionRequest{AuctionID: auctionID, UserID: user.ID})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"settlement": settlement}, "Auction ended successfully")
}

func (h *Handler) ListMyAuctions(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	status, ok := auction.ParseStatus(r.URL.Query().Get("status"))
	if !ok {
		writeError(w, h.logger, shared.ErrInvalidRequest)
		return
	}

	auctions, err := h.auctionService.ListSellerAuctions(r.Context(), user.ID, status)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"auctions": auctions}, "User auctions fetched successfully")
}

func (h *Handler) ListMyBids(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	bids, err := h.bidService.ListBidderBids(r.Context(), user.ID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"bids": bids}, "User bids fetched successfully")
}

func (h *Handler) ProcessExpiredAuctions(w http.ResponseWriter, r *http.Request) {
	result, err := h.auctionService.ProcessExpiredAuctions(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result, "Expired auctions processed")
}

func (h *Handler) VoteMeme(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	memeID, err := uuidParam(r, "memeId")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var body struct {
		VoteType meme.VoteType `json:"voteType"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, h.logger, shared.ErrInvalidVoteType)
		return
	}

	result, err := h.voteService.Vote(r.Context(), inbound.VoteRequest{User: user, MemeID: memeID, VoteType: body.VoteType})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if result.AlreadyRegistered {
		writeJSON(w, http.StatusOK, result, "Vote already registered")
		return
	}
	writeJSON(w, http.StatusOK, result, "Vote registered successfully")
}

// ListMemes serves the feed: ?page&limit&sort&order
func (h *Handler) ListMemes(w http.ResponseWriter, r *http.Request) {
	sortField, ok := meme.ParseSortField(r.URL.Query().Get("sort"))
	if !ok {
		writeError(w, h.logger, shared.ErrInvalidSort)
		return
	}
	ascending, ok := meme.ParseOrder(r.URL.Query().Get("order"))
	if !ok {
		writeError(w, h.logger, shared.ErrInvalidOrder)
		return
	}

	memes, err := h.memeService.ListMemes(r.Context(), meme.FeedQuery{Page: pageFromQuery(r), Sort: sortField, Ascending: ascending})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"memes": memes}, "Memes fetched successfully")
}

func (h *Handler) ListMyMemes(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	memes, err := h.memeService.ListCreatedMemes(r.Context(), user.ID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"memes": memes}, "User memes fetched successfully")
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	profile, err := h.userService.GetProfile(r.Context(), user.ID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": profile}, "Profile fetched successfully")
}

func (h *Handler) GetCompetition(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.competitionService.GetCompetition(r.Context(), chi.URLParam(r, "roomId"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"competition": snapshot}, "Competition fetched successfully")
}

func (h *Handler) FinalizeCompetition(w http.ResponseWriter, r *http.Request) {
	result, err := h.competitionService.Finalize(r.Context(), chi.URLParam(r, "roomId"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"result": result}, "Competition finalized")
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, shared.ErrInvalidRequest
	}
	return id, nil
}

// pageFromQuery reads ?page&limit; missing or malformed values fall back to service defaults
func pageFromQuery(r *http.Request) shared.Page {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return shared.Page{Number: page, Size: limit}
}
