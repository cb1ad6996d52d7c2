package ws

import (
	"context"
	"net/http"
	"sync"

	"memebid-service/internal/adapters/auth"
	"memebid-service/internal/domain/auction"
	"memebid-service/internal/domain/shared"
	"memebid-service/internal/ports/inbound"
	"memebid-service/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Authenticator resolves the user behind a connection token
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*shared.User, error)
}

// WsHandler manages WebSocket connections and message routing
type WsHandler struct {
	clients            map[string]*WsClient // clientID -> Client
	clientsMu          sync.RWMutex
	upgrader           websocket.Upgrader
	authenticator      Authenticator
	registry           outbound.ConnectionRegistry
	broadcaster        outbound.Broadcaster
	auctionService     inbound.AuctionService
	bidService         inbound.BidService
	voteService        inbound.VoteService
	competitionService inbound.CompetitionService
	logger             zerolog.Logger
}

type WsHandlerParams struct {
	Upgrader           websocket.Upgrader
	Authenticator      Authenticator
	Registry           outbound.ConnectionRegistry
	Broadcaster        outbound.Broadcaster
	AuctionService     inbound.AuctionService
	BidService         inbound.BidService
	VoteService        inbound.VoteService
	CompetitionService inbound.CompetitionService
	Logger             zerolog.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(params WsHandlerParams) *WsHandler {
	return &WsHandler{
		clients:            make(map[string]*WsClient),
		upgrader:           params.Upgrader,
		authenticator:      params.Authenticator,
		registry:           params.Registry,
		broadcaster:        params.Broadcaster,
		auctionService:     params.AuctionService,
		bidService:         params.BidService,
		voteService:        params.VoteService,
		competitionService: params.CompetitionService,
		logger:             params.Logger.With().Str("component", "ws_handler").Logger(),
	}
}

// ServeHTTP authenticates and upgrades a connection
func (handler *WsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user, err := handler.authenticator.Authenticate(r.Context(), auth.TokenFromRequest(r))
	if err != nil {
		handler.logger.Warn().Err(err).Msg("Rejected WebSocket connection")
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	conn, err := handler.upgrader.Upgrade(w, r, nil)
	if err != nil {
		handler.logger.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	client := NewClient(WsClientParams{
		ID:      uuid.NewString(),
		User:    user,
		Conn:    conn,
		Handler: handler,
		Logger:  handler.logger,
	})

	handler.registerClient(client)
	events := handler.registry.Connect(client.id, user.ID)

	client.Start()
	go handler.forwardEvents(client, events)

	// Wait for client to disconnect
	go func() {
		<-client.ctx.Done()
		handler.unregisterClient(client)
	}()

	handler.logger.Info().Str("client_id", client.id).Str("user_id", user.ID.String()).Msg("WebSocket client connected")
}

func (handler *WsHandler) registerClient(client *WsClient) {
	handler.clientsMu.Lock()
	defer handler.clientsMu.Unlock()
	handler.clients[client.id] = client
	handler.logger.Debug().Str("client_id", client.id).Int("total_clients", len(handler.clients)).Msg("Client registered")
}

func (handler *WsHandler) unregisterClient(client *WsClient) {
	handler.clientsMu.Lock()
	delete(handler.clients, client.id)
	total := len(handler.clients)
	handler.clientsMu.Unlock()

	client.Stop()
	handler.registry.Disconnect(client.id)
	handler.competitionService.HandleDisconnect(context.Background(), client.user.ID)

	handler.logger.Info().Str("client_id", client.id).Str("user_id", client.user.ID.String()).Int("total_clients", total).Msg("WebSocket client disconnected")
}

// forwardEvents relays broadcast events until the registry closes the channel
func (handler *WsHandler) forwardEvents(client *WsClient, events <-chan outbound.Event) {
	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := client.Send(NewEventMessage(event)); err != nil {
				handler.logger.Warn().Err(err).Str("client_id", client.id).Str("event_type", string(event.Type)).Msg("Failed to send event to WebSocket client")
			}
		case <-client.ctx.Done():
			return
		}
	}
}

// GetConnectedClients returns the number of connected clients
func (handler *WsHandler) GetConnectedClients() int {
	handler.clientsMu.RLock()
	defer handler.clientsMu.RUnlock()
	return len(handler.clients)
}

// CloseAll disconnects every client, used on shutdown since hijacked connections outlive the HTTP server
func (handler *WsHandler) CloseAll() {
	handler.clientsMu.RLock()
	clients := make([]*WsClient, 0, len(handler.clients))
	for _, client := range handler.clients {
		clients = append(clients, client)
	}
	handler.clientsMu.RUnlock()

	for _, client := range clients {
		client.Stop()
	}
}

// HandleClientMessage dispatches one request and reports failures with a scoped error event
func (handler *WsHandler) HandleClientMessage(client *WsClient, msg *ClientMessage) {
	var err error
	switch msg.Type {
	case MessageTypeJoinAuction:
		err = handler.handleJoinAuction(client, msg)
	case MessageTypeLeaveAuction:
		err = handler.handleLeaveAuction(client, msg)
	case MessageTypePlaceBid:
		err = handler.handlePlaceBid(client, msg)
	case MessageTypeVoteMeme:
		err = handler.handleVoteMeme(client, msg)
	case MessageTypeJoinCompetitionQueue:
		_, err = handler.competitionService.JoinQueue(client.ctx, client.user)
	case MessageTypeLeaveCompetitionQueue:
		handler.competitionService.LeaveQueue(client.ctx, client.user.ID)
	case MessageTypeSubmitCompetitionMeme:
		err = handler.handleSubmitCompetitionMeme(client, msg)
	case MessageTypeJoinCompetitionRoom:
		err = handler.handleJoinCompetitionRoom(client, msg)
	case MessageTypeVoteCompetitionMeme:
		err = handler.handleVoteCompetitionMeme(client, msg)
	default:
		err = shared.ErrUnknownMessageType
	}

	if err == nil {
		return
	}

	reason := err.Error()
	if shared.KindOf(err) == shared.KindDependency {
		handler.logger.Error().Err(err).Str("client_id", client.id).Str("message_type", string(msg.Type)).Msg("Failed to handle client message")
		reason = "internal error, please retry"
	}
	client.Send(NewErrorMessage(errorTypeFor(msg.Type), reason, ""))
}

func (handler *WsHandler) handleJoinAuction(client *WsClient, msg *ClientMessage) error {
	payload, err := decodePayload[auctionPayload](msg)
	if err != nil {
		return err
	}
	if payload.AuctionID == uuid.Nil {
		return shared.ErrAuctionIDRequired
	}

	a, err := handler.auctionService.GetAuction(client.ctx, payload.AuctionID)
	if err != nil {
		return err
	}

	room := auction.Room(a.ID)
	if err := handler.broadcaster.Subscribe(client.ctx, room, client.id); err != nil {
		return err
	}

	response := NewServerMessage(MessageTypeRoomJoined)
	response.Room = room
	response.Data["auction"] = a

	handler.logger.Info().Str("client_id", client.id).Str("auction_id", a.ID.String()).Msg("Client joined auction room")
	return client.Send(response)
}

func (handler *WsHandler) handleLeaveAuction(client *WsClient, msg *ClientMessage) error {
	payload, err := decodePayload[auctionPayload](msg)
	if err != nil {
		return err
	}
	if payload.AuctionID == uuid.Nil {
		return shared.ErrAuctionIDRequired
	}

	room := auction.Room(payload.AuctionID)
	if err := handler.broadcaster.Unsubscribe(client.ctx, room, client.id); err != nil {
		return err
	}

	response := NewServerMessage(MessageTypeRoomLeft)
	response.Room = room
	return client.Send(response)
}

// handlePlaceBid places the bid; the accepted bid reaches the client through the room broadcast
func (handler *WsHandler) handlePlaceBid(client *WsClient, msg *ClientMessage) error {
	payload, err := decodePayload[placeBidPayload](msg)
	if err != nil {
		return shared.ErrBidAmountInvalid
	}
	if payload.AuctionID == uuid.Nil {
		return shared.ErrAuctionIDRequired
	}

	b, err := handler.bidService.PlaceBid(client.ctx, inbound.PlaceBidRequest{
		AuctionID: payload.AuctionID,
		User:      client.user,
		ClientID:  client.id,
		Amount:    payload.BidAmount,
	})
	if err != nil {
		return err
	}

	handler.logger.Info().Str("bid_id", b.ID.String()).Str("auction_id", payload.AuctionID.String()).Str("user_id", client.user.ID.String()).Msg("Bid placed successfully")
	return nil
}

func (handler *WsHandler) handleVoteMeme(client *WsClient, msg *ClientMessage) error {
	payload, err := decodePayload[voteMemePayload](msg)
	if err != nil {
		return err
	}
	if payload.MemeID == uuid.Nil {
		return shared.ErrMemeIDRequired
	}

	result, err := handler.voteService.Vote(client.ctx, inbound.VoteRequest{
		User:     client.user,
		MemeID:   payload.MemeID,
		VoteType: payload.VoteType,
	})
	if err != nil {
		return err
	}

	if result.AlreadyRegistered {
		response := NewServerMessage(MessageTypeVoteAlreadyRegistered)
		response.Data["message"] = "Vote already registered"
		response.Data["meme_id"] = result.MemeID
		response.Data["vote_type"] = result.VoteType
		return client.Send(response)
	}
	return nil
}

func (handler *WsHandler) handleSubmitCompetitionMeme(client *WsClient, msg *ClientMessage) error {
	payload, err := decodePayload[competitionMemePayload](msg)
	if err != nil {
		return err
	}

	_, err = handler.competitionService.SubmitMeme(client.ctx, inbound.SubmitMemeRequest{
		RoomID: payload.RoomID,
		UserID: client.user.ID,
		MemeID: payload.MemeID,
	})
	return err
}

func (handler *WsHandler) handleJoinCompetitionRoom(client *WsClient, msg *ClientMessage) error {
	payload, err := decodePayload[roomPayload](msg)
	if err != nil {
		return err
	}

	snapshot, err := handler.competitionService.JoinRoom(client.ctx, payload.RoomID, client.id)
	if err != nil {
		return err
	}

	response := NewServerMessage(MessageTypeRoomJoined)
	response.Room = payload.RoomID
	response.Data["competition"] = snapshot
	return client.Send(response)
}

func (handler *WsHandler) handleVoteCompetitionMeme(client *WsClient, msg *ClientMessage) error {
	payload, err := decodePayload[competitionMemePayload](msg)
	if err != nil {
		return err
	}

	_, err = handler.competitionService.Vote(client.ctx, inbound.CompetitionVoteRequest{
		RoomID:  payload.RoomID,
		VoterID: client.user.ID,
		MemeID:  payload.MemeID,
	})
	return err
}
