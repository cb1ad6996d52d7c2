package ws

import (
	"context"
	"errors"
	"sync"
	"time"

	"memebid-service/internal/config"
	"memebid-service/internal/domain/shared"

	"github.com/alitto/pond"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBufferSize = 100
)

var (
	errClientStopped = errors.New("client is stopped")
	errSendQueueFull = errors.New("client send channel is full")
	errClientBusy    = errors.New("too many pending requests, please retry")
)

type WsClient struct {
	id         string
	user       *shared.User
	conn       *websocket.Conn
	sendChan   chan *ServerMessage
	ctx        context.Context
	cancel     context.CancelFunc
	handler    *WsHandler
	workerPool *pond.WorkerPool
	stopped    bool
	mu         sync.Mutex
	logger     zerolog.Logger
}

type WsClientParams struct {
	ID      string
	User    *shared.User
	Conn    *websocket.Conn
	Handler *WsHandler
	Logger  zerolog.Logger
}

// NewClient creates a new WebSocket client
func NewClient(params WsClientParams) *WsClient {
	ctx, cancel := context.WithCancel(context.Background())

	pool := pond.New(
		config.WSMaxWorkers,
		config.WSMaxCapacity,
		pond.Context(ctx),
		pond.Strategy(pond.Balanced()),
	)

	return &WsClient{
		id:         params.ID,
		user:       params.User,
		conn:       params.Conn,
		sendChan:   make(chan *ServerMessage, sendBufferSize),
		ctx:        ctx,
		cancel:     cancel,
		handler:    params.Handler,
		workerPool: pool,
		logger: params.Logger.With().
			Str("client_id", params.ID).
			Str("user_id", params.User.ID.String()).
			Logger(),
	}
}

func (client *WsClient) Start() {
	go client.messageSender()
	go client.messageReceiver()
}

// Stop closes the connection once; pending sends fail with errClientStopped.
// The worker pool is stopped by the receiver goroutine when its read loop ends.
func (client *WsClient) Stop() {
	client.mu.Lock()
	defer client.mu.Unlock()

	if client.stopped {
		return
	}
	client.stopped = true

	client.cancel()
	client.conn.Close()
}

// Send queues a message for the writer goroutine
func (client *WsClient) Send(msg *ServerMessage) error {
	select {
	case <-client.ctx.Done():
		return errClientStopped
	default:
	}

	select {
	case client.sendChan <- msg:
		return nil
	default:
		// Channel is full, try to send with a timeout
		select {
		case client.sendChan <- msg:
			return nil
		case <-client.ctx.Done():
			return errClientStopped
		case <-time.After(100 * time.Millisecond):
			return errSendQueueFull
		}
	}
}

// messageSender is the only goroutine writing to the connection
func (client *WsClient) messageSender() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg := <-client.sendChan:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteJSON(msg); err != nil {
				client.logger.Error().Err(err).Msg("Failed to send message to client")
				client.cancel()
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				client.cancel()
				return
			}
		case <-client.ctx.Done():
			return
		}
	}
}

func (client *WsClient) messageReceiver() {
	// The only submitter stops the pool, so no submit can race with it
	defer client.workerPool.Stop()

	client.conn.SetReadLimit(maxMessageSize)
	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				client.logger.Error().Err(err).Msg("WebSocket read error for client")
			} else {
				client.logger.Info().Str("error", err.Error()).Msg("WebSocket connection closed for client")
			}
			// Cancel context to notify handler about disconnection
			client.cancel()
			return
		}

		if client.ctx.Err() != nil {
			return
		}
		if !client.dispatch(message) {
			client.logger.Warn().Msg("Worker pool saturated, rejecting message")
			client.Send(NewErrorMessage(MessageTypeError, errClientBusy.Error(), ""))
		}
	}
}

// dispatch hands a message to the worker pool without blocking the read loop.
// It reports false when the queue is full or the pool is stopped.
func (client *WsClient) dispatch(message []byte) bool {
	return client.workerPool.TrySubmit(func() {
		client.handleMessage(message)
	})
}

func (client *WsClient) handleMessage(data []byte) {
	msg, err := ParseClientMessage(data)
	if err != nil {
		client.logger.Debug().Err(err).Msg("Rejected malformed message")
		reason := shared.ErrInvalidRequest.Error()
		if errors.Is(err, shared.ErrMessageTypeRequired) {
			reason = err.Error()
		}
		client.Send(NewErrorMessage(MessageTypeError, reason, ""))
		return
	}

	if msg.Type == MessageTypePing {
		client.Send(NewServerMessage(MessageTypePong))
		return
	}

	client.handler.HandleClientMessage(client, msg)
}
