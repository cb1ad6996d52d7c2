package broadcaster

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"memebid-service/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	channelPrefix     = "memebid:"
	roomChannelPrefix = channelPrefix + "room:"
	userChannelPrefix = channelPrefix + "user:"
	joinChannelPrefix = channelPrefix + "join:"
	allChannel        = channelPrefix + "all"
)

// RedisBroadcaster relays events through Redis pub/sub so every instance delivers
// to its own connections. Room membership and connections stay in the local Hub.
type RedisBroadcaster struct {
	client *redis.Client
	hub    *Hub
	pubsub *redis.PubSub
	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	logger zerolog.Logger
}

type RedisBroadcasterParams struct {
	RedisClient *redis.Client
	Hub         *Hub
	Logger      zerolog.Logger
}

func NewBroadcaster(params RedisBroadcasterParams) *RedisBroadcaster {
	ctx, cancel := context.WithCancel(context.Background())

	return &RedisBroadcaster{
		client: params.RedisClient,
		hub:    params.Hub,
		ctx:    ctx,
		cancel: cancel,
		logger: params.Logger.With().Str("component", "redis_broadcaster").Logger(),
	}
}

// Start opens the process-wide pattern subscription and begins delivering into the hub
func (r *RedisBroadcaster) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pubsub != nil {
		return nil
	}

	pubsub := r.client.PSubscribe(ctx, channelPrefix+"*")
	// Wait for the subscription confirmation so no early publish is missed
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return fmt.Errorf("failed to subscribe to Redis channels: %w", err)
	}
	r.pubsub = pubsub

	go r.listenForRedisMessages(pubsub)

	r.logger.Info().Str("pattern", channelPrefix+"*").Msg("Redis relay started")
	return nil
}

func (r *RedisBroadcaster) Connect(clientID string, userID uuid.UUID) <-chan outbound.Event {
	return r.hub.Connect(clientID, userID)
}

func (r *RedisBroadcaster) Disconnect(clientID string) {
	r.hub.Disconnect(clientID)
}

func (r *RedisBroadcaster) Subscribe(ctx context.Context, room string, clientID string) error {
	return r.hub.Subscribe(ctx, room, clientID)
}

func (r *RedisBroadcaster) Unsubscribe(ctx context.Context, room string, clientID string) error {
	return r.hub.Unsubscribe(ctx, room, clientID)
}

func (r *RedisBroadcaster) IsSubscribed(ctx context.Context, room string, clientID string) bool {
	return r.hub.IsSubscribed(ctx, room, clientID)
}

// JoinUserToRoom is relayed because the user's connection may live on another instance
func (r *RedisBroadcaster) JoinUserToRoom(ctx context.Context, userID uuid.UUID, room string) error {
	if err := r.client.Publish(ctx, joinChannelPrefix+userID.String(), room).Err(); err != nil {
		r.logger.Error().Err(err).Str("user_id", userID.String()).Str("room_id", room).Msg("Failed to relay room join")
		return fmt.Errorf("failed to publish to Redis: %w", err)
	}
	return nil
}

// Publish publishes an event to all subscribers of a room via Redis
func (r *RedisBroadcaster) Publish(ctx context.Context, room string, event outbound.Event) error {
	event.Room = room
	return r.publish(ctx, roomChannelPrefix+room, event)
}

func (r *RedisBroadcaster) PublishAll(ctx context.Context, event outbound.Event) error {
	return r.publish(ctx, allChannel, event)
}

func (r *RedisBroadcaster) SendToUser(ctx context.Context, userID uuid.UUID, event outbound.Event) error {
	return r.publish(ctx, userChannelPrefix+userID.String(), event)
}

func (r *RedisBroadcaster) publish(ctx context.Context, channel string, event outbound.Event) error {
	eventJSON, err := json.Marshal(stamp(event))
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to marshal event")
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	result := r.client.Publish(ctx, channel, eventJSON)
	if err := result.Err(); err != nil {
		r.logger.Error().Err(err).Str("channel_name", channel).Msg("Failed to publish to Redis")
		return fmt.Errorf("failed to publish to Redis: %w", err)
	}

	r.logger.Debug().
		Str("event_type", string(event.Type)).
		Str("channel_name", channel).
		Int64("subscriber_count", result.Val()).
		Msg("Published event")
	return nil
}

// listenForRedisMessages forwards relayed messages into the local hub
func (r *RedisBroadcaster) listenForRedisMessages(pubsub *redis.PubSub) {
	defer func() {
		if err := recover(); err != nil {
			r.logger.Error().Interface("panic", err).Msg("Redis message listener panic")
		}
	}()

	ch := pubsub.Channel()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				r.logger.Info().Msg("Redis channel closed")
				return
			}
			if err := r.route(msg.Channel, msg.Payload); err != nil {
				r.logger.Error().Err(err).Str("channel_name", msg.Channel).Msg("Failed to deliver relayed message")
			}

		case <-r.ctx.Done():
			r.logger.Info().Msg("Redis broadcaster context cancelled")
			return
		}
	}
}

// route delivers one relayed message to local connections
func (r *RedisBroadcaster) route(channel, payload string) error {
	ctx := r.ctx

	if userID, ok := strings.CutPrefix(channel, joinChannelPrefix); ok {
		id, err := uuid.Parse(userID)
		if err != nil {
			return fmt.Errorf("invalid user in channel: %w", err)
		}
		return r.hub.JoinUserToRoom(ctx, id, payload)
	}

	var event outbound.Event
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return fmt.Errorf("failed to unmarshal event: %w", err)
	}

	switch {
	case channel == allChannel:
		return r.hub.PublishAll(ctx, event)
	case strings.HasPrefix(channel, roomChannelPrefix):
		return r.hub.Publish(ctx, strings.TrimPrefix(channel, roomChannelPrefix), event)
	case strings.HasPrefix(channel, userChannelPrefix):
		id, err := uuid.Parse(strings.TrimPrefix(channel, userChannelPrefix))
		if err != nil {
			return fmt.Errorf("invalid user in channel: %w", err)
		}
		return r.hub.SendToUser(ctx, id, event)
	default:
		return fmt.Errorf("unknown channel %q", channel)
	}
}

// Close stops the relay; the Redis client is owned by the caller
func (r *RedisBroadcaster) Close() error {
	r.cancel()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pubsub == nil {
		return nil
	}
	err := r.pubsub.Close()
	r.pubsub = nil
	return err
}
