// Package notify fans chat events out to the subscribers of a conversation.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/yukikurage/taskflow-api/internal/constants"
)

type EventType string

const (
	EventMessage  EventType = "chat_message"
	EventTyping   EventType = "typing"
	EventRead     EventType = "read_receipt"
	EventReaction EventType = "reaction"
	EventPinned   EventType = "pinned"
	EventUnpinned EventType = "unpinned"
)

// Event is one realtime update on a conversation.
type Event struct {
	Type           EventType       `json:"type"`
	ConversationID uint64          `json:"conversation_id"`
	UserID         uint64          `json:"user_id"`
	Data           json.RawMessage `json:"data,omitempty"`
	SentAt         time.Time       `json:"sent_at"`
}

// NewEvent marshals data into an event.
func NewEvent(kind EventType, conversationID, userID uint64, data interface{}) (Event, error) {
	e := Event{Type: kind, ConversationID: conversationID, UserID: userID, SentAt: time.Now().UTC()}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return Event{}, fmt.Errorf("marshal %s event: %w", kind, err)
		}
		e.Data = raw
	}
	return e, nil
}

// Notifier delivers events to whoever is listening on a conversation right
// now. Delivery is best effort; persisted messages never depend on it.
type Notifier interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(ctx context.Context, conversationID uint64) (<-chan Event, error)
	Close() error
}

// Channel returns the pub/sub channel of a conversation.
func Channel(conversationID uint64) string {
	return constants.ChatChannelPrefix + strconv.FormatUint(conversationID, 10)
}

// RedisNotifier publishes events on redis pub/sub.
type RedisNotifier struct {
	client *redis.Client
	log    *zap.Logger
}

// NewRedisNotifier connects to redis and checks the connection.
func NewRedisNotifier(addr, password string, log *zap.Logger) (*RedisNotifier, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisNotifier{client: client, log: log}, nil
}

func (n *RedisNotifier) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return n.client.Publish(ctx, Channel(event.ConversationID), payload).Err()
}

// Subscribe streams events until ctx is done.
func (n *RedisNotifier) Subscribe(ctx context.Context, conversationID uint64) (<-chan Event, error) {
	pubsub := n.client.Subscribe(ctx, Channel(conversationID))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	events := make(chan Event)
	go func() {
		defer close(events)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var e Event
				if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
					n.log.Warn("dropping malformed chat event", zap.String("channel", msg.Channel), zap.Error(err))
					continue
				}
				select {
				case events <- e:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, nil
}

func (n *RedisNotifier) Close() error {
	return n.client.Close()
}

// NopNotifier drops every event. Used when redis is not configured.
type NopNotifier struct{}

func (NopNotifier) Publish(context.Context, Event) error { return nil }

func (NopNotifier) Subscribe(ctx context.Context, _ uint64) (<-chan Event, error) {
	events := make(chan Event)
	go func() {
		<-ctx.Done()
		close(events)
	}()
	return events, nil
}

func (NopNotifier) Close() error { return nil }
