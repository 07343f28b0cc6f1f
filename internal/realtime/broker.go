// Package realtime pushes committed notifications to connected clients.
//
// A Broker fans notifications out per user. Hub keeps subscribers in process;
// RedisBroker relays through Redis pub/sub so every server instance sees every
// notification.
package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/civicpulse/civicpulse/internal/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// subscriberBuffer is how many undelivered messages a slow subscriber may
// hold before new ones are dropped.
const subscriberBuffer = 32

// Message is the wire form of a notification.
type Message struct {
	ID                 uuid.UUID  `json:"id"`
	UserID             uuid.UUID  `json:"user_id"`
	Message            string     `json:"message"`
	Type               string     `json:"type"`
	RelatedComplaintID *uuid.UUID `json:"related_complaint_id,omitempty"`
	IsRead             bool       `json:"is_read"`
	CreatedAt          time.Time  `json:"created_at"`
}

// NewMessage converts a notification to its wire form.
func NewMessage(n domain.Notification) Message {
	return Message{
		ID:                 n.ID,
		UserID:             n.UserID,
		Message:            n.Message,
		Type:               n.Type.String(),
		RelatedComplaintID: n.RelatedComplaintID,
		IsRead:             n.IsRead,
		CreatedAt:          n.CreatedAt,
	}
}

// Broker publishes notifications and hands out per-user subscriptions.
type Broker interface {
	Publish(ctx context.Context, n domain.Notification) error
	Subscribe(ctx context.Context, userID uuid.UUID) (*Subscription, error)
}

// Subscription receives messages for one user until closed.
type Subscription struct {
	UserID uuid.UUID
	C      <-chan Message

	once    sync.Once
	closeFn func()
}

// Close stops delivery and releases the subscription. Safe to call twice.
func (s *Subscription) Close() {
	s.once.Do(s.closeFn)
}

// =============================================================================
// In-process hub
// =============================================================================

// Hub is an in-process Broker.
type Hub struct {
	mu   sync.RWMutex
	subs map[uuid.UUID]map[chan Message]struct{}
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[uuid.UUID]map[chan Message]struct{})}
}

// Publish delivers to every subscriber of the recipient. Subscribers with a
// full buffer miss the message; the inbox still has it.
func (h *Hub) Publish(_ context.Context, n domain.Notification) error {
	h.deliver(n.UserID, NewMessage(n))
	return nil
}

func (h *Hub) deliver(userID uuid.UUID, msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[userID] {
		select {
		case ch <- msg:
		default:
		}
	}
}

// Subscribe registers a subscriber for userID.
func (h *Hub) Subscribe(_ context.Context, userID uuid.UUID) (*Subscription, error) {
	ch := make(chan Message, subscriberBuffer)

	h.mu.Lock()
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[chan Message]struct{})
	}
	h.subs[userID][ch] = struct{}{}
	h.mu.Unlock()

	return &Subscription{
		UserID: userID,
		C:      ch,
		closeFn: func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs[userID], ch)
			if len(h.subs[userID]) == 0 {
				delete(h.subs, userID)
			}
			close(ch)
		},
	}, nil
}

// Subscribers returns the number of open subscriptions for userID.
func (h *Hub) Subscribers(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}

// =============================================================================
// Redis broker
// =============================================================================

const channelPrefix = "civicpulse:notifications:"

// Channel returns the pub/sub channel carrying userID's notifications.
func Channel(userID uuid.UUID) string {
	return channelPrefix + userID.String()
}

// RedisBroker relays notifications through Redis pub/sub.
type RedisBroker struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisBroker creates a RedisBroker.
func NewRedisBroker(client *redis.Client, logger *slog.Logger) *RedisBroker {
	return &RedisBroker{client: client, logger: logger}
}

// Publish sends the notification to the recipient's channel.
func (b *RedisBroker) Publish(ctx context.Context, n domain.Notification) error {
	payload, err := json.Marshal(NewMessage(n))
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, Channel(n.UserID), payload).Err()
}

// Subscribe opens a Redis subscription for userID. Messages that fail to
// decode are logged and skipped.
func (b *RedisBroker) Subscribe(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	pubsub := b.client.Subscribe(ctx, Channel(userID))
	// Wait for confirmation so no publish between here and the first read is lost.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, err
	}

	out := make(chan Message, subscriberBuffer)
	done := make(chan struct{})

	go func() {
		defer close(out)
		in := pubsub.Channel()
		for {
			select {
			case <-done:
				return
			case raw, ok := <-in:
				if !ok {
					return
				}
				var msg Message
				if err := json.Unmarshal([]byte(raw.Payload), &msg); err != nil {
					b.logger.Warn("dropping malformed notification", "channel", raw.Channel, "error", err)
					continue
				}
				select {
				case out <- msg:
				default:
				}
			}
		}
	}()

	return &Subscription{
		UserID: userID,
		C:      out,
		closeFn: func() {
			close(done)
			if err := pubsub.Close(); err != nil {
				b.logger.Debug("closing notification subscription", "user_id", userID, "error", err)
			}
		},
	}, nil
}
