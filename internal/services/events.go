package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AnshRaj112/moodlog-backend/internal/models"
)

// EntryEventType names a change to an owner's entries.
type EntryEventType string

const (
	EntryCreated EntryEventType = "entry.created"
	EntryUpdated EntryEventType = "entry.updated"
	EntryDeleted EntryEventType = "entry.deleted"
)

const (
	entryChannelPrefix  = "entries:owner:"
	entryChannelPattern = entryChannelPrefix + "*"
	subscriberBuffer    = 16
)

// EntryEvent is the payload delivered over Redis and the events WebSocket.
type EntryEvent struct {
	Type      EntryEventType `json:"type"`
	OwnerID   string         `json:"ownerId"`
	EntryID   string         `json:"entryId"`
	Entry     *models.Entry  `json:"entry,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Hub fans entry events out to the local subscribers of each owner.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[chan EntryEvent]struct{}
	log  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		subs: make(map[string]map[chan EntryEvent]struct{}),
		log:  logger.With("component", "entry_hub"),
	}
}

// Subscribe registers a listener for owner. The returned func unsubscribes and
// closes the channel; it is safe to call more than once.
func (h *Hub) Subscribe(owner string) (<-chan EntryEvent, func()) {
	ch := make(chan EntryEvent, subscriberBuffer)

	h.mu.Lock()
	if h.subs[owner] == nil {
		h.subs[owner] = make(map[chan EntryEvent]struct{})
	}
	h.subs[owner][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[owner], ch)
			if len(h.subs[owner]) == 0 {
				delete(h.subs, owner)
			}
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Publish delivers ev to the owner's local subscribers. Slow subscribers miss
// events instead of blocking the publisher.
func (h *Hub) Publish(ctx context.Context, ev EntryEvent) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subs[ev.OwnerID] {
		select {
		case ch <- ev:
		default:
			h.log.WarnContext(ctx, "subscriber buffer full, dropping event",
				slog.String("owner_id", ev.OwnerID),
				slog.String("type", string(ev.Type)),
			)
		}
	}
	return nil
}

// Subscribers returns the number of local listeners for owner.
func (h *Hub) Subscribers(owner string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[owner])
}

// RedisBroker relays entry events between instances over Redis pub/sub.
// Publish sends to Redis only; Run feeds every received event into the local hub.
type RedisBroker struct {
	client *redis.Client
	hub    *Hub
	log    *slog.Logger
}

func NewRedisBroker(client *redis.Client, hub *Hub, logger *slog.Logger) *RedisBroker {
	return &RedisBroker{
		client: client,
		hub:    hub,
		log:    logger.With("component", "entry_broker"),
	}
}

// Publish sends ev on the owner's channel.
func (b *RedisBroker) Publish(ctx context.Context, ev EntryEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode entry event: %w", err)
	}
	if err := b.client.Publish(ctx, entryChannelPrefix+ev.OwnerID, data).Err(); err != nil {
		return fmt.Errorf("publish entry event: %w", err)
	}
	return nil
}

// Run subscribes to every owner channel until ctx ends, reconnecting with
// exponential backoff capped at 30s.
func (b *RedisBroker) Run(ctx context.Context) {
	backoff := time.Second

	for ctx.Err() == nil {
		err := b.receive(ctx, func() { backoff = time.Second })
		if ctx.Err() != nil {
			return
		}
		b.log.ErrorContext(ctx, "entry subscriber error",
			slog.String("error", err.Error()),
			slog.Duration("retry_in", backoff),
		)

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > 30*time.Second {
			backoff = 30 * time.Second
		}
	}
}

func (b *RedisBroker) receive(ctx context.Context, onMessage func()) error {
	pubsub := b.client.PSubscribe(ctx, entryChannelPattern)
	defer pubsub.Close()

	b.log.InfoContext(ctx, "entry subscriber started", slog.String("pattern", entryChannelPattern))

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			return err
		}
		onMessage()

		var ev EntryEvent
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			b.log.WarnContext(ctx, "malformed entry event", slog.String("error", err.Error()))
			continue
		}
		_ = b.hub.Publish(ctx, ev)
	}
}
