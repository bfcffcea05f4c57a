// Package events publishes post lifecycle events to a Redis stream.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/blogpost/blogpost/internal/metrics"
)

const (
	// StreamKey is the Redis stream for post events.
	StreamKey = "stream:post_events"

	// MaxStreamLen is the approximate max length of the stream.
	MaxStreamLen = 10000

	// PublishTimeout is the max time to wait for Redis publish.
	PublishTimeout = 200 * time.Millisecond
)

// Event types.
const (
	TypePostCreated = "post.created"
	TypePostUpdated = "post.updated"
	TypePostDeleted = "post.deleted"
)

// PostEventPayload is the event format written to the stream.
type PostEventPayload struct {
	Type   string `json:"type"`
	PostID string `json:"post_id"`
	At     int64  `json:"t"` // Unix milliseconds
}

// NewPostEvent builds a payload stamped with at.
func NewPostEvent(eventType, postID string, at time.Time) PostEventPayload {
	return PostEventPayload{
		Type:   eventType,
		PostID: postID,
		At:     at.UTC().UnixMilli(),
	}
}

// Validate checks required payload fields.
func (e PostEventPayload) Validate() error {
	switch e.Type {
	case TypePostCreated, TypePostUpdated, TypePostDeleted:
	default:
		return fmt.Errorf("unknown event type %q", e.Type)
	}
	if e.PostID == "" {
		return fmt.Errorf("post_id is required")
	}
	if e.At <= 0 {
		return fmt.Errorf("event time must be set")
	}
	return nil
}

// Publisher enqueues post events to a Redis stream.
type Publisher struct {
	redis   *redis.Client
	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewPublisher creates a new post event publisher.
func NewPublisher(client *redis.Client, logger *slog.Logger, recorder metrics.Recorder) *Publisher {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		redis:   client,
		logger:  logger.With("component", "events.publisher"),
		metrics: recorder,
	}
}

// Publish adds an event to the stream synchronously.
func (p *Publisher) Publish(ctx context.Context, event PostEventPayload) (string, error) {
	if err := event.Validate(); err != nil {
		return "", fmt.Errorf("invalid event: %w", err)
	}

	data, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}

	result, err := p.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamKey,
		MaxLen: MaxStreamLen,
		Approx: true,
		ID:     "*",
		Values: map[string]any{
			"type":    event.Type,
			"payload": string(data),
		},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("xadd: %w", err)
	}

	return result, nil
}

// PublishAsync publishes without blocking the caller.
// Errors are logged but not returned.
func (p *Publisher) PublishAsync(event PostEventPayload) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), PublishTimeout)
		defer cancel()

		streamID, err := p.Publish(ctx, event)
		if err != nil {
			p.logger.Warn("failed to publish post event",
				"type", event.Type,
				"post_id", event.PostID,
				"error", err,
			)
			p.metrics.IncEventPublished("dropped")
			return
		}

		p.logger.Debug("post event published",
			"type", event.Type,
			"post_id", event.PostID,
			"stream_id", streamID,
		)
		p.metrics.IncEventPublished("success")
	}()
}

// StreamEntry is an event read back from the stream.
type StreamEntry struct {
	StreamID string
	Event    PostEventPayload
}

// Recent returns up to count of the newest events, newest first.
// Entries with unreadable payloads are skipped.
func (p *Publisher) Recent(ctx context.Context, count int64) ([]StreamEntry, error) {
	messages, err := p.redis.XRevRangeN(ctx, StreamKey, "+", "-", count).Result()
	if err != nil {
		return nil, fmt.Errorf("xrevrange: %w", err)
	}

	entries := make([]StreamEntry, 0, len(messages))
	for _, msg := range messages {
		event, err := decodeMessage(msg)
		if err != nil {
			p.logger.Warn("skipping unreadable event", "stream_id", msg.ID, "error", err)
			continue
		}
		entries = append(entries, StreamEntry{StreamID: msg.ID, Event: event})
	}

	return entries, nil
}

func decodeMessage(msg redis.XMessage) (PostEventPayload, error) {
	var event PostEventPayload

	raw, ok := msg.Values["payload"].(string)
	if !ok {
		return event, fmt.Errorf("missing payload field")
	}
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		return event, fmt.Errorf("unmarshal payload: %w", err)
	}
	return event, event.Validate()
}
