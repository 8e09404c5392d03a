package lifecycle

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisInbox stores each event inbox as a Redis stream.
type RedisInbox struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisInbox creates an inbox; streams are named prefix + event id.
func NewRedisInbox(client redis.UniversalClient, prefix string) *RedisInbox {
	if prefix == "" {
		prefix = "eventkit:inbox:"
	}
	return &RedisInbox{client: client, prefix: prefix}
}

func (r *RedisInbox) key(eventID string) string {
	return r.prefix + eventID
}

// Append implements Inbox.
func (r *RedisInbox) Append(ctx context.Context, eventID string, s Signal) (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("marshal signal: %w", err)
	}

	id, err := r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: r.key(eventID),
		Values: map[string]any{"signal": data},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("append signal for %s: %w", eventID, err)
	}
	return id, nil
}

// Read implements Inbox.
func (r *RedisInbox) Read(ctx context.Context, eventID, after string) ([]Envelope, error) {
	start := "-"
	if after != "" {
		start = "(" + after
	}

	msgs, err := r.client.XRange(ctx, r.key(eventID), start, "+").Result()
	if err != nil {
		return nil, fmt.Errorf("read inbox of %s: %w", eventID, err)
	}

	out := make([]Envelope, 0, len(msgs))
	for _, msg := range msgs {
		raw, ok := msg.Values["signal"].(string)
		if !ok {
			return nil, fmt.Errorf("inbox entry %s of %s has no signal", msg.ID, eventID)
		}
		var s Signal
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			return nil, fmt.Errorf("decode inbox entry %s: %w", msg.ID, err)
		}
		out = append(out, Envelope{ID: msg.ID, Signal: s, ReceivedAt: streamIDTime(msg.ID)})
	}
	return out, nil
}

// Trim implements Inbox with XTRIM MINID, which keeps upTo itself.
func (r *RedisInbox) Trim(ctx context.Context, eventID, upTo string) error {
	if upTo == "" {
		return nil
	}
	if err := r.client.XTrimMinID(ctx, r.key(eventID), upTo).Err(); err != nil {
		return fmt.Errorf("trim inbox of %s: %w", eventID, err)
	}
	return nil
}

// Delete implements Inbox.
func (r *RedisInbox) Delete(ctx context.Context, eventID string) error {
	if err := r.client.Del(ctx, r.key(eventID)).Err(); err != nil {
		return fmt.Errorf("delete inbox of %s: %w", eventID, err)
	}
	return nil
}

// streamIDTime extracts the millisecond timestamp part of a stream entry id.
func streamIDTime(id string) time.Time {
	ms, _, _ := strings.Cut(id, "-")
	n, err := strconv.ParseInt(ms, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(n)
}
