// Package cache keeps the per-match action history in Redis.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultTTL is how long a match history is kept after its last action.
const DefaultTTL = 24 * time.Hour

// ActionRecord is one accepted action or match event.
type ActionRecord struct {
	MatchID     uuid.UUID      `json:"matchId"`
	ActionIndex int            `json:"actionIndex"`
	Seat        int            `json:"seat"` // -1 for match events
	ActionType  string         `json:"actionType"`
	Payload     map[string]any `json:"payload,omitempty"`
	Timestamp   int64          `json:"timestamp"` // unix millis
}

// Historian appends action records to a Redis list per match. A nil
// *Historian is valid and drops everything.
type Historian struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewHistorian connects to the Redis server at url (redis://...) and checks
// it answers.
func NewHistorian(ctx context.Context, url string, ttl time.Duration) (*Historian, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewHistorianFromClient(rdb, ttl), nil
}

// NewHistorianFromClient wraps an existing client.
func NewHistorianFromClient(rdb *redis.Client, ttl time.Duration) *Historian {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Historian{rdb: rdb, ttl: ttl}
}

// ActionsKey is the list holding the history of a match.
func ActionsKey(matchID uuid.UUID) string {
	return "match:" + matchID.String() + ":actions"
}

// PublishAction appends rec to its match history and refreshes the expiry.
func (h *Historian) PublishAction(ctx context.Context, rec ActionRecord) error {
	if h == nil || h.rdb == nil {
		return nil
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal action record: %w", err)
	}
	key := ActionsKey(rec.MatchID)
	pipe := h.rdb.TxPipeline()
	pipe.RPush(ctx, key, b)
	pipe.Expire(ctx, key, h.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish action %d of match %s: %w", rec.ActionIndex, rec.MatchID, err)
	}
	return nil
}

// Actions returns the recorded history of a match in order.
func (h *Historian) Actions(ctx context.Context, matchID uuid.UUID) ([]ActionRecord, error) {
	if h == nil || h.rdb == nil {
		return nil, nil
	}
	raw, err := h.rdb.LRange(ctx, ActionsKey(matchID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read actions of match %s: %w", matchID, err)
	}
	out := make([]ActionRecord, 0, len(raw))
	for _, s := range raw {
		var rec ActionRecord
		if err := json.Unmarshal([]byte(s), &rec); err != nil {
			return nil, fmt.Errorf("decode action record: %w", err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// Close releases the Redis connection pool.
func (h *Historian) Close() error {
	if h == nil || h.rdb == nil {
		return nil
	}
	return h.rdb.Close()
}
