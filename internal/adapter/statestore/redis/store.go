// Package redis implements the conversation state store on Redis.
//
// Keys are partitioned by intent kind and derived from a 64-bit FNV-1a hash
// of the conversation id. Entries carry their creation time and are expired
// lazily on read against the kind's logical TTL; a Redis key TTL of twice
// the logical TTL acts as a garbage-collection backstop.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/merakitalent/fernando-format/internal/domain"
)

const maxConversationIDLen = 900

// Store implements domain.StateStore.
type Store struct {
	rdb *redis.Client
	now func() time.Time
}

// New constructs a Store around an existing Redis client.
func New(rdb *redis.Client) *Store {
	return &Store{rdb: rdb, now: time.Now}
}

// NewWithClock is used by tests to control TTL boundaries.
func NewWithClock(rdb *redis.Client, now func() time.Time) *Store {
	return &Store{rdb: rdb, now: now}
}

func key(conversationID string, kind domain.IntentKind) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(conversationID))
	return fmt.Sprintf("botstate:%s:%016x", kind, h.Sum64())
}

// Get returns the pending intent for the conversation and kind, or nil when
// absent or expired. An entry observed past its TTL is deleted as a side
// effect of the read.
func (s *Store) Get(ctx context.Context, conversationID string, kind domain.IntentKind) (*domain.PendingIntent, error) {
	raw, err := s.rdb.Get(ctx, key(conversationID, kind)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %v", domain.ErrStateStore, kind, err)
	}
	var intent domain.PendingIntent
	if err := json.Unmarshal(raw, &intent); err != nil {
		// Unreadable state is treated as absent; drop it so it cannot
		// wedge the conversation.
		_ = s.rdb.Del(ctx, key(conversationID, kind)).Err()
		return nil, nil
	}
	if s.now().Sub(intent.CreatedAt) >= kind.TTL() {
		_ = s.rdb.Del(ctx, key(conversationID, kind)).Err()
		return nil, nil
	}
	return &intent, nil
}

// Set upserts the intent under its conversation+kind slot, overwriting any
// existing entry of the same kind.
func (s *Store) Set(ctx context.Context, intent domain.PendingIntent) error {
	// Key from the full id; only the stored copy is truncated.
	k := key(intent.ConversationID, intent.Kind)
	if len(intent.ConversationID) > maxConversationIDLen {
		intent.ConversationID = intent.ConversationID[:maxConversationIDLen]
	}
	if intent.CreatedAt.IsZero() {
		intent.CreatedAt = s.now().UTC()
	}
	raw, err := json.Marshal(intent)
	if err != nil {
		return fmt.Errorf("%w: marshal: %v", domain.ErrStateStore, err)
	}
	if err := s.rdb.Set(ctx, k, raw, 2*intent.Kind.TTL()).Err(); err != nil {
		return fmt.Errorf("%w: set %s: %v", domain.ErrStateStore, intent.Kind, err)
	}
	return nil
}

// Clear removes the intent for the conversation and kind. Absent entries are
// not an error.
func (s *Store) Clear(ctx context.Context, conversationID string, kind domain.IntentKind) error {
	if err := s.rdb.Del(ctx, key(conversationID, kind)).Err(); err != nil {
		return fmt.Errorf("%w: clear %s: %v", domain.ErrStateStore, kind, err)
	}
	return nil
}
