package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultSessionTTL = 7 * 24 * time.Hour
	sessionKeyPrefix  = "refresh:"
	sessionMarker     = "1"
)

// SessionRegistry stores one revocable session marker per user id.
// Key format: refresh:<user_id>, value is a constant presence flag.
// SET with EX gives atomic set-with-expiry; a second login for the same
// user overwrites the marker and restarts its TTL (last write wins).
type SessionRegistry struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionRegistry creates a SessionRegistry wrapping the given Redis
// client. A non-positive ttl falls back to 7 days.
func NewSessionRegistry(client *redis.Client, ttl time.Duration) *SessionRegistry {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &SessionRegistry{client: client, ttl: ttl}
}

// Put (re)sets the marker for userID with the configured TTL.
func (r *SessionRegistry) Put(ctx context.Context, userID string) error {
	if err := r.client.Set(ctx, r.key(userID), sessionMarker, r.ttl).Err(); err != nil {
		return fmt.Errorf("session put: %w", err)
	}
	return nil
}

// Get reports whether a live marker exists for userID.
func (r *SessionRegistry) Get(ctx context.Context, userID string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(userID)).Result()
	if err != nil {
		return false, fmt.Errorf("session get: %w", err)
	}
	return n > 0, nil
}

// Delete removes the marker for userID. Deleting an absent marker succeeds.
func (r *SessionRegistry) Delete(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, r.key(userID)).Err(); err != nil {
		return fmt.Errorf("session delete: %w", err)
	}
	return nil
}

func (r *SessionRegistry) key(userID string) string {
	return sessionKeyPrefix + userID
}
