package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers which events a handler already applied.
type IdempotencyStore interface {
	// MarkProcessed records key for ttl once the event was applied. It
	// returns false when the key was already recorded.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	IsProcessed(ctx context.Context, key string) (bool, error)

	Close() error
}

// IdempotencyConfig controls duplicate suppression for event handlers
type IdempotencyConfig struct {
	Enabled bool
	// TTL is how long a processed event ID is remembered
	TTL time.Duration
}

// DefaultIdempotencyConfig remembers event IDs for 24 hours
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{Enabled: true, TTL: 24 * time.Hour}
}
