package repository

import (
	"context"
	"time"
)

// MarkerStore holds keyed, TTL-expiring flags used for post cooldown and
// route dedupe enforcement. SetAbsent is atomic: it sets the marker only if
// it does not exist yet and reports whether the caller acquired it, which is
// what makes the pre-post re-check race-free.
type MarkerStore interface {
	Exists(ctx context.Context, key string) (bool, error)
	SetAbsent(ctx context.Context, key string, ttl time.Duration) (bool, error)
}
