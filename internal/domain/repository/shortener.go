package repository

import (
	"context"
)

// LinkShortener shortens an offer deep link. The shortened link expires at
// the given unix timestamp (the ticket's departure time).
type LinkShortener interface {
	Shorten(ctx context.Context, url string, expiresAt int64) (string, error)
}
