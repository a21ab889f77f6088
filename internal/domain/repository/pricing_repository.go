package repository

import (
	"context"
	"time"
)

// PricingRepository returns the historical average price for a route and
// period. Fails explicitly when no pricing data exists for the period.
type PricingRepository interface {
	AveragePrice(ctx context.Context, origin, destination string, period time.Time) (int, error)
}
