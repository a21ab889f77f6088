package repository

import (
	"context"

	"fareanomaly-service/internal/domain/entity"
)

// CityInfo is the resolved display data for one IATA code.
type CityInfo struct {
	Name        string
	CityCode    string
	CountryCode string
	Coordinates entity.Coordinates
}

// CityLookup resolves a 3-letter IATA code to city display data
type CityLookup interface {
	Resolve(ctx context.Context, code string) (*CityInfo, error)
}
