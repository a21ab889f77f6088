package usecase

import (
	"context"
	"errors"
	"fmt"

	"fareanomaly-service/internal/domain/entity"
	"fareanomaly-service/internal/domain/repository"
	"fareanomaly-service/pkg/logger"
)

// ErrLookupFailed is returned when a city code cannot be resolved. Callers
// treat decode and enrichment as one atomic parse step, so this failure
// aborts the whole submission before any entry is created.
var ErrLookupFailed = errors.New("city lookup failed")

// Enricher resolves the IATA codes of a decoded ticket to display data and
// derives the ticket currency.
type Enricher struct {
	lookup repository.CityLookup
	logger logger.Logger
}

// NewEnricher creates a new route enricher
func NewEnricher(lookup repository.CityLookup, logger logger.Logger) *Enricher {
	return &Enricher{
		lookup: lookup,
		logger: logger,
	}
}

// Enrich fills in place names, city codes, country codes and coordinates
// for every code in the ticket, then derives the currency from the first
// segment's origin country. Destination country is deliberately ignored.
func (e *Enricher) Enrich(ctx context.Context, data *entity.TicketData) error {
	cache := make(map[string]*repository.CityInfo)

	resolve := func(code string) (*repository.CityInfo, error) {
		if info, ok := cache[code]; ok {
			return info, nil
		}
		info, err := e.lookup.Resolve(ctx, code)
		if err != nil {
			e.logger.Error("Failed to resolve city code", "code", code, "error", err)
			return nil, fmt.Errorf("%w: %s", ErrLookupFailed, code)
		}
		cache[code] = info
		return info, nil
	}

	for i := range data.Segments {
		seg := &data.Segments[i]

		if err := fillPlace(&seg.Origin, resolve); err != nil {
			return err
		}
		if err := fillPlace(&seg.Destination, resolve); err != nil {
			return err
		}
		// Stops are kept as bare codes but still have to resolve
		for _, stop := range seg.Stops {
			if _, err := resolve(stop); err != nil {
				return err
			}
		}
	}

	switch data.Segments[0].Origin.CountryCode {
	case "UA":
		data.Currency = entity.CurrencyUAH
	case "KZ":
		data.Currency = entity.CurrencyKZT
	case "BY":
		data.Currency = entity.CurrencyUSD
	default:
		data.Currency = entity.CurrencyRUB
	}

	return nil
}

func fillPlace(place *entity.Place, resolve func(string) (*repository.CityInfo, error)) error {
	info, err := resolve(place.Code)
	if err != nil {
		return err
	}

	place.Name = info.Name
	place.CityCode = info.CityCode
	place.CountryCode = info.CountryCode
	place.Coordinates = info.Coordinates

	return nil
}
