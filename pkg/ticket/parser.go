package ticket

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"fareanomaly-service/internal/domain/entity"
)

// ErrMalformed is returned for any raw token that does not match the
// fixed-width grammar. Decode failures are expected input noise, never a bug.
var ErrMalformed = errors.New("malformed ticket token")

// Token grammar: {segments}_{signature}_{price}, where the segment block
// starts with a 2-char airline code followed by one or more records of
// [ departure: 10 ][ arrival: 10 ][ duration: 6 ][ IATA codes: 3 each, >= 2 ].
//
// Example:
// DP15583521001558361400000155VKOBTS15588816001558890600000150BTSVKO_1b1590e3d7fdb483711474f1f7fcf611_9435
var (
	airlineRegex = regexp.MustCompile(`^[A-Z0-9]{2}$`)
	segmentRegex = regexp.MustCompile(`[0-9]{26}[A-Z]{3,}`)
	cityRegex    = regexp.MustCompile(`[A-Z]{3}`)
)

// Decode parses a raw deep-link token into ticket data. It is a pure
// function of its input: no I/O, fully deterministic. The returned places
// carry IATA codes only; route enrichment fills in the display data.
func Decode(raw string) (*entity.TicketData, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: empty input", ErrMalformed)
	}

	parts := strings.Split(raw, "_")
	if len(parts) < 3 {
		return nil, fmt.Errorf("%w: want segments_signature_price, got %d part(s)", ErrMalformed, len(parts))
	}

	price, err := strconv.Atoi(parts[2])
	if err != nil {
		return nil, fmt.Errorf("%w: price %q is not an integer", ErrMalformed, parts[2])
	}

	block := parts[0]
	if len(block) < 2 {
		return nil, fmt.Errorf("%w: segment block too short", ErrMalformed)
	}

	airline := block[:2]
	if !airlineRegex.MatchString(airline) {
		return nil, fmt.Errorf("%w: invalid airline code %q", ErrMalformed, airline)
	}

	rawSegments := segmentRegex.FindAllString(block[2:], -1)
	if len(rawSegments) == 0 {
		return nil, fmt.Errorf("%w: no segment records in %q", ErrMalformed, block)
	}

	segments := make([]entity.Segment, 0, len(rawSegments))
	for _, rs := range rawSegments {
		seg, err := decodeSegment(rs)
		if err != nil {
			return nil, err
		}
		segments = append(segments, seg)
	}

	return &entity.TicketData{
		Segments: segments,
		Price:    price,
		Airline:  airline,
		Currency: entity.CurrencyRUB,
		RawToken: raw,
	}, nil
}

// decodeSegment splits one raw record into timestamps, duration and the
// code run. The first code is the origin, the last the destination; anything
// between is a stop. A two-code run yields an empty stops list.
func decodeSegment(rs string) (entity.Segment, error) {
	codes := cityRegex.FindAllString(rs[26:], -1)
	if len(codes) < 2 {
		return entity.Segment{}, fmt.Errorf("%w: segment %q has fewer than 2 city codes", ErrMalformed, rs)
	}

	departure, err := strconv.ParseInt(rs[0:10], 10, 64)
	if err != nil {
		return entity.Segment{}, fmt.Errorf("%w: bad departure timestamp in %q", ErrMalformed, rs)
	}
	arrival, err := strconv.ParseInt(rs[10:20], 10, 64)
	if err != nil {
		return entity.Segment{}, fmt.Errorf("%w: bad arrival timestamp in %q", ErrMalformed, rs)
	}
	duration, err := strconv.Atoi(rs[20:26])
	if err != nil {
		return entity.Segment{}, fmt.Errorf("%w: bad duration in %q", ErrMalformed, rs)
	}

	stops := make([]string, 0, len(codes)-2)
	stops = append(stops, codes[1:len(codes)-1]...)

	return entity.Segment{
		DepartureTimestamp: departure,
		ArrivalTimestamp:   arrival,
		DurationMinutes:    duration,
		Origin:             entity.Place{Code: codes[0]},
		Destination:        entity.Place{Code: codes[len(codes)-1]},
		Stops:              stops,
	}, nil
}
