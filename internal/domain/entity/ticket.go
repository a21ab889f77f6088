// internal/domain/entity/ticket.go
package entity

// Currency codes the pipeline can attach to a ticket. Derived from the
// first segment's origin country; rub is the fallback.
const (
	CurrencyRUB = "rub"
	CurrencyUAH = "uah"
	CurrencyKZT = "kzt"
	CurrencyUSD = "usd"
)

// Coordinates is a geographic point as returned by the city lookup API.
type Coordinates struct {
	Lat float64 `bson:"lat" json:"lat"`
	Lon float64 `bson:"lon" json:"lon"`
}

// Place is one endpoint of a flight segment. Code is always present after
// decoding; the remaining fields are filled in by route enrichment.
type Place struct {
	Code        string      `bson:"code" json:"code"`
	Name        string      `bson:"name,omitempty" json:"name,omitempty"`
	CityCode    string      `bson:"cityCode,omitempty" json:"cityCode,omitempty"`
	CountryCode string      `bson:"countryCode,omitempty" json:"countryCode,omitempty"`
	Coordinates Coordinates `bson:"coordinates,omitempty" json:"coordinates,omitempty"`
}

// Segment is one directed flight leg decoded from a ticket token.
type Segment struct {
	DepartureTimestamp int64    `bson:"departureTimestamp" json:"departureTimestamp"`
	ArrivalTimestamp   int64    `bson:"arrivalTimestamp" json:"arrivalTimestamp"`
	DurationMinutes    int      `bson:"durationMinutes" json:"durationMinutes"`
	Origin             Place    `bson:"origin" json:"origin"`
	Destination        Place    `bson:"destination" json:"destination"`
	Stops              []string `bson:"stops" json:"stops"`
}

// TicketData is the decoded and enriched aggregate for one ticket token.
// RawToken keeps the original input so links can be re-derived later.
type TicketData struct {
	Segments []Segment `bson:"segments" json:"segments"`
	Price    int       `bson:"price" json:"price"`
	Airline  string    `bson:"airline" json:"airline"`
	Currency string    `bson:"currency" json:"currency"`
	RawToken string    `bson:"rawToken" json:"rawToken"`
}

// Origin returns the first segment's origin place.
func (t *TicketData) Origin() Place {
	return t.Segments[0].Origin
}

// Destination returns the first segment's destination place. The outbound
// leg defines the posted route.
func (t *TicketData) Destination() Place {
	return t.Segments[0].Destination
}
