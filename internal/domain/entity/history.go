// internal/domain/entity/history.go
package entity

import (
	"time"
)

// Status is the lifecycle state of a history entry. Processing is the sole
// initial state; the other three are terminal and absorbing.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusDeclined   Status = "declined"
	StatusFailed     Status = "failed"
	StatusSucceeded  Status = "succeeded"
)

// Terminal reports whether no further transition is allowed from s.
func (s Status) Terminal() bool {
	return s == StatusDeclined || s == StatusFailed || s == StatusSucceeded
}

// HistoryEntry is the persisted, lifecycle-tracked record for one submitted
// ticket. Images is populated on reads for the dashboard feed and on the
// new-entry broadcast; it is not stored on the history document itself.
type HistoryEntry struct {
	ID                string        `bson:"_id,omitempty" json:"id"`
	Origin            string        `bson:"origin" json:"origin"`
	Destination       string        `bson:"destination" json:"destination"`
	DepartureDate     time.Time     `bson:"departureDate" json:"departureDate"`
	BackDate          time.Time     `bson:"backDate" json:"backDate"`
	Price             int           `bson:"price" json:"price"`
	Currency          string        `bson:"currency" json:"currency"`
	FullInfo          TicketData    `bson:"fullInfo" json:"fullInfo"`
	Status            Status        `bson:"status" json:"status"`
	StatusDescription string        `bson:"statusDescription" json:"statusDescription"`
	Images            []ImageRecord `bson:"-" json:"images,omitempty"`
	CreatedAt         time.Time     `bson:"createdAt" json:"createdAt"`
}

// UserCredentials is the stored credential pair for a dashboard user.
// Session handling lives outside this service.
type UserCredentials struct {
	Username string `bson:"username" json:"username"`
	Password string `bson:"password" json:"-"`
	UUID     string `bson:"uuid" json:"uuid"`
}
