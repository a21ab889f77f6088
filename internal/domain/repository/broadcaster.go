package repository

import (
	"fareanomaly-service/internal/domain/entity"
)

// Broadcaster fans lifecycle events out to connected dashboard clients.
// Delivery is fire-and-forget to zero or more live subscribers.
type Broadcaster interface {
	PublishStatusUpdate(id string, status entity.Status, description string) error
	PublishNewEntry(entry *entity.HistoryEntry) error
}
