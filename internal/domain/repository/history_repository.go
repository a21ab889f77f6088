package repository

import (
	"context"
	"time"

	"fareanomaly-service/internal/domain/entity"
)

// HistoryRepository defines the interface for history entry operations
type HistoryRepository interface {
	Insert(ctx context.Context, entry *entity.HistoryEntry) (string, error)
	UpdateStatus(ctx context.Context, id string, status entity.Status, description string) error
	GetRecent(ctx context.Context, n, skip int) ([]entity.HistoryEntry, error)
	FailStuck(ctx context.Context, olderThan time.Duration) (int64, error)
}
