package usecase

import (
	"context"
	"time"

	"fareanomaly-service/internal/domain/entity"
	"fareanomaly-service/internal/domain/repository"
	"fareanomaly-service/pkg/logger"
)

// Lifecycle owns the status field of history entries. Every transition goes
// through SetStatus so storage and connected dashboards never disagree.
// Terminal statuses are absorbing; callers must not transition an entry
// they already moved to declined, failed or succeeded.
type Lifecycle struct {
	historyRepo repository.HistoryRepository
	imageRepo   repository.ImageRepository
	broadcaster repository.Broadcaster
	logger      logger.Logger
}

// NewLifecycle creates a new lifecycle propagator
func NewLifecycle(
	historyRepo repository.HistoryRepository,
	imageRepo repository.ImageRepository,
	broadcaster repository.Broadcaster,
	logger logger.Logger,
) *Lifecycle {
	return &Lifecycle{
		historyRepo: historyRepo,
		imageRepo:   imageRepo,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// CreateEntry persists a new history entry in the initial processing state
// and broadcasts it. The outbound leg defines the posted route; the back
// date is the last segment's arrival.
func (l *Lifecycle) CreateEntry(ctx context.Context, data *entity.TicketData) (*entity.HistoryEntry, error) {
	first := data.Segments[0]
	last := data.Segments[len(data.Segments)-1]

	entry := &entity.HistoryEntry{
		Origin:            first.Origin.CityCode,
		Destination:       first.Destination.CityCode,
		DepartureDate:     time.Unix(first.DepartureTimestamp, 0).UTC(),
		BackDate:          time.Unix(last.ArrivalTimestamp, 0).UTC(),
		Price:             data.Price,
		Currency:          data.Currency,
		FullInfo:          *data,
		Status:            entity.StatusProcessing,
		StatusDescription: "Processing started",
		CreatedAt:         time.Now(),
	}

	id, err := l.historyRepo.Insert(ctx, entry)
	if err != nil {
		return nil, err
	}
	entry.ID = id

	images, err := l.imageRepo.GetByDestination(ctx, entry.Destination)
	if err != nil {
		l.logger.Warn("Failed to attach destination images to new-entry broadcast", "destination", entry.Destination, "error", err)
		images = []entity.ImageRecord{}
	}
	entry.Images = images

	if err := l.broadcaster.PublishNewEntry(entry); err != nil {
		l.logger.Warn("Failed to broadcast new entry", "id", entry.ID, "error", err)
	}

	return entry, nil
}

// SetStatus persists a status transition and broadcasts it. A storage
// failure propagates to the caller; a broadcast failure is logged only.
func (l *Lifecycle) SetStatus(ctx context.Context, id string, status entity.Status, description string) error {
	if err := l.historyRepo.UpdateStatus(ctx, id, status, description); err != nil {
		return err
	}

	if err := l.broadcaster.PublishStatusUpdate(id, status, description); err != nil {
		l.logger.Warn("Failed to broadcast status update", "id", id, "status", status, "error", err)
	}

	return nil
}
