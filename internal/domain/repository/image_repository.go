package repository

import (
	"context"

	"fareanomaly-service/internal/domain/entity"
)

// ImageRepository defines the interface for destination image records
type ImageRepository interface {
	GetByDestination(ctx context.Context, cityCode string) ([]entity.ImageRecord, error)
	GetAll(ctx context.Context) ([]entity.ImageRecord, error)
	Save(ctx context.Context, name string) (*entity.ImageRecord, error)
	Delete(ctx context.Context, name string) error
}

// ImageSource loads the stored bytes of an uploaded image by record name
type ImageSource interface {
	Load(ctx context.Context, name string) ([]byte, error)
}
