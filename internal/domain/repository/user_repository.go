package repository

import (
	"context"

	"fareanomaly-service/internal/domain/entity"
)

// UserRepository defines the interface for dashboard user credential lookups
type UserRepository interface {
	GetCredentials(ctx context.Context, username string) (*entity.UserCredentials, error)
}
