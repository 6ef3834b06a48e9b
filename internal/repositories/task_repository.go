package repositories

import (
	"context"

	"todoapi/internal/models"
)

// TaskRepository defines the interface for task data access.
// Every method except Create filters by id and owner in a single store operation,
// so a foreign task is reported as apperrors.ErrNotFound exactly like a missing one.
type TaskRepository interface {
	Create(ctx context.Context, task *models.Task) error
	ListByOwner(ctx context.Context, ownerID string) ([]models.Task, error)
	GetByIDForOwner(ctx context.Context, id, ownerID string) (*models.Task, error)
	UpdateForOwner(ctx context.Context, id, ownerID string, patch models.TaskPatch) (*models.Task, error)
	DeleteForOwner(ctx context.Context, id, ownerID string) (*models.Task, error)
}
