package repositories

import (
	"context"
	"fmt"
	"time"

	"todoapi/internal/apperrors"
	"todoapi/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GORMTaskRepository is a GORM implementation of TaskRepository.
type GORMTaskRepository struct {
	db *gorm.DB
}

// NewGORMTaskRepository creates a new instance of GORMTaskRepository.
func NewGORMTaskRepository(db *gorm.DB) *GORMTaskRepository {
	return &GORMTaskRepository{
		db: db,
	}
}

// Create inserts a new task.
func (r *GORMTaskRepository) Create(ctx context.Context, task *models.Task) error {
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// ListByOwner returns the owner's tasks, newest first.
func (r *GORMTaskRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Task, error) {
	tasks := make([]models.Task, 0)
	if err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("failed to list tasks for owner %s: %w", ownerID, err)
	}
	return tasks, nil
}

// GetByIDForOwner retrieves one task owned by ownerID.
func (r *GORMTaskRepository) GetByIDForOwner(ctx context.Context, id, ownerID string) (*models.Task, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("task id %q: %w", id, apperrors.ErrMalformedID)
	}
	var tasks []models.Task
	if err := r.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Limit(1).
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("failed to get task %s: %w", id, err)
	}
	if len(tasks) == 0 {
		return nil, fmt.Errorf("task %s: %w", id, apperrors.ErrNotFound)
	}
	return &tasks[0], nil
}

// UpdateForOwner applies patch with a single UPDATE ... RETURNING filtered by id and owner.
// An empty patch degrades to a scoped read.
func (r *GORMTaskRepository) UpdateForOwner(ctx context.Context, id, ownerID string, patch models.TaskPatch) (*models.Task, error) {
	if patch.IsEmpty() {
		return r.GetByIDForOwner(ctx, id, ownerID)
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("task id %q: %w", id, apperrors.ErrMalformedID)
	}

	fields := patch.Fields()
	fields["updated_at"] = time.Now()

	var updated []models.Task
	res := r.db.WithContext(ctx).
		Model(&updated).
		Clauses(clause.Returning{}).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Updates(fields)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to update task %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 || len(updated) == 0 {
		return nil, fmt.Errorf("task %s: %w", id, apperrors.ErrNotFound)
	}
	return &updated[0], nil
}

// DeleteForOwner removes the task with a single DELETE ... RETURNING filtered by id and owner.
func (r *GORMTaskRepository) DeleteForOwner(ctx context.Context, id, ownerID string) (*models.Task, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("task id %q: %w", id, apperrors.ErrMalformedID)
	}

	var deleted []models.Task
	res := r.db.WithContext(ctx).
		Clauses(clause.Returning{}).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Delete(&deleted)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to delete task %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 || len(deleted) == 0 {
		return nil, fmt.Errorf("task %s: %w", id, apperrors.ErrNotFound)
	}
	return &deleted[0], nil
}
