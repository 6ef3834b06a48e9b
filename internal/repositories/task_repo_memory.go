package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"todoapi/internal/apperrors"
	"todoapi/internal/models"

	"github.com/google/uuid"
)

// MemoryTaskRepository is an in-memory implementation of TaskRepository.
type MemoryTaskRepository struct {
	tasks map[string]models.Task
	mu    sync.RWMutex
}

// NewMemoryTaskRepository creates a new instance of MemoryTaskRepository.
func NewMemoryTaskRepository() *MemoryTaskRepository {
	return &MemoryTaskRepository{
		tasks: make(map[string]models.Task),
	}
}

// Create adds a new task.
func (r *MemoryTaskRepository) Create(_ context.Context, task *models.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	now := time.Now()
	task.CreatedAt = now
	task.UpdatedAt = now
	r.tasks[task.ID] = *task
	return nil
}

// ListByOwner returns the owner's tasks, newest first.
func (r *MemoryTaskRepository) ListByOwner(_ context.Context, ownerID string) ([]models.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	taskList := make([]models.Task, 0)
	for _, t := range r.tasks {
		if t.OwnerID == ownerID {
			taskList = append(taskList, t)
		}
	}
	sort.Slice(taskList, func(i, j int) bool {
		return taskList[i].CreatedAt.After(taskList[j].CreatedAt)
	})
	return taskList, nil
}

// GetByIDForOwner returns a task if it exists and belongs to ownerID.
func (r *MemoryTaskRepository) GetByIDForOwner(_ context.Context, id, ownerID string) (*models.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, err := r.lookup(id, ownerID)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// UpdateForOwner applies patch under the write lock.
func (r *MemoryTaskRepository) UpdateForOwner(_ context.Context, id, ownerID string, patch models.TaskPatch) (*models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, err := r.lookup(id, ownerID)
	if err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return &t, nil
	}
	patch.Apply(&t)
	t.UpdatedAt = time.Now()
	r.tasks[t.ID] = t
	return &t, nil
}

// DeleteForOwner removes a task owned by ownerID.
func (r *MemoryTaskRepository) DeleteForOwner(_ context.Context, id, ownerID string) (*models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, err := r.lookup(id, ownerID)
	if err != nil {
		return nil, err
	}
	delete(r.tasks, t.ID)
	return &t, nil
}

// lookup must be called with the lock held.
func (r *MemoryTaskRepository) lookup(id, ownerID string) (models.Task, error) {
	if _, err := uuid.Parse(id); err != nil {
		return models.Task{}, fmt.Errorf("task id %q: %w", id, apperrors.ErrMalformedID)
	}
	t, ok := r.tasks[id]
	if !ok || t.OwnerID != ownerID {
		return models.Task{}, fmt.Errorf("task %s: %w", id, apperrors.ErrNotFound)
	}
	return t, nil
}
