package services

import (
	"context"

	"todoapi/internal/apperrors"
	"todoapi/internal/models"
	"todoapi/internal/repositories"
	"todoapi/pkg/rabbitmq"

	"github.com/sirupsen/logrus"
)

const taskResource = "Task"

// TaskService handles business logic related to tasks. Every method takes the
// owner id produced by the identity gate, never one supplied by the client.
type TaskService struct {
	repo   repositories.TaskRepository
	events EventPublisher
	log    logrus.FieldLogger
}

// NewTaskService creates a new TaskService. A nil publisher disables events.
func NewTaskService(repo repositories.TaskRepository, events EventPublisher, log logrus.FieldLogger) *TaskService {
	if events == nil {
		events = rabbitmq.NoopPublisher{}
	}
	return &TaskService{
		repo:   repo,
		events: events,
		log:    log,
	}
}

// CreateTask stores a new task owned by ownerID.
func (s *TaskService) CreateTask(ctx context.Context, ownerID string, req models.CreateTaskRequest) (*models.Task, error) {
	task := &models.Task{
		Title:       req.Title,
		Description: req.Description,
		OwnerID:     ownerID,
	}
	if req.Completed != nil {
		task.Completed = *req.Completed
	}
	if err := s.repo.Create(ctx, task); err != nil {
		return nil, apperrors.Internal(err)
	}

	s.log.WithFields(logrus.Fields{"user_id": ownerID, "task_id": task.ID}).Debug("task created")
	s.publish(rabbitmq.NewEvent(rabbitmq.EventTaskCreated, ownerID, task.ID))
	return task, nil
}

// ListTasks returns all tasks owned by ownerID.
func (s *TaskService) ListTasks(ctx context.Context, ownerID string) ([]models.Task, error) {
	tasks, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return tasks, nil
}

// GetTask returns one task owned by ownerID.
func (s *TaskService) GetTask(ctx context.Context, id, ownerID string) (*models.Task, error) {
	task, err := s.repo.GetByIDForOwner(ctx, id, ownerID)
	if err != nil {
		return nil, apperrors.FromStore(err, taskResource)
	}
	return task, nil
}

// UpdateTask applies only the fields present in patch.
func (s *TaskService) UpdateTask(ctx context.Context, id, ownerID string, patch models.TaskPatch) (*models.Task, error) {
	task, err := s.repo.UpdateForOwner(ctx, id, ownerID, patch)
	if err != nil {
		return nil, apperrors.FromStore(err, taskResource)
	}
	if !patch.IsEmpty() {
		s.publish(rabbitmq.NewEvent(rabbitmq.EventTaskUpdated, ownerID, task.ID))
	}
	return task, nil
}

// DeleteTask removes a task owned by ownerID and returns it.
func (s *TaskService) DeleteTask(ctx context.Context, id, ownerID string) (*models.Task, error) {
	task, err := s.repo.DeleteForOwner(ctx, id, ownerID)
	if err != nil {
		return nil, apperrors.FromStore(err, taskResource)
	}
	s.publish(rabbitmq.NewEvent(rabbitmq.EventTaskDeleted, ownerID, task.ID))
	return task, nil
}

func (s *TaskService) publish(event rabbitmq.Event) {
	if err := s.events.PublishEvent(event); err != nil {
		s.log.WithError(err).WithField("event", event.Type).Warn("failed to publish event")
	}
}
