package handlers

import (
	"todoapi/internal/middleware"
	"todoapi/internal/models"
	"todoapi/internal/services"

	"github.com/gofiber/fiber/v2"
)

// TaskHandler handles HTTP requests related to tasks.
// All routes expect the identity gate to have run.
type TaskHandler struct {
	service  *services.TaskService
	validate *RequestValidator
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(service *services.TaskService, validate *RequestValidator) *TaskHandler {
	return &TaskHandler{
		service:  service,
		validate: validate,
	}
}

// RegisterRoutes registers the task routes on an already gated router.
func (h *TaskHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/", h.CreateTask)
	router.Get("/", h.ListTasks)
	router.Get("/:id", h.GetTask)
	router.Put("/:id", h.UpdateTask)
	router.Delete("/:id", h.DeleteTask)
}

// CreateTask handles POST /api/tasks.
func (h *TaskHandler) CreateTask(c *fiber.Ctx) error {
	var req models.CreateTaskRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	req.Normalize()
	if err := h.validate.Struct(req); err != nil {
		return err
	}

	task, err := h.service.CreateTask(c.UserContext(), middleware.UserID(c), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Task created successfully",
		"task":    task,
	})
}

// ListTasks handles GET /api/tasks.
func (h *TaskHandler) ListTasks(c *fiber.Ctx) error {
	tasks, err := h.service.ListTasks(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return err
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	return c.JSON(fiber.Map{
		"message": "Tasks retrieved successfully",
		"count":   len(tasks),
		"tasks":   tasks,
	})
}

// GetTask handles GET /api/tasks/:id.
func (h *TaskHandler) GetTask(c *fiber.Ctx) error {
	task, err := h.service.GetTask(c.UserContext(), c.Params("id"), middleware.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "Task retrieved successfully",
		"task":    task,
	})
}

// UpdateTask handles PUT /api/tasks/:id. Only fields present in the body change.
func (h *TaskHandler) UpdateTask(c *fiber.Ctx) error {
	var req models.UpdateTaskRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	req.Normalize()
	if err := h.validate.Struct(req); err != nil {
		return err
	}

	task, err := h.service.UpdateTask(c.UserContext(), c.Params("id"), middleware.UserID(c), req.Patch())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "Task updated successfully",
		"task":    task,
	})
}

// DeleteTask handles DELETE /api/tasks/:id and echoes the removed task.
func (h *TaskHandler) DeleteTask(c *fiber.Ctx) error {
	task, err := h.service.DeleteTask(c.UserContext(), c.Params("id"), middleware.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "Task deleted successfully",
		"task":    task,
	})
}
