package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

const healthTimeout = 2 * time.Second

// Pinger reports whether the backing store is reachable.
type Pinger func(ctx context.Context) error

// SystemHandler serves the unauthenticated health and docs endpoints.
type SystemHandler struct {
	ping  Pinger
	store string
	log   logrus.FieldLogger
}

// NewSystemHandler creates a new SystemHandler. A nil ping always reports healthy.
func NewSystemHandler(ping Pinger, store string, log logrus.FieldLogger) *SystemHandler {
	return &SystemHandler{ping: ping, store: store, log: log}
}

// Health handles GET /health.
func (h *SystemHandler) Health(c *fiber.Ctx) error {
	status := fiber.StatusOK
	state := "healthy"
	if h.ping != nil {
		ctx, cancel := context.WithTimeout(c.UserContext(), healthTimeout)
		defer cancel()
		if err := h.ping(ctx); err != nil {
			h.log.WithError(err).WithField("store", h.store).Warn("health check failed")
			status = fiber.StatusServiceUnavailable
			state = "unhealthy"
		}
	}
	return c.Status(status).JSON(fiber.Map{
		"status": state,
		"time":   time.Now().UTC().Format(time.RFC3339),
		"store":  h.store,
	})
}

type endpointDoc struct {
	Method      string `json:"method"`
	Path        string `json:"path"`
	Auth        bool   `json:"auth"`
	Description string `json:"description"`
}

var endpoints = []endpointDoc{
	{Method: fiber.MethodPost, Path: "/api/auth/register", Description: "Create an account and receive a session token"},
	{Method: fiber.MethodPost, Path: "/api/auth/login", Description: "Exchange email and password for a session token"},
	{Method: fiber.MethodGet, Path: "/api/auth/me", Auth: true, Description: "Current user"},
	{Method: fiber.MethodPost, Path: "/api/tasks", Auth: true, Description: "Create a task"},
	{Method: fiber.MethodGet, Path: "/api/tasks", Auth: true, Description: "List own tasks, newest first"},
	{Method: fiber.MethodGet, Path: "/api/tasks/:id", Auth: true, Description: "Get one own task"},
	{Method: fiber.MethodPut, Path: "/api/tasks/:id", Auth: true, Description: "Partially update an own task"},
	{Method: fiber.MethodDelete, Path: "/api/tasks/:id", Auth: true, Description: "Delete an own task"},
	{Method: fiber.MethodGet, Path: "/health", Description: "Liveness and store reachability"},
}

// Docs handles GET /api/docs.
func (h *SystemHandler) Docs(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message":   "Todo API",
		"auth":      "Authorization: Bearer <token>",
		"endpoints": endpoints,
	})
}
