package handlers

import (
	"todoapi/internal/middleware"
	"todoapi/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/sirupsen/logrus"
)

// RouterConfig carries everything NewRouter needs to assemble the HTTP surface.
type RouterConfig struct {
	AppName        string
	ExposeInternal bool
	Store          string
	Ping           Pinger
	AuthService    *services.AuthService
	TaskService    *services.TaskService
	Logger         logrus.FieldLogger
}

// NewRouter builds the fiber app with middleware and every route mounted.
func NewRouter(cfg RouterConfig) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               cfg.AppName,
		ErrorHandler:          ErrorHandler(cfg.Logger, cfg.ExposeInternal),
		DisableStartupMessage: true,
	})

	app.Use(requestid.New())
	app.Use(middleware.RequestLogger(cfg.Logger))
	app.Use(recover.New())

	validate := NewRequestValidator()
	gate := middleware.AuthRequired(cfg.AuthService, cfg.Logger)

	system := NewSystemHandler(cfg.Ping, cfg.Store, cfg.Logger)
	app.Get("/health", system.Health)

	api := app.Group("/api")
	api.Get("/docs", system.Docs)

	NewAuthHandler(cfg.AuthService, validate).RegisterRoutes(api, gate)
	NewTaskHandler(cfg.TaskService, validate).RegisterRoutes(api.Group("/tasks", gate))

	app.Use(func(c *fiber.Ctx) error {
		return fiber.ErrNotFound
	})

	return app
}
