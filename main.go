package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"todoapi/internal/config"
	"todoapi/internal/database"
	"todoapi/internal/handlers"
	"todoapi/internal/logging"
	"todoapi/internal/repositories"
	"todoapi/internal/services"
	"todoapi/pkg/rabbitmq"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load(nil)
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}
	log := logging.New(cfg.AppName, cfg.AppEnv, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := NewApp(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize application")
	}

	serverErr := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{"port": cfg.AppPort, "store": cfg.DatabaseDriver}).Info("starting server")
		serverErr <- app.HTTP.Listen(cfg.AppPort)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down server")
	case err := <-serverErr:
		log.WithError(err).Error("server stopped unexpectedly")
	}

	if err := app.Shutdown(shutdownTimeout); err != nil {
		log.WithError(err).Error("error during shutdown")
		os.Exit(1)
	}
	log.Info("server gracefully stopped")
}

// App is the assembled service: the HTTP surface plus the resources it owns.
type App struct {
	HTTP    *fiber.App
	closers []func() error
}

// NewApp opens the configured store and broker and builds the router over them.
func NewApp(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*App, error) {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app := &App{closers: []func() error{store.close}}

	events := connectEvents(cfg, log)
	if closer, ok := events.(interface{ Close() error }); ok {
		app.closers = append(app.closers, closer.Close)
	}

	tokens, err := services.NewTokenCodec(cfg.JWTSecret)
	if err != nil {
		_ = app.closeAll()
		return nil, err
	}
	hasher := services.NewBcryptHasher(cfg.BcryptCost)

	authService := services.NewAuthService(store.users, hasher, tokens, events, log)
	taskService := services.NewTaskService(store.tasks, events, log)

	app.HTTP = handlers.NewRouter(handlers.RouterConfig{
		AppName:        cfg.AppName,
		ExposeInternal: cfg.IsDevelopment(),
		Store:          cfg.DatabaseDriver,
		Ping:           store.ping,
		AuthService:    authService,
		TaskService:    taskService,
		Logger:         log,
	})
	return app, nil
}

// Shutdown stops accepting requests, drains in-flight ones and releases the store and broker.
func (a *App) Shutdown(timeout time.Duration) error {
	var errs []error
	if a.HTTP != nil {
		if err := a.HTTP.ShutdownWithTimeout(timeout); err != nil {
			errs = append(errs, fmt.Errorf("failed to shut down http server: %w", err))
		}
	}
	if err := a.closeAll(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (a *App) closeAll() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

type store struct {
	users repositories.UserRepository
	tasks repositories.TaskRepository
	ping  handlers.Pinger
	close func() error
}

func openStore(ctx context.Context, cfg *config.Config) (*store, error) {
	switch cfg.DatabaseDriver {
	case config.DriverPostgres, config.DriverSQLite:
		db, err := database.OpenGORM(cfg.DatabaseDriver, cfg.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		return &store{
			users: repositories.NewGORMUserRepository(db),
			tasks: repositories.NewGORMTaskRepository(db),
			ping:  func(ctx context.Context) error { return database.PingGORM(ctx, db) },
			close: func() error { return database.CloseGORM(db) },
		}, nil

	case config.DriverMongo:
		client, db, err := database.OpenMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		return &store{
			users: repositories.NewMongoUserRepository(db),
			tasks: repositories.NewMongoTaskRepository(db),
			ping:  func(ctx context.Context) error { return client.Ping(ctx, nil) },
			close: func() error { return client.Disconnect(context.Background()) },
		}, nil

	case config.DriverMemory:
		return &store{
			users: repositories.NewMemoryUserRepository(),
			tasks: repositories.NewMemoryTaskRepository(),
			close: func() error { return nil },
		}, nil

	default:
		return nil, fmt.Errorf("unsupported DATABASE_DRIVER %q", cfg.DatabaseDriver)
	}
}

// connectEvents returns a broker-backed publisher with an audit consumer attached,
// or a no-op publisher when no broker is configured or reachable.
func connectEvents(cfg *config.Config, log *logrus.Logger) services.EventPublisher {
	if cfg.RabbitMQURL == "" {
		log.Info("RABBITMQ_URL not set, domain events disabled")
		return rabbitmq.NoopPublisher{}
	}

	client, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL})
	if err != nil {
		log.WithError(err).Warn("RabbitMQ unavailable, domain events disabled")
		return rabbitmq.NoopPublisher{}
	}

	if err := client.ConsumeEvents(auditEvent(log), log); err != nil {
		log.WithError(err).Warn("failed to start event consumer")
	}
	return client
}

// auditEvent writes each consumed domain event to the log.
func auditEvent(log logrus.FieldLogger) func(rabbitmq.Event) error {
	return func(event rabbitmq.Event) error {
		log.WithFields(logrus.Fields{
			"event":       event.Type,
			"user_id":     event.UserID,
			"task_id":     event.TaskID,
			"occurred_at": event.OccurredAt,
		}).Info("audit")
		return nil
	}
}
