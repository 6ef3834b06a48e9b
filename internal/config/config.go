package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

// Supported values for DATABASE_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

// ErrMissingJWTSecret is returned by Load when no signing secret is configured.
var ErrMissingJWTSecret = errors.New("JWT_SECRET must be set")

// Config holds the process-lifetime settings of the API.
type Config struct {
	AppName        string
	AppEnv         string
	AppPort        string
	LogLevel       string
	DatabaseDriver string
	DatabaseDSN    string
	MongoURI       string
	MongoDatabase  string
	JWTSecret      string
	BcryptCost     int
	RabbitMQURL    string
}

// IsDevelopment reports whether raw error messages may be exposed to callers.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// Load reads configuration from an optional .env file and the environment.
// A nil viper instance uses a fresh one so tests don't share global state.
func Load(v *viper.Viper) (*Config, error) {
	if v == nil {
		v = viper.New()
	}

	// .env is optional; real environment variables always win.
	_ = godotenv.Load()

	v.SetDefault("APP_NAME", "todo-api")
	v.SetDefault("APP_ENV", "production")
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("LOG_LEVEL", "")
	v.SetDefault("DATABASE_DRIVER", DriverSQLite)
	v.SetDefault("DATABASE_DSN", "todo.db")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DATABASE", "todo")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("RABBITMQ_URL", "")
	v.AutomaticEnv()

	cfg := &Config{
		AppName:        v.GetString("APP_NAME"),
		AppEnv:         strings.ToLower(v.GetString("APP_ENV")),
		AppPort:        v.GetString("APP_PORT"),
		LogLevel:       v.GetString("LOG_LEVEL"),
		DatabaseDriver: strings.ToLower(v.GetString("DATABASE_DRIVER")),
		DatabaseDSN:    v.GetString("DATABASE_DSN"),
		MongoURI:       v.GetString("MONGO_URI"),
		MongoDatabase:  v.GetString("MONGO_DATABASE"),
		JWTSecret:      v.GetString("JWT_SECRET"),
		BcryptCost:     v.GetInt("BCRYPT_COST"),
		RabbitMQURL:    v.GetString("RABBITMQ_URL"),
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
		if cfg.IsDevelopment() {
			cfg.LogLevel = "debug"
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return ErrMissingJWTSecret
	}
	switch c.DatabaseDriver {
	case DriverPostgres, DriverSQLite, DriverMongo, DriverMemory:
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("BCRYPT_COST must be between %d and %d, got %d", bcrypt.MinCost, bcrypt.MaxCost, c.BcryptCost)
	}
	return nil
}
