package config_test

import (
	"testing"

	"todoapi/internal/config"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test_jwt_secret")

	cfg, err := config.Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.AppPort)
	assert.Equal(t, config.DriverSQLite, cfg.DatabaseDriver)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.Equal(t, "production", cfg.AppEnv)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.IsDevelopment(), "internal error messages stay hidden unless development is chosen")
	assert.Empty(t, cfg.RabbitMQURL)
}

func TestLoad_DevelopmentOptIn(t *testing.T) {
	t.Setenv("JWT_SECRET", "test_jwt_secret")
	t.Setenv("APP_ENV", "development")

	cfg, err := config.Load(viper.New())
	require.NoError(t, err)

	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_MissingSecretFailsFast(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	cfg, err := config.Load(viper.New())
	assert.ErrorIs(t, err, config.ErrMissingJWTSecret)
	assert.Nil(t, cfg)

	t.Setenv("JWT_SECRET", "   ")
	_, err = config.Load(viper.New())
	assert.ErrorIs(t, err, config.ErrMissingJWTSecret)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("APP_ENV", "Production")
	t.Setenv("DATABASE_DRIVER", "MONGO")
	t.Setenv("BCRYPT_COST", "4")

	cfg, err := config.Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.AppEnv)
	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, config.DriverMongo, cfg.DatabaseDriver)
	assert.Equal(t, 4, cfg.BcryptCost)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	t.Setenv("DATABASE_DRIVER", "oracle")
	_, err := config.Load(viper.New())
	assert.ErrorContains(t, err, "unsupported DATABASE_DRIVER")

	t.Setenv("DATABASE_DRIVER", "memory")
	t.Setenv("BCRYPT_COST", "99")
	_, err = config.Load(viper.New())
	assert.ErrorContains(t, err, "BCRYPT_COST")
}
