package repositories

import (
	"context"

	"todoapi/internal/models"
)

// UserRepository defines the interface for user data access.
// Default reads never populate PasswordHash; GetByEmailWithPassword is the only exception.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	// FindByEmailOrUsername returns a user colliding with either value, preferring an email match.
	FindByEmailOrUsername(ctx context.Context, email, username string) (*models.User, error)
	GetByEmailWithPassword(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
}
