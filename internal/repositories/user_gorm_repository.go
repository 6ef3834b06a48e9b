package repositories

import (
	"context"
	"errors"
	"fmt"

	"todoapi/internal/apperrors"
	"todoapi/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const passwordHashColumn = "password_hash"

// GORMUserRepository is a GORM implementation of UserRepository.
type GORMUserRepository struct {
	db *gorm.DB
}

// NewGORMUserRepository creates a new instance of GORMUserRepository.
func NewGORMUserRepository(db *gorm.DB) *GORMUserRepository {
	return &GORMUserRepository{
		db: db,
	}
}

// Create inserts a new user. Unique violations surface as apperrors.ErrDuplicateKey.
func (r *GORMUserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("failed to create user: %w", apperrors.ErrDuplicateKey)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// FindByEmailOrUsername runs one disjunctive query and prefers the row matching the email.
func (r *GORMUserRepository) FindByEmailOrUsername(ctx context.Context, email, username string) (*models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).
		Omit(passwordHashColumn).
		Where("email = ? OR username = ?", email, username).
		Limit(2).
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("failed to look up user by email or username: %w", err)
	}
	return preferEmailMatch(users, email), nil
}

// GetByEmailWithPassword is the only read that loads the password hash.
func (r *GORMUserRepository) GetByEmailWithPassword(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user with email %s: %w", email, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by email %s: %w", email, err)
	}
	return &user, nil
}

// GetByID retrieves a user by id without the password hash.
func (r *GORMUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("user id %q: %w", id, apperrors.ErrMalformedID)
	}
	var user models.User
	if err := r.db.WithContext(ctx).Omit(passwordHashColumn).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user with ID %s: %w", id, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by ID %s: %w", id, err)
	}
	return &user, nil
}

// preferEmailMatch returns nil for no match, otherwise the email collision when there is one.
func preferEmailMatch(users []models.User, email string) *models.User {
	if len(users) == 0 {
		return nil
	}
	for i := range users {
		if users[i].Email == email {
			return &users[i]
		}
	}
	return &users[0]
}
