package repositories

import (
	"context"
	"fmt"
	"sync"
	"time"

	"todoapi/internal/apperrors"
	"todoapi/internal/models"

	"github.com/google/uuid"
)

// MemoryUserRepository is an in-memory implementation of UserRepository.
type MemoryUserRepository struct {
	users map[string]models.User
	mu    sync.RWMutex
}

// NewMemoryUserRepository creates a new instance of MemoryUserRepository.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		users: make(map[string]models.User),
	}
}

// Create adds a new user, enforcing username and email uniqueness.
func (r *MemoryUserRepository) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == user.Email || u.Username == user.Username {
			return fmt.Errorf("failed to create user: %w", apperrors.ErrDuplicateKey)
		}
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users[user.ID] = *user
	return nil
}

func (r *MemoryUserRepository) FindByEmailOrUsername(_ context.Context, email, username string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []models.User
	for _, u := range r.users {
		if u.Email == email || u.Username == username {
			u.PasswordHash = ""
			matches = append(matches, u)
		}
	}
	return preferEmailMatch(matches, email), nil
}

func (r *MemoryUserRepository) GetByEmailWithPassword(_ context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user with email %s: %w", email, apperrors.ErrNotFound)
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id string) (*models.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("user id %q: %w", id, apperrors.ErrMalformedID)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, fmt.Errorf("user with ID %s: %w", id, apperrors.ErrNotFound)
	}
	u.PasswordHash = ""
	return &u, nil
}

// Delete removes a user. Tokens issued before deletion are then rejected by the identity gate.
func (r *MemoryUserRepository) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
}
