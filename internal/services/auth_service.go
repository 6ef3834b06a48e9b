package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"todoapi/internal/apperrors"
	"todoapi/internal/models"
	"todoapi/internal/repositories"
	"todoapi/pkg/rabbitmq"

	"github.com/sirupsen/logrus"
)

// Identity gate failures. They are collapsed into one Unauthorized response at the HTTP boundary.
var (
	ErrMissingCredential = errors.New("missing bearer credential")
	ErrInvalidCredential = errors.New("invalid bearer credential")
	ErrStaleCredential   = errors.New("credential refers to a user that no longer exists")
)

// EventPublisher publishes domain events. Failures never fail the calling operation.
type EventPublisher interface {
	PublishEvent(event rabbitmq.Event) error
}

// AuthResult is returned by registration and login.
type AuthResult struct {
	Token string
	User  models.PublicUser
}

// AuthService handles registration, login and per-request authentication.
type AuthService struct {
	userRepo repositories.UserRepository
	hasher   PasswordHasher
	tokens   *TokenCodec
	events   EventPublisher
	log      logrus.FieldLogger

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService creates a new AuthService. A nil publisher disables events.
func NewAuthService(userRepo repositories.UserRepository, hasher PasswordHasher, tokens *TokenCodec, events EventPublisher, log logrus.FieldLogger) *AuthService {
	if events == nil {
		events = rabbitmq.NoopPublisher{}
	}
	return &AuthService{
		userRepo: userRepo,
		hasher:   hasher,
		tokens:   tokens,
		events:   events,
		log:      log,
	}
}

// Register creates an account and signs the new user in.
// req must already be normalized and validated.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*AuthResult, error) {
	existing, err := s.userRepo.FindByEmailOrUsername(ctx, req.Email, req.Username)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if existing != nil {
		return nil, apperrors.DuplicateIdentity(collidingField(existing, req.Email))
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		if errors.Is(err, ErrPasswordTooLong) || errors.Is(err, ErrEmptyPassword) {
			return nil, apperrors.Validation([]apperrors.FieldError{
				{Field: "password", Message: err.Error()},
			}).WithCause(err)
		}
		return nil, apperrors.Internal(err)
	}

	user := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, apperrors.ErrDuplicateKey) {
			// Lost a race with a concurrent registration; report the field the store now holds.
			field := "email"
			if winner, lookupErr := s.userRepo.FindByEmailOrUsername(ctx, req.Email, req.Username); lookupErr == nil && winner != nil {
				field = collidingField(winner, req.Email)
			}
			return nil, apperrors.DuplicateIdentity(field).WithCause(err)
		}
		return nil, apperrors.Internal(err)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	s.log.WithFields(logrus.Fields{"user_id": user.ID, "username": user.Username}).Info("user registered")
	s.publish(rabbitmq.NewEvent(rabbitmq.EventUserRegistered, user.ID, ""))

	return &AuthResult{Token: token, User: user.Public()}, nil
}

// Login checks credentials. Unknown email and wrong password produce the same error.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.userRepo.GetByEmailWithPassword(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.verifyDummy(password)
			s.log.Debug("login rejected")
			return nil, apperrors.InvalidCredentials()
		}
		return nil, apperrors.Internal(err)
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("user %s: %w", user.ID, err))
	}
	if !ok {
		s.log.Debug("login rejected")
		return nil, apperrors.InvalidCredentials()
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	s.log.WithField("user_id", user.ID).Info("user logged in")
	return &AuthResult{Token: token, User: user.Public()}, nil
}

// Authenticate turns a bearer token into a verified user id.
// It confirms the account still exists; the returned id is the only value
// task operations may scope by.
func (s *AuthService) Authenticate(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrMissingCredential
	}

	userID, err := s.tokens.Verify(token)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidCredential, err)
	}

	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) || errors.Is(err, apperrors.ErrMalformedID) {
			return "", fmt.Errorf("%w: %s", ErrStaleCredential, userID)
		}
		return "", apperrors.Internal(err)
	}
	return userID, nil
}

// CurrentUser returns the public projection of an authenticated user.
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*models.PublicUser, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, apperrors.FromStore(err, "User")
	}
	public := user.Public()
	return &public, nil
}

// verifyDummy runs one hash comparison so unknown emails cost as much as wrong passwords.
func (s *AuthService) verifyDummy(password string) {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash("unknown-account-placeholder")
		if err != nil {
			s.log.WithError(err).Warn("failed to prepare placeholder hash")
			return
		}
		s.dummyHash = hash
	})
	if s.dummyHash != "" {
		_, _ = s.hasher.Verify(password, s.dummyHash)
	}
}

func (s *AuthService) publish(event rabbitmq.Event) {
	if err := s.events.PublishEvent(event); err != nil {
		s.log.WithError(err).WithField("event", event.Type).Warn("failed to publish event")
	}
}

func collidingField(existing *models.User, email string) string {
	if existing.Email == email {
		return "email"
	}
	return "username"
}
