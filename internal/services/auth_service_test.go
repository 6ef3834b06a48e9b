package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"todoapi/internal/apperrors"
	"todoapi/internal/logging"
	"todoapi/internal/models"
	"todoapi/internal/services"
	"todoapi/pkg/rabbitmq"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testJWTSecret = "test_jwt_secret"

// MockUserRepository is a mock implementation of repositories.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByEmailOrUsername(ctx context.Context, email, username string) (*models.User, error) {
	args := m.Called(ctx, email, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmailWithPassword(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

// MockPublisher is a mock implementation of services.EventPublisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishEvent(event rabbitmq.Event) error {
	args := m.Called(event)
	return args.Error(0)
}

func eventOfType(eventType string) interface{} {
	return mock.MatchedBy(func(e rabbitmq.Event) bool { return e.Type == eventType })
}

func newAuthService(t *testing.T, repo *MockUserRepository, pub services.EventPublisher) (*services.AuthService, *services.TokenCodec) {
	t.Helper()
	codec, err := services.NewTokenCodec(testJWTSecret)
	require.NoError(t, err)
	return services.NewAuthService(repo, services.NewBcryptHasher(bcrypt.MinCost), codec, pub, logging.Discard()), codec
}

// countingHasher records how many comparisons the service performs.
type countingHasher struct {
	services.PasswordHasher
	verifies int
}

func (h *countingHasher) Verify(plaintext, hash string) (bool, error) {
	h.verifies++
	return h.PasswordHasher.Verify(plaintext, hash)
}

func requireAppError(t *testing.T, err error, code apperrors.Code) *apperrors.AppError {
	t.Helper()
	appErr, ok := apperrors.As(err)
	require.True(t, ok, "expected AppError, got %v", err)
	assert.Equal(t, code, appErr.Code)
	return appErr
}

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()
	req := models.RegisterRequest{Username: "testuser", Email: "test@example.com", Password: "password123"}

	t.Run("success", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		mockPub := new(MockPublisher)
		authService, codec := newAuthService(t, mockRepo, mockPub)

		mockRepo.On("FindByEmailOrUsername", ctx, req.Email, req.Username).Return(nil, nil).Once()
		mockRepo.On("Create", ctx, mock.AnythingOfType("*models.User")).Run(func(args mock.Arguments) {
			user := args.Get(1).(*models.User)
			assert.NotEqual(t, req.Password, user.PasswordHash, "password must be hashed before persisting")
			assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)))
			user.ID = "user-123"
		}).Return(nil).Once()
		mockPub.On("PublishEvent", eventOfType(rabbitmq.EventUserRegistered)).Return(nil).Once()

		result, err := authService.Register(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, "user-123", result.User.ID)
		assert.Equal(t, "testuser", result.User.Username)
		assert.Equal(t, "test@example.com", result.User.Email)

		userID, err := codec.Verify(result.Token)
		require.NoError(t, err)
		assert.Equal(t, "user-123", userID)

		mockRepo.AssertExpectations(t)
		mockPub.AssertExpectations(t)
	})

	t.Run("email already registered", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		authService, _ := newAuthService(t, mockRepo, nil)

		mockRepo.On("FindByEmailOrUsername", ctx, req.Email, req.Username).
			Return(&models.User{ID: "1", Username: "someoneelse", Email: req.Email}, nil).Once()

		_, err := authService.Register(ctx, req)
		appErr := requireAppError(t, err, apperrors.CodeDuplicateIdentity)
		assert.Equal(t, 400, appErr.HTTPStatus)
		assert.Equal(t, "Email already registered", appErr.Detail)
		mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("username already taken", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		authService, _ := newAuthService(t, mockRepo, nil)

		mockRepo.On("FindByEmailOrUsername", ctx, req.Email, req.Username).
			Return(&models.User{ID: "1", Username: req.Username, Email: "other@example.com"}, nil).Once()

		_, err := authService.Register(ctx, req)
		appErr := requireAppError(t, err, apperrors.CodeDuplicateIdentity)
		assert.Equal(t, "Username already taken", appErr.Detail)
	})

	t.Run("lost race on unique index", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		authService, _ := newAuthService(t, mockRepo, nil)

		mockRepo.On("FindByEmailOrUsername", ctx, req.Email, req.Username).Return(nil, nil).Once()
		mockRepo.On("Create", ctx, mock.AnythingOfType("*models.User")).
			Return(fmt.Errorf("failed to create user: %w", apperrors.ErrDuplicateKey)).Once()
		mockRepo.On("FindByEmailOrUsername", ctx, req.Email, req.Username).
			Return(&models.User{ID: "2", Username: req.Username, Email: "racer@example.com"}, nil).Once()

		_, err := authService.Register(ctx, req)
		appErr := requireAppError(t, err, apperrors.CodeDuplicateIdentity)
		assert.Equal(t, "Username already taken", appErr.Detail)
		mockRepo.AssertExpectations(t)
	})

	t.Run("store failure", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		authService, _ := newAuthService(t, mockRepo, nil)

		mockRepo.On("FindByEmailOrUsername", ctx, req.Email, req.Username).Return(nil, errors.New("connection refused")).Once()

		_, err := authService.Register(ctx, req)
		requireAppError(t, err, apperrors.CodeInternal)
	})

	t.Run("password over 72 bytes is a validation failure", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		authService, _ := newAuthService(t, mockRepo, nil)
		long := req
		long.Password = strings.Repeat("😀", 20)

		mockRepo.On("FindByEmailOrUsername", ctx, long.Email, long.Username).Return(nil, nil).Once()

		_, err := authService.Register(ctx, long)
		appErr := requireAppError(t, err, apperrors.CodeValidationFailed)
		assert.Equal(t, 400, appErr.HTTPStatus)
		assert.ErrorIs(t, err, services.ErrPasswordTooLong)
		mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("publish failure does not fail registration", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		mockPub := new(MockPublisher)
		authService, _ := newAuthService(t, mockRepo, mockPub)

		mockRepo.On("FindByEmailOrUsername", ctx, req.Email, req.Username).Return(nil, nil).Once()
		mockRepo.On("Create", ctx, mock.AnythingOfType("*models.User")).Return(nil).Once()
		mockPub.On("PublishEvent", mock.Anything).Return(errors.New("broker down")).Once()

		result, err := authService.Register(ctx, req)
		require.NoError(t, err)
		assert.NotEmpty(t, result.Token)
	})
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()
	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	user := &models.User{
		ID:           "user-123",
		Username:     "testuser",
		Email:        "test@example.com",
		PasswordHash: string(hashedPassword),
	}

	t.Run("success", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		authService, codec := newAuthService(t, mockRepo, nil)
		mockRepo.On("GetByEmailWithPassword", ctx, user.Email).Return(user, nil).Once()

		result, err := authService.Login(ctx, user.Email, "password123")
		require.NoError(t, err)
		assert.Equal(t, user.ID, result.User.ID)

		userID, err := codec.Verify(result.Token)
		require.NoError(t, err)
		assert.Equal(t, user.ID, userID)
		mockRepo.AssertExpectations(t)
	})

	t.Run("wrong password and unknown email are indistinguishable", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		authService, _ := newAuthService(t, mockRepo, nil)
		mockRepo.On("GetByEmailWithPassword", ctx, user.Email).Return(user, nil).Once()
		mockRepo.On("GetByEmailWithPassword", ctx, "nobody@example.com").
			Return(nil, fmt.Errorf("user with email nobody@example.com: %w", apperrors.ErrNotFound)).Once()

		_, wrongPassword := authService.Login(ctx, user.Email, "wrongpassword")
		_, unknownEmail := authService.Login(ctx, "nobody@example.com", "password123")

		a := requireAppError(t, wrongPassword, apperrors.CodeInvalidCredentials)
		b := requireAppError(t, unknownEmail, apperrors.CodeInvalidCredentials)
		assert.Equal(t, a.ToBody(), b.ToBody())
		assert.Equal(t, 401, a.HTTPStatus)
		assert.Equal(t, "Invalid credentials", a.Message)
		assert.Equal(t, "Email or password is incorrect", a.Detail)
		mockRepo.AssertExpectations(t)
	})

	t.Run("unknown email still runs a hash comparison", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		hasher := &countingHasher{PasswordHasher: services.NewBcryptHasher(bcrypt.MinCost)}
		codec, err := services.NewTokenCodec(testJWTSecret)
		require.NoError(t, err)
		authService := services.NewAuthService(mockRepo, hasher, codec, nil, logging.Discard())

		mockRepo.On("GetByEmailWithPassword", ctx, "nobody@example.com").
			Return(nil, fmt.Errorf("user with email nobody@example.com: %w", apperrors.ErrNotFound)).Twice()
		mockRepo.On("GetByEmailWithPassword", ctx, user.Email).Return(user, nil).Once()

		_, err = authService.Login(ctx, "nobody@example.com", "password123")
		requireAppError(t, err, apperrors.CodeInvalidCredentials)
		assert.Equal(t, 1, hasher.verifies)

		_, err = authService.Login(ctx, "nobody@example.com", "password123")
		requireAppError(t, err, apperrors.CodeInvalidCredentials)
		assert.Equal(t, 2, hasher.verifies)

		_, err = authService.Login(ctx, user.Email, "wrongpassword")
		requireAppError(t, err, apperrors.CodeInvalidCredentials)
		assert.Equal(t, 3, hasher.verifies)
		mockRepo.AssertExpectations(t)
	})

	t.Run("malformed stored hash is internal", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		authService, _ := newAuthService(t, mockRepo, nil)
		broken := *user
		broken.PasswordHash = "not-a-bcrypt-hash"
		mockRepo.On("GetByEmailWithPassword", ctx, user.Email).Return(&broken, nil).Once()

		_, err := authService.Login(ctx, user.Email, "password123")
		requireAppError(t, err, apperrors.CodeInternal)
	})
}

func TestAuthService_Authenticate(t *testing.T) {
	ctx := context.Background()

	t.Run("valid token for existing user", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		authService, codec := newAuthService(t, mockRepo, nil)
		token, err := codec.Issue("user-123")
		require.NoError(t, err)
		mockRepo.On("GetByID", ctx, "user-123").Return(&models.User{ID: "user-123"}, nil).Once()

		userID, err := authService.Authenticate(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, "user-123", userID)
		mockRepo.AssertExpectations(t)
	})

	t.Run("missing token", func(t *testing.T) {
		authService, _ := newAuthService(t, new(MockUserRepository), nil)
		_, err := authService.Authenticate(ctx, "")
		assert.ErrorIs(t, err, services.ErrMissingCredential)
	})

	t.Run("garbage token", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		authService, _ := newAuthService(t, mockRepo, nil)
		_, err := authService.Authenticate(ctx, "invalid.token.string")
		assert.ErrorIs(t, err, services.ErrInvalidCredential)
		assert.ErrorIs(t, err, services.ErrMalformedToken)
		mockRepo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})

	t.Run("expired token", func(t *testing.T) {
		authService, _ := newAuthService(t, new(MockUserRepository), nil)
		past, err := services.NewTokenCodec(testJWTSecret, services.WithClock(func() time.Time {
			return time.Now().Add(-8 * 24 * time.Hour)
		}))
		require.NoError(t, err)
		token, err := past.Issue("user-123")
		require.NoError(t, err)

		_, err = authService.Authenticate(ctx, token)
		assert.ErrorIs(t, err, services.ErrInvalidCredential)
		assert.ErrorIs(t, err, services.ErrExpiredToken)
	})

	t.Run("deleted account", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		authService, codec := newAuthService(t, mockRepo, nil)
		token, _ := codec.Issue("user-gone")
		mockRepo.On("GetByID", ctx, "user-gone").Return(nil, fmt.Errorf("user: %w", apperrors.ErrNotFound)).Once()

		_, err := authService.Authenticate(ctx, token)
		assert.ErrorIs(t, err, services.ErrStaleCredential)
	})

	t.Run("store failure is not an auth failure", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		authService, codec := newAuthService(t, mockRepo, nil)
		token, _ := codec.Issue("user-123")
		mockRepo.On("GetByID", ctx, "user-123").Return(nil, errors.New("connection reset")).Once()

		_, err := authService.Authenticate(ctx, token)
		requireAppError(t, err, apperrors.CodeInternal)
	})
}
