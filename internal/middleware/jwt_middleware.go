package middleware

import (
	"context"
	"errors"
	"strings"

	"todoapi/internal/apperrors"
	"todoapi/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// userIDKey is the fiber.Locals key holding the verified caller id.
const userIDKey = "user_id"

// Authenticator turns a bearer token into a verified user id.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (string, error)
}

// AuthRequired is the identity gate placed in front of every protected route.
// Missing, malformed, expired and stale credentials all produce the same 401.
func AuthRequired(auth Authenticator, log logrus.FieldLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
		if !ok {
			log.WithField("path", c.Path()).Debug("request without bearer credential")
			return apperrors.Unauthorized().WithCause(services.ErrMissingCredential)
		}

		userID, err := auth.Authenticate(c.UserContext(), token)
		if err != nil {
			if isCredentialError(err) {
				log.WithError(err).WithField("path", c.Path()).Debug("bearer credential rejected")
				return apperrors.Unauthorized().WithCause(err)
			}
			return err
		}

		c.Locals(userIDKey, userID)
		return c.Next()
	}
}

// UserID returns the caller id set by AuthRequired, or "" on unprotected routes.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(userIDKey).(string)
	return id
}

// bearerToken extracts <token> from "Bearer <token>".
func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

func isCredentialError(err error) bool {
	return errors.Is(err, services.ErrMissingCredential) ||
		errors.Is(err, services.ErrInvalidCredential) ||
		errors.Is(err, services.ErrStaleCredential)
}
