package handlers

import (
	"errors"

	"todoapi/internal/apperrors"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// ErrorHandler is the single place errors become HTTP responses.
// Raw messages of unexpected failures are only shown when exposeInternal is set.
func ErrorHandler(log logrus.FieldLogger, exposeInternal bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		if appErr, ok := apperrors.As(err); ok {
			body := appErr.ToBody()
			if appErr.Code == apperrors.CodeInternal {
				log.WithError(err).WithField("path", c.Path()).Error("internal error")
				if exposeInternal && appErr.Cause != nil {
					body.Message = appErr.Cause.Error()
				}
			}
			return c.Status(appErr.HTTPStatus).JSON(body)
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			message := fiberErr.Message
			if fiberErr.Code == fiber.StatusNotFound {
				message = "Route not found"
			}
			return c.Status(fiberErr.Code).JSON(apperrors.Body{Error: message})
		}

		log.WithError(err).WithField("path", c.Path()).Error("unhandled error")
		body := apperrors.Body{Error: "Internal server error"}
		if exposeInternal {
			body.Message = err.Error()
		}
		return c.Status(fiber.StatusInternalServerError).JSON(body)
	}
}
