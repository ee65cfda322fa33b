package handlers

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/liveflow/internal/api/middleware"
	"github.com/maheshrc27/liveflow/internal/service"
	"github.com/maheshrc27/liveflow/pkg/logging"
)

func GetOwnerID(c *fiber.Ctx) int64 {
	ownerID, _ := c.Locals(middleware.OwnerIDKey).(int64)
	return ownerID
}

func paramID(c *fiber.Ctx, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func errorJSON(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"error": msg})
}

// serviceError maps service errors onto HTTP responses. Unexpected errors are logged
// and hidden from the caller.
func serviceError(c *fiber.Ctx, logger logging.Logger, err error) error {
	switch {
	case errors.Is(err, service.ErrDraftNotFound),
		errors.Is(err, service.ErrStreamNotFound),
		errors.Is(err, service.ErrLinkNotFound),
		errors.Is(err, service.ErrDeliveryNotFound),
		errors.Is(err, service.ErrOwnerNotFound):
		return errorJSON(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrRedirectNotAllowed):
		return errorJSON(c, fiber.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrPlatformUserClaimed):
		return errorJSON(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, service.ErrQuotaExceeded):
		return errorJSON(c, fiber.StatusTooManyRequests, err.Error())
	case errors.Is(err, service.ErrInvalidAction),
		errors.Is(err, service.ErrEditedBodyRequired),
		errors.Is(err, service.ErrInvalidTargetURL),
		errors.Is(err, service.ErrInvalidGraceSeconds):
		return errorJSON(c, fiber.StatusBadRequest, err.Error())
	default:
		logger.WithFields(logging.Fields{"path": c.Path(), "error": err}).Error("request failed")
		return errorJSON(c, fiber.StatusInternalServerError, "internal error")
	}
}

func isValidationError(err error) bool {
	var verrs validator.ValidationErrors
	return errors.As(err, &verrs)
}
