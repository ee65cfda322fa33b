package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/liveflow/internal/service"
	"github.com/maheshrc27/liveflow/internal/transfer"
	"github.com/maheshrc27/liveflow/pkg/logging"
)

type SettingsHandler struct {
	s      service.SettingsService
	logger logging.Logger
}

func NewSettingsHandler(s service.SettingsService, logger logging.Logger) *SettingsHandler {
	return &SettingsHandler{s: s, logger: logger}
}

func (h *SettingsHandler) GetSettings(c *fiber.Ctx) error {
	settings, err := h.s.GetSettings(c.UserContext(), GetOwnerID(c))
	if err != nil {
		return serviceError(c, h.logger, err)
	}
	return c.JSON(settings)
}

func (h *SettingsHandler) UpdateSettings(c *fiber.Ctx) error {
	var update transfer.SettingsUpdate
	if err := c.BodyParser(&update); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Unable to parse json")
	}

	if err := h.s.UpdateSettings(c.UserContext(), GetOwnerID(c), &update); err != nil {
		if isValidationError(err) {
			return errorJSON(c, fiber.StatusBadRequest, err.Error())
		}
		return serviceError(c, h.logger, err)
	}
	return c.SendStatus(fiber.StatusOK)
}
