package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/liveflow/internal/service"
	"github.com/maheshrc27/liveflow/pkg/logging"
)

type OpsHandler struct {
	cs     service.CapacityService
	logger logging.Logger
}

func NewOpsHandler(cs service.CapacityService, logger logging.Logger) *OpsHandler {
	return &OpsHandler{cs: cs, logger: logger}
}

func (h *OpsHandler) Capacity(c *fiber.Ctx) error {
	rec, err := h.cs.Recommend(c.UserContext(), time.Now())
	if err != nil {
		return serviceError(c, h.logger, err)
	}
	return c.JSON(rec)
}
