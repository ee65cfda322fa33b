package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/liveflow/internal/service"
	"github.com/maheshrc27/liveflow/pkg/logging"
)

// ReportHandler serves read-only aggregates for the owner dashboard.
type ReportHandler struct {
	qs     service.QuotaService
	ls     service.LinkService
	ss     service.SamplingService
	logger logging.Logger
}

func NewReportHandler(qs service.QuotaService, ls service.LinkService, ss service.SamplingService, logger logging.Logger) *ReportHandler {
	return &ReportHandler{qs: qs, ls: ls, ss: ss, logger: logger}
}

func (h *ReportHandler) Quota(c *fiber.Ctx) error {
	status, err := h.qs.Status(c.UserContext(), GetOwnerID(c))
	if err != nil {
		return serviceError(c, h.logger, err)
	}
	return c.JSON(status)
}

func (h *ReportHandler) DeliveryClicks(c *fiber.Ctx) error {
	deliveryID, ok := paramID(c, "id")
	if !ok {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid delivery id")
	}

	count, err := h.ls.ClickCount(c.UserContext(), GetOwnerID(c), deliveryID)
	if err != nil {
		return serviceError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{"delivery_id": deliveryID, "clicks": count})
}

func (h *ReportHandler) DeliveryLift(c *fiber.Ctx) error {
	deliveryID, ok := paramID(c, "id")
	if !ok {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid delivery id")
	}

	report, err := h.ss.DeliveryLift(c.UserContext(), GetOwnerID(c), deliveryID)
	if err != nil {
		return serviceError(c, h.logger, err)
	}
	return c.JSON(report)
}
