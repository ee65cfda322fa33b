package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/liveflow/internal/service"
	"github.com/maheshrc27/liveflow/internal/transfer"
	"github.com/maheshrc27/liveflow/pkg/logging"
)

type DraftHandler struct {
	s        service.DraftService
	validate *validator.Validate
	logger   logging.Logger
}

func NewDraftHandler(s service.DraftService, logger logging.Logger) *DraftHandler {
	return &DraftHandler{s: s, validate: validator.New(), logger: logger}
}

func (h *DraftHandler) GetDraft(c *fiber.Ctx) error {
	draftID, ok := paramID(c, "id")
	if !ok {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid draft id")
	}

	draft, err := h.s.GetDraft(c.UserContext(), GetOwnerID(c), draftID)
	if err != nil {
		return serviceError(c, h.logger, err)
	}
	return c.JSON(draft)
}

// ResolveDraft applies the owner's decision. A draft that was already resolved, by the
// timer or another request, answers 409 with the current state.
func (h *DraftHandler) ResolveDraft(c *fiber.Ctx) error {
	draftID, ok := paramID(c, "id")
	if !ok {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid draft id")
	}

	var req transfer.ResolveRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Unable to parse json")
	}
	if err := h.validate.Struct(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err.Error())
	}

	outcome, err := h.s.Resolve(c.UserContext(), GetOwnerID(c), draftID, &req)
	if err != nil {
		return serviceError(c, h.logger, err)
	}

	if outcome.AlreadyResolved {
		return c.Status(fiber.StatusConflict).JSON(outcome)
	}
	return c.JSON(outcome)
}
