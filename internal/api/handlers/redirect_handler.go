package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/liveflow/internal/service"
	"github.com/maheshrc27/liveflow/pkg/logging"
)

type RedirectHandler struct {
	s      service.LinkService
	logger logging.Logger
}

func NewRedirectHandler(s service.LinkService, logger logging.Logger) *RedirectHandler {
	return &RedirectHandler{s: s, logger: logger}
}

func (h *RedirectHandler) Redirect(c *fiber.Ctx) error {
	decision, err := h.s.Resolve(c.UserContext(), c.Params("code"), service.RequestMeta{
		UserAgent: c.Get(fiber.HeaderUserAgent),
		Referrer:  c.Get(fiber.HeaderReferer),
	})
	if err != nil {
		return serviceError(c, h.logger, err)
	}

	c.Set(fiber.HeaderCacheControl, "no-store")
	if decision.Kind == service.DecisionPreview {
		page, err := service.RenderPreview(decision.Preview)
		if err != nil {
			h.logger.WithFields(logging.Fields{"error": err}).Error("preview render failed")
			return c.Redirect(decision.Location, fiber.StatusFound)
		}
		c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
		return c.Status(fiber.StatusOK).Send(page)
	}
	return c.Redirect(decision.Location, fiber.StatusFound)
}
