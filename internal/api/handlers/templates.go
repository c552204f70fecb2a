package handlers

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/acme/text-to-call/internal/domain"
)

type putTemplateRequest struct {
	Text string `json:"text"`
}

type templateResponse struct {
	Key       string     `json:"key"`
	Text      string     `json:"text"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

func (h *HandlerSet) listTemplates(ctx *fiber.Ctx) error {
	templates, err := h.templates.List(ctx.Context())
	if err != nil {
		return translateError(err)
	}

	resp := make([]templateResponse, 0, len(templates))
	for _, tmpl := range templates {
		resp = append(resp, toTemplateResponse(tmpl))
	}
	return ctx.Status(http.StatusOK).JSON(fiber.Map{"templates": resp})
}

func (h *HandlerSet) getTemplate(ctx *fiber.Ctx) error {
	tmpl, err := h.templates.Get(ctx.Context(), ctx.Params("key"))
	if err != nil {
		return translateError(err)
	}
	return ctx.Status(http.StatusOK).JSON(toTemplateResponse(*tmpl))
}

func (h *HandlerSet) putTemplate(ctx *fiber.Ctx) error {
	var req putTemplateRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}

	tmpl, err := h.templates.Upsert(ctx.Context(), ctx.Params("key"), req.Text)
	if err != nil {
		return translateError(err)
	}
	return ctx.Status(http.StatusOK).JSON(toTemplateResponse(*tmpl))
}

func (h *HandlerSet) deleteTemplate(ctx *fiber.Ctx) error {
	if err := h.templates.Delete(ctx.Context(), ctx.Params("key")); err != nil {
		return translateError(err)
	}
	return ctx.SendStatus(http.StatusNoContent)
}

func toTemplateResponse(tmpl domain.GreetingTemplate) templateResponse {
	resp := templateResponse{Key: tmpl.Key, Text: tmpl.Text}
	if !tmpl.UpdatedAt.IsZero() {
		updated := tmpl.UpdatedAt
		resp.UpdatedAt = &updated
	}
	return resp
}
