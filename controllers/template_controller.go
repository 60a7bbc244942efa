package controllers

import (
	"freshdock/services"

	"github.com/gofiber/fiber/v2"
)

type TemplateController struct {
	Templates *services.TemplateService
}

func NewTemplateController(templates *services.TemplateService) *TemplateController {
	return &TemplateController{Templates: templates}
}

func (c *TemplateController) List(ctx *fiber.Ctx) error {
	list, err := c.Templates.List(ctx.UserContext(), session(ctx))
	if err != nil {
		return respondError(ctx, err)
	}
	return ok(ctx, fiber.StatusOK, "", list)
}

func (c *TemplateController) Get(ctx *fiber.Ctx) error {
	id, err := uintParam(ctx, "id")
	if err != nil {
		return respondError(ctx, err)
	}
	t, err := c.Templates.Get(ctx.UserContext(), session(ctx), id)
	if err != nil {
		return respondError(ctx, err)
	}
	return ok(ctx, fiber.StatusOK, "", t)
}

func (c *TemplateController) Create(ctx *fiber.Ctx) error {
	var in services.TemplateInput
	if err := ctx.BodyParser(&in); err != nil {
		return badBody(ctx)
	}
	t, err := c.Templates.Create(ctx.UserContext(), session(ctx), in)
	if err != nil {
		return respondError(ctx, err)
	}
	return ok(ctx, fiber.StatusCreated, "Template saved", t)
}

func (c *TemplateController) Update(ctx *fiber.Ctx) error {
	id, err := uintParam(ctx, "id")
	if err != nil {
		return respondError(ctx, err)
	}
	var in services.TemplateInput
	if err := ctx.BodyParser(&in); err != nil {
		return badBody(ctx)
	}
	t, err := c.Templates.Update(ctx.UserContext(), session(ctx), id, in)
	if err != nil {
		return respondError(ctx, err)
	}
	return ok(ctx, fiber.StatusOK, "Template updated", t)
}

func (c *TemplateController) Delete(ctx *fiber.Ctx) error {
	id, err := uintParam(ctx, "id")
	if err != nil {
		return respondError(ctx, err)
	}
	if err := c.Templates.Delete(ctx.UserContext(), session(ctx), id); err != nil {
		return respondError(ctx, err)
	}
	return ok(ctx, fiber.StatusOK, "Template deleted", nil)
}
