package controllers

import (
	"freshdock/services"

	"github.com/gofiber/fiber/v2"
)

// IntakeController serves the unauthenticated grower surface: the intake
// form, its history, short links and the QR status page.
type IntakeController struct {
	Intake     *services.IntakeService
	Links      *services.IntakeLinkService
	Dispatches *services.DispatchService
}

func NewIntakeController(intake *services.IntakeService, links *services.IntakeLinkService, dispatches *services.DispatchService) *IntakeController {
	return &IntakeController{Intake: intake, Links: links, Dispatches: dispatches}
}

func (c *IntakeController) Submit(ctx *fiber.Ctx) error {
	var in services.IntakeSubmission
	if err := ctx.BodyParser(&in); err != nil {
		return badBody(ctx)
	}
	if in.Token == "" {
		in.Token = ctx.Params("token")
	}
	receipt, err := c.Intake.Submit(ctx.UserContext(), in)
	if err != nil {
		return respondError(ctx, err)
	}
	return ok(ctx, fiber.StatusCreated, "Dispatch submitted", receipt)
}

func (c *IntakeController) History(ctx *fiber.Ctx) error {
	list, err := c.Intake.History(ctx.UserContext(), ctx.Params("token"), ctx.Query("grower"))
	if err != nil {
		return respondError(ctx, err)
	}
	views := make([]services.DispatchView, 0, len(list))
	for i := range list {
		views = append(views, services.NewDispatchView(&list[i]))
	}
	return ok(ctx, fiber.StatusOK, "", views)
}

// Status is the page behind the delivery-advice QR code. Each call records
// a scan on the dispatch timeline.
func (c *IntakeController) Status(ctx *fiber.Ctx) error {
	status, err := c.Dispatches.RecordQRScan(ctx.UserContext(), ctx.Params("code"))
	if err != nil {
		return respondError(ctx, err)
	}
	return ok(ctx, fiber.StatusOK, "", status)
}

func (c *IntakeController) ResolveLink(ctx *fiber.Ctx) error {
	view, err := c.Links.Resolve(ctx.UserContext(), ctx.Params("code"))
	if err != nil {
		return respondError(ctx, err)
	}
	return ok(ctx, fiber.StatusOK, "", view)
}

func (c *IntakeController) Redirect(ctx *fiber.Ctx) error {
	target, err := c.Links.RedirectURL(ctx.UserContext(), ctx.Params("code"))
	if err != nil {
		return respondError(ctx, err)
	}
	return ctx.Redirect(target, fiber.StatusFound)
}

func (c *IntakeController) CreateLink(ctx *fiber.Ctx) error {
	var in services.IntakeLinkInput
	if err := ctx.BodyParser(&in); err != nil {
		return badBody(ctx)
	}
	link, err := c.Links.Create(ctx.UserContext(), session(ctx), in)
	if err != nil {
		return respondError(ctx, err)
	}
	return ok(ctx, fiber.StatusCreated, "Intake link created", link)
}

func (c *IntakeController) ListLinks(ctx *fiber.Ctx) error {
	list, err := c.Links.List(ctx.UserContext(), session(ctx))
	if err != nil {
		return respondError(ctx, err)
	}
	return ok(ctx, fiber.StatusOK, "", list)
}
