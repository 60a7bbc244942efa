package controllers

import (
	"freshdock/services"

	"github.com/gofiber/fiber/v2"
)

type BusinessController struct {
	Businesses  *services.BusinessService
	Connections *services.ConnectionService
	Growers     *services.ProvisioningService
}

func NewBusinessController(businesses *services.BusinessService, connections *services.ConnectionService, growers *services.ProvisioningService) *BusinessController {
	return &BusinessController{Businesses: businesses, Connections: connections, Growers: growers}
}

func (c *BusinessController) Own(ctx *fiber.Ctx) error {
	b, err := c.Businesses.Own(ctx.UserContext(), session(ctx))
	if err != nil {
		return respondError(ctx, err)
	}
	return ok(ctx, fiber.StatusOK, "", b)
}

func (c *BusinessController) Update(ctx *fiber.Ctx) error {
	var in services.BusinessUpdate
	if err := ctx.BodyParser(&in); err != nil {
		return badBody(ctx)
	}
	b, err := c.Businesses.Update(ctx.UserContext(), session(ctx), in)
	if err != nil {
		return respondError(ctx, err)
	}
	return ok(ctx, fiber.StatusOK, "Business updated", b)
}

// RotateToken replaces the receiver's intake token. Old links stop working.
func (c *BusinessController) RotateToken(ctx *fiber.Ctx) error {
	token, err := c.Businesses.RotateIntakeToken(ctx.UserContext(), session(ctx))
	if err != nil {
		return respondError(ctx, err)
	}
	return ok(ctx, fiber.StatusOK, "Intake token rotated", fiber.Map{"intake_token": token})
}

func (c *BusinessController) Connected(ctx *fiber.Ctx) error {
	list, err := c.Businesses.Connected(ctx.UserContext(), session(ctx))
	if err != nil {
		return respondError(ctx, err)
	}
	return ok(ctx, fiber.StatusOK, "", list)
}

func (c *BusinessController) Users(ctx *fiber.Ctx) error {
	users, err := c.Businesses.Users(ctx.UserContext(), session(ctx))
	if err != nil {
		return respondError(ctx, err)
	}
	return ok(ctx, fiber.StatusOK, "", users)
}

func (c *BusinessController) ListConnections(ctx *fiber.Ctx) error {
	list, err := c.Connections.List(ctx.UserContext(), session(ctx))
	if err != nil {
		return respondError(ctx, err)
	}
	return ok(ctx, fiber.StatusOK, "", list)
}

func (c *BusinessController) RequestConnection(ctx *fiber.Ctx) error {
	var in struct {
		ReceiverBusinessID uint `json:"receiver_business_id"`
	}
	if err := ctx.BodyParser(&in); err != nil {
		return badBody(ctx)
	}
	if in.ReceiverBusinessID == 0 {
		return respondError(ctx, &services.ValidationError{Fields: map[string]string{"receiver_business_id": "is required"}})
	}
	conn, err := c.Connections.Request(ctx.UserContext(), session(ctx), in.ReceiverBusinessID)
	if err != nil {
		return respondError(ctx, err)
	}
	return ok(ctx, fiber.StatusCreated, "Connection requested", conn)
}

func (c *BusinessController) ApproveConnection(ctx *fiber.Ctx) error {
	return c.decide(ctx, true)
}

func (c *BusinessController) RejectConnection(ctx *fiber.Ctx) error {
	return c.decide(ctx, false)
}

func (c *BusinessController) decide(ctx *fiber.Ctx, approve bool) error {
	id, err := uintParam(ctx, "id")
	if err != nil {
		return respondError(ctx, err)
	}
	conn, err := c.Connections.Decide(ctx.UserContext(), session(ctx), id, approve)
	if err != nil {
		return respondError(ctx, err)
	}
	return ok(ctx, fiber.StatusOK, "Connection "+string(conn.Status), conn)
}

// ProvisionGrower creates a supplier account on behalf of a grower and
// connects it to the caller's business.
func (c *BusinessController) ProvisionGrower(ctx *fiber.Ctx) error {
	var in services.GrowerInput
	if err := ctx.BodyParser(&in); err != nil {
		return badBody(ctx)
	}
	res, err := c.Growers.Provision(ctx.UserContext(), session(ctx), in)
	if err != nil {
		return respondError(ctx, err)
	}
	return ok(ctx, fiber.StatusCreated, "Grower account created", res)
}
