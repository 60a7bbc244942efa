package controllers

import (
	"freshdock/services"

	"github.com/gofiber/fiber/v2"
)

type AuthController struct {
	Auth *services.AuthService
}

func NewAuthController(auth *services.AuthService) *AuthController {
	return &AuthController{Auth: auth}
}

// Signup registers a business together with its first user.
func (c *AuthController) Signup(ctx *fiber.Ctx) error {
	var in services.SignupInput
	if err := ctx.BodyParser(&in); err != nil {
		return badBody(ctx)
	}
	res, err := c.Auth.Signup(ctx.UserContext(), in)
	if err != nil {
		return respondError(ctx, err)
	}
	return ok(ctx, fiber.StatusCreated, "Signup successful", res)
}

func (c *AuthController) Login(ctx *fiber.Ctx) error {
	var in services.LoginInput
	if err := ctx.BodyParser(&in); err != nil {
		return badBody(ctx)
	}
	res, err := c.Auth.Login(ctx.UserContext(), in)
	if err != nil {
		return respondError(ctx, err)
	}
	return ok(ctx, fiber.StatusOK, "Login successful", res)
}

func (c *AuthController) Me(ctx *fiber.Ctx) error {
	user, business, err := c.Auth.Me(ctx.UserContext(), session(ctx))
	if err != nil {
		return respondError(ctx, err)
	}
	if !session(ctx).IsReceivingSide() {
		business.IntakeToken = ""
	}
	return ok(ctx, fiber.StatusOK, "", fiber.Map{
		"user":     user,
		"business": business,
	})
}
