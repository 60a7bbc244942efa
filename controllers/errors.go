package controllers

import (
	"errors"

	"freshdock/middleware"
	"freshdock/models"
	"freshdock/services"
	"freshdock/types"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// respondError maps service errors onto HTTP statuses. Unknown errors are
// logged and hidden behind a 500.
func respondError(ctx *fiber.Ctx, err error) error {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Validation failed",
			"errors":  verr.Fields,
		})
	case errors.Is(err, services.ErrValidation):
		return fail(ctx, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrUnauthorized):
		return fail(ctx, fiber.StatusUnauthorized, "Invalid email or password")
	case errors.Is(err, services.ErrForbidden):
		return fail(ctx, fiber.StatusForbidden, err.Error())
	case errors.Is(err, services.ErrNotFound):
		return fail(ctx, fiber.StatusNotFound, "Not found")
	case errors.Is(err, services.ErrConflict):
		return fail(ctx, fiber.StatusConflict, "The record changed while you were editing it, reload and try again")
	case errors.Is(err, services.ErrInvalidTransition):
		return fail(ctx, fiber.StatusConflict, err.Error())
	}

	zap.L().Error("request failed",
		zap.String("method", ctx.Method()),
		zap.String("path", ctx.Path()),
		zap.Error(err),
	)
	return fail(ctx, fiber.StatusInternalServerError, "Internal server error")
}

func fail(ctx *fiber.Ctx, status int, message string) error {
	return ctx.Status(status).JSON(fiber.Map{
		"success": false,
		"message": message,
	})
}

func ok(ctx *fiber.Ctx, status int, message string, data any) error {
	return ctx.Status(status).JSON(fiber.Map{
		"success": true,
		"message": message,
		"data":    data,
	})
}

func badBody(ctx *fiber.Ctx) error {
	return fail(ctx, fiber.StatusBadRequest, "Invalid request body")
}

func session(ctx *fiber.Ctx) models.Session {
	sess, _ := middleware.SessionFrom(ctx)
	return sess
}

func dispatchID(ctx *fiber.Ctx) (types.SnowflakeID, error) {
	id, err := types.ParseSnowflakeID(ctx.Params("id"))
	if err != nil {
		return 0, &services.ValidationError{Fields: map[string]string{"id": "must be a dispatch id"}}
	}
	return id, nil
}

func uintParam(ctx *fiber.Ctx, name string) (uint, error) {
	n, err := ctx.ParamsInt(name)
	if err != nil || n <= 0 {
		return 0, &services.ValidationError{Fields: map[string]string{name: "must be a positive number"}}
	}
	return uint(n), nil
}
