package routes

import (
	"freshdock/config"
	"freshdock/controllers"
	"freshdock/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps carries everything the route tables need.
type Deps struct {
	Parser middleware.TokenParser
	Policy *middleware.Policy

	Auth      *controllers.AuthController
	Dispatch  *controllers.DispatchController
	Stream    *controllers.StreamController
	Business  *controllers.BusinessController
	Templates *controllers.TemplateController
	Intake    *controllers.IntakeController
}

func Setup(app *fiber.App, d Deps) {
	SetupAuthRoutes(app, d)
	SetupDispatchRoutes(app, d)
	SetupBusinessRoutes(app, d)
	SetupTemplateRoutes(app, d)
	SetupPublicRoutes(app, d)
	SetupSystemRoutes(app)
}

// SetupSystemRoutes exposes uploaded files, metrics and a liveness probe.
func SetupSystemRoutes(app *fiber.App) {
	app.Static(config.UploadRoute, config.UploadDir)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.Get("/healthz", func(ctx *fiber.Ctx) error {
		return ctx.JSON(fiber.Map{"success": true, "message": "ok"})
	})
}

// guard is Authorize bound to the route table's policy.
func guard(d Deps, obj, act string) fiber.Handler {
	return middleware.Authorize(d.Policy, obj, act)
}
