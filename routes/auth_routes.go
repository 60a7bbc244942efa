package routes

import (
	"freshdock/config"
	"freshdock/middleware"

	"github.com/gofiber/fiber/v2"
)

func SetupAuthRoutes(app *fiber.App, d Deps) {
	api := app.Group(config.MAIN_ROUTES + "/auth")
	api.Post("/signup", d.Auth.Signup)
	api.Post("/login", d.Auth.Login)
	api.Get("/me", middleware.Authenticate(d.Parser), d.Auth.Me)
}
