package routes

import (
	"freshdock/config"

	"github.com/gofiber/fiber/v2"
)

// SetupPublicRoutes registers the endpoints growers reach without an account.
func SetupPublicRoutes(app *fiber.App, d Deps) {
	c := d.Intake
	api := app.Group(config.PUBLIC_ROUTES)
	api.Post("/intake", c.Submit)
	api.Get("/intake/:token/history", c.History)
	api.Get("/links/:code", c.ResolveLink)
	api.Get("/status/:code", c.Status)

	app.Get("/l/:code", c.Redirect)
}
