package routes

import (
	"freshdock/config"
	"freshdock/middleware"

	"github.com/gofiber/fiber/v2"
)

func SetupBusinessRoutes(app *fiber.App, d Deps) {
	c := d.Business
	authn := middleware.Authenticate(d.Parser)

	biz := app.Group(config.MAIN_ROUTES+"/business", authn)
	biz.Get("/", guard(d, middleware.ResBusiness, "read"), c.Own)
	biz.Put("/", guard(d, middleware.ResBusiness, "update"), c.Update)
	biz.Post("/intake-token", guard(d, middleware.ResBusiness, "rotate_token"), c.RotateToken)
	biz.Get("/connected", guard(d, middleware.ResBusiness, "read"), c.Connected)
	biz.Get("/users", guard(d, middleware.ResBusiness, "read"), c.Users)

	conn := app.Group(config.MAIN_ROUTES+"/connections", authn)
	conn.Get("/", guard(d, middleware.ResConnection, "read"), c.ListConnections)
	conn.Post("/", guard(d, middleware.ResConnection, "request"), c.RequestConnection)
	conn.Post("/:id/approve", guard(d, middleware.ResConnection, "decide"), c.ApproveConnection)
	conn.Post("/:id/reject", guard(d, middleware.ResConnection, "decide"), c.RejectConnection)

	app.Post(config.MAIN_ROUTES+"/growers", authn, guard(d, middleware.ResGrower, "provision"), c.ProvisionGrower)

	links := app.Group(config.MAIN_ROUTES+"/intake-links", authn)
	links.Get("/", guard(d, middleware.ResIntakeLink, "read"), d.Intake.ListLinks)
	links.Post("/", guard(d, middleware.ResIntakeLink, "create"), d.Intake.CreateLink)
}

func SetupTemplateRoutes(app *fiber.App, d Deps) {
	c := d.Templates
	res := middleware.ResTemplate
	api := app.Group(config.MAIN_ROUTES+"/templates", middleware.Authenticate(d.Parser))
	api.Get("/", guard(d, res, "read"), c.List)
	api.Post("/", guard(d, res, "write"), c.Create)
	api.Get("/:id", guard(d, res, "read"), c.Get)
	api.Put("/:id", guard(d, res, "write"), c.Update)
	api.Delete("/:id", guard(d, res, "write"), c.Delete)
}
