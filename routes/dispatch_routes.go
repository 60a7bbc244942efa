package routes

import (
	"freshdock/config"
	"freshdock/middleware"

	"github.com/gofiber/fiber/v2"
)

func SetupDispatchRoutes(app *fiber.App, d Deps) {
	c := d.Dispatch
	res := middleware.ResDispatch
	api := app.Group(config.MAIN_ROUTES+"/dispatches", middleware.Authenticate(d.Parser))

	api.Get("/", guard(d, res, "read"), c.List)
	api.Post("/", guard(d, res, "create"), c.Create)
	api.Get("/export", guard(d, res, "export"), c.ExportRegister)
	api.Get("/:id", guard(d, res, "read"), c.Get)
	api.Put("/:id", guard(d, res, "edit"), c.Edit)
	api.Get("/:id/events", guard(d, res, "read"), c.Events)
	api.Get("/:id/events/stream", guard(d, res, "read"), d.Stream.Stream)
	api.Get("/:id/issues", guard(d, res, "read"), c.Issues)
	api.Get("/:id/advice", guard(d, res, "advice"), c.DownloadAdvice)

	api.Put("/:id/con-note", guard(d, res, "con_note"), c.AttachConNote)
	api.Post("/:id/con-note/upload", guard(d, res, "con_note"), c.UploadConNote)
	api.Put("/:id/eta", guard(d, res, "eta"), c.UpdateETA)
	api.Post("/:id/pickup", guard(d, res, "pickup"), c.Pickup)
	api.Post("/:id/arrive", guard(d, res, "arrive"), c.Arrive)
	api.Post("/:id/receive", guard(d, res, "receive"), c.Receive)
	api.Post("/:id/issues", guard(d, res, "issue"), c.FlagIssue)
	api.Put("/:id/lot", guard(d, res, "lot"), c.AssignLot)
	api.Post("/:id/photos", guard(d, res, "upload"), c.UploadPhoto)
}
