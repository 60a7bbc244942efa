package controllers

import (
	"bytes"
	"strings"
	"time"

	"freshdock/documents"
	"freshdock/services"
	"freshdock/storage"

	"github.com/gofiber/fiber/v2"
)

type DispatchController struct {
	Dispatches *services.DispatchService
	Advice     *services.AdviceService
	Export     *services.ExportService
	Store      storage.ObjectStore
}

func NewDispatchController(dispatches *services.DispatchService, advice *services.AdviceService, export *services.ExportService, store storage.ObjectStore) *DispatchController {
	return &DispatchController{Dispatches: dispatches, Advice: advice, Export: export, Store: store}
}

func (c *DispatchController) List(ctx *fiber.Ctx) error {
	list, err := c.Dispatches.List(ctx.UserContext(), session(ctx), services.ListQuery{
		Status: ctx.Query("status"),
		Limit:  ctx.QueryInt("limit", 50),
		Offset: ctx.QueryInt("offset", 0),
	})
	if err != nil {
		return respondError(ctx, err)
	}

	views := make([]services.DispatchView, 0, len(list))
	for i := range list {
		views = append(views, services.NewDispatchView(&list[i]))
	}
	return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"data":    views,
		"total":   len(views),
	})
}

func (c *DispatchController) Get(ctx *fiber.Ctx) error {
	id, err := dispatchID(ctx)
	if err != nil {
		return respondError(ctx, err)
	}
	d, err := c.Dispatches.Get(ctx.UserContext(), session(ctx), id)
	if err != nil {
		return respondError(ctx, err)
	}
	return ok(ctx, fiber.StatusOK, "", services.NewDispatchView(d))
}

func (c *DispatchController) Create(ctx *fiber.Ctx) error {
	var draft services.DispatchDraft
	if err := ctx.BodyParser(&draft); err != nil {
		return badBody(ctx)
	}
	d, err := c.Dispatches.Create(ctx.UserContext(), session(ctx), draft)
	if err != nil {
		return respondError(ctx, err)
	}
	return ok(ctx, fiber.StatusCreated, "Dispatch created", services.NewDispatchView(d))
}

func (c *DispatchController) Edit(ctx *fiber.Ctx) error {
	id, err := dispatchID(ctx)
	if err != nil {
		return respondError(ctx, err)
	}
	var patch services.DispatchPatch
	if err := ctx.BodyParser(&patch); err != nil {
		return badBody(ctx)
	}
	d, err := c.Dispatches.Edit(ctx.UserContext(), session(ctx), id, patch)
	if err != nil {
		return respondError(ctx, err)
	}
	return ok(ctx, fiber.StatusOK, "Dispatch updated", services.NewDispatchView(d))
}

func (c *DispatchController) AttachConNote(ctx *fiber.Ctx) error {
	id, err := dispatchID(ctx)
	if err != nil {
		return respondError(ctx, err)
	}
	var in struct {
		ConNoteNumber string `json:"con_note_number"`
		PhotoURL      string `json:"photo_url"`
	}
	if err := ctx.BodyParser(&in); err != nil {
		return badBody(ctx)
	}
	d, err := c.Dispatches.AttachConNote(ctx.UserContext(), session(ctx), id, in.ConNoteNumber, in.PhotoURL)
	if err != nil {
		return respondError(ctx, err)
	}
	return ok(ctx, fiber.StatusOK, "Con note attached", services.NewDispatchView(d))
}

func (c *DispatchController) UpdateETA(ctx *fiber.Ctx) error {
	id, err := dispatchID(ctx)
	if err != nil {
		return respondError(ctx, err)
	}
	var in struct {
		ExpectedArrival string `json:"expected_arrival"`
		ArrivalWindow   string `json:"arrival_window"`
	}
	if err := ctx.BodyParser(&in); err != nil {
		return badBody(ctx)
	}
	d, err := c.Dispatches.UpdateETA(ctx.UserContext(), session(ctx), id, in.ExpectedArrival, in.ArrivalWindow)
	if err != nil {
		return respondError(ctx, err)
	}
	return ok(ctx, fiber.StatusOK, "ETA updated", services.NewDispatchView(d))
}

func (c *DispatchController) Pickup(ctx *fiber.Ctx) error {
	id, err := dispatchID(ctx)
	if err != nil {
		return respondError(ctx, err)
	}
	var in struct {
		ConNoteNumber string `json:"con_note_number"`
	}
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&in); err != nil {
			return badBody(ctx)
		}
	}
	d, err := c.Dispatches.MarkInTransit(ctx.UserContext(), session(ctx), id, in.ConNoteNumber)
	if err != nil {
		return respondError(ctx, err)
	}
	return ok(ctx, fiber.StatusOK, "Dispatch picked up", services.NewDispatchView(d))
}

func (c *DispatchController) Arrive(ctx *fiber.Ctx) error {
	id, err := dispatchID(ctx)
	if err != nil {
		return respondError(ctx, err)
	}
	d, err := c.Dispatches.MarkArrived(ctx.UserContext(), session(ctx), id)
	if err != nil {
		return respondError(ctx, err)
	}
	return ok(ctx, fiber.StatusOK, "Dispatch arrived", services.NewDispatchView(d))
}

func (c *DispatchController) Receive(ctx *fiber.Ctx) error {
	id, err := dispatchID(ctx)
	if err != nil {
		return respondError(ctx, err)
	}
	d, err := c.Dispatches.ConfirmReceived(ctx.UserContext(), session(ctx), id)
	if err != nil {
		return respondError(ctx, err)
	}
	return ok(ctx, fiber.StatusOK, "Dispatch "+string(d.Status), services.NewDispatchView(d))
}

func (c *DispatchController) FlagIssue(ctx *fiber.Ctx) error {
	id, err := dispatchID(ctx)
	if err != nil {
		return respondError(ctx, err)
	}
	var in services.IssueInput
	if err := ctx.BodyParser(&in); err != nil {
		return badBody(ctx)
	}
	d, err := c.Dispatches.FlagIssue(ctx.UserContext(), session(ctx), id, in)
	if err != nil {
		return respondError(ctx, err)
	}
	return ok(ctx, fiber.StatusCreated, "Issue recorded", services.NewDispatchView(d))
}

func (c *DispatchController) Issues(ctx *fiber.Ctx) error {
	id, err := dispatchID(ctx)
	if err != nil {
		return respondError(ctx, err)
	}
	d, err := c.Dispatches.Get(ctx.UserContext(), session(ctx), id)
	if err != nil {
		return respondError(ctx, err)
	}
	return ok(ctx, fiber.StatusOK, "", d.Issues)
}

func (c *DispatchController) AssignLot(ctx *fiber.Ctx) error {
	id, err := dispatchID(ctx)
	if err != nil {
		return respondError(ctx, err)
	}
	var in struct {
		LotNumber string `json:"lot_number"`
	}
	if err := ctx.BodyParser(&in); err != nil {
		return badBody(ctx)
	}
	d, err := c.Dispatches.AssignLotNumber(ctx.UserContext(), session(ctx), id, in.LotNumber)
	if err != nil {
		return respondError(ctx, err)
	}
	return ok(ctx, fiber.StatusOK, "Lot number assigned", services.NewDispatchView(d))
}

func (c *DispatchController) Events(ctx *fiber.Ctx) error {
	id, err := dispatchID(ctx)
	if err != nil {
		return respondError(ctx, err)
	}
	events, err := c.Dispatches.Events(ctx.UserContext(), session(ctx), id)
	if err != nil {
		return respondError(ctx, err)
	}
	return ok(ctx, fiber.StatusOK, "", events)
}

// DownloadAdvice serves the delivery-advice PDF as an attachment.
func (c *DispatchController) DownloadAdvice(ctx *fiber.Ctx) error {
	id, err := dispatchID(ctx)
	if err != nil {
		return respondError(ctx, err)
	}
	doc, err := c.Advice.Generate(ctx.UserContext(), session(ctx), id)
	if err != nil {
		return respondError(ctx, err)
	}
	ctx.Attachment(doc.Filename)
	ctx.Set(fiber.HeaderContentType, documents.ContentTypePDF)
	return ctx.Status(fiber.StatusOK).Send(doc.Data)
}

func (c *DispatchController) ExportRegister(ctx *fiber.Ctx) error {
	var buf bytes.Buffer
	if err := c.Export.WriteRegister(ctx.UserContext(), session(ctx), ctx.Query("status"), &buf); err != nil {
		return respondError(ctx, err)
	}
	ctx.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	ctx.Attachment("dispatches-" + time.Now().Format("20060102") + ".xlsx")
	return ctx.Status(fiber.StatusOK).Send(buf.Bytes())
}

// UploadPhoto stores a multipart "file" and appends it to the photo list.
func (c *DispatchController) UploadPhoto(ctx *fiber.Ctx) error {
	id, err := dispatchID(ctx)
	if err != nil {
		return respondError(ctx, err)
	}
	if _, err := c.Dispatches.Get(ctx.UserContext(), session(ctx), id); err != nil {
		return respondError(ctx, err)
	}
	url, err := c.upload(ctx, "dispatches/"+id.String()+"/photos")
	if err != nil {
		return err
	}
	if url == "" {
		return nil
	}
	d, err := c.Dispatches.AddPhoto(ctx.UserContext(), session(ctx), id, url)
	if err != nil {
		return respondError(ctx, err)
	}
	return ok(ctx, fiber.StatusCreated, "Photo uploaded", services.NewDispatchView(d))
}

// UploadConNote stores the con-note image and attaches it with its number.
func (c *DispatchController) UploadConNote(ctx *fiber.Ctx) error {
	id, err := dispatchID(ctx)
	if err != nil {
		return respondError(ctx, err)
	}
	number := strings.TrimSpace(ctx.FormValue("con_note_number"))
	if number == "" {
		return respondError(ctx, &services.ValidationError{Fields: map[string]string{"con_note_number": "is required"}})
	}
	if _, err := c.Dispatches.Get(ctx.UserContext(), session(ctx), id); err != nil {
		return respondError(ctx, err)
	}
	url, err := c.upload(ctx, "dispatches/"+id.String()+"/con-note")
	if err != nil || url == "" {
		return err
	}
	d, err := c.Dispatches.AttachConNote(ctx.UserContext(), session(ctx), id, number, url)
	if err != nil {
		return respondError(ctx, err)
	}
	return ok(ctx, fiber.StatusCreated, "Con note uploaded", services.NewDispatchView(d))
}

// upload writes the response itself on failure and then returns an empty URL.
func (c *DispatchController) upload(ctx *fiber.Ctx, prefix string) (string, error) {
	file, err := ctx.FormFile("file")
	if err != nil {
		return "", fail(ctx, fiber.StatusBadRequest, "A file field is required")
	}
	f, err := file.Open()
	if err != nil {
		return "", fail(ctx, fiber.StatusBadRequest, "Could not read the uploaded file")
	}
	defer f.Close()

	url, err := c.Store.Put(ctx.UserContext(), prefix, file.Filename, f)
	if err != nil {
		return "", fail(ctx, fiber.StatusBadRequest, err.Error())
	}
	return url, nil
}
