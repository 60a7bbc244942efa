package controllers

import (
	"bufio"
	"encoding/json"
	"fmt"
	"time"

	"freshdock/config"
	"freshdock/events"
	"freshdock/models"
	"freshdock/services"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

type StreamController struct {
	Dispatches *services.DispatchService
	Hub        *events.Hub
	KeepAlive  time.Duration
}

func NewStreamController(dispatches *services.DispatchService, hub *events.Hub) *StreamController {
	return &StreamController{Dispatches: dispatches, Hub: hub, KeepAlive: config.StreamKeepTime}
}

// Stream sends the dispatch timeline as server-sent events, then keeps the
// connection open for new events. The subscription is taken before the
// history is read so nothing committed in between is lost.
func (c *StreamController) Stream(ctx *fiber.Ctx) error {
	id, err := dispatchID(ctx)
	if err != nil {
		return respondError(ctx, err)
	}
	sess := session(ctx)
	if _, err := c.Dispatches.Get(ctx.UserContext(), sess, id); err != nil {
		return respondError(ctx, err)
	}

	live, cancel := c.Hub.Subscribe(id)
	history, err := c.Dispatches.Events(ctx.UserContext(), sess, id)
	if err != nil {
		cancel()
		return respondError(ctx, err)
	}
	timeline := models.NewTimeline(history)

	keepAlive := c.KeepAlive
	if keepAlive <= 0 {
		keepAlive = 20 * time.Second
	}

	ctx.Set(fiber.HeaderContentType, "text/event-stream")
	ctx.Set(fiber.HeaderCacheControl, "no-cache")
	ctx.Set(fiber.HeaderConnection, "keep-alive")
	ctx.Set("X-Accel-Buffering", "no")

	ctx.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer cancel()

		for _, ev := range timeline.Events() {
			if err := writeSSE(w, ev); err != nil {
				return
			}
		}
		if err := w.Flush(); err != nil {
			return
		}

		ticker := time.NewTicker(keepAlive)
		defer ticker.Stop()
		for {
			select {
			case ev, open := <-live:
				if !open {
					return
				}
				if !timeline.Add(ev) {
					continue
				}
				if err := writeSSE(w, ev); err != nil {
					return
				}
			case <-ticker.C:
				if _, err := w.WriteString(": keepalive\n\n"); err != nil {
					return
				}
			}
			// a failed flush means the client went away
			if err := w.Flush(); err != nil {
				return
			}
		}
	}))
	return nil
}

func writeSSE(w *bufio.Writer, ev models.DispatchEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		zap.L().Warn("encode stream event", zap.String("event_id", ev.ID.String()), zap.Error(err))
		return nil
	}
	_, err = fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", ev.ID.String(), ev.EventType, data)
	return err
}
