package services

import (
	"context"
	"time"

	"freshdock/metrics"
	"freshdock/models"

	"go.uber.org/zap"
)

type PublicEvent struct {
	EventType models.EventType `json:"event_type"`
	CreatedAt time.Time        `json:"created_at"`
}

// PublicStatus is what an anonymous scan of the delivery-advice code sees.
type PublicStatus struct {
	DisplayID       string        `json:"display_id"`
	AdviceNumber    string        `json:"delivery_advice_number"`
	Status          models.Status `json:"status"`
	Grower          string        `json:"grower"`
	Receiver        string        `json:"receiver"`
	ExpectedArrival *time.Time    `json:"expected_arrival"`
	ArrivalWindow   string        `json:"arrival_window"`
	Timeline        []PublicEvent `json:"timeline"`
}

// RecordQRScan resolves a public code and appends a qr_scanned event. A
// failed event write is logged and the status is still returned.
func (s *DispatchService) RecordQRScan(ctx context.Context, code string) (*PublicStatus, error) {
	d, err := s.dispatches.GetByPublicCode(ctx, code)
	if err != nil {
		return nil, err
	}

	ev := models.NewEvent(d.ID, models.EventQRScanned, models.AnonymousActor(), nil)
	if err := s.dispatches.AppendEvent(ctx, ev); err != nil {
		metrics.SideEffectFailuresTotal.WithLabelValues("qr_scan_event").Inc()
		s.log.Warn("record qr scan", zap.String("display_id", d.DisplayID), zap.Error(err))
	} else {
		s.publish(ev)
	}

	out := &PublicStatus{
		DisplayID:       d.DisplayID,
		AdviceNumber:    d.DeliveryAdviceNo,
		Status:          models.DisplayStatus(d),
		Grower:          d.GrowerName,
		ExpectedArrival: d.ExpectedArrival,
		ArrivalWindow:   d.ArrivalWindow,
		Timeline:        []PublicEvent{},
	}
	if d.SupplierBusinessID != nil {
		if b, err := s.businesses.GetByID(ctx, *d.SupplierBusinessID); err == nil {
			out.Grower = b.Name
		}
	}
	if d.ReceiverBusinessID != nil {
		if b, err := s.businesses.GetByID(ctx, *d.ReceiverBusinessID); err == nil {
			out.Receiver = b.Name
		}
	}

	history, err := s.dispatches.Events(ctx, d.ID)
	if err != nil {
		return nil, err
	}
	for _, h := range history {
		out.Timeline = append(out.Timeline, PublicEvent{EventType: h.EventType, CreatedAt: h.CreatedAt})
	}
	return out, nil
}
