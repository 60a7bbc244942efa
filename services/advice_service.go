package services

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"freshdock/documents"
	"freshdock/metrics"
	"freshdock/models"
	"freshdock/repositories"
	"freshdock/types"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AdviceService produces delivery-advice PDFs.
type AdviceService struct {
	dispatches    *repositories.DispatchRepository
	businesses    *repositories.BusinessRepository
	publisher     EventPublisher
	statusBaseURL string
	log           *zap.Logger
	now           func() time.Time
}

func NewAdviceService(db *gorm.DB, publisher EventPublisher, statusBaseURL string, log *zap.Logger) *AdviceService {
	return &AdviceService{
		dispatches:    repositories.NewDispatchRepository(db),
		businesses:    repositories.NewBusinessRepository(db),
		publisher:     publisher,
		statusBaseURL: statusBaseURL,
		log:           log,
		now:           time.Now,
	}
}

// Sheet assigns the advice number if needed and builds the document layout.
// Any failed lookup aborts before anything is drawn.
func (s *AdviceService) Sheet(ctx context.Context, sess models.Session, id types.SnowflakeID) (documents.Sheet, error) {
	d, err := s.dispatches.Get(ctx, id)
	if err != nil {
		return documents.Sheet{}, err
	}
	if !sess.CanAccess(d) {
		return documents.Sheet{}, ErrNotFound
	}

	number, err := s.dispatches.AssignAdviceNumber(ctx, id)
	if err != nil {
		return documents.Sheet{}, fmt.Errorf("assign advice number: %w", err)
	}
	d.DeliveryAdviceNo = number

	in := documents.Input{
		Dispatch:      d,
		StatusBaseURL: s.statusBaseURL,
		GeneratedAt:   s.now(),
	}
	if in.Grower, err = s.party(ctx, d.SupplierBusinessID); err != nil {
		return documents.Sheet{}, fmt.Errorf("load grower: %w", err)
	}
	if in.Receiver, err = s.party(ctx, d.ReceiverBusinessID); err != nil {
		return documents.Sheet{}, fmt.Errorf("load receiver: %w", err)
	}
	if in.Carrier, err = s.party(ctx, d.CarrierBusinessID); err != nil {
		return documents.Sheet{}, fmt.Errorf("load carrier: %w", err)
	}
	return documents.BuildSheet(in), nil
}

func (s *AdviceService) party(ctx context.Context, id *uint) (*models.Business, error) {
	if id == nil || *id == 0 {
		return nil, nil
	}
	return s.businesses.GetByID(ctx, *id)
}

// Generate renders the PDF and records a delivery_advice_generated event.
// The event is best effort; a failure to write it does not fail the download.
func (s *AdviceService) Generate(ctx context.Context, sess models.Session, id types.SnowflakeID) (*documents.Document, error) {
	sheet, err := s.Sheet(ctx, sess, id)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := documents.Render(&buf, sheet, s.now()); err != nil {
		return nil, err
	}
	metrics.AdviceDocumentsTotal.Inc()

	ev := models.NewEvent(id, models.EventDeliveryAdviceGenerated, sess.Actor(), map[string]any{
		"delivery_advice_number": sheet.DocumentNo,
	})
	if err := s.dispatches.AppendEvent(ctx, ev); err != nil {
		metrics.SideEffectFailuresTotal.WithLabelValues("advice_event").Inc()
		s.log.Warn("record advice generation", zap.String("delivery_advice_number", sheet.DocumentNo), zap.Error(err))
	} else {
		metrics.DispatchEventsTotal.WithLabelValues(string(ev.EventType)).Inc()
		if s.publisher != nil {
			s.publisher.Publish(ev)
		}
	}

	return &documents.Document{Filename: sheet.DocumentNo + ".pdf", Data: buf.Bytes()}, nil
}
