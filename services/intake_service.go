package services

import (
	"context"
	"errors"
	"strings"

	"freshdock/documents"
	"freshdock/metrics"
	"freshdock/models"
	"freshdock/repositories"

	"go.uber.org/zap"
)

const historyLimit = 20

// IntakeSubmission is the public form a grower fills in from a receiver's
// intake link. No account is involved; the token names the receiver.
type IntakeSubmission struct {
	Token           string      `json:"token" validate:"required,max=64"`
	GrowerName      string      `json:"grower_name" validate:"required,max=120"`
	GrowerCode      string      `json:"grower_code" validate:"max=40"`
	GrowerEmail     string      `json:"grower_email" validate:"omitempty,email,max=160"`
	Carrier         string      `json:"carrier" validate:"max=120"`
	TruckNumber     string      `json:"truck_number" validate:"max=40"`
	ConNoteNumber   string      `json:"con_note_number" validate:"max=60"`
	DispatchDate    string      `json:"dispatch_date"`
	ExpectedArrival string      `json:"expected_arrival"`
	ArrivalWindow   string      `json:"arrival_window" validate:"max=60"`
	TemperatureZone string      `json:"temperature_zone" validate:"omitempty,oneof=ambient chilled frozen"`
	TotalPallets    int         `json:"total_pallets" validate:"gte=0"`
	Notes           string      `json:"notes" validate:"max=2000"`
	Items           []ItemInput `json:"items" validate:"required,min=1,max=100,dive"`
}

func (in IntakeSubmission) draft() DispatchDraft {
	return DispatchDraft{
		GrowerName:      in.GrowerName,
		GrowerCode:      in.GrowerCode,
		Carrier:         in.Carrier,
		TruckNumber:     in.TruckNumber,
		ConNoteNumber:   in.ConNoteNumber,
		DispatchDate:    in.DispatchDate,
		ExpectedArrival: in.ExpectedArrival,
		ArrivalWindow:   in.ArrivalWindow,
		TemperatureZone: in.TemperatureZone,
		TotalPallets:    in.TotalPallets,
		Notes:           in.Notes,
		Items:           in.Items,
	}
}

type IntakeReceipt struct {
	DisplayID            string `json:"display_id"`
	DeliveryAdviceNumber string `json:"delivery_advice_number"`
}

type IntakeService struct {
	dispatches    *DispatchService
	repo          *repositories.DispatchRepository
	receivers     *ReceiverCache
	mail          MailQueue
	statusBaseURL string
	log           *zap.Logger
}

func NewIntakeService(dispatches *DispatchService, receivers *ReceiverCache, mail MailQueue, statusBaseURL string, log *zap.Logger) *IntakeService {
	return &IntakeService{
		dispatches:    dispatches,
		repo:          dispatches.dispatches,
		receivers:     receivers,
		mail:          mail,
		statusBaseURL: statusBaseURL,
		log:           log,
	}
}

// Submit validates a public submission, resolves its token and stores the
// dispatch. An unknown token writes nothing and returns ErrNotFound.
func (s *IntakeService) Submit(ctx context.Context, in IntakeSubmission) (*IntakeReceipt, error) {
	if err := Validate(in); err != nil {
		metrics.IntakeRejectionsTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}

	receiver, err := s.receivers.Resolve(ctx, in.Token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			metrics.IntakeRejectionsTotal.WithLabelValues("unknown_token").Inc()
		}
		return nil, err
	}

	d, err := buildDispatch(in.draft())
	if err != nil {
		metrics.IntakeRejectionsTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}
	grower := models.FreeTextGrower{Name: in.GrowerName, Code: in.GrowerCode}
	if err := models.ValidateGrower(grower); err != nil {
		metrics.IntakeRejectionsTotal.WithLabelValues("invalid").Inc()
		return nil, invalid("grower_name", "is required")
	}
	d.SetGrower(grower)
	receiverID := receiver.ID
	d.ReceiverBusinessID = &receiverID

	if err := s.dispatches.create(ctx, d, models.ExternalSupplierActor(), ChannelIntake); err != nil {
		return nil, err
	}

	if receiver.ContactEmail != "" {
		s.mail.Enqueue(intakeReceiverMessage(receiver, d))
	}
	if email := strings.TrimSpace(in.GrowerEmail); email != "" {
		s.mail.Enqueue(intakeGrowerMessage(email, receiver, d, documents.StatusURL(s.statusBaseURL, d.PublicCode)))
	}

	return &IntakeReceipt{DisplayID: d.DisplayID, DeliveryAdviceNumber: d.DeliveryAdviceNo}, nil
}

// History lists the latest dispatches one grower sent to the token's
// receiver, with their items.
func (s *IntakeService) History(ctx context.Context, token, grower string) ([]models.Dispatch, error) {
	receiver, err := s.receivers.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	grower = strings.TrimSpace(grower)
	if grower == "" {
		return nil, invalid("grower", "is required")
	}

	receiverID := receiver.ID
	return s.repo.List(ctx, repositories.DispatchFilter{
		ReceiverBusinessID: &receiverID,
		GrowerName:         grower,
		WithItems:          true,
		Limit:              historyLimit,
	})
}
