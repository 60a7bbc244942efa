// Package services holds the business rules of the dispatch lifecycle. Every
// operation takes the caller's Session explicitly.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"freshdock/metrics"
	"freshdock/models"
	"freshdock/notify"
	"freshdock/repositories"
	"freshdock/types"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// EventPublisher receives events after their transaction committed.
type EventPublisher interface {
	Publish(events ...models.DispatchEvent)
}

// MailQueue accepts best-effort mail.
type MailQueue interface {
	Enqueue(msg notify.Message)
}

const (
	ChannelPortal = "portal"
	ChannelIntake = "intake"
)

type ItemInput struct {
	Product       string              `json:"product" validate:"required,max=120"`
	Variety       string              `json:"variety" validate:"max=120"`
	SizeGrade     string              `json:"size_grade" validate:"max=60"`
	PackType      string              `json:"pack_type" validate:"max=60"`
	Quantity      int                 `json:"quantity" validate:"min=1"`
	UnitWeightKg  decimal.NullDecimal `json:"unit_weight_kg"`
	TotalWeightKg decimal.NullDecimal `json:"total_weight_kg"`
}

// DispatchDraft is the header and lines of a new dispatch. Dates accept
// 2006-01-02 or RFC 3339.
type DispatchDraft struct {
	ReceiverBusinessID uint        `json:"receiver_business_id"`
	GrowerName         string      `json:"grower_name" validate:"max=120"`
	GrowerCode         string      `json:"grower_code" validate:"max=40"`
	Carrier            string      `json:"carrier" validate:"max=120"`
	TruckNumber        string      `json:"truck_number" validate:"max=40"`
	ConNoteNumber      string      `json:"con_note_number" validate:"max=60"`
	DispatchDate       string      `json:"dispatch_date"`
	ExpectedArrival    string      `json:"expected_arrival"`
	ArrivalWindow      string      `json:"arrival_window" validate:"max=60"`
	TemperatureZone    string      `json:"temperature_zone" validate:"omitempty,oneof=ambient chilled frozen"`
	TotalPallets       int         `json:"total_pallets" validate:"gte=0"`
	Notes              string      `json:"notes" validate:"max=2000"`
	Items              []ItemInput `json:"items" validate:"required,min=1,max=100,dive"`
}

// DispatchPatch carries the header fields that stay editable while pending.
type DispatchPatch struct {
	Carrier         *string `json:"carrier" validate:"omitempty,max=120"`
	TruckNumber     *string `json:"truck_number" validate:"omitempty,max=40"`
	DispatchDate    *string `json:"dispatch_date"`
	TemperatureZone *string `json:"temperature_zone" validate:"omitempty,oneof=ambient chilled frozen"`
	TotalPallets    *int    `json:"total_pallets" validate:"omitempty,gte=0"`
	Notes           *string `json:"notes" validate:"omitempty,max=2000"`
}

type IssueInput struct {
	Type        string `json:"type" validate:"required,max=60"`
	Severity    string `json:"severity" validate:"required,oneof=low medium high critical"`
	Description string `json:"description" validate:"max=2000"`
	PhotoURL    string `json:"photo_url" validate:"max=500"`
}

type ListQuery struct {
	Status string
	Limit  int
	Offset int
}

// DispatchView adds the derived fields shown to portal users.
type DispatchView struct {
	*models.Dispatch
	DisplayStatus models.Status `json:"display_status"`
	PhotoURLs     []string      `json:"photo_urls"`
}

func NewDispatchView(d *models.Dispatch) DispatchView {
	return DispatchView{Dispatch: d, DisplayStatus: models.DisplayStatus(d), PhotoURLs: d.PhotoURLs()}
}

type DispatchService struct {
	dispatches  *repositories.DispatchRepository
	businesses  *repositories.BusinessRepository
	connections *repositories.ConnectionRepository
	publisher   EventPublisher
	log         *zap.Logger
}

func NewDispatchService(db *gorm.DB, publisher EventPublisher, log *zap.Logger) *DispatchService {
	return &DispatchService{
		dispatches:  repositories.NewDispatchRepository(db),
		businesses:  repositories.NewBusinessRepository(db),
		connections: repositories.NewConnectionRepository(db),
		publisher:   publisher,
		log:         log,
	}
}

// Create stores a portal dispatch. Suppliers address a connected receiver;
// receiving staff record a delivery for their own business from a named
// grower.
func (s *DispatchService) Create(ctx context.Context, sess models.Session, draft DispatchDraft) (*models.Dispatch, error) {
	if err := Validate(draft); err != nil {
		return nil, err
	}

	var grower models.GrowerRef
	var receiverID uint
	switch {
	case sess.IsSupplier():
		if draft.ReceiverBusinessID == 0 {
			return nil, invalid("receiver_business_id", "is required")
		}
		ok, err := s.connections.IsApproved(ctx, sess.BusinessID, draft.ReceiverBusinessID)
		if err != nil {
			return nil, fmt.Errorf("check connection: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("%w: no approved connection to receiver %d", ErrForbidden, draft.ReceiverBusinessID)
		}
		grower = models.LinkedGrower{BusinessID: sess.BusinessID}
		receiverID = draft.ReceiverBusinessID
	case sess.IsReceivingSide() && !sess.IsSystem():
		grower = models.FreeTextGrower{Name: draft.GrowerName, Code: draft.GrowerCode}
		receiverID = sess.BusinessID
	default:
		return nil, ErrForbidden
	}
	if err := models.ValidateGrower(grower); err != nil {
		return nil, invalid("grower_name", "is required")
	}

	d, err := buildDispatch(draft)
	if err != nil {
		return nil, err
	}
	d.SetGrower(grower)
	d.ReceiverBusinessID = &receiverID
	actor := sess.Actor()
	d.CreatedBy = actor.UserID
	d.UpdatedBy = actor.UserID

	if err := s.create(ctx, d, actor, ChannelPortal); err != nil {
		return nil, err
	}
	return d, nil
}

// create persists a built dispatch with its created and submitted events.
// Intake submissions get their delivery-advice number up front.
func (s *DispatchService) create(ctx context.Context, d *models.Dispatch, actor models.Actor, channel string) error {
	events := []models.DispatchEvent{
		models.NewEvent(0, models.EventCreated, actor, map[string]any{"channel": channel}),
		models.NewEvent(0, models.EventSubmitted, actor, map[string]any{"items": len(d.Items)}),
	}
	store := s.dispatches.Create
	if channel == ChannelIntake {
		store = s.dispatches.CreateWithAdviceNumber
	}
	if err := store(ctx, d, events); err != nil {
		return fmt.Errorf("create dispatch: %w", err)
	}
	metrics.DispatchesCreatedTotal.WithLabelValues(channel).Inc()
	s.publish(events...)

	s.log.Info("dispatch created",
		zap.String("display_id", d.DisplayID),
		zap.String("channel", channel),
		zap.Int("items", len(d.Items)),
	)
	return nil
}

func buildDispatch(draft DispatchDraft) (*models.Dispatch, error) {
	dispatchDate, err := parseDay("dispatch_date", draft.DispatchDate)
	if err != nil {
		return nil, err
	}
	expected, err := parseDay("expected_arrival", draft.ExpectedArrival)
	if err != nil {
		return nil, err
	}

	d := &models.Dispatch{
		Carrier:         strings.TrimSpace(draft.Carrier),
		TruckNumber:     strings.TrimSpace(draft.TruckNumber),
		ConNoteNumber:   strings.TrimSpace(draft.ConNoteNumber),
		DispatchDate:    dispatchDate,
		ExpectedArrival: expected,
		ArrivalWindow:   strings.TrimSpace(draft.ArrivalWindow),
		TemperatureZone: models.TemperatureZone(draft.TemperatureZone),
		TotalPallets:    draft.TotalPallets,
		Notes:           strings.TrimSpace(draft.Notes),
		Status:          models.StatusPending,
	}

	for i, in := range draft.Items {
		product := strings.TrimSpace(in.Product)
		if product == "" {
			return nil, invalid(fmt.Sprintf("items[%d].product", i), "is required")
		}
		if in.UnitWeightKg.Valid && in.UnitWeightKg.Decimal.IsNegative() {
			return nil, invalid(fmt.Sprintf("items[%d].unit_weight_kg", i), "must not be negative")
		}
		if in.TotalWeightKg.Valid && in.TotalWeightKg.Decimal.IsNegative() {
			return nil, invalid(fmt.Sprintf("items[%d].total_weight_kg", i), "must not be negative")
		}
		d.Items = append(d.Items, models.DispatchItem{
			Product:       product,
			Variety:       strings.TrimSpace(in.Variety),
			SizeGrade:     strings.TrimSpace(in.SizeGrade),
			PackType:      strings.TrimSpace(in.PackType),
			Quantity:      in.Quantity,
			UnitWeightKg:  in.UnitWeightKg,
			TotalWeightKg: in.TotalWeightKg,
		})
	}
	return d, nil
}

func parseDay(field, raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, invalid(field, "must be a date (YYYY-MM-DD)")
}

func (s *DispatchService) Get(ctx context.Context, sess models.Session, id types.SnowflakeID) (*models.Dispatch, error) {
	d, err := s.dispatches.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	// other tenants' dispatches are reported as missing
	if !sess.CanAccess(d) {
		return nil, ErrNotFound
	}
	return d, nil
}

func (s *DispatchService) List(ctx context.Context, sess models.Session, q ListQuery) ([]models.Dispatch, error) {
	f := repositories.DispatchFilter{Limit: q.Limit, Offset: q.Offset}
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	if q.Status != "" {
		st, err := models.ParseStatus(q.Status)
		if err != nil {
			return nil, invalid("status", err.Error())
		}
		f.Status = st
	}

	if !sess.IsSystem() {
		if sess.BusinessID == 0 {
			return nil, ErrForbidden
		}
		id := sess.BusinessID
		switch sess.BusinessType {
		case models.BusinessReceiver:
			f.ReceiverBusinessID = &id
		case models.BusinessSupplier:
			f.SupplierBusinessID = &id
		default:
			return nil, ErrForbidden
		}
	}
	return s.dispatches.List(ctx, f)
}

func (s *DispatchService) Events(ctx context.Context, sess models.Session, id types.SnowflakeID) ([]models.DispatchEvent, error) {
	if _, err := s.Get(ctx, sess, id); err != nil {
		return nil, err
	}
	return s.dispatches.Events(ctx, id)
}

func (s *DispatchService) Edit(ctx context.Context, sess models.Session, id types.SnowflakeID, patch DispatchPatch) (*models.Dispatch, error) {
	if err := Validate(patch); err != nil {
		return nil, err
	}
	d, err := s.Get(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	if d.Status != models.StatusPending {
		return nil, fmt.Errorf("%w: only pending dispatches can be edited", ErrInvalidTransition)
	}

	changes := map[string]any{}
	if patch.Carrier != nil {
		changes["carrier"] = strings.TrimSpace(*patch.Carrier)
	}
	if patch.TruckNumber != nil {
		changes["truck_number"] = strings.TrimSpace(*patch.TruckNumber)
	}
	if patch.DispatchDate != nil {
		day, err := parseDay("dispatch_date", *patch.DispatchDate)
		if err != nil {
			return nil, err
		}
		changes["dispatch_date"] = day
	}
	if patch.TemperatureZone != nil {
		changes["temperature_zone"] = *patch.TemperatureZone
	}
	if patch.TotalPallets != nil {
		changes["total_pallets"] = *patch.TotalPallets
	}
	if patch.Notes != nil {
		changes["notes"] = strings.TrimSpace(*patch.Notes)
	}
	if len(changes) == 0 {
		return nil, invalid("fields", "nothing to change")
	}

	fields := make([]string, 0, len(changes))
	for _, k := range []string{"carrier", "truck_number", "dispatch_date", "temperature_zone", "total_pallets", "notes"} {
		if _, ok := changes[k]; ok {
			fields = append(fields, k)
		}
	}
	changes["updated_by"] = sess.Actor().UserID

	ev := models.NewEvent(d.ID, models.EventEdited, sess.Actor(), map[string]any{"fields": fields})
	if err := s.transition(ctx, d, models.StatusPending, changes, ev); err != nil {
		return nil, err
	}
	return s.dispatches.Get(ctx, id)
}

func (s *DispatchService) AttachConNote(ctx context.Context, sess models.Session, id types.SnowflakeID, number, photoURL string) (*models.Dispatch, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, invalid("con_note_number", "is required")
	}
	d, err := s.Get(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	if err := requireSender(sess, d); err != nil {
		return nil, err
	}
	if err := requireStatus(d, models.StatusPending, models.StatusInTransit); err != nil {
		return nil, err
	}

	changes := map[string]any{"con_note_number": number, "updated_by": sess.Actor().UserID}
	if photoURL != "" {
		changes["con_note_photo_url"] = photoURL
	}
	ev := models.NewEvent(d.ID, models.EventConNoteAttached, sess.Actor(), map[string]any{
		"con_note_number": number,
		"photo_url":       photoURL,
	})
	if err := s.transition(ctx, d, d.Status, changes, ev); err != nil {
		return nil, err
	}
	return s.dispatches.Get(ctx, id)
}

// UpdateETA takes the expected arrival as a date or an RFC 3339 timestamp.
func (s *DispatchService) UpdateETA(ctx context.Context, sess models.Session, id types.SnowflakeID, expected, window string) (*models.Dispatch, error) {
	day, err := parseDay("expected_arrival", expected)
	if err != nil {
		return nil, err
	}
	if day == nil {
		return nil, invalid("expected_arrival", "is required")
	}
	d, err := s.Get(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	if err := requireSender(sess, d); err != nil {
		return nil, err
	}
	if err := requireStatus(d, models.StatusPending, models.StatusInTransit); err != nil {
		return nil, err
	}

	window = strings.TrimSpace(window)
	changes := map[string]any{
		"expected_arrival": *day,
		"arrival_window":   window,
		"updated_by":       sess.Actor().UserID,
	}
	ev := models.NewEvent(d.ID, models.EventETAUpdated, sess.Actor(), map[string]any{
		"expected_arrival": day.Format(time.RFC3339),
		"arrival_window":   window,
	})
	if err := s.transition(ctx, d, d.Status, changes, ev); err != nil {
		return nil, err
	}
	return s.dispatches.Get(ctx, id)
}

// MarkInTransit records pickup. A con-note number must already be stored or
// be supplied with the call.
func (s *DispatchService) MarkInTransit(ctx context.Context, sess models.Session, id types.SnowflakeID, conNote string) (*models.Dispatch, error) {
	d, err := s.Get(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	if err := requireSender(sess, d); err != nil {
		return nil, err
	}
	if !models.CanTransition(d.Status, models.StatusInTransit) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, d.Status, models.StatusInTransit)
	}

	number := strings.TrimSpace(conNote)
	if number == "" {
		number = d.ConNoteNumber
	}
	if number == "" {
		return nil, invalid("con_note_number", "is required before pickup")
	}

	changes := map[string]any{"con_note_number": number, "updated_by": sess.Actor().UserID}
	ev := models.NewEvent(d.ID, models.EventInTransit, sess.Actor(), map[string]any{"con_note_number": number})
	if err := s.transition(ctx, d, models.StatusInTransit, changes, ev); err != nil {
		return nil, err
	}
	return s.dispatches.Get(ctx, id)
}

func (s *DispatchService) MarkArrived(ctx context.Context, sess models.Session, id types.SnowflakeID) (*models.Dispatch, error) {
	d, err := s.Get(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	if !models.CanTransition(d.Status, models.StatusArrived) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, d.Status, models.StatusArrived)
	}

	ev := models.NewEvent(d.ID, models.EventArrived, sess.Actor(), nil)
	if err := s.transition(ctx, d, models.StatusArrived, map[string]any{"updated_by": sess.Actor().UserID}, ev); err != nil {
		return nil, err
	}
	return s.dispatches.Get(ctx, id)
}

// ConfirmReceived closes an arrived dispatch. It resolves to issue instead of
// received when any receiving issue has been recorded. A dispatch already
// flagged can still be confirmed; it stays in issue and gains the received
// event.
func (s *DispatchService) ConfirmReceived(ctx context.Context, sess models.Session, id types.SnowflakeID) (*models.Dispatch, error) {
	if !sess.IsReceivingSide() {
		return nil, ErrForbidden
	}
	d, err := s.Get(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	if d.Status != models.StatusIssue && !models.CanTransition(d.Status, models.StatusReceived) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, d.Status, models.StatusReceived)
	}

	issues, err := s.dispatches.CountIssues(ctx, id)
	if err != nil {
		return nil, err
	}
	resolved := models.StatusReceived
	if issues > 0 {
		resolved = models.StatusIssue
	}

	ev := models.NewEvent(d.ID, models.EventReceived, sess.Actor(), map[string]any{"resolved_status": resolved})
	if err := s.transition(ctx, d, resolved, map[string]any{"updated_by": sess.Actor().UserID}, ev); err != nil {
		return nil, err
	}
	return s.dispatches.Get(ctx, id)
}

// FlagIssue records a receiving issue. The dispatch moves to issue from any
// state and stays there.
func (s *DispatchService) FlagIssue(ctx context.Context, sess models.Session, id types.SnowflakeID, in IssueInput) (*models.Dispatch, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	d, err := s.Get(ctx, sess, id)
	if err != nil {
		return nil, err
	}

	issue := &models.ReceivingIssue{
		DispatchID:  d.ID,
		Type:        strings.TrimSpace(in.Type),
		Severity:    models.Severity(in.Severity),
		Description: strings.TrimSpace(in.Description),
		PhotoURL:    in.PhotoURL,
		FlaggedBy:   sess.Actor().UserID,
	}
	ev := models.NewEvent(d.ID, models.EventIssueFlagged, sess.Actor(), map[string]any{
		"issue_type": issue.Type,
		"severity":   issue.Severity,
	})
	if err := s.dispatches.AddIssue(ctx, issue, d.Status, ev); err != nil {
		return nil, err
	}
	s.publish(ev)
	return s.dispatches.Get(ctx, id)
}

func (s *DispatchService) AssignLotNumber(ctx context.Context, sess models.Session, id types.SnowflakeID, lot string) (*models.Dispatch, error) {
	if !sess.IsReceivingSide() {
		return nil, ErrForbidden
	}
	lot = strings.TrimSpace(lot)
	if lot == "" {
		return nil, invalid("lot_number", "is required")
	}
	d, err := s.Get(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	if err := requireStatus(d, models.StatusArrived, models.StatusReceived, models.StatusIssue); err != nil {
		return nil, err
	}

	changes := map[string]any{"lot_number": lot, "updated_by": sess.Actor().UserID}
	ev := models.NewEvent(d.ID, models.EventEdited, sess.Actor(), map[string]any{
		"fields":     []string{"lot_number"},
		"lot_number": lot,
	})
	if err := s.transition(ctx, d, d.Status, changes, ev); err != nil {
		return nil, err
	}
	return s.dispatches.Get(ctx, id)
}

// AddPhoto appends an uploaded photo URL to the dispatch.
func (s *DispatchService) AddPhoto(ctx context.Context, sess models.Session, id types.SnowflakeID, url string) (*models.Dispatch, error) {
	d, err := s.Get(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	photos, err := json.Marshal(append(d.PhotoURLs(), url))
	if err != nil {
		return nil, err
	}

	ev := models.NewEvent(d.ID, models.EventEdited, sess.Actor(), map[string]any{
		"fields":    []string{"photos"},
		"photo_url": url,
	})
	if err := s.dispatches.AppendPhoto(ctx, id, datatypes.JSON(photos), ev); err != nil {
		return nil, err
	}
	s.publish(ev)
	return s.dispatches.Get(ctx, id)
}

// transition writes the status change and its event, conditional on the
// status that was read.
func (s *DispatchService) transition(ctx context.Context, d *models.Dispatch, to models.Status, changes map[string]any, ev models.DispatchEvent) error {
	if err := s.dispatches.Transition(ctx, d.ID, d.Status, to, changes, ev); err != nil {
		return err
	}
	s.publish(ev)
	return nil
}

func (s *DispatchService) publish(events ...models.DispatchEvent) {
	for _, ev := range events {
		metrics.DispatchEventsTotal.WithLabelValues(string(ev.EventType)).Inc()
	}
	if s.publisher != nil {
		s.publisher.Publish(events...)
	}
}

// requireSender admits whoever runs the carrier steps: the linked supplier,
// or receiving staff when the grower has no account.
func requireSender(sess models.Session, d *models.Dispatch) error {
	switch {
	case sess.IsSystem(), sess.IsSupplier():
		return nil
	case sess.IsReceivingSide() && d.SupplierBusinessID == nil:
		return nil
	}
	return fmt.Errorf("%w: the linked grower handles pickup for this dispatch", ErrForbidden)
}

func requireStatus(d *models.Dispatch, allowed ...models.Status) error {
	for _, st := range allowed {
		if d.Status == st {
			return nil
		}
	}
	return fmt.Errorf("%w: not allowed while %s", ErrInvalidTransition, d.Status)
}
