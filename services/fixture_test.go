package services

import (
	"sync"
	"testing"
	"time"

	"freshdock/database/dbtest"
	"freshdock/models"
	"freshdock/notify"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const intakeToken = "intake-token-metro"

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.DispatchEvent
}

func (p *recordingPublisher) Publish(events ...models.DispatchEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
}

func (p *recordingPublisher) Types() []models.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.EventType, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.EventType)
	}
	return out
}

type recordingMail struct {
	mu   sync.Mutex
	msgs []notify.Message
}

func (m *recordingMail) Enqueue(msg notify.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = append(m.msgs, msg)
}

func (m *recordingMail) Messages() []notify.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]notify.Message(nil), m.msgs...)
}

type fixture struct {
	db *gorm.DB

	receiver *models.Business
	other    *models.Business
	supplier *models.Business

	admin        models.Session
	staff        models.Session
	supplierSess models.Session
	outsider     models.Session

	pub  *recordingPublisher
	mail *recordingMail

	receivers  *ReceiverCache
	dispatches *DispatchService
	intake     *IntakeService
	advice     *AdviceService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.New(t)
	f := &fixture{db: db, pub: &recordingPublisher{}, mail: &recordingMail{}}

	f.receiver = &models.Business{
		Name: "Metro Fresh Markets", Type: models.BusinessReceiver,
		ContactEmail: "receiving@metro.test", IntakeToken: intakeToken,
	}
	f.other = &models.Business{Name: "Harbour Produce", Type: models.BusinessReceiver, IntakeToken: "intake-token-harbour"}
	f.supplier = &models.Business{Name: "Sunny Ridge Farms", Type: models.BusinessSupplier, ContactEmail: "hello@sunny.test"}
	for _, b := range []*models.Business{f.receiver, f.other, f.supplier} {
		require.NoError(t, db.Create(b).Error)
	}

	users := []*models.User{
		{Email: "admin@metro.test", Password: "x", Role: models.RoleAdmin, BusinessID: f.receiver.ID},
		{Email: "staff@metro.test", Password: "x", Role: models.RoleStaff, BusinessID: f.receiver.ID},
		{Email: "grower@sunny.test", Password: "x", Role: models.RoleSupplier, BusinessID: f.supplier.ID},
		{Email: "staff@harbour.test", Password: "x", Role: models.RoleStaff, BusinessID: f.other.ID},
	}
	for _, u := range users {
		require.NoError(t, db.Create(u).Error)
	}
	f.admin = models.Session{UserID: users[0].ID, Role: models.RoleAdmin, BusinessID: f.receiver.ID, BusinessType: models.BusinessReceiver}
	f.staff = models.Session{UserID: users[1].ID, Role: models.RoleStaff, BusinessID: f.receiver.ID, BusinessType: models.BusinessReceiver}
	f.supplierSess = models.Session{UserID: users[2].ID, Role: models.RoleSupplier, BusinessID: f.supplier.ID, BusinessType: models.BusinessSupplier}
	f.outsider = models.Session{UserID: users[3].ID, Role: models.RoleStaff, BusinessID: f.other.ID, BusinessType: models.BusinessReceiver}

	require.NoError(t, db.Create(&models.Connection{
		SupplierBusinessID: f.supplier.ID,
		ReceiverBusinessID: f.receiver.ID,
		Status:             models.ConnectionApproved,
	}).Error)

	log := zap.NewNop()
	f.receivers = NewReceiverCache(db, time.Minute)
	f.dispatches = NewDispatchService(db, f.pub, log)
	f.intake = NewIntakeService(f.dispatches, f.receivers, f.mail, "https://freshdock.test", log)
	f.advice = NewAdviceService(db, f.pub, "https://freshdock.test", log)
	return f
}

func bananas() IntakeSubmission {
	return IntakeSubmission{
		Token:       intakeToken,
		GrowerName:  "Sunny Ridge",
		GrowerCode:  "SR-01",
		GrowerEmail: "grower@sunny.test",
		Items:       []ItemInput{{Product: "Bananas", Quantity: 60}},
	}
}

func supplierDraft(receiverID uint) DispatchDraft {
	return DispatchDraft{
		ReceiverBusinessID: receiverID,
		Carrier:            "Coolhaul",
		TruckNumber:        "XYZ-123",
		DispatchDate:       "2026-10-19",
		TemperatureZone:    "chilled",
		Items: []ItemInput{
			{Product: "Avocado", Variety: "Hass", Quantity: 10},
			{Product: "Lemons", Quantity: 5},
		},
	}
}
