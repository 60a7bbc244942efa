package repositories

import (
	"context"
	"strings"
	"testing"
	"time"

	"freshdock/database/dbtest"
	"freshdock/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDispatch(receiverID uint) *models.Dispatch {
	return &models.Dispatch{
		GrowerName:         "Sunny Ridge",
		ReceiverBusinessID: &receiverID,
		Status:             models.StatusPending,
		Items: []models.DispatchItem{
			{Product: "Bananas", Quantity: 60},
			{Product: "Lemons", Quantity: 5},
		},
	}
}

func openingEvents() []models.DispatchEvent {
	return []models.DispatchEvent{
		models.NewEvent(0, models.EventCreated, models.ExternalSupplierActor(), nil),
		models.NewEvent(0, models.EventSubmitted, models.ExternalSupplierActor(), nil),
	}
}

func TestNextNumberIsDailySequence(t *testing.T) {
	db := dbtest.New(t)
	day := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)

	first, err := NextNumber(db, "FD", day)
	require.NoError(t, err)
	second, err := NextNumber(db, "FD", day)
	require.NoError(t, err)
	nextDay, err := NextNumber(db, "FD", day.AddDate(0, 0, 1))
	require.NoError(t, err)
	other, err := NextNumber(db, "DA", day)
	require.NoError(t, err)

	assert.Equal(t, "FD2610190001", first)
	assert.Equal(t, "FD2610190002", second)
	assert.Equal(t, "FD2610200001", nextDay)
	assert.Equal(t, "DA2610190001", other)
}

func TestCreateStoresItemsAndEvents(t *testing.T) {
	db := dbtest.New(t)
	repo := NewDispatchRepository(db)
	ctx := context.Background()

	d := newDispatch(1)
	require.NoError(t, repo.Create(ctx, d, openingEvents()))
	assert.True(t, strings.HasPrefix(d.DisplayID, "FD"))
	assert.Empty(t, d.DeliveryAdviceNo)
	assert.NotEmpty(t, d.PublicCode)

	got, err := repo.Get(ctx, d.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 2)
	assert.Equal(t, 1, got.Items[0].LineNo)
	assert.Equal(t, "Lemons", got.Items[1].Product)

	events, err := repo.Events(ctx, d.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, models.EventCreated, events[0].EventType)
	assert.Equal(t, models.EventSubmitted, events[1].EventType)

	intake := newDispatch(1)
	require.NoError(t, repo.CreateWithAdviceNumber(ctx, intake, openingEvents()))
	assert.True(t, strings.HasPrefix(intake.DeliveryAdviceNo, "DA"))
	assert.NotEqual(t, d.DisplayID, intake.DisplayID)
}

func TestTransitionIsConditional(t *testing.T) {
	db := dbtest.New(t)
	repo := NewDispatchRepository(db)
	ctx := context.Background()

	d := newDispatch(1)
	require.NoError(t, repo.Create(ctx, d, openingEvents()))

	ev := models.NewEvent(d.ID, models.EventInTransit, models.AnonymousActor(), nil)
	require.NoError(t, repo.Transition(ctx, d.ID, models.StatusPending, models.StatusInTransit, map[string]any{"con_note_number": "CN-1"}, ev))

	stale := models.NewEvent(d.ID, models.EventInTransit, models.AnonymousActor(), nil)
	err := repo.Transition(ctx, d.ID, models.StatusPending, models.StatusInTransit, nil, stale)
	assert.ErrorIs(t, err, ErrStaleStatus)

	events, err := repo.Events(ctx, d.ID)
	require.NoError(t, err)
	assert.Len(t, events, 3, "a lost race must not leave an event behind")

	got, err := repo.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInTransit, got.Status)
	assert.Equal(t, "CN-1", got.ConNoteNumber)

	missing := models.NewEvent(1, models.EventArrived, models.AnonymousActor(), nil)
	assert.ErrorIs(t, repo.Transition(ctx, 1, models.StatusInTransit, models.StatusArrived, nil, missing), ErrNotFound)
}

func TestAssignAdviceNumberIsStable(t *testing.T) {
	db := dbtest.New(t)
	repo := NewDispatchRepository(db)
	ctx := context.Background()

	d := newDispatch(1)
	require.NoError(t, repo.Create(ctx, d, openingEvents()))

	first, err := repo.AssignAdviceNumber(ctx, d.ID)
	require.NoError(t, err)
	second, err := repo.AssignAdviceNumber(ctx, d.ID)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(first, "DA"))
	assert.Equal(t, first, second)

	_, err = repo.AssignAdviceNumber(ctx, 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAdviceNumbersAreUnique(t *testing.T) {
	db := dbtest.New(t)
	repo := NewDispatchRepository(db)
	ctx := context.Background()

	a, b := newDispatch(1), newDispatch(1)
	require.NoError(t, repo.Create(ctx, a, openingEvents()))
	require.NoError(t, repo.Create(ctx, b, openingEvents()))

	number, err := repo.AssignAdviceNumber(ctx, a.ID)
	require.NoError(t, err)

	err = db.Model(&models.Dispatch{}).Where("id = ?", b.ID).Update("delivery_advice_no", number).Error
	assert.Error(t, err)

	other, err := repo.AssignAdviceNumber(ctx, b.ID)
	require.NoError(t, err)
	assert.NotEqual(t, number, other)
}

func TestEventsAreAppendOnly(t *testing.T) {
	db := dbtest.New(t)
	repo := NewDispatchRepository(db)
	ctx := context.Background()

	d := newDispatch(1)
	require.NoError(t, repo.Create(ctx, d, openingEvents()))
	events, err := repo.Events(ctx, d.ID)
	require.NoError(t, err)

	ev := events[0]
	ev.EventType = models.EventEdited
	assert.ErrorIs(t, db.Save(&ev).Error, models.ErrEventImmutable)
	assert.ErrorIs(t, db.Delete(&ev).Error, models.ErrEventImmutable)
}

func TestAddIssueForcesIssue(t *testing.T) {
	db := dbtest.New(t)
	repo := NewDispatchRepository(db)
	ctx := context.Background()

	d := newDispatch(1)
	require.NoError(t, repo.Create(ctx, d, openingEvents()))

	issue := &models.ReceivingIssue{DispatchID: d.ID, Type: "damaged", Severity: models.SeverityHigh}
	ev := models.NewEvent(d.ID, models.EventIssueFlagged, models.AnonymousActor(), nil)
	require.NoError(t, repo.AddIssue(ctx, issue, models.StatusPending, ev))

	count, err := repo.CountIssues(ctx, d.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	got, err := repo.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusIssue, got.Status)
	require.Len(t, got.Issues, 1)
}

func TestListFiltersAndOrders(t *testing.T) {
	db := dbtest.New(t)
	repo := NewDispatchRepository(db)
	ctx := context.Background()

	now := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	for i, receiver := range []uint{1, 1, 2} {
		repo.now = func() time.Time { return now.Add(time.Duration(i) * time.Minute) }
		d := newDispatch(receiver)
		d.CreatedAt = now.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.Create(ctx, d, openingEvents()))
	}

	receiverID := uint(1)
	list, err := repo.List(ctx, DispatchFilter{ReceiverBusinessID: &receiverID, WithItems: true})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.True(t, list[0].CreatedAt.After(list[1].CreatedAt))
	assert.Len(t, list[0].Items, 2)

	none, err := repo.List(ctx, DispatchFilter{ReceiverBusinessID: &receiverID, Status: models.StatusArrived})
	require.NoError(t, err)
	assert.Empty(t, none)
}
