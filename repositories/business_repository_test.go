package repositories

import (
	"context"
	"testing"

	"freshdock/database/dbtest"
	"freshdock/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateWithOwnerAndTokenLookup(t *testing.T) {
	db := dbtest.New(t)
	repo := NewBusinessRepository(db)
	ctx := context.Background()

	b := &models.Business{Name: "Metro Fresh", Type: models.BusinessReceiver, IntakeToken: "tok-1"}
	u := &models.User{Email: "owner@metro.test", Password: "x", Role: models.RoleAdmin}
	require.NoError(t, repo.CreateWithOwner(ctx, b, u))
	assert.Equal(t, b.ID, u.BusinessID)
	require.NotNil(t, b.OwnerUserID)

	got, err := repo.GetReceiverByToken(ctx, " tok-1 ")
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)

	_, err = repo.GetReceiverByToken(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.GetReceiverByToken(ctx, "")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.SetIntakeToken(ctx, b.ID, "tok-2"))
	_, err = repo.GetReceiverByToken(ctx, "tok-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProvisionConnectsSupplier(t *testing.T) {
	db := dbtest.New(t)
	repo := NewBusinessRepository(db)
	conns := NewConnectionRepository(db)
	ctx := context.Background()

	receiver := &models.Business{Name: "Metro Fresh", Type: models.BusinessReceiver}
	require.NoError(t, db.Create(receiver).Error)

	supplier := &models.Business{Name: "Sunny Ridge", Type: models.BusinessSupplier}
	user := &models.User{Email: "grower@sunny.test", Password: "x", Role: models.RoleSupplier}
	conn, err := repo.Provision(ctx, supplier, user, receiver.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, models.ConnectionApproved, conn.Status)

	ok, err := conns.IsApproved(ctx, supplier.ID, receiver.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	list, err := conns.ListForBusiness(ctx, receiver.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].Supplier)
	assert.Equal(t, "Sunny Ridge", list[0].Supplier.Name)
}

func TestConnectionDecideOnlyOnce(t *testing.T) {
	db := dbtest.New(t)
	conns := NewConnectionRepository(db)
	ctx := context.Background()

	c := &models.Connection{SupplierBusinessID: 2, ReceiverBusinessID: 1, Status: models.ConnectionPending}
	require.NoError(t, conns.Create(ctx, c))

	require.NoError(t, conns.Decide(ctx, c.ID, models.ConnectionRejected, 9))
	assert.ErrorIs(t, conns.Decide(ctx, c.ID, models.ConnectionApproved, 9), ErrStaleStatus)

	require.NoError(t, conns.Reopen(ctx, c.ID, 3))
	got, err := conns.FindPair(ctx, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, models.ConnectionPending, got.Status)
	assert.Nil(t, got.DecidedBy)
}
