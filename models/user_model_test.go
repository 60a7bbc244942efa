package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptr(v uint) *uint { return &v }

func TestSessionCanAccess(t *testing.T) {
	d := &Dispatch{SupplierBusinessID: ptr(2), ReceiverBusinessID: ptr(1)}

	receiver := Session{Role: RoleStaff, BusinessID: 1, BusinessType: BusinessReceiver}
	supplier := Session{Role: RoleSupplier, BusinessID: 2, BusinessType: BusinessSupplier}
	otherReceiver := Session{Role: RoleAdmin, BusinessID: 3, BusinessType: BusinessReceiver}

	assert.True(t, receiver.CanAccess(d))
	assert.True(t, supplier.CanAccess(d))
	assert.False(t, otherReceiver.CanAccess(d))
	assert.False(t, Session{Role: RoleStaff, BusinessType: BusinessReceiver}.CanAccess(d))
	assert.True(t, SystemSession().CanAccess(d))
}

func TestRetiredCarrierHasNoAccess(t *testing.T) {
	d := &Dispatch{SupplierBusinessID: ptr(2), ReceiverBusinessID: ptr(1), CarrierBusinessID: ptr(7)}

	carrier := Session{Role: RoleTransporter, BusinessID: 7, BusinessType: BusinessTransporter}
	assert.False(t, carrier.CanAccess(d))

	_, err := ParseRole("transporter")
	assert.Error(t, err)
	bt, err := ParseBusinessType("transporter")
	assert.NoError(t, err)
	assert.Equal(t, BusinessTransporter, bt)
}

func TestSessionSides(t *testing.T) {
	assert.True(t, Session{Role: RoleAdmin, BusinessType: BusinessReceiver}.IsReceivingSide())
	assert.False(t, Session{Role: RoleSupplier, BusinessType: BusinessSupplier}.IsReceivingSide())
	assert.True(t, Session{Role: RoleSupplier, BusinessType: BusinessSupplier}.IsSupplier())

	uid := uint(4)
	actor := Session{UserID: uid, Role: RoleStaff}.Actor()
	assert.Equal(t, &uid, actor.UserID)
	assert.Equal(t, "staff", actor.Role)
}

func TestGrowerRef(t *testing.T) {
	d := &Dispatch{}
	d.SetGrower(FreeTextGrower{Name: " Sunny Ridge ", Code: "SR"})
	assert.Nil(t, d.SupplierBusinessID)
	assert.Equal(t, "Sunny Ridge", d.GrowerName)
	assert.Equal(t, FreeTextGrower{Name: "Sunny Ridge", Code: "SR"}, d.Grower())

	d.SetGrower(LinkedGrower{BusinessID: 5})
	assert.Empty(t, d.GrowerName)
	assert.Equal(t, LinkedGrower{BusinessID: 5}, d.Grower())

	assert.ErrorIs(t, ValidateGrower(nil), ErrNoGrower)
	assert.ErrorIs(t, ValidateGrower(FreeTextGrower{Name: "  "}), ErrNoGrower)
	assert.ErrorIs(t, ValidateGrower(LinkedGrower{}), ErrNoGrower)
	assert.NoError(t, ValidateGrower(LinkedGrower{BusinessID: 1}))
}
