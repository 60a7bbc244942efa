package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

type BusinessType string

const (
	BusinessReceiver BusinessType = "receiver"
	BusinessSupplier BusinessType = "supplier"
	// BusinessTransporter is kept so historical rows still load.
	BusinessTransporter BusinessType = "transporter"
)

func ParseBusinessType(raw string) (BusinessType, error) {
	switch BusinessType(raw) {
	case BusinessReceiver, BusinessSupplier, BusinessTransporter:
		return BusinessType(raw), nil
	}
	return "", fmt.Errorf("unknown business type %q", raw)
}

// Business is a tenant. Rows are never hard-deleted.
type Business struct {
	gorm.Model
	Name         string       `json:"name" gorm:"size:160;not null"`
	Type         BusinessType `json:"type" gorm:"size:20;index;not null"`
	ContactName  string       `json:"contact_name" gorm:"size:120"`
	ContactEmail string       `json:"contact_email" gorm:"size:160"`
	ContactPhone string       `json:"contact_phone" gorm:"size:40"`
	Address      string       `json:"address" gorm:"size:300"`
	Region       string       `json:"region" gorm:"size:80"`
	State        string       `json:"state" gorm:"size:40"`
	OwnerUserID  *uint        `json:"owner_user_id"`
	IntakeToken  string       `json:"intake_token,omitempty" gorm:"size:64;index"`
	CreatedBy    int          `json:"-"`
	UpdatedBy    int          `json:"-"`
}

func (b *Business) IsReceiver() bool {
	return b.Type == BusinessReceiver
}

type ConnectionStatus string

const (
	ConnectionPending  ConnectionStatus = "pending"
	ConnectionApproved ConnectionStatus = "approved"
	ConnectionRejected ConnectionStatus = "rejected"
)

// Connection gates which receivers a supplier may address.
type Connection struct {
	gorm.Model
	SupplierBusinessID uint             `json:"supplier_business_id" gorm:"uniqueIndex:idx_connection_pair;not null"`
	ReceiverBusinessID uint             `json:"receiver_business_id" gorm:"uniqueIndex:idx_connection_pair;not null"`
	Status             ConnectionStatus `json:"status" gorm:"size:20;not null"`
	RequestedBy        uint             `json:"requested_by"`
	DecidedBy          *uint            `json:"decided_by"`
	DecidedAt          *time.Time       `json:"decided_at"`

	Supplier *Business `json:"supplier,omitempty" gorm:"foreignKey:SupplierBusinessID"`
	Receiver *Business `json:"receiver,omitempty" gorm:"foreignKey:ReceiverBusinessID"`
}
