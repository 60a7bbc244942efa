package models

import (
	"fmt"

	"gorm.io/gorm"
)

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleStaff    Role = "staff"
	RoleSupplier Role = "supplier"
	// RoleTransporter belongs to the retired carrier portal. It is never
	// parsed, so old accounts cannot sign in.
	RoleTransporter Role = "transporter"
	// RoleSystem is used by operator tooling and never issued in a token.
	RoleSystem Role = "system"
)

func ParseRole(raw string) (Role, error) {
	switch Role(raw) {
	case RoleAdmin, RoleStaff, RoleSupplier:
		return Role(raw), nil
	}
	return "", fmt.Errorf("unknown role %q", raw)
}

func MustParseRole(raw string) Role {
	r, err := ParseRole(raw)
	if err != nil {
		panic(err)
	}
	return r
}

func (r Role) String() string {
	return string(r)
}

type User struct {
	gorm.Model
	Email      string `json:"email" gorm:"size:160;uniqueIndex;not null"`
	Password   string `json:"-" gorm:"size:100;not null"`
	Name       string `json:"name" gorm:"size:120"`
	Role       Role   `json:"role" gorm:"size:20;not null"`
	BusinessID uint   `json:"business_id" gorm:"index"`
}

// Actor is the identity recorded on an audit event.
type Actor struct {
	UserID *uint
	Role   string
}

const (
	ActorAnonymous        = "anonymous"
	ActorExternalSupplier = "external_supplier"
)

func AnonymousActor() Actor {
	return Actor{Role: ActorAnonymous}
}

func ExternalSupplierActor() Actor {
	return Actor{Role: ActorExternalSupplier}
}

// Session is the identity of one request. It is built once from the bearer
// token and passed down by value.
type Session struct {
	UserID       uint
	Email        string
	Role         Role
	BusinessID   uint
	BusinessType BusinessType
}

// SystemSession is used by operator tooling that bypasses tenant scoping.
func SystemSession() Session {
	return Session{Role: RoleSystem}
}

func (s Session) Actor() Actor {
	if s.UserID == 0 {
		return Actor{Role: string(s.Role)}
	}
	id := s.UserID
	return Actor{UserID: &id, Role: string(s.Role)}
}

func (s Session) IsSystem() bool {
	return s.Role == RoleSystem
}

// IsReceivingSide is true for staff and admins of a receiving business.
func (s Session) IsReceivingSide() bool {
	if s.IsSystem() {
		return true
	}
	return s.BusinessType == BusinessReceiver && (s.Role == RoleAdmin || s.Role == RoleStaff)
}

func (s Session) IsSupplier() bool {
	return s.BusinessType == BusinessSupplier && s.Role == RoleSupplier
}

// CanAccess reports whether the dispatch belongs to the session's tenant.
func (s Session) CanAccess(d *Dispatch) bool {
	if s.IsSystem() {
		return true
	}
	if s.BusinessID == 0 {
		return false
	}
	switch s.BusinessType {
	case BusinessReceiver:
		return d.ReceiverBusinessID != nil && *d.ReceiverBusinessID == s.BusinessID
	case BusinessSupplier:
		return d.SupplierBusinessID != nil && *d.SupplierBusinessID == s.BusinessID
	}
	return false
}
