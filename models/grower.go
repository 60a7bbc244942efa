package models

import (
	"errors"
	"strconv"
	"strings"
)

// GrowerRef identifies the supplier side of a dispatch: either a supplier
// business with an account or a grower known only by name and code.
type GrowerRef interface {
	Label() string
	growerRef()
}

type LinkedGrower struct {
	BusinessID uint
}

type FreeTextGrower struct {
	Name string
	Code string
}

func (LinkedGrower) growerRef()   {}
func (FreeTextGrower) growerRef() {}

func (g LinkedGrower) Label() string {
	return "business #" + strconv.FormatUint(uint64(g.BusinessID), 10)
}

func (g FreeTextGrower) Label() string {
	if g.Code == "" {
		return g.Name
	}
	return g.Name + " (" + g.Code + ")"
}

var ErrNoGrower = errors.New("a grower identity is required")

// ValidateGrower rejects nil refs, zero business ids and blank names.
func ValidateGrower(g GrowerRef) error {
	switch v := g.(type) {
	case LinkedGrower:
		if v.BusinessID == 0 {
			return ErrNoGrower
		}
	case FreeTextGrower:
		if strings.TrimSpace(v.Name) == "" {
			return ErrNoGrower
		}
	default:
		return ErrNoGrower
	}
	return nil
}

// Grower decodes the stored supplier columns.
func (d *Dispatch) Grower() GrowerRef {
	if d.SupplierBusinessID != nil && *d.SupplierBusinessID != 0 {
		return LinkedGrower{BusinessID: *d.SupplierBusinessID}
	}
	if d.GrowerName != "" {
		return FreeTextGrower{Name: d.GrowerName, Code: d.GrowerCode}
	}
	return nil
}

// SetGrower writes exactly one supplier-side identity.
func (d *Dispatch) SetGrower(g GrowerRef) {
	d.SupplierBusinessID = nil
	d.GrowerName = ""
	d.GrowerCode = ""
	switch v := g.(type) {
	case LinkedGrower:
		id := v.BusinessID
		d.SupplierBusinessID = &id
	case FreeTextGrower:
		d.GrowerName = strings.TrimSpace(v.Name)
		d.GrowerCode = strings.TrimSpace(v.Code)
	}
}
