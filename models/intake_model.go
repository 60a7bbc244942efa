package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SupplierIntakeLink is a short-code link pre-filled for one named grower.
type SupplierIntakeLink struct {
	gorm.Model
	ShortCode          string `json:"short_code" gorm:"size:16;uniqueIndex;not null"`
	ReceiverBusinessID uint   `json:"receiver_business_id" gorm:"index;not null"`
	IntakeToken        string `json:"-" gorm:"size:64;not null"`
	GrowerName         string `json:"grower_name" gorm:"size:120;not null"`
	GrowerCode         string `json:"grower_code" gorm:"size:40"`
	GrowerEmail        string `json:"grower_email" gorm:"size:160"`
	CreatedBy          uint   `json:"created_by"`
}

// DispatchTemplate stores form values a supplier reuses.
type DispatchTemplate struct {
	gorm.Model
	SupplierBusinessID uint           `json:"supplier_business_id" gorm:"index;not null"`
	Name               string         `json:"name" gorm:"size:120;not null"`
	Values             datatypes.JSON `json:"values"`
	CreatedBy          uint           `json:"created_by"`
}
