package models

import (
	"encoding/json"
	"time"

	"freshdock/controllers/idgen"
	"freshdock/types"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Dispatch is never deleted; its history lives in DispatchEvent.
type Dispatch struct {
	ID               types.SnowflakeID `json:"id" gorm:"primaryKey;autoIncrement:false"`
	DisplayID        string            `json:"display_id" gorm:"size:20;uniqueIndex"`
	DeliveryAdviceNo string            `json:"delivery_advice_number" gorm:"size:20;not null;default:''"`
	PublicCode       string            `json:"public_code" gorm:"size:36;uniqueIndex"`

	SupplierBusinessID *uint  `json:"supplier_business_id" gorm:"index"`
	GrowerName         string `json:"grower_name" gorm:"size:120"`
	GrowerCode         string `json:"grower_code" gorm:"size:40"`
	ReceiverBusinessID *uint  `json:"receiver_business_id" gorm:"index"`
	// CarrierBusinessID is only set on rows from the carrier portal era.
	CarrierBusinessID  *uint  `json:"carrier_business_id" gorm:"index"`

	Carrier         string          `json:"carrier" gorm:"size:120"`
	TruckNumber     string          `json:"truck_number" gorm:"size:40"`
	ConNoteNumber   string          `json:"con_note_number" gorm:"size:60"`
	ConNotePhotoURL string          `json:"con_note_photo_url" gorm:"size:500"`
	DispatchDate    *time.Time      `json:"dispatch_date"`
	ExpectedArrival *time.Time      `json:"expected_arrival"`
	ArrivalWindow   string          `json:"arrival_window" gorm:"size:60"`
	TemperatureZone TemperatureZone `json:"temperature_zone" gorm:"size:20"`
	TotalPallets    int             `json:"total_pallets"`
	Notes           string          `json:"notes" gorm:"size:2000"`
	Photos          datatypes.JSON  `json:"photos"`
	LotNumber       string          `json:"lot_number" gorm:"size:60"`
	Status          Status          `json:"status" gorm:"size:20;index;not null"`

	CreatedBy *uint     `json:"created_by"`
	UpdatedBy *uint     `json:"updated_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Items  []DispatchItem   `json:"items,omitempty" gorm:"foreignKey:DispatchID"`
	Issues []ReceivingIssue `json:"issues,omitempty" gorm:"foreignKey:DispatchID"`
}

func (d *Dispatch) BeforeCreate(tx *gorm.DB) (err error) {
	if d.ID == 0 {
		d.ID = types.SnowflakeID(idgen.GenerateID())
	}
	if d.Photos == nil {
		d.Photos = datatypes.JSON("[]")
	}
	return
}

// PhotoURLs decodes the stored photo list.
func (d *Dispatch) PhotoURLs() []string {
	var urls []string
	if len(d.Photos) == 0 {
		return urls
	}
	_ = json.Unmarshal(d.Photos, &urls)
	return urls
}

// DispatchItem is immutable once its dispatch is created.
type DispatchItem struct {
	ID            types.SnowflakeID   `json:"id" gorm:"primaryKey;autoIncrement:false"`
	DispatchID    types.SnowflakeID   `json:"dispatch_id" gorm:"index;not null"`
	LineNo        int                 `json:"line_no"`
	Product       string              `json:"product" gorm:"size:120;not null"`
	Variety       string              `json:"variety" gorm:"size:120"`
	SizeGrade     string              `json:"size_grade" gorm:"size:60"`
	PackType      string              `json:"pack_type" gorm:"size:60"`
	Quantity      int                 `json:"quantity"`
	UnitWeightKg  decimal.NullDecimal `json:"unit_weight_kg" gorm:"type:decimal(12,3)"`
	TotalWeightKg decimal.NullDecimal `json:"total_weight_kg" gorm:"type:decimal(14,3)"`
	CreatedAt     time.Time           `json:"created_at"`
}

func (i *DispatchItem) BeforeCreate(tx *gorm.DB) (err error) {
	if i.ID == 0 {
		i.ID = types.SnowflakeID(idgen.GenerateID())
	}
	return
}

type ReceivingIssue struct {
	ID          types.SnowflakeID `json:"id" gorm:"primaryKey;autoIncrement:false"`
	DispatchID  types.SnowflakeID `json:"dispatch_id" gorm:"index;not null"`
	Type        string            `json:"type" gorm:"size:60;not null"`
	Severity    Severity          `json:"severity" gorm:"size:20;not null"`
	Description string            `json:"description" gorm:"size:2000"`
	PhotoURL    string            `json:"photo_url" gorm:"size:500"`
	FlaggedBy   *uint             `json:"flagged_by"`
	CreatedAt   time.Time         `json:"created_at"`
}

func (r *ReceivingIssue) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == 0 {
		r.ID = types.SnowflakeID(idgen.GenerateID())
	}
	return
}

// SequenceCounter backs the day-scoped document number generators.
type SequenceCounter struct {
	Name  string `gorm:"primaryKey;size:40"`
	Value int64  `gorm:"not null"`
}
