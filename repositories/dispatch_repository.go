package repositories

import (
	"context"
	"errors"
	"time"

	"freshdock/controllers/helpers"
	"freshdock/models"
	"freshdock/types"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type DispatchRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewDispatchRepository(db *gorm.DB) *DispatchRepository {
	return &DispatchRepository{db: db, now: time.Now}
}

type DispatchFilter struct {
	ReceiverBusinessID *uint
	SupplierBusinessID *uint
	Status             models.Status
	GrowerName         string
	WithItems          bool
	Limit              int
	Offset             int
}

func orderedItems(db *gorm.DB) *gorm.DB {
	return db.Order("line_no ASC")
}

func orderedIssues(db *gorm.DB) *gorm.DB {
	return db.Order("id ASC")
}

// Create stores the dispatch, its items and its opening events in one transaction.
func (r *DispatchRepository) Create(ctx context.Context, d *models.Dispatch, events []models.DispatchEvent) error {
	return r.create(ctx, d, events, false)
}

// CreateWithAdviceNumber is Create plus a delivery-advice number issued in
// the same transaction.
func (r *DispatchRepository) CreateWithAdviceNumber(ctx context.Context, d *models.Dispatch, events []models.DispatchEvent) error {
	return r.create(ctx, d, events, true)
}

func (r *DispatchRepository) create(ctx context.Context, d *models.Dispatch, events []models.DispatchEvent, withAdvice bool) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := r.now()
		displayID, err := NextNumber(tx, "FD", now)
		if err != nil {
			return err
		}
		d.DisplayID = displayID
		if withAdvice && d.DeliveryAdviceNo == "" {
			if d.DeliveryAdviceNo, err = NextNumber(tx, "DA", now); err != nil {
				return err
			}
		}
		if d.PublicCode == "" {
			d.PublicCode = uuid.NewString()
		}
		for i := range d.Items {
			d.Items[i].LineNo = i + 1
		}

		if err := tx.Create(d).Error; err != nil {
			return err
		}

		for i := range events {
			events[i].DispatchID = d.ID
		}
		return helpers.InsertDispatchEvents(tx, events...)
	})
}

func (r *DispatchRepository) Get(ctx context.Context, id types.SnowflakeID) (*models.Dispatch, error) {
	var d models.Dispatch
	err := r.db.WithContext(ctx).
		Preload("Items", orderedItems).
		Preload("Issues", orderedIssues).
		First(&d, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &d, nil
}

func (r *DispatchRepository) GetByPublicCode(ctx context.Context, code string) (*models.Dispatch, error) {
	var d models.Dispatch
	err := r.db.WithContext(ctx).
		Preload("Items", orderedItems).
		First(&d, "public_code = ?", code).Error
	if err != nil {
		return nil, translate(err)
	}
	return &d, nil
}

// List returns dispatches newest first.
func (r *DispatchRepository) List(ctx context.Context, f DispatchFilter) ([]models.Dispatch, error) {
	q := r.db.WithContext(ctx).Model(&models.Dispatch{})
	if f.ReceiverBusinessID != nil {
		q = q.Where("receiver_business_id = ?", *f.ReceiverBusinessID)
	}
	if f.SupplierBusinessID != nil {
		q = q.Where("supplier_business_id = ?", *f.SupplierBusinessID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.GrowerName != "" {
		q = q.Where("grower_name = ?", f.GrowerName)
	}
	if f.WithItems {
		q = q.Preload("Items", orderedItems)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}

	var out []models.Dispatch
	err := q.Order("created_at DESC").Order("id DESC").Find(&out).Error
	return out, err
}

// Transition moves a dispatch from one status to another and appends the
// event. The update only applies while the stored status still equals from.
func (r *DispatchRepository) Transition(ctx context.Context, id types.SnowflakeID, from, to models.Status, changes map[string]any, ev models.DispatchEvent) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := casStatus(tx, id, from, to, changes, r.now()); err != nil {
			return err
		}
		return helpers.InsertDispatchEvents(tx, ev)
	})
}

// AddIssue records a receiving issue and forces the dispatch to issue.
func (r *DispatchRepository) AddIssue(ctx context.Context, issue *models.ReceivingIssue, from models.Status, ev models.DispatchEvent) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := casStatus(tx, issue.DispatchID, from, models.StatusIssue, nil, r.now()); err != nil {
			return err
		}
		if err := tx.Create(issue).Error; err != nil {
			return err
		}
		return helpers.InsertDispatchEvents(tx, ev)
	})
}

func casStatus(tx *gorm.DB, id types.SnowflakeID, from, to models.Status, changes map[string]any, now time.Time) error {
	updates := map[string]any{"status": to, "updated_at": now}
	for k, v := range changes {
		updates[k] = v
	}

	res := tx.Model(&models.Dispatch{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := tx.Model(&models.Dispatch{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}
		return ErrStaleStatus
	}
	return nil
}

func (r *DispatchRepository) CountIssues(ctx context.Context, id types.SnowflakeID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ReceivingIssue{}).Where("dispatch_id = ?", id).Count(&count).Error
	return count, err
}

// AssignAdviceNumber returns the dispatch's delivery-advice number, issuing
// one on first use. Later calls return the stored number unchanged.
func (r *DispatchRepository) AssignAdviceNumber(ctx context.Context, id types.SnowflakeID) (string, error) {
	var number string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := adviceNumberOf(tx, id)
		if err != nil {
			return err
		}
		if current != "" {
			number = current
			return nil
		}

		next, err := NextNumber(tx, "DA", r.now())
		if err != nil {
			return err
		}
		res := tx.Model(&models.Dispatch{}).
			Where("id = ? AND delivery_advice_no = ?", id, "").
			Update("delivery_advice_no", next)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 1 {
			number = next
			return nil
		}

		// lost the race; keep the winner's number
		number, err = adviceNumberOf(tx, id)
		if err == nil && number == "" {
			err = errors.New("delivery advice number was not stored")
		}
		return err
	})
	return number, err
}

func adviceNumberOf(tx *gorm.DB, id types.SnowflakeID) (string, error) {
	var d models.Dispatch
	if err := tx.Select("id", "delivery_advice_no").First(&d, "id = ?", id).Error; err != nil {
		return "", translate(err)
	}
	return d.DeliveryAdviceNo, nil
}

func (r *DispatchRepository) AppendEvent(ctx context.Context, ev models.DispatchEvent) error {
	return helpers.InsertDispatchEvents(r.db.WithContext(ctx), ev)
}

// Events returns the full timeline in insertion order.
func (r *DispatchRepository) Events(ctx context.Context, id types.SnowflakeID) ([]models.DispatchEvent, error) {
	var out []models.DispatchEvent
	err := r.db.WithContext(ctx).Where("dispatch_id = ?", id).Order("id ASC").Find(&out).Error
	return out, err
}

// AppendPhoto adds a URL to the photo list and records an edited event.
func (r *DispatchRepository) AppendPhoto(ctx context.Context, id types.SnowflakeID, photos datatypes.JSON, ev models.DispatchEvent) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Dispatch{}).Where("id = ?", id).Updates(map[string]any{
			"photos":     photos,
			"updated_at": r.now(),
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return helpers.InsertDispatchEvents(tx, ev)
	})
}
