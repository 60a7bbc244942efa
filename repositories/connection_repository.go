package repositories

import (
	"context"
	"time"

	"freshdock/models"

	"gorm.io/gorm"
)

type ConnectionRepository struct {
	db *gorm.DB
}

func NewConnectionRepository(db *gorm.DB) *ConnectionRepository {
	return &ConnectionRepository{db: db}
}

func (r *ConnectionRepository) Create(ctx context.Context, c *models.Connection) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *ConnectionRepository) GetByID(ctx context.Context, id uint) (*models.Connection, error) {
	var c models.Connection
	if err := r.db.WithContext(ctx).Preload("Supplier").Preload("Receiver").First(&c, id).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (r *ConnectionRepository) FindPair(ctx context.Context, supplierID, receiverID uint) (*models.Connection, error) {
	var c models.Connection
	err := r.db.WithContext(ctx).
		Where("supplier_business_id = ? AND receiver_business_id = ?", supplierID, receiverID).
		First(&c).Error
	if err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (r *ConnectionRepository) IsApproved(ctx context.Context, supplierID, receiverID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Connection{}).
		Where("supplier_business_id = ? AND receiver_business_id = ? AND status = ?", supplierID, receiverID, models.ConnectionApproved).
		Count(&count).Error
	return count > 0, err
}

// Decide settles a pending connection. Already-decided rows are left alone.
func (r *ConnectionRepository) Decide(ctx context.Context, id uint, status models.ConnectionStatus, decidedBy uint) error {
	now := time.Now()
	res := r.db.WithContext(ctx).Model(&models.Connection{}).
		Where("id = ? AND status = ?", id, models.ConnectionPending).
		Updates(map[string]any{
			"status":     status,
			"decided_by": decidedBy,
			"decided_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleStatus
	}
	return nil
}

// Reopen puts a rejected pair back to pending.
func (r *ConnectionRepository) Reopen(ctx context.Context, id uint, requestedBy uint) error {
	return r.db.WithContext(ctx).Model(&models.Connection{}).
		Where("id = ? AND status = ?", id, models.ConnectionRejected).
		Updates(map[string]any{
			"status":       models.ConnectionPending,
			"requested_by": requestedBy,
			"decided_by":   nil,
			"decided_at":   nil,
		}).Error
}

// ListForBusiness returns every connection the business takes part in.
func (r *ConnectionRepository) ListForBusiness(ctx context.Context, businessID uint) ([]models.Connection, error) {
	var out []models.Connection
	err := r.db.WithContext(ctx).
		Preload("Supplier").
		Preload("Receiver").
		Where("supplier_business_id = ? OR receiver_business_id = ?", businessID, businessID).
		Order("id DESC").
		Find(&out).Error
	return out, err
}
