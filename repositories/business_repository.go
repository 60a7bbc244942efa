package repositories

import (
	"context"
	"strings"
	"time"

	"freshdock/models"

	"gorm.io/gorm"
)

type BusinessRepository struct {
	db *gorm.DB
}

func NewBusinessRepository(db *gorm.DB) *BusinessRepository {
	return &BusinessRepository{db: db}
}

func (r *BusinessRepository) GetByID(ctx context.Context, id uint) (*models.Business, error) {
	var b models.Business
	if err := r.db.WithContext(ctx).First(&b, id).Error; err != nil {
		return nil, translate(err)
	}
	return &b, nil
}

// GetReceiverByToken resolves a public intake token. Only receivers match.
func (r *BusinessRepository) GetReceiverByToken(ctx context.Context, token string) (*models.Business, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrNotFound
	}
	var b models.Business
	err := r.db.WithContext(ctx).
		Where("intake_token = ? AND type = ?", token, models.BusinessReceiver).
		First(&b).Error
	if err != nil {
		return nil, translate(err)
	}
	return &b, nil
}

func (r *BusinessRepository) ListByIDs(ctx context.Context, ids []uint) ([]models.Business, error) {
	var out []models.Business
	if len(ids) == 0 {
		return out, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&out).Error
	return out, err
}

func (r *BusinessRepository) ListByType(ctx context.Context, t models.BusinessType) ([]models.Business, error) {
	var out []models.Business
	err := r.db.WithContext(ctx).Where("type = ?", t).Order("name ASC").Find(&out).Error
	return out, err
}

// UpdateContact writes the editable profile columns.
func (r *BusinessRepository) UpdateContact(ctx context.Context, id uint, fields map[string]any) error {
	res := r.db.WithContext(ctx).Model(&models.Business{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *BusinessRepository) SetIntakeToken(ctx context.Context, id uint, token string) error {
	res := r.db.WithContext(ctx).Model(&models.Business{}).
		Where("id = ? AND type = ?", id, models.BusinessReceiver).
		Update("intake_token", token)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateWithOwner stores a business and its first user together.
func (r *BusinessRepository) CreateWithOwner(ctx context.Context, b *models.Business, owner *models.User) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(b).Error; err != nil {
			return err
		}
		owner.BusinessID = b.ID
		if err := tx.Create(owner).Error; err != nil {
			return err
		}
		b.OwnerUserID = &owner.ID
		return tx.Model(b).Update("owner_user_id", owner.ID).Error
	})
}

// Provision creates a supplier business, its user and an approved
// connection to the receiver in one transaction.
func (r *BusinessRepository) Provision(ctx context.Context, supplier *models.Business, user *models.User, receiverID, decidedBy uint) (*models.Connection, error) {
	conn := &models.Connection{
		ReceiverBusinessID: receiverID,
		Status:             models.ConnectionApproved,
		RequestedBy:        decidedBy,
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(supplier).Error; err != nil {
			return err
		}
		user.BusinessID = supplier.ID
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		supplier.OwnerUserID = &user.ID
		if err := tx.Model(supplier).Update("owner_user_id", user.ID).Error; err != nil {
			return err
		}

		now := time.Now()
		conn.SupplierBusinessID = supplier.ID
		conn.DecidedBy = &decidedBy
		conn.DecidedAt = &now
		return tx.Create(conn).Error
	})
	if err != nil {
		return nil, err
	}
	return conn, nil
}
