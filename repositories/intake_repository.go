package repositories

import (
	"context"

	"freshdock/models"

	"gorm.io/gorm"
)

type IntakeLinkRepository struct {
	db *gorm.DB
}

func NewIntakeLinkRepository(db *gorm.DB) *IntakeLinkRepository {
	return &IntakeLinkRepository{db: db}
}

func (r *IntakeLinkRepository) Create(ctx context.Context, link *models.SupplierIntakeLink) error {
	return r.db.WithContext(ctx).Create(link).Error
}

func (r *IntakeLinkRepository) GetByCode(ctx context.Context, code string) (*models.SupplierIntakeLink, error) {
	var link models.SupplierIntakeLink
	if err := r.db.WithContext(ctx).Where("short_code = ?", code).First(&link).Error; err != nil {
		return nil, translate(err)
	}
	return &link, nil
}

func (r *IntakeLinkRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Unscoped().Model(&models.SupplierIntakeLink{}).
		Where("short_code = ?", code).
		Count(&count).Error
	return count > 0, err
}

func (r *IntakeLinkRepository) ListForReceiver(ctx context.Context, receiverID uint) ([]models.SupplierIntakeLink, error) {
	var out []models.SupplierIntakeLink
	err := r.db.WithContext(ctx).Where("receiver_business_id = ?", receiverID).Order("id DESC").Find(&out).Error
	return out, err
}

type TemplateRepository struct {
	db *gorm.DB
}

func NewTemplateRepository(db *gorm.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

func (r *TemplateRepository) List(ctx context.Context, supplierID uint) ([]models.DispatchTemplate, error) {
	var out []models.DispatchTemplate
	err := r.db.WithContext(ctx).Where("supplier_business_id = ?", supplierID).Order("name ASC").Find(&out).Error
	return out, err
}

// Get scopes the lookup to the owning supplier.
func (r *TemplateRepository) Get(ctx context.Context, supplierID, id uint) (*models.DispatchTemplate, error) {
	var t models.DispatchTemplate
	err := r.db.WithContext(ctx).Where("id = ? AND supplier_business_id = ?", id, supplierID).First(&t).Error
	if err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (r *TemplateRepository) Create(ctx context.Context, t *models.DispatchTemplate) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *TemplateRepository) Save(ctx context.Context, t *models.DispatchTemplate) error {
	return r.db.WithContext(ctx).Save(t).Error
}

func (r *TemplateRepository) Delete(ctx context.Context, supplierID, id uint) error {
	res := r.db.WithContext(ctx).Where("id = ? AND supplier_business_id = ?", id, supplierID).Delete(&models.DispatchTemplate{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
