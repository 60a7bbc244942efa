package services

import (
	"context"
	"encoding/json"
	"strings"

	"freshdock/models"
	"freshdock/repositories"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type TemplateInput struct {
	Name   string          `json:"name" validate:"required,max=120"`
	Values json.RawMessage `json:"values"`
}

// TemplateService keeps a supplier's saved dispatch forms.
type TemplateService struct {
	templates *repositories.TemplateRepository
}

func NewTemplateService(db *gorm.DB) *TemplateService {
	return &TemplateService{templates: repositories.NewTemplateRepository(db)}
}

func (s *TemplateService) List(ctx context.Context, sess models.Session) ([]models.DispatchTemplate, error) {
	if !sess.IsSupplier() {
		return nil, ErrForbidden
	}
	return s.templates.List(ctx, sess.BusinessID)
}

func (s *TemplateService) Get(ctx context.Context, sess models.Session, id uint) (*models.DispatchTemplate, error) {
	if !sess.IsSupplier() {
		return nil, ErrForbidden
	}
	return s.templates.Get(ctx, sess.BusinessID, id)
}

func (s *TemplateService) Create(ctx context.Context, sess models.Session, in TemplateInput) (*models.DispatchTemplate, error) {
	if !sess.IsSupplier() {
		return nil, ErrForbidden
	}
	values, err := templateValues(in)
	if err != nil {
		return nil, err
	}
	t := &models.DispatchTemplate{
		SupplierBusinessID: sess.BusinessID,
		Name:               strings.TrimSpace(in.Name),
		Values:             values,
		CreatedBy:          sess.UserID,
	}
	if err := s.templates.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *TemplateService) Update(ctx context.Context, sess models.Session, id uint, in TemplateInput) (*models.DispatchTemplate, error) {
	if !sess.IsSupplier() {
		return nil, ErrForbidden
	}
	values, err := templateValues(in)
	if err != nil {
		return nil, err
	}
	t, err := s.templates.Get(ctx, sess.BusinessID, id)
	if err != nil {
		return nil, err
	}
	t.Name = strings.TrimSpace(in.Name)
	t.Values = values
	if err := s.templates.Save(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *TemplateService) Delete(ctx context.Context, sess models.Session, id uint) error {
	if !sess.IsSupplier() {
		return ErrForbidden
	}
	return s.templates.Delete(ctx, sess.BusinessID, id)
}

// templateValues requires a JSON object; anything else is rejected.
func templateValues(in TemplateInput) (datatypes.JSON, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	if len(in.Values) == 0 {
		return datatypes.JSON("{}"), nil
	}
	var obj map[string]any
	if err := json.Unmarshal(in.Values, &obj); err != nil || obj == nil {
		return nil, invalid("values", "must be a JSON object")
	}
	return datatypes.JSON(in.Values), nil
}
