package services

import (
	"context"
	"io"

	"freshdock/documents"
	"freshdock/models"
	"freshdock/repositories"

	"gorm.io/gorm"
)

const exportLimit = 5000

// ExportService writes the tenant's dispatch register as xlsx.
type ExportService struct {
	dispatches *DispatchService
	businesses *repositories.BusinessRepository
}

func NewExportService(dispatches *DispatchService, db *gorm.DB) *ExportService {
	return &ExportService{dispatches: dispatches, businesses: repositories.NewBusinessRepository(db)}
}

func (s *ExportService) WriteRegister(ctx context.Context, sess models.Session, status string, w io.Writer) error {
	f := repositories.DispatchFilter{WithItems: true, Limit: exportLimit}
	if status != "" {
		st, err := models.ParseStatus(status)
		if err != nil {
			return invalid("status", err.Error())
		}
		f.Status = st
	}
	if !sess.IsSystem() {
		if sess.BusinessID == 0 {
			return ErrForbidden
		}
		id := sess.BusinessID
		switch sess.BusinessType {
		case models.BusinessReceiver:
			f.ReceiverBusinessID = &id
		case models.BusinessSupplier:
			f.SupplierBusinessID = &id
		default:
			return ErrForbidden
		}
	}

	list, err := s.dispatches.dispatches.List(ctx, f)
	if err != nil {
		return err
	}

	seen := map[uint]bool{}
	var ids []uint
	for _, d := range list {
		if d.ReceiverBusinessID != nil && !seen[*d.ReceiverBusinessID] {
			seen[*d.ReceiverBusinessID] = true
			ids = append(ids, *d.ReceiverBusinessID)
		}
	}
	names := make(map[uint]string, len(ids))
	if len(ids) > 0 {
		businesses, err := s.businesses.ListByIDs(ctx, ids)
		if err != nil {
			return err
		}
		for _, b := range businesses {
			names[b.ID] = b.Name
		}
	}
	return documents.WriteRegister(w, list, names)
}

// BusinessSession acts as the owner of b, for operator tooling that works
// inside one tenant.
func BusinessSession(b *models.Business) models.Session {
	role := models.RoleAdmin
	if b.Type != models.BusinessReceiver {
		role = models.RoleSupplier
	}
	return models.Session{Role: role, BusinessID: b.ID, BusinessType: b.Type}
}
