package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"freshdock/models"
	"freshdock/repositories"

	"gorm.io/gorm"
)

const shortCodeLength = 7

type IntakeLinkInput struct {
	GrowerName  string `json:"grower_name" validate:"required,max=120"`
	GrowerCode  string `json:"grower_code" validate:"max=40"`
	GrowerEmail string `json:"grower_email" validate:"omitempty,email,max=160"`
}

// IntakeLinkView is the prefill payload behind a short code.
type IntakeLinkView struct {
	ShortCode    string `json:"short_code"`
	Token        string `json:"token"`
	ReceiverName string `json:"receiver_name"`
	GrowerName   string `json:"grower_name"`
	GrowerCode   string `json:"grower_code"`
	GrowerEmail  string `json:"grower_email"`
}

type IntakeLinkService struct {
	links      *repositories.IntakeLinkRepository
	businesses *repositories.BusinessRepository
	baseURL    string
}

func NewIntakeLinkService(db *gorm.DB, baseURL string) *IntakeLinkService {
	return &IntakeLinkService{
		links:      repositories.NewIntakeLinkRepository(db),
		businesses: repositories.NewBusinessRepository(db),
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

func (s *IntakeLinkService) Create(ctx context.Context, sess models.Session, in IntakeLinkInput) (*models.SupplierIntakeLink, error) {
	if !sess.IsReceivingSide() || sess.IsSystem() {
		return nil, ErrForbidden
	}
	if err := Validate(in); err != nil {
		return nil, err
	}
	receiver, err := s.businesses.GetByID(ctx, sess.BusinessID)
	if err != nil {
		return nil, err
	}
	if receiver.IntakeToken == "" {
		return nil, fmt.Errorf("%w: receiver has no intake token", ErrInvalidTransition)
	}

	code, err := s.uniqueCode(ctx)
	if err != nil {
		return nil, err
	}
	link := &models.SupplierIntakeLink{
		ShortCode:          code,
		ReceiverBusinessID: receiver.ID,
		IntakeToken:        receiver.IntakeToken,
		GrowerName:         strings.TrimSpace(in.GrowerName),
		GrowerCode:         strings.TrimSpace(in.GrowerCode),
		GrowerEmail:        strings.TrimSpace(in.GrowerEmail),
		CreatedBy:          sess.UserID,
	}
	if err := s.links.Create(ctx, link); err != nil {
		return nil, fmt.Errorf("create intake link: %w", err)
	}
	return link, nil
}

func (s *IntakeLinkService) uniqueCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		code := newShortCode(shortCodeLength)
		taken, err := s.links.CodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("%w: could not allocate a short code", ErrConflict)
}

func (s *IntakeLinkService) List(ctx context.Context, sess models.Session) ([]models.SupplierIntakeLink, error) {
	if !sess.IsReceivingSide() || sess.IsSystem() {
		return nil, ErrForbidden
	}
	return s.links.ListForReceiver(ctx, sess.BusinessID)
}

// Resolve returns the prefill payload. Links created before the receiver
// rotated its token no longer resolve.
func (s *IntakeLinkService) Resolve(ctx context.Context, code string) (*IntakeLinkView, error) {
	link, err := s.links.GetByCode(ctx, strings.TrimSpace(code))
	if err != nil {
		return nil, err
	}
	receiver, err := s.businesses.GetByID(ctx, link.ReceiverBusinessID)
	if err != nil {
		return nil, err
	}
	if receiver.IntakeToken == "" || receiver.IntakeToken != link.IntakeToken {
		return nil, ErrNotFound
	}
	return &IntakeLinkView{
		ShortCode:    link.ShortCode,
		Token:        link.IntakeToken,
		ReceiverName: receiver.Name,
		GrowerName:   link.GrowerName,
		GrowerCode:   link.GrowerCode,
		GrowerEmail:  link.GrowerEmail,
	}, nil
}

// RedirectURL is where /l/:code sends the browser.
func (s *IntakeLinkService) RedirectURL(ctx context.Context, code string) (string, error) {
	view, err := s.Resolve(ctx, code)
	if err != nil {
		return "", err
	}
	q := url.Values{}
	q.Set("grower", view.GrowerName)
	q.Set("code", view.ShortCode)
	return s.baseURL + "/intake/" + url.PathEscape(view.Token) + "?" + q.Encode(), nil
}
