package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"freshdock/models"
	"freshdock/notify"
	"freshdock/repositories"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type BusinessUpdate struct {
	Name         *string `json:"name" validate:"omitempty,min=1,max=160"`
	ContactName  *string `json:"contact_name" validate:"omitempty,max=120"`
	ContactEmail *string `json:"contact_email" validate:"omitempty,email,max=160"`
	ContactPhone *string `json:"contact_phone" validate:"omitempty,max=40"`
	Address      *string `json:"address" validate:"omitempty,max=300"`
	Region       *string `json:"region" validate:"omitempty,max=80"`
	State        *string `json:"state" validate:"omitempty,max=40"`
}

type BusinessService struct {
	businesses  *repositories.BusinessRepository
	users       *repositories.UserRepository
	connections *repositories.ConnectionRepository
	receivers   *ReceiverCache
}

func NewBusinessService(db *gorm.DB, receivers *ReceiverCache) *BusinessService {
	return &BusinessService{
		businesses:  repositories.NewBusinessRepository(db),
		users:       repositories.NewUserRepository(db),
		connections: repositories.NewConnectionRepository(db),
		receivers:   receivers,
	}
}

// Own returns the caller's business. The intake token is only shown to the
// receiver's own staff.
func (s *BusinessService) Own(ctx context.Context, sess models.Session) (*models.Business, error) {
	b, err := s.businesses.GetByID(ctx, sess.BusinessID)
	if err != nil {
		return nil, err
	}
	if !sess.IsReceivingSide() {
		b.IntakeToken = ""
	}
	return b, nil
}

func (s *BusinessService) Update(ctx context.Context, sess models.Session, in BusinessUpdate) (*models.Business, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	fields := map[string]any{}
	set := func(col string, v *string) {
		if v != nil {
			fields[col] = strings.TrimSpace(*v)
		}
	}
	set("name", in.Name)
	set("contact_name", in.ContactName)
	set("contact_email", in.ContactEmail)
	set("contact_phone", in.ContactPhone)
	set("address", in.Address)
	set("region", in.Region)
	set("state", in.State)
	if len(fields) == 0 {
		return nil, invalid("fields", "nothing to change")
	}
	fields["updated_by"] = sess.UserID

	if err := s.businesses.UpdateContact(ctx, sess.BusinessID, fields); err != nil {
		return nil, err
	}
	return s.Own(ctx, sess)
}

// RotateIntakeToken replaces a receiver's intake token. Links and cached
// lookups for the old token stop resolving.
func (s *BusinessService) RotateIntakeToken(ctx context.Context, sess models.Session) (string, error) {
	if sess.BusinessType != models.BusinessReceiver || sess.Role != models.RoleAdmin {
		return "", ErrForbidden
	}
	b, err := s.businesses.GetByID(ctx, sess.BusinessID)
	if err != nil {
		return "", err
	}
	token := newIntakeToken()
	if err := s.businesses.SetIntakeToken(ctx, b.ID, token); err != nil {
		return "", err
	}
	s.receivers.Forget(b.IntakeToken)
	return token, nil
}

// Connected lists the businesses on the other side of the caller's approved
// connections.
func (s *BusinessService) Connected(ctx context.Context, sess models.Session) ([]models.Business, error) {
	conns, err := s.connections.ListForBusiness(ctx, sess.BusinessID)
	if err != nil {
		return nil, err
	}
	out := make([]models.Business, 0, len(conns))
	for _, c := range conns {
		if c.Status != models.ConnectionApproved {
			continue
		}
		other := c.Receiver
		if c.ReceiverBusinessID == sess.BusinessID {
			other = c.Supplier
		}
		if other != nil {
			b := *other
			b.IntakeToken = ""
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *BusinessService) Users(ctx context.Context, sess models.Session) ([]models.User, error) {
	return s.users.ListByBusiness(ctx, sess.BusinessID)
}

type ConnectionService struct {
	connections *repositories.ConnectionRepository
	businesses  *repositories.BusinessRepository
}

func NewConnectionService(db *gorm.DB) *ConnectionService {
	return &ConnectionService{
		connections: repositories.NewConnectionRepository(db),
		businesses:  repositories.NewBusinessRepository(db),
	}
}

// Request asks a receiver to accept the calling supplier. A rejected pair
// can ask again; an existing pending or approved pair is returned as is.
func (s *ConnectionService) Request(ctx context.Context, sess models.Session, receiverID uint) (*models.Connection, error) {
	if !sess.IsSupplier() {
		return nil, ErrForbidden
	}
	receiver, err := s.businesses.GetByID(ctx, receiverID)
	if err != nil {
		return nil, err
	}
	if !receiver.IsReceiver() {
		return nil, invalid("receiver_business_id", "is not a receiving business")
	}

	existing, err := s.connections.FindPair(ctx, sess.BusinessID, receiverID)
	switch {
	case err == nil:
		if existing.Status == models.ConnectionRejected {
			if err := s.connections.Reopen(ctx, existing.ID, sess.UserID); err != nil {
				return nil, err
			}
			return s.connections.GetByID(ctx, existing.ID)
		}
		return existing, nil
	case !errors.Is(err, repositories.ErrNotFound):
		return nil, err
	}

	conn := &models.Connection{
		SupplierBusinessID: sess.BusinessID,
		ReceiverBusinessID: receiverID,
		Status:             models.ConnectionPending,
		RequestedBy:        sess.UserID,
	}
	if err := s.connections.Create(ctx, conn); err != nil {
		return nil, fmt.Errorf("request connection: %w", err)
	}
	return conn, nil
}

// Decide approves or rejects a pending request addressed to the caller.
func (s *ConnectionService) Decide(ctx context.Context, sess models.Session, id uint, approve bool) (*models.Connection, error) {
	if !sess.IsReceivingSide() || sess.IsSystem() {
		return nil, ErrForbidden
	}
	conn, err := s.connections.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if conn.ReceiverBusinessID != sess.BusinessID {
		return nil, ErrNotFound
	}
	status := models.ConnectionRejected
	if approve {
		status = models.ConnectionApproved
	}
	if err := s.connections.Decide(ctx, id, status, sess.UserID); err != nil {
		return nil, err
	}
	return s.connections.GetByID(ctx, id)
}

func (s *ConnectionService) List(ctx context.Context, sess models.Session) ([]models.Connection, error) {
	conns, err := s.connections.ListForBusiness(ctx, sess.BusinessID)
	if err != nil {
		return nil, err
	}
	for i := range conns {
		if conns[i].Receiver != nil {
			conns[i].Receiver.IntakeToken = ""
		}
	}
	return conns, nil
}

type GrowerInput struct {
	BusinessName string `json:"business_name" validate:"required,max=160"`
	ContactName  string `json:"contact_name" validate:"required,max=120"`
	Email        string `json:"email" validate:"required,email,max=160"`
	ContactPhone string `json:"contact_phone" validate:"max=40"`
	Address      string `json:"address" validate:"max=300"`
	Region       string `json:"region" validate:"max=80"`
	State        string `json:"state" validate:"max=40"`
}

type ProvisionedGrower struct {
	Business   *models.Business   `json:"business"`
	User       *models.User       `json:"user"`
	Connection *models.Connection `json:"connection"`
}

// ProvisioningService lets receiving staff create supplier accounts for
// growers they already deal with.
type ProvisioningService struct {
	businesses *repositories.BusinessRepository
	users      *repositories.UserRepository
	mail       MailQueue
	loginURL   string
	log        *zap.Logger
}

func NewProvisioningService(db *gorm.DB, mail MailQueue, loginURL string, log *zap.Logger) *ProvisioningService {
	return &ProvisioningService{
		businesses: repositories.NewBusinessRepository(db),
		users:      repositories.NewUserRepository(db),
		mail:       mail,
		loginURL:   loginURL,
		log:        log,
	}
}

func (s *ProvisioningService) Provision(ctx context.Context, sess models.Session, in GrowerInput) (*ProvisionedGrower, error) {
	if !sess.IsReceivingSide() || sess.IsSystem() {
		return nil, ErrForbidden
	}
	if err := Validate(in); err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	taken, err := s.users.EmailTaken(ctx, email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, invalid("email", "is already registered")
	}
	receiver, err := s.businesses.GetByID(ctx, sess.BusinessID)
	if err != nil {
		return nil, err
	}

	password := newTemporaryPassword()
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	supplier := &models.Business{
		Name:         strings.TrimSpace(in.BusinessName),
		Type:         models.BusinessSupplier,
		ContactName:  strings.TrimSpace(in.ContactName),
		ContactEmail: email,
		ContactPhone: strings.TrimSpace(in.ContactPhone),
		Address:      strings.TrimSpace(in.Address),
		Region:       strings.TrimSpace(in.Region),
		State:        strings.TrimSpace(in.State),
		CreatedBy:    int(sess.UserID),
	}
	user := &models.User{
		Email:    email,
		Password: hash,
		Name:     strings.TrimSpace(in.ContactName),
		Role:     models.RoleSupplier,
	}
	conn, err := s.businesses.Provision(ctx, supplier, user, receiver.ID, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("provision grower: %w", err)
	}

	s.mail.Enqueue(welcomeMessage(user, supplier, receiver, password, s.loginURL))
	s.log.Info("grower provisioned",
		zap.Uint("supplier_business_id", supplier.ID),
		zap.Uint("receiver_business_id", receiver.ID),
	)
	return &ProvisionedGrower{Business: supplier, User: user, Connection: conn}, nil
}

var _ MailQueue = (*notify.Notifier)(nil)
