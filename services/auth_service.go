package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"freshdock/models"
	"freshdock/repositories"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type SignupInput struct {
	BusinessName string `json:"business_name" validate:"required,max=160"`
	BusinessType string `json:"business_type" validate:"required,oneof=receiver supplier"`
	Name         string `json:"name" validate:"required,max=120"`
	Email        string `json:"email" validate:"required,email,max=160"`
	Password     string `json:"password" validate:"required,min=8,max=72"`
	ContactPhone string `json:"contact_phone" validate:"max=40"`
	Address      string `json:"address" validate:"max=300"`
	Region       string `json:"region" validate:"max=80"`
	State        string `json:"state" validate:"max=40"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type TokenResponse struct {
	AccessToken string          `json:"access_token"`
	ExpiresAt   time.Time       `json:"expires_at"`
	User        *models.User    `json:"user"`
	Business    models.Business `json:"business"`
}

type AuthService struct {
	users      *repositories.UserRepository
	businesses *repositories.BusinessRepository
	secret     []byte
	ttl        time.Duration
	now        func() time.Time
}

func NewAuthService(db *gorm.DB, secret string, ttl time.Duration) *AuthService {
	return &AuthService{
		users:      repositories.NewUserRepository(db),
		businesses: repositories.NewBusinessRepository(db),
		secret:     []byte(secret),
		ttl:        ttl,
		now:        time.Now,
	}
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Signup creates a business and its owner. The owner is an admin of a
// receiver or the supplier user of a supplier.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*TokenResponse, error) {
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

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	btype := models.BusinessType(in.BusinessType)
	business := &models.Business{
		Name:         strings.TrimSpace(in.BusinessName),
		Type:         btype,
		ContactName:  strings.TrimSpace(in.Name),
		ContactEmail: email,
		ContactPhone: strings.TrimSpace(in.ContactPhone),
		Address:      strings.TrimSpace(in.Address),
		Region:       strings.TrimSpace(in.Region),
		State:        strings.TrimSpace(in.State),
	}
	role := models.RoleSupplier
	if btype == models.BusinessReceiver {
		role = models.RoleAdmin
		business.IntakeToken = newIntakeToken()
	}
	user := &models.User{Email: email, Password: hash, Name: strings.TrimSpace(in.Name), Role: role}

	if err := s.businesses.CreateWithOwner(ctx, business, user); err != nil {
		return nil, fmt.Errorf("signup: %w", err)
	}
	return s.issue(user, business)
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (*TokenResponse, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	user, err := s.users.GetByEmail(ctx, in.Email)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.Password)) != nil {
		return nil, ErrUnauthorized
	}

	business, err := s.businesses.GetByID(ctx, user.BusinessID)
	if err != nil {
		return nil, fmt.Errorf("load business: %w", err)
	}
	return s.issue(user, business)
}

func (s *AuthService) issue(user *models.User, business *models.Business) (*TokenResponse, error) {
	expires := s.now().Add(s.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":       user.ID,
		"email":         user.Email,
		"role":          string(user.Role),
		"business_id":   business.ID,
		"business_type": string(business.Type),
		"exp":           expires.Unix(),
		"jti":           uuid.NewString(),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &TokenResponse{AccessToken: signed, ExpiresAt: expires, User: user, Business: *business}, nil
}

// ParseToken verifies a bearer token and builds the request session.
func (s *AuthService) ParseToken(raw string) (models.Session, error) {
	token, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithExpirationRequired(), jwt.WithTimeFunc(s.now))
	if err != nil {
		return models.Session{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return models.Session{}, ErrUnauthorized
	}

	userID, ok1 := claims["user_id"].(float64)
	businessID, ok2 := claims["business_id"].(float64)
	roleRaw, ok3 := claims["role"].(string)
	typeRaw, ok4 := claims["business_type"].(string)
	if !ok1 || !ok2 || !ok3 || !ok4 || userID <= 0 {
		return models.Session{}, fmt.Errorf("%w: incomplete claims", ErrUnauthorized)
	}
	role, err := models.ParseRole(roleRaw)
	if err != nil {
		return models.Session{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	btype, err := models.ParseBusinessType(typeRaw)
	if err != nil {
		return models.Session{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	email, _ := claims["email"].(string)

	return models.Session{
		UserID:       uint(userID),
		Email:        email,
		Role:         role,
		BusinessID:   uint(businessID),
		BusinessType: btype,
	}, nil
}

// Me returns the signed-in user and their business.
func (s *AuthService) Me(ctx context.Context, sess models.Session) (*models.User, *models.Business, error) {
	user, err := s.users.GetByID(ctx, sess.UserID)
	if err != nil {
		return nil, nil, err
	}
	business, err := s.businesses.GetByID(ctx, user.BusinessID)
	if err != nil {
		return nil, nil, err
	}
	return user, business, nil
}
