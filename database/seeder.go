package database

import (
	_ "embed"
	"errors"
	"fmt"
	"time"

	"freshdock/models"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

//go:embed seed.yaml
var defaultSeed []byte

type SeedFile struct {
	Businesses  []SeedBusiness   `yaml:"businesses"`
	Users       []SeedUser       `yaml:"users"`
	Connections []SeedConnection `yaml:"connections"`
}

type SeedBusiness struct {
	Name         string `yaml:"name"`
	Type         string `yaml:"type"`
	ContactName  string `yaml:"contact_name"`
	ContactEmail string `yaml:"contact_email"`
	ContactPhone string `yaml:"contact_phone"`
	Address      string `yaml:"address"`
	Region       string `yaml:"region"`
	State        string `yaml:"state"`
	IntakeToken  string `yaml:"intake_token"`
}

type SeedUser struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	Role     string `yaml:"role"`
	Business string `yaml:"business"`
}

type SeedConnection struct {
	Supplier string `yaml:"supplier"`
	Receiver string `yaml:"receiver"`
	Status   string `yaml:"status"`
}

// ParseSeed decodes a seed document. An empty input selects the embedded default.
func ParseSeed(raw []byte) (*SeedFile, error) {
	if len(raw) == 0 {
		raw = defaultSeed
	}
	var seed SeedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	return &seed, nil
}

// RunSeeders inserts the seed rows that do not exist yet. It is safe to run repeatedly.
func RunSeeders(db *gorm.DB, seed *SeedFile, log *zap.Logger) error {
	byName := map[string]*models.Business{}

	for _, sb := range seed.Businesses {
		bt, err := models.ParseBusinessType(sb.Type)
		if err != nil {
			return err
		}

		var existing models.Business
		err = db.Where("name = ? AND type = ?", sb.Name, bt).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			existing = models.Business{
				Name:         sb.Name,
				Type:         bt,
				ContactName:  sb.ContactName,
				ContactEmail: sb.ContactEmail,
				ContactPhone: sb.ContactPhone,
				Address:      sb.Address,
				Region:       sb.Region,
				State:        sb.State,
				IntakeToken:  sb.IntakeToken,
			}
			if err := db.Create(&existing).Error; err != nil {
				return fmt.Errorf("seed business %s: %w", sb.Name, err)
			}
			log.Info("seeded business", zap.String("name", sb.Name))
		} else if err != nil {
			return err
		}
		b := existing
		byName[sb.Name] = &b
	}

	for _, su := range seed.Users {
		role, err := models.ParseRole(su.Role)
		if err != nil {
			return err
		}
		business, ok := byName[su.Business]
		if !ok {
			return fmt.Errorf("seed user %s: unknown business %q", su.Email, su.Business)
		}

		var existing models.User
		err = db.Where("email = ?", su.Email).First(&existing).Error
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			if err != nil {
				return err
			}
			continue
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(su.Password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		user := models.User{
			Email:      su.Email,
			Password:   string(hash),
			Name:       su.Name,
			Role:       role,
			BusinessID: business.ID,
		}
		if err := db.Create(&user).Error; err != nil {
			return fmt.Errorf("seed user %s: %w", su.Email, err)
		}
		if business.OwnerUserID == nil && role != models.RoleStaff {
			db.Model(business).Update("owner_user_id", user.ID)
			business.OwnerUserID = &user.ID
		}
		log.Info("seeded user", zap.String("email", su.Email))
	}

	for _, sc := range seed.Connections {
		supplier, ok1 := byName[sc.Supplier]
		receiver, ok2 := byName[sc.Receiver]
		if !ok1 || !ok2 {
			return fmt.Errorf("seed connection %s -> %s: unknown business", sc.Supplier, sc.Receiver)
		}

		var existing models.Connection
		err := db.Where("supplier_business_id = ? AND receiver_business_id = ?", supplier.ID, receiver.ID).First(&existing).Error
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			if err != nil {
				return err
			}
			continue
		}

		conn := models.Connection{
			SupplierBusinessID: supplier.ID,
			ReceiverBusinessID: receiver.ID,
			Status:             models.ConnectionStatus(sc.Status),
		}
		if conn.Status != models.ConnectionPending {
			now := time.Now()
			conn.DecidedAt = &now
		}
		if err := db.Create(&conn).Error; err != nil {
			return fmt.Errorf("seed connection: %w", err)
		}
	}

	return nil
}
