package migration

import (
	"fmt"

	"freshdock/models"

	"gorm.io/gorm"
)

// Migrate creates or updates every table the service owns.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Business{},
		&models.User{},
		&models.Connection{},
		&models.Dispatch{},
		&models.DispatchItem{},
		&models.ReceivingIssue{},
		&models.DispatchEvent{},
		&models.SupplierIntakeLink{},
		&models.DispatchTemplate{},
		&models.SequenceCounter{},
	); err != nil {
		return err
	}
	return ensureAdviceNumberIndex(db)
}

const (
	adviceNumberIndex = "uidx_dispatches_delivery_advice_no"
	// created by older builds from the struct tag
	legacyAdviceNumberIndex = "idx_dispatches_delivery_advice_no"
)

// ensureAdviceNumberIndex makes issued advice numbers unique while letting
// any number of dispatches wait with the empty default.
func ensureAdviceNumberIndex(db *gorm.DB) error {
	m := db.Migrator()
	if m.HasIndex(&models.Dispatch{}, legacyAdviceNumberIndex) {
		if err := m.DropIndex(&models.Dispatch{}, legacyAdviceNumberIndex); err != nil {
			return fmt.Errorf("drop %s: %w", legacyAdviceNumberIndex, err)
		}
	}
	if m.HasIndex(&models.Dispatch{}, adviceNumberIndex) {
		return nil
	}

	stmt := "CREATE UNIQUE INDEX " + adviceNumberIndex + " ON dispatches (delivery_advice_no) WHERE delivery_advice_no <> ''"
	if db.Dialector.Name() == "mysql" {
		// no partial indexes; NULL keys never collide
		stmt = "CREATE UNIQUE INDEX " + adviceNumberIndex + " ON dispatches ((NULLIF(delivery_advice_no, '')))"
	}
	if err := db.Exec(stmt).Error; err != nil {
		return fmt.Errorf("create %s: %w", adviceNumberIndex, err)
	}
	return nil
}
