package repositories

import (
	"fmt"
	"time"

	"freshdock/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NextNumber issues PREFIX+YYMMDD+NNNN. Sequences restart every day and the
// counter row lock serialises concurrent callers.
func NextNumber(tx *gorm.DB, prefix string, now time.Time) (string, error) {
	day := now.Format("060102")
	name := prefix + day

	seed := models.SequenceCounter{Name: name, Value: 0}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return "", fmt.Errorf("init sequence %s: %w", name, err)
	}

	res := tx.Model(&models.SequenceCounter{}).
		Where("name = ?", name).
		Update("value", gorm.Expr("value + ?", 1))
	if res.Error != nil {
		return "", fmt.Errorf("bump sequence %s: %w", name, res.Error)
	}

	var counter models.SequenceCounter
	if err := tx.Where("name = ?", name).First(&counter).Error; err != nil {
		return "", fmt.Errorf("read sequence %s: %w", name, err)
	}

	return fmt.Sprintf("%s%s%04d", prefix, day, counter.Value), nil
}
