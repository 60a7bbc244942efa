package helpers

import (
	"time"

	"freshdock/models"

	"gorm.io/gorm"
)

// InsertDispatchEvents appends audit rows using the caller's handle, which
// is normally the transaction that wrote the dispatch change.
func InsertDispatchEvents(db *gorm.DB, events ...models.DispatchEvent) error {
	if len(events) == 0 {
		return nil
	}

	now := time.Now()
	for i := range events {
		if events[i].CreatedAt.IsZero() {
			events[i].CreatedAt = now
		}
	}

	return db.Create(&events).Error
}
