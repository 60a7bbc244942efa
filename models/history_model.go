package models

import (
	"encoding/json"
	"errors"
	"sort"
	"time"

	"freshdock/controllers/idgen"
	"freshdock/types"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type EventType string

const (
	EventCreated                 EventType = "created"
	EventSubmitted               EventType = "submitted"
	EventDeliveryAdviceGenerated EventType = "delivery_advice_generated"
	EventConNoteAttached         EventType = "con_note_attached"
	EventInTransit               EventType = "in_transit"
	EventArrived                 EventType = "arrived"
	EventReceived                EventType = "received"
	EventIssueFlagged            EventType = "issue_flagged"
	EventQRScanned               EventType = "qr_scanned"
	EventETAUpdated              EventType = "eta_updated"
	EventEdited                  EventType = "edited"
)

var ErrEventImmutable = errors.New("dispatch events are append-only")

// DispatchEvent is one row of the append-only dispatch timeline.
type DispatchEvent struct {
	ID         types.SnowflakeID `json:"id" gorm:"primaryKey;autoIncrement:false"`
	DispatchID types.SnowflakeID `json:"dispatch_id" gorm:"index;not null"`
	EventType  EventType         `json:"event_type" gorm:"size:40;not null"`
	UserID     *uint             `json:"user_id"`
	Role       string            `json:"role" gorm:"size:30;not null"`
	Metadata   datatypes.JSON    `json:"metadata"`
	CreatedAt  time.Time         `json:"created_at"`
}

func (e *DispatchEvent) BeforeCreate(tx *gorm.DB) (err error) {
	if e.ID == 0 {
		e.ID = types.SnowflakeID(idgen.GenerateID())
	}
	if e.Metadata == nil {
		e.Metadata = datatypes.JSON("{}")
	}
	return
}

func (e *DispatchEvent) BeforeUpdate(tx *gorm.DB) error {
	return ErrEventImmutable
}

func (e *DispatchEvent) BeforeDelete(tx *gorm.DB) error {
	return ErrEventImmutable
}

// NewEvent stamps an event for the given actor. Metadata that cannot be
// encoded is stored as an empty object.
func NewEvent(dispatchID types.SnowflakeID, kind EventType, actor Actor, meta map[string]any) DispatchEvent {
	raw := datatypes.JSON("{}")
	if len(meta) > 0 {
		if b, err := json.Marshal(meta); err == nil {
			raw = datatypes.JSON(b)
		}
	}
	return DispatchEvent{
		ID:         types.SnowflakeID(idgen.GenerateID()),
		DispatchID: dispatchID,
		EventType:  kind,
		UserID:     actor.UserID,
		Role:       actor.Role,
		Metadata:   raw,
		CreatedAt:  time.Now(),
	}
}

// Timeline merges a fetched history with streamed events. Events are kept
// in id order and duplicates are ignored.
type Timeline struct {
	seen   map[types.SnowflakeID]struct{}
	events []DispatchEvent
}

func NewTimeline(history []DispatchEvent) *Timeline {
	t := &Timeline{seen: make(map[types.SnowflakeID]struct{}, len(history))}
	for _, ev := range history {
		t.Add(ev)
	}
	return t
}

// Add reports whether ev was new.
func (t *Timeline) Add(ev DispatchEvent) bool {
	if _, ok := t.seen[ev.ID]; ok {
		return false
	}
	t.seen[ev.ID] = struct{}{}

	i := sort.Search(len(t.events), func(i int) bool { return t.events[i].ID > ev.ID })
	t.events = append(t.events, DispatchEvent{})
	copy(t.events[i+1:], t.events[i:])
	t.events[i] = ev
	return true
}

func (t *Timeline) Events() []DispatchEvent {
	out := make([]DispatchEvent, len(t.events))
	copy(out, t.events)
	return out
}

func (t *Timeline) Len() int {
	return len(t.events)
}
