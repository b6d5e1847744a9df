package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Property event types.
const (
	EventCreated        = "CREATED"
	EventUpdated        = "UPDATED"
	EventOfferReceived  = "OFFER_RECEIVED"
	EventOfferAccepted  = "OFFER_ACCEPTED"
	EventOfferRefused   = "OFFER_REFUSED"
	EventSold           = "SOLD"
	EventCancelled      = "CANCELLED"
	EventInvoiceCreated = "INVOICE_CREATED"
	// EventDeleted is announced to publishers only; the property's event rows go with it.
	EventDeleted = "DELETED"
)

// PropertyEvent is an append-only audit row for a property state change.
type PropertyEvent struct {
	EventID     uuid.UUID      `gorm:"column:event_id;type:uuid;primaryKey" json:"event_id"`
	PropertyID  uuid.UUID      `gorm:"column:property_id;type:uuid;not null;index" json:"property_id"`
	EventType   string         `gorm:"column:event_type;type:varchar(30);not null" json:"event_type"`
	FromState   string         `gorm:"column:from_state;type:varchar(20)" json:"from_state"`
	ToState     string         `gorm:"column:to_state;type:varchar(20)" json:"to_state"`
	EventData   datatypes.JSON `gorm:"column:event_data" json:"event_data"`
	ActorUserID *uuid.UUID     `gorm:"column:actor_user_id;type:uuid" json:"actor_user_id"`
	CreatedAt   time.Time      `gorm:"column:createdAt" json:"createdAt"`
}

func (PropertyEvent) TableName() string {
	return "PropertyEvents"
}

// ChangesListing reports whether the event can change which properties are publicly listed:
// a state change, a deletion, or an update of the active flag.
func (e PropertyEvent) ChangesListing() bool {
	if e.FromState != e.ToState || e.EventType == EventDeleted {
		return true
	}
	if e.EventType != EventUpdated {
		return false
	}
	var data struct {
		Fields []string `json:"fields"`
	}
	if err := json.Unmarshal(e.EventData, &data); err != nil {
		return false
	}
	for _, f := range data.Fields {
		if f == "active" {
			return true
		}
	}
	return false
}

func (e *PropertyEvent) BeforeCreate(tx *gorm.DB) error {
	if e.EventID == uuid.Nil {
		e.EventID = uuid.New()
	}
	return nil
}
