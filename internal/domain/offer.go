package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Offer statuses. Draft is the pending state; it is shown to users as "pending".
const (
	OfferDraft    = "draft"
	OfferAccepted = "accepted"
	OfferRefused  = "refused"
)

// DefaultOfferValidity is the validity in days of a new offer.
const DefaultOfferValidity = 7

// Offer is a bid by a partner on a property.
type Offer struct {
	OfferID        uuid.UUID  `gorm:"column:offer_id;type:uuid;primaryKey" json:"offer_id"`
	PropertyID     uuid.UUID  `gorm:"column:property_id;type:uuid;not null;index" json:"property_id"`
	PartnerID      uuid.UUID  `gorm:"column:partner_id;type:uuid;not null;index" json:"partner_id"`
	PropertyTypeID *uuid.UUID `gorm:"column:property_type_id;type:uuid;index" json:"property_type_id"`
	Price          float64    `gorm:"column:price;type:decimal(18,2);not null;check:chk_offer_price,price >= 0" json:"price"`
	Status         string     `gorm:"column:status;type:varchar(20);not null" json:"status"`
	Validity       int        `gorm:"column:validity;not null" json:"validity"`
	DateDeadline   *time.Time `gorm:"column:date_deadline" json:"date_deadline"`
	Property       *Property  `gorm:"foreignKey:PropertyID;references:PropertyID" json:"property,omitempty"`
	Partner        *Partner   `gorm:"foreignKey:PartnerID;references:PartnerID" json:"partner,omitempty"`
	CreatedAt      time.Time  `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt      time.Time  `gorm:"column:updatedAt" json:"updatedAt"`
}

func (Offer) TableName() string {
	return "Offers"
}

func (o *Offer) BeforeCreate(tx *gorm.DB) error {
	if o.OfferID == uuid.Nil {
		o.OfferID = uuid.New()
	}
	return nil
}

// baseDate is the day validity counts from: creation day, or today for unsaved offers.
func (o *Offer) baseDate(today time.Time) time.Time {
	if !o.CreatedAt.IsZero() {
		return TruncateDay(o.CreatedAt)
	}
	return TruncateDay(today)
}

// ApplyValidity sets validity in days and derives the deadline from it.
func (o *Offer) ApplyValidity(days int, today time.Time) {
	d := o.baseDate(today).AddDate(0, 0, days)
	o.Validity = days
	o.DateDeadline = &d
}

// ApplyDeadline sets the deadline and derives validity from it. A nil deadline clears both.
func (o *Offer) ApplyDeadline(deadline *time.Time, today time.Time) {
	if deadline == nil {
		o.DateDeadline = nil
		o.Validity = 0
		return
	}
	d := TruncateDay(*deadline)
	o.DateDeadline = &d
	o.Validity = int(math.Round(d.Sub(o.baseDate(today)).Hours() / 24))
}

// DisplayStatus returns the user-facing status label.
func (o *Offer) DisplayStatus() string {
	if o.Status == OfferDraft {
		return "pending"
	}
	return o.Status
}
