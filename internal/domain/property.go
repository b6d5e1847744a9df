package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Property states.
const (
	StateNew           = "new"
	StateOfferReceived = "offer_received"
	StateOfferAccepted = "offer_accepted"
	StateSold          = "sold"
	StateCancelled     = "cancelled"
)

// Garden orientations.
const (
	OrientationNorth = "north"
	OrientationSouth = "south"
	OrientationEast  = "east"
	OrientationWest  = "west"
)

// DefaultPostcode and DefaultAvailabilityDays are applied to new properties.
const (
	DefaultPostcode         = "1000"
	DefaultAvailabilityDays = 90
	DefaultBedrooms         = 2
	DefaultFacades          = 1
	DefaultGardenArea       = 10
)

// Property is a listing put up for sale.
type Property struct {
	PropertyID        uuid.UUID     `gorm:"column:property_id;type:uuid;primaryKey" json:"property_id"`
	Name              string        `gorm:"column:name;not null" json:"name"`
	Description       string        `gorm:"column:description" json:"description"`
	Postcode          string        `gorm:"column:postcode" json:"postcode"`
	DateAvailability  time.Time     `gorm:"column:date_availability" json:"date_availability"`
	ExpectedPrice     float64       `gorm:"column:expected_price;type:decimal(18,2);not null;check:chk_property_expected_price,expected_price > 0" json:"expected_price"`
	SellingPrice      float64       `gorm:"column:selling_price;type:decimal(18,2);not null;check:chk_property_selling_price,selling_price >= 0" json:"selling_price"`
	BestPrice         float64       `gorm:"column:best_price;type:decimal(18,2);not null" json:"best_price"`
	Bedrooms          int           `gorm:"column:bedrooms;not null" json:"bedrooms"`
	LivingArea        int           `gorm:"column:living_area;not null" json:"living_area"`
	Facades           int           `gorm:"column:facades;not null" json:"facades"`
	Garage            bool          `gorm:"column:garage;not null" json:"garage"`
	Garden            bool          `gorm:"column:garden;not null" json:"garden"`
	GardenArea        int           `gorm:"column:garden_area;not null" json:"garden_area"`
	GardenOrientation *string       `gorm:"column:garden_orientation;type:varchar(10)" json:"garden_orientation"`
	TotalArea         int           `gorm:"column:total_area;not null" json:"total_area"`
	Active            bool          `gorm:"column:active;not null" json:"active"`
	State             string        `gorm:"column:state;type:varchar(20);not null;index" json:"state"`
	PropertyTypeID    uuid.UUID     `gorm:"column:property_type_id;type:uuid;not null;index" json:"property_type_id"`
	SalespersonID     *uuid.UUID    `gorm:"column:salesperson_id;type:uuid;index" json:"salesperson_id"`
	BuyerID           *uuid.UUID    `gorm:"column:buyer_id;type:uuid" json:"buyer_id"`
	CompanyID         *uuid.UUID    `gorm:"column:company_id;type:uuid" json:"company_id"`
	PropertyType      *PropertyType `gorm:"foreignKey:PropertyTypeID;references:PropertyTypeID" json:"property_type,omitempty"`
	Tags              []PropertyTag `gorm:"many2many:property_tag_rel;joinForeignKey:PropertyID;joinReferences:TagID" json:"tags,omitempty"`
	Offers            []Offer       `gorm:"foreignKey:PropertyID;references:PropertyID" json:"offers,omitempty"`
	CreatedAt         time.Time     `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt         time.Time     `gorm:"column:updatedAt" json:"updatedAt"`
}

func (Property) TableName() string {
	return "Properties"
}

// BeforeCreate sets property_id if not already set (DBs without default uuid).
func (p *Property) BeforeCreate(tx *gorm.DB) error {
	if p.PropertyID == uuid.Nil {
		p.PropertyID = uuid.New()
	}
	return nil
}

// ApplyDefaults fills unset fields the way a freshly created property starts out.
func (p *Property) ApplyDefaults(today time.Time) {
	if p.Postcode == "" {
		p.Postcode = DefaultPostcode
	}
	if p.DateAvailability.IsZero() {
		p.DateAvailability = TruncateDay(today).AddDate(0, 0, DefaultAvailabilityDays)
	}
	if p.State == "" {
		p.State = StateNew
	}
	p.RecomputeTotalArea()
}

// RecomputeTotalArea sets TotalArea = LivingArea + GardenArea.
func (p *Property) RecomputeTotalArea() {
	p.TotalArea = p.LivingArea + p.GardenArea
}

// SetGarden toggles the garden and resets its area and orientation to the matching defaults.
func (p *Property) SetGarden(on bool) {
	p.Garden = on
	if on {
		north := OrientationNorth
		p.GardenArea = DefaultGardenArea
		p.GardenOrientation = &north
	} else {
		p.GardenArea = 0
		p.GardenOrientation = nil
	}
	p.RecomputeTotalArea()
}

// CheckPrices enforces the price invariants: expected > 0, selling >= 0, and
// a non-zero selling price at least 90% of expected.
func (p *Property) CheckPrices() error {
	return CheckPrices(p.ExpectedPrice, p.SellingPrice)
}

// IsClosed reports whether the property is sold or cancelled.
func (p *Property) IsClosed() bool {
	return p.State == StateSold || p.State == StateCancelled
}

// IsValidOrientation reports whether o is a known garden orientation.
func IsValidOrientation(o string) bool {
	switch o {
	case OrientationNorth, OrientationSouth, OrientationEast, OrientationWest:
		return true
	}
	return false
}

// IsValidState reports whether s is a known property state.
func IsValidState(s string) bool {
	switch s {
	case StateNew, StateOfferReceived, StateOfferAccepted, StateSold, StateCancelled:
		return true
	}
	return false
}
