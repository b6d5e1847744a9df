package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultTypeSequence orders property types that were created without one.
const DefaultTypeSequence = 10

// PropertyType categorises properties (house, apartment, ...).
type PropertyType struct {
	PropertyTypeID uuid.UUID `gorm:"column:property_type_id;type:uuid;primaryKey" json:"property_type_id"`
	Name           string    `gorm:"column:name;not null;uniqueIndex" json:"name"`
	Sequence       int       `gorm:"column:sequence;not null" json:"sequence"`
	PropertyCount  int64     `gorm:"-" json:"property_count"`
	OfferCount     int64     `gorm:"-" json:"offer_count"`
	CreatedAt      time.Time `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt      time.Time `gorm:"column:updatedAt" json:"updatedAt"`
}

func (PropertyType) TableName() string {
	return "PropertyTypes"
}

func (t *PropertyType) BeforeCreate(tx *gorm.DB) error {
	if t.PropertyTypeID == uuid.Nil {
		t.PropertyTypeID = uuid.New()
	}
	return nil
}

// PropertyTag is a free label attached to properties.
type PropertyTag struct {
	TagID         uuid.UUID `gorm:"column:tag_id;type:uuid;primaryKey" json:"tag_id"`
	Name          string    `gorm:"column:name;not null;uniqueIndex" json:"name"`
	Color         int       `gorm:"column:color;not null" json:"color"`
	PropertyCount int64     `gorm:"-" json:"property_count"`
	CreatedAt     time.Time `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt     time.Time `gorm:"column:updatedAt" json:"updatedAt"`
}

func (PropertyTag) TableName() string {
	return "PropertyTags"
}

func (t *PropertyTag) BeforeCreate(tx *gorm.DB) error {
	if t.TagID == uuid.Nil {
		t.TagID = uuid.New()
	}
	return nil
}
