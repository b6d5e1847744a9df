package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Partner is a person or organisation that bids on and buys properties.
type Partner struct {
	PartnerID uuid.UUID `gorm:"column:partner_id;type:uuid;primaryKey" json:"partner_id"`
	Name      string    `gorm:"column:name;not null" json:"name"`
	Email     string    `gorm:"column:email" json:"email"`
	Phone     string    `gorm:"column:phone" json:"phone"`
	CreatedAt time.Time `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updatedAt" json:"updatedAt"`
}

func (Partner) TableName() string {
	return "Partners"
}

func (p *Partner) BeforeCreate(tx *gorm.DB) error {
	if p.PartnerID == uuid.Nil {
		p.PartnerID = uuid.New()
	}
	return nil
}

// Company owns the sale journal invoices are posted to.
type Company struct {
	CompanyID   uuid.UUID `gorm:"column:company_id;type:uuid;primaryKey" json:"company_id"`
	Name        string    `gorm:"column:name;not null;uniqueIndex" json:"name"`
	SaleJournal string    `gorm:"column:sale_journal" json:"sale_journal"`
	Currency    string    `gorm:"column:currency" json:"currency"`
	CreatedAt   time.Time `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"column:updatedAt" json:"updatedAt"`
}

func (Company) TableName() string {
	return "Companies"
}

func (c *Company) BeforeCreate(tx *gorm.DB) error {
	if c.CompanyID == uuid.Nil {
		c.CompanyID = uuid.New()
	}
	return nil
}

// User is a login account. Agents appear as property salespersons; portal users bid through their partner.
type User struct {
	UserID       uuid.UUID      `gorm:"column:user_id;type:uuid;primaryKey" json:"user_id"`
	Fullname     string         `gorm:"column:fullname;not null" json:"fullname"`
	Email        string         `gorm:"column:email;not null;uniqueIndex" json:"email"`
	PasswordHash string         `gorm:"column:password_hash;not null" json:"-"`
	Role         string         `gorm:"column:role;not null" json:"role"`
	PartnerID    *uuid.UUID     `gorm:"column:partner_id;type:uuid" json:"partner_id"`
	CompanyID    *uuid.UUID     `gorm:"column:company_id;type:uuid" json:"company_id"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "Users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.UserID == uuid.Nil {
		u.UserID = uuid.New()
	}
	return nil
}
