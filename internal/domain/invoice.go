package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	MoveTypeOutInvoice = "out_invoice"
	InvoiceStateDraft  = "draft"
	InvoiceStatePaid   = "paid"
)

// Invoice is the customer invoice raised for a sold property.
type Invoice struct {
	InvoiceID   uuid.UUID     `gorm:"column:invoice_id;type:uuid;primaryKey" json:"invoice_id"`
	PartnerID   uuid.UUID     `gorm:"column:partner_id;type:uuid;not null;index" json:"partner_id"`
	PropertyID  uuid.UUID     `gorm:"column:property_id;type:uuid;not null;index" json:"property_id"`
	CompanyID   *uuid.UUID    `gorm:"column:company_id;type:uuid" json:"company_id"`
	Journal     string        `gorm:"column:journal;not null" json:"journal"`
	MoveType    string        `gorm:"column:move_type;not null" json:"move_type"`
	State       string        `gorm:"column:state;not null" json:"state"`
	Currency    string        `gorm:"column:currency;not null" json:"currency"`
	AmountTotal float64       `gorm:"column:amount_total;type:decimal(18,2);not null" json:"amount_total"`
	ExternalID  *string       `gorm:"column:external_id" json:"external_id"`
	Lines       []InvoiceLine `gorm:"foreignKey:InvoiceID;references:InvoiceID" json:"lines"`
	CreatedAt   time.Time     `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt   time.Time     `gorm:"column:updatedAt" json:"updatedAt"`
}

func (Invoice) TableName() string {
	return "Invoices"
}

func (i *Invoice) BeforeCreate(tx *gorm.DB) error {
	if i.InvoiceID == uuid.Nil {
		i.InvoiceID = uuid.New()
	}
	return nil
}

// InvoiceLine is one billed item of an Invoice.
type InvoiceLine struct {
	LineID    uuid.UUID `gorm:"column:line_id;type:uuid;primaryKey" json:"line_id"`
	InvoiceID uuid.UUID `gorm:"column:invoice_id;type:uuid;not null;index" json:"invoice_id"`
	Name      string    `gorm:"column:name;not null" json:"name"`
	Quantity  float64   `gorm:"column:quantity;type:decimal(18,2);not null" json:"quantity"`
	PriceUnit float64   `gorm:"column:price_unit;type:decimal(18,2);not null" json:"price_unit"`
	Subtotal  float64   `gorm:"column:subtotal;type:decimal(18,2);not null" json:"subtotal"`
}

func (InvoiceLine) TableName() string {
	return "InvoiceLines"
}

func (l *InvoiceLine) BeforeCreate(tx *gorm.DB) error {
	if l.LineID == uuid.Nil {
		l.LineID = uuid.New()
	}
	return nil
}
