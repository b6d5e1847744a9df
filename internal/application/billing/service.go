package billing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"

	"estate-backend/internal/domain"
	"estate-backend/internal/pkg/apperror"
	"estate-backend/internal/pkg/constants"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const (
	DefaultCommissionRate = 0.06
	DefaultAdminFee       = 100.00
	DefaultJournal        = "SALE"
	DefaultCurrency       = "eur"

	AdminFeeLineName = "Administrative fee"
)

// CommissionLineName labels the commission line with its rate, e.g. "Commission 6% of selling price".
func CommissionLineName(rate float64) string {
	pct := math.Round(rate*10000) / 100
	return "Commission " + strconv.FormatFloat(pct, 'f', -1, 64) + "% of selling price"
}

var ErrInvoiceNotFound = apperror.NotFound("Invoice not found")

// InvoicePusher mirrors a local invoice to an external billing system and returns its id.
type InvoicePusher interface {
	PushInvoice(ctx context.Context, inv *domain.Invoice, buyer *domain.Partner) (string, error)
}

// Service raises invoices for sold properties. Register it as a before-sell hook, and as an
// event publisher when a Pusher is set so invoices are mirrored once the sale has committed.
// A nil rate or fee uses the default; zero is a valid value.
type Service struct {
	DB             *gorm.DB
	CommissionRate *float64
	AdminFee       *float64
	Pusher         InvoicePusher
}

func (s *Service) commissionRate() float64 {
	if s.CommissionRate != nil {
		return *s.CommissionRate
	}
	return DefaultCommissionRate
}

func (s *Service) adminFee() float64 {
	if s.AdminFee != nil {
		return *s.AdminFee
	}
	return DefaultAdminFee
}

// HandleSell invoices the buyer of p inside the sell transaction. Properties without a buyer are skipped.
func (s *Service) HandleSell(ctx context.Context, tx *gorm.DB, actor domain.Actor, p *domain.Property) error {
	if p.BuyerID == nil {
		log.Info().Str("property_id", p.PropertyID.String()).Msg("sell: no buyer, skipping invoice")
		return nil
	}
	_, err := s.CreateInvoice(ctx, tx, actor, p)
	return err
}

// CreateInvoice writes a draft customer invoice with a commission line and a flat fee line.
func (s *Service) CreateInvoice(ctx context.Context, tx *gorm.DB, actor domain.Actor, p *domain.Property) (*domain.Invoice, error) {
	if p.BuyerID == nil {
		return nil, apperror.Validation("Property has no buyer to invoice")
	}
	var buyer domain.Partner
	if err := tx.Where("partner_id = ?", *p.BuyerID).First(&buyer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Validation("Buyer not found")
		}
		return nil, err
	}
	company, err := resolveCompany(tx, actor, p)
	if err != nil {
		return nil, err
	}

	rate := s.commissionRate()
	commission := domain.RoundMoney(p.SellingPrice * rate)
	fee := domain.RoundMoney(s.adminFee())
	inv := &domain.Invoice{
		PartnerID:   buyer.PartnerID,
		PropertyID:  p.PropertyID,
		Journal:     DefaultJournal,
		MoveType:    domain.MoveTypeOutInvoice,
		State:       domain.InvoiceStateDraft,
		Currency:    DefaultCurrency,
		AmountTotal: domain.RoundMoney(commission + fee),
		Lines: []domain.InvoiceLine{
			{Name: CommissionLineName(rate), Quantity: 1, PriceUnit: commission, Subtotal: commission},
			{Name: AdminFeeLineName, Quantity: 1, PriceUnit: fee, Subtotal: fee},
		},
	}
	if company != nil {
		inv.CompanyID = &company.CompanyID
		if company.SaleJournal != "" {
			inv.Journal = company.SaleJournal
		}
		if company.Currency != "" {
			inv.Currency = company.Currency
		}
	}
	if err := tx.Create(inv).Error; err != nil {
		return nil, fmt.Errorf("Failed to create invoice: %v", err)
	}

	log.Info().Str("property_id", p.PropertyID.String()).Str("invoice_id", inv.InvoiceID.String()).
		Float64("amount_total", inv.AmountTotal).Msg("invoice created")
	return inv, nil
}

// ListInvoices returns invoices with their lines, newest first, optionally for one property.
func (s *Service) ListInvoices(ctx context.Context, actor domain.Actor, propertyID *uuid.UUID) ([]domain.Invoice, error) {
	if !actor.Can(constants.ViewInvoices) {
		return nil, apperror.ErrForbidden
	}
	q := s.DB.WithContext(ctx).Preload("Lines")
	if propertyID != nil {
		q = q.Where("property_id = ?", *propertyID)
	}
	var out []domain.Invoice
	if err := q.Order(`"createdAt" DESC`).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) GetInvoice(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Invoice, error) {
	if !actor.Can(constants.ViewInvoices) {
		return nil, apperror.ErrForbidden
	}
	var inv domain.Invoice
	err := s.DB.WithContext(ctx).Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("name DESC") }).
		Where("invoice_id = ?", id).First(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvoiceNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// resolveCompany picks the salesperson's company, then the property's, then the acting user's.
func resolveCompany(tx *gorm.DB, actor domain.Actor, p *domain.Property) (*domain.Company, error) {
	var candidates []uuid.UUID
	if p.SalespersonID != nil {
		var u domain.User
		err := tx.Where("user_id = ?", *p.SalespersonID).First(&u).Error
		if err == nil && u.CompanyID != nil {
			candidates = append(candidates, *u.CompanyID)
		} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	if p.CompanyID != nil {
		candidates = append(candidates, *p.CompanyID)
	}
	if actor.CompanyID != nil {
		candidates = append(candidates, *actor.CompanyID)
	}
	for _, id := range candidates {
		var c domain.Company
		err := tx.Where("company_id = ?", id).First(&c).Error
		if err == nil {
			return &c, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	return nil, nil
}

// PublishPropertyEvents pushes the invoices of properties whose sale has committed.
// Push failures are logged; the invoice keeps a nil external id and is retried on the next PushPending.
func (s *Service) PublishPropertyEvents(ctx context.Context, events []domain.PropertyEvent) {
	if s.Pusher == nil {
		return
	}
	for _, ev := range events {
		if ev.EventType != domain.EventSold {
			continue
		}
		if err := s.PushPending(ctx, ev.PropertyID); err != nil {
			log.Warn().Err(err).Str("property_id", ev.PropertyID.String()).Msg("billing: invoice push failed")
		}
	}
}

// PushPending mirrors every not yet pushed invoice of a property and records the external ids.
func (s *Service) PushPending(ctx context.Context, propertyID uuid.UUID) error {
	if s.Pusher == nil {
		return nil
	}
	db := s.DB.WithContext(ctx)
	var invoices []domain.Invoice
	if err := db.Preload("Lines").Where("property_id = ? AND external_id IS NULL", propertyID).Find(&invoices).Error; err != nil {
		return err
	}
	for i := range invoices {
		inv := &invoices[i]
		var buyer domain.Partner
		if err := db.Where("partner_id = ?", inv.PartnerID).First(&buyer).Error; err != nil {
			return err
		}
		externalID, err := s.Pusher.PushInvoice(ctx, inv, &buyer)
		if err != nil {
			return fmt.Errorf("Failed to push invoice: %w", err)
		}
		if err := db.Model(&domain.Invoice{}).Where("invoice_id = ?", inv.InvoiceID).Update("external_id", externalID).Error; err != nil {
			return err
		}
		log.Info().Str("invoice_id", inv.InvoiceID.String()).Str("external_id", externalID).Msg("billing: invoice pushed")
	}
	return nil
}

// MarkPaid moves the invoice pushed as externalID to paid. Invoices are matched by
// external id first, then by the local id Stripe echoes back in metadata. Reports
// whether an invoice changed; unknown and already paid invoices are no-ops.
func (s *Service) MarkPaid(ctx context.Context, externalID string, invoiceID *uuid.UUID) (bool, error) {
	q := s.DB.WithContext(ctx).Model(&domain.Invoice{}).Where("state <> ?", domain.InvoiceStatePaid)
	if invoiceID != nil {
		q = q.Where("(external_id = ? OR invoice_id = ?)", externalID, *invoiceID)
	} else {
		q = q.Where("external_id = ?", externalID)
	}
	res := q.Updates(map[string]interface{}{"state": domain.InvoiceStatePaid, "external_id": externalID})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		log.Info().Str("external_id", externalID).Msg("billing: invoice paid")
	}
	return res.RowsAffected > 0, nil
}
