package billing

import (
	"context"
	"errors"
	"math"

	"estate-backend/internal/domain"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/customer"
	"github.com/stripe/stripe-go/v76/invoice"
	"github.com/stripe/stripe-go/v76/invoiceitem"
)

var ErrStripeNotConfigured = errors.New("Stripe integration not configured")

// StripePusher creates a Stripe customer, one invoice item per line and a draft invoice.
type StripePusher struct {
	SecretKey string
}

func (s *StripePusher) PushInvoice(ctx context.Context, inv *domain.Invoice, buyer *domain.Partner) (string, error) {
	if s.SecretKey == "" {
		return "", ErrStripeNotConfigured
	}
	stripe.Key = s.SecretKey

	cust, err := customer.New(&stripe.CustomerParams{
		Name:     stripe.String(buyer.Name),
		Email:    stripe.String(buyer.Email),
		Metadata: map[string]string{"partner_id": buyer.PartnerID.String()},
	})
	if err != nil {
		return "", err
	}
	for _, line := range inv.Lines {
		if _, err := invoiceitem.New(&stripe.InvoiceItemParams{
			Customer:    stripe.String(cust.ID),
			Amount:      stripe.Int64(toCents(line.Subtotal)),
			Currency:    stripe.String(inv.Currency),
			Description: stripe.String(line.Name),
		}); err != nil {
			return "", err
		}
	}
	out, err := invoice.New(&stripe.InvoiceParams{
		Customer:                    stripe.String(cust.ID),
		PendingInvoiceItemsBehavior: stripe.String("include"),
		AutoAdvance:                 stripe.Bool(false),
		Metadata: map[string]string{
			"invoice_id":  inv.InvoiceID.String(),
			"property_id": inv.PropertyID.String(),
		},
	})
	if err != nil {
		return "", err
	}
	return out.ID, nil
}

func toCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
