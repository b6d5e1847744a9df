package billing

import (
	"context"
	"errors"
	"testing"

	propsvc "estate-backend/internal/application/properties"
	"estate-backend/internal/domain"
	"estate-backend/internal/pkg/apperror"
	"estate-backend/internal/pkg/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakePusher struct {
	id    string
	err   error
	lines int
	calls int
}

func (f *fakePusher) PushInvoice(ctx context.Context, inv *domain.Invoice, buyer *domain.Partner) (string, error) {
	f.calls++
	f.lines = len(inv.Lines)
	return f.id, f.err
}

func setupBillingTest(t *testing.T) (*Service, *propsvc.Service, *gorm.DB, *testutil.Fixture) {
	db := testutil.NewDB(t)
	f := testutil.Seed(t, db)
	billing := &Service{DB: db}
	hooks := &propsvc.Hooks{}
	hooks.OnBeforeSell(billing)
	return billing, &propsvc.Service{DB: db, Hooks: hooks, Publisher: billing, Clock: testutil.Clock}, db, f
}

func rate(v float64) *float64 { return &v }

func withBuyer(t *testing.T, db *gorm.DB, p *domain.Property, buyer domain.Partner, price float64) {
	require.NoError(t, db.Model(&domain.Property{}).Where("property_id = ?", p.PropertyID).Updates(map[string]interface{}{
		"buyer_id":      buyer.PartnerID,
		"selling_price": price,
		"state":         domain.StateOfferAccepted,
	}).Error)
}

func TestSell_CreatesInvoiceForBuyer(t *testing.T) {
	billing, props, db, f := setupBillingTest(t)
	ctx := context.Background()
	p := f.Property(t, db, "Flat", 200000)
	withBuyer(t, db, p, f.Partner, 190000)

	_, err := props.SellProperty(ctx, f.AgentActor(), p.PropertyID)
	require.NoError(t, err)

	invoices, err := billing.ListInvoices(ctx, f.ManagerActor(), &p.PropertyID)
	require.NoError(t, err)
	require.Len(t, invoices, 1)
	inv := invoices[0]
	assert.Equal(t, f.Partner.PartnerID, inv.PartnerID)
	assert.Equal(t, domain.MoveTypeOutInvoice, inv.MoveType)
	assert.Equal(t, "SALE", inv.Journal)
	require.NotNil(t, inv.CompanyID)
	assert.Equal(t, f.Company.CompanyID, *inv.CompanyID)
	assert.Equal(t, 11500.0, inv.AmountTotal)

	got, err := billing.GetInvoice(ctx, f.ManagerActor(), inv.InvoiceID)
	require.NoError(t, err)
	require.Len(t, got.Lines, 2)
	assert.Equal(t, "Commission 6% of selling price", got.Lines[0].Name)
	assert.Equal(t, 11400.0, got.Lines[0].Subtotal)
	assert.Equal(t, AdminFeeLineName, got.Lines[1].Name)
	assert.Equal(t, 100.0, got.Lines[1].Subtotal)
}

func TestSell_WithoutBuyerSkipsInvoice(t *testing.T) {
	billing, props, db, f := setupBillingTest(t)
	ctx := context.Background()
	p := f.Property(t, db, "Flat", 200000)

	sold, err := props.SellProperty(ctx, f.AgentActor(), p.PropertyID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateSold, sold.State)

	invoices, err := billing.ListInvoices(ctx, f.ManagerActor(), nil)
	require.NoError(t, err)
	assert.Empty(t, invoices)
}

func TestSell_PusherFailureKeepsSaleAndRetries(t *testing.T) {
	billing, props, db, f := setupBillingTest(t)
	pusher := &fakePusher{err: errors.New("stripe unavailable")}
	billing.Pusher = pusher
	ctx := context.Background()
	p := f.Property(t, db, "Flat", 200000)
	withBuyer(t, db, p, f.Partner, 190000)

	sold, err := props.SellProperty(ctx, f.AgentActor(), p.PropertyID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateSold, sold.State)
	assert.Equal(t, 1, pusher.calls)

	invoices, err := billing.ListInvoices(ctx, f.ManagerActor(), nil)
	require.NoError(t, err)
	require.Len(t, invoices, 1)
	assert.Nil(t, invoices[0].ExternalID)

	pusher.err, pusher.id = nil, "in_retry"
	require.NoError(t, billing.PushPending(ctx, p.PropertyID))
	require.NoError(t, billing.PushPending(ctx, p.PropertyID))
	assert.Equal(t, 2, pusher.calls, "pushed invoices are not pushed again")

	invoices, err = billing.ListInvoices(ctx, f.ManagerActor(), nil)
	require.NoError(t, err)
	require.NotNil(t, invoices[0].ExternalID)
	assert.Equal(t, "in_retry", *invoices[0].ExternalID)
}

func TestSell_RolledBackSaleIsNotPushed(t *testing.T) {
	db := testutil.NewDB(t)
	f := testutil.Seed(t, db)
	pusher := &fakePusher{id: "in_123"}
	billing := &Service{DB: db, Pusher: pusher}
	hooks := &propsvc.Hooks{}
	hooks.OnBeforeSell(billing)
	hooks.OnAfterSell(propsvc.SellHookFunc(func(ctx context.Context, tx *gorm.DB, actor domain.Actor, p *domain.Property) error {
		return errors.New("after-sell failed")
	}))
	props := &propsvc.Service{DB: db, Hooks: hooks, Publisher: billing, Clock: testutil.Clock}
	ctx := context.Background()
	p := f.Property(t, db, "Flat", 200000)
	withBuyer(t, db, p, f.Partner, 190000)

	_, err := props.SellProperty(ctx, f.AgentActor(), p.PropertyID)
	require.Error(t, err)
	assert.Zero(t, pusher.calls)

	invoices, err := billing.ListInvoices(ctx, f.ManagerActor(), nil)
	require.NoError(t, err)
	assert.Empty(t, invoices)
	got, err := props.GetProperty(ctx, p.PropertyID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateOfferAccepted, got.State)
}

func TestSell_ConfiguredRatesIncludingZero(t *testing.T) {
	billing, props, db, f := setupBillingTest(t)
	billing.CommissionRate = rate(0.055)
	billing.AdminFee = rate(0)
	ctx := context.Background()
	p := f.Property(t, db, "Flat", 200000)
	withBuyer(t, db, p, f.Partner, 200000)

	_, err := props.SellProperty(ctx, f.AgentActor(), p.PropertyID)
	require.NoError(t, err)
	invoices, err := billing.ListInvoices(ctx, f.ManagerActor(), &p.PropertyID)
	require.NoError(t, err)
	require.Len(t, invoices, 1)
	assert.Equal(t, 11000.0, invoices[0].AmountTotal)

	got, err := billing.GetInvoice(ctx, f.ManagerActor(), invoices[0].InvoiceID)
	require.NoError(t, err)
	assert.Equal(t, "Commission 5.5% of selling price", got.Lines[0].Name)
	assert.Equal(t, 0.0, got.Lines[1].Subtotal)

	billing.CommissionRate = rate(0)
	p2 := f.Property(t, db, "House", 200000)
	withBuyer(t, db, p2, f.Partner, 200000)
	_, err = props.SellProperty(ctx, f.AgentActor(), p2.PropertyID)
	require.NoError(t, err)
	invoices, err = billing.ListInvoices(ctx, f.ManagerActor(), &p2.PropertyID)
	require.NoError(t, err)
	require.Len(t, invoices, 1)
	assert.Equal(t, 0.0, invoices[0].AmountTotal)
}

func TestCommissionLineName(t *testing.T) {
	assert.Equal(t, "Commission 6% of selling price", CommissionLineName(DefaultCommissionRate))
	assert.Equal(t, "Commission 0% of selling price", CommissionLineName(0))
	assert.Equal(t, "Commission 7.25% of selling price", CommissionLineName(0.0725))
}

func TestSell_PusherStoresExternalID(t *testing.T) {
	billing, props, db, f := setupBillingTest(t)
	pusher := &fakePusher{id: "in_123"}
	billing.Pusher = pusher
	ctx := context.Background()
	p := f.Property(t, db, "Flat", 200000)
	withBuyer(t, db, p, f.Partner, 190000)

	_, err := props.SellProperty(ctx, f.AgentActor(), p.PropertyID)
	require.NoError(t, err)
	assert.Equal(t, 2, pusher.lines)

	invoices, err := billing.ListInvoices(ctx, f.ManagerActor(), nil)
	require.NoError(t, err)
	require.Len(t, invoices, 1)
	require.NotNil(t, invoices[0].ExternalID)
	assert.Equal(t, "in_123", *invoices[0].ExternalID)
}

func TestListInvoices_RequiresPermission(t *testing.T) {
	billing, _, _, f := setupBillingTest(t)
	_, err := billing.ListInvoices(context.Background(), f.AgentActor(), nil)
	assert.Equal(t, apperror.ErrForbidden, err)
}

func TestStripePusher_NotConfigured(t *testing.T) {
	_, err := (&StripePusher{}).PushInvoice(context.Background(), &domain.Invoice{}, &domain.Partner{})
	assert.Equal(t, ErrStripeNotConfigured, err)
	assert.EqualValues(t, 11400, toCents(114.0))
}

func TestMarkPaid(t *testing.T) {
	billing, props, db, f := setupBillingTest(t)
	billing.Pusher = &fakePusher{id: "in_123"}
	ctx := context.Background()
	p := f.Property(t, db, "Flat", 200000)
	withBuyer(t, db, p, f.Partner, 190000)
	_, err := props.SellProperty(ctx, f.AgentActor(), p.PropertyID)
	require.NoError(t, err)

	changed, err := billing.MarkPaid(ctx, "in_unknown", nil)
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = billing.MarkPaid(ctx, "in_123", nil)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = billing.MarkPaid(ctx, "in_123", nil)
	require.NoError(t, err)
	assert.False(t, changed, "already paid")

	invoices, err := billing.ListInvoices(ctx, f.ManagerActor(), nil)
	require.NoError(t, err)
	require.Len(t, invoices, 1)
	assert.Equal(t, domain.InvoiceStatePaid, invoices[0].State)
}
