package properties

import (
	"context"
	"errors"
	"testing"

	"estate-backend/internal/domain"
	"estate-backend/internal/pkg/apperror"
	"estate-backend/internal/pkg/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupPropertiesTest(t *testing.T) (*Service, *gorm.DB, *testutil.Fixture) {
	db := testutil.NewDB(t)
	f := testutil.Seed(t, db)
	return &Service{DB: db, Hooks: &Hooks{}, Clock: testutil.Clock}, db, f
}

func setState(t *testing.T, db *gorm.DB, id uuid.UUID, state string) {
	require.NoError(t, db.Model(&domain.Property{}).Where("property_id = ?", id).Update("state", state).Error)
}

func TestCreateProperty_Defaults(t *testing.T) {
	svc, _, f := setupPropertiesTest(t)
	p, err := svc.CreateProperty(context.Background(), f.AgentActor(), CreatePropertyInput{
		Name:           "Seaside Villa",
		ExpectedPrice:  250000,
		LivingArea:     140,
		PropertyTypeID: f.Type.PropertyTypeID,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StateNew, p.State)
	assert.Equal(t, "1000", p.Postcode)
	assert.Equal(t, 2, p.Bedrooms)
	assert.Equal(t, 1, p.Facades)
	assert.True(t, p.Active)
	assert.Equal(t, testutil.Today.AddDate(0, 0, 90).Format("2006-01-02"), p.DateAvailability.Format("2006-01-02"))
	assert.Equal(t, 140, p.TotalArea)
	require.NotNil(t, p.SalespersonID)
	assert.Equal(t, f.Agent.UserID, *p.SalespersonID)
	require.NotNil(t, p.PropertyType)
	assert.Equal(t, "House", p.PropertyType.Name)
}

func TestCreateProperty_GardenDefaults(t *testing.T) {
	svc, _, f := setupPropertiesTest(t)
	p, err := svc.CreateProperty(context.Background(), f.AgentActor(), CreatePropertyInput{
		Name: "Cottage", ExpectedPrice: 100000, LivingArea: 60, Garden: true, PropertyTypeID: f.Type.PropertyTypeID,
	})
	require.NoError(t, err)
	assert.Equal(t, 10, p.GardenArea)
	require.NotNil(t, p.GardenOrientation)
	assert.Equal(t, domain.OrientationNorth, *p.GardenOrientation)
	assert.Equal(t, 70, p.TotalArea)
}

func TestCreateProperty_Validation(t *testing.T) {
	svc, _, f := setupPropertiesTest(t)
	ctx := context.Background()
	bad := "up"

	cases := []struct {
		name string
		in   CreatePropertyInput
		want error
	}{
		{"zero expected price", CreatePropertyInput{Name: "A", PropertyTypeID: f.Type.PropertyTypeID}, domain.ErrExpectedPriceNotPositive},
		{"missing name", CreatePropertyInput{ExpectedPrice: 1, PropertyTypeID: f.Type.PropertyTypeID}, ErrNameRequired},
		{"missing type", CreatePropertyInput{Name: "A", ExpectedPrice: 1}, ErrPropertyTypeRequired},
		{"unknown type", CreatePropertyInput{Name: "A", ExpectedPrice: 1, PropertyTypeID: uuid.New()}, ErrPropertyTypeNotFound},
		{"unknown tag", CreatePropertyInput{Name: "A", ExpectedPrice: 1, PropertyTypeID: f.Type.PropertyTypeID, TagIDs: []uuid.UUID{uuid.New()}}, ErrTagNotFound},
		{"bad orientation", CreatePropertyInput{Name: "A", ExpectedPrice: 1, PropertyTypeID: f.Type.PropertyTypeID, GardenOrientation: &bad}, ErrInvalidOrientation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateProperty(ctx, f.AgentActor(), tc.in)
			assert.Equal(t, tc.want, err)
		})
	}
}

func TestCreateProperty_PortalForbidden(t *testing.T) {
	svc, _, f := setupPropertiesTest(t)
	_, err := svc.CreateProperty(context.Background(), testutil.PortalActor(f.Partner), CreatePropertyInput{
		Name: "A", ExpectedPrice: 1, PropertyTypeID: f.Type.PropertyTypeID,
	})
	assert.Equal(t, apperror.ErrForbidden, err)
}

func TestCreateProperty_RecordsEventAndTags(t *testing.T) {
	svc, db, f := setupPropertiesTest(t)
	ctx := context.Background()
	tag := domain.PropertyTag{Name: "cozy", Color: 3}
	require.NoError(t, db.Create(&tag).Error)

	p, err := svc.CreateProperty(ctx, f.AgentActor(), CreatePropertyInput{
		Name: "Loft", ExpectedPrice: 90000, PropertyTypeID: f.Type.PropertyTypeID, TagIDs: []uuid.UUID{tag.TagID, tag.TagID},
	})
	require.NoError(t, err)
	require.Len(t, p.Tags, 1)
	assert.Equal(t, "cozy", p.Tags[0].Name)

	events, err := svc.ListEvents(ctx, p.PropertyID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventCreated, events[0].EventType)
	assert.Equal(t, domain.StateNew, events[0].ToState)
}

func TestUpdateProperty_KeepsPriceInvariant(t *testing.T) {
	svc, db, f := setupPropertiesTest(t)
	ctx := context.Background()
	p := f.Property(t, db, "Flat", 100000)
	require.NoError(t, db.Model(&domain.Property{}).Where("property_id = ?", p.PropertyID).Update("selling_price", 95000).Error)

	higher := 110000.0
	_, err := svc.UpdateProperty(ctx, f.AgentActor(), p.PropertyID, UpdatePropertyInput{ExpectedPrice: &higher})
	assert.Equal(t, domain.ErrSellingPriceTooLow, err)

	ok := 105000.0
	garden := true
	updated, err := svc.UpdateProperty(ctx, f.AgentActor(), p.PropertyID, UpdatePropertyInput{ExpectedPrice: &ok, Garden: &garden})
	require.NoError(t, err)
	assert.Equal(t, 105000.0, updated.ExpectedPrice)
	assert.Equal(t, 110, updated.TotalArea)
}

func TestUpdateProperty_NotFound(t *testing.T) {
	svc, _, f := setupPropertiesTest(t)
	name := "x"
	_, err := svc.UpdateProperty(context.Background(), f.AgentActor(), uuid.New(), UpdatePropertyInput{Name: &name})
	assert.Equal(t, ErrPropertyNotFound, err)
}

func TestSellProperty(t *testing.T) {
	svc, db, f := setupPropertiesTest(t)
	ctx := context.Background()
	p := f.Property(t, db, "Flat", 100000)

	sold, err := svc.SellProperty(ctx, f.AgentActor(), p.PropertyID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateSold, sold.State)

	_, err = svc.SellProperty(ctx, f.AgentActor(), p.PropertyID)
	assert.Equal(t, ErrAlreadySold, err)
	kind, _ := apperror.KindOf(err)
	assert.Equal(t, apperror.KindBusiness, kind)
}

func TestSellProperty_FromEveryOpenState(t *testing.T) {
	for _, state := range []string{domain.StateNew, domain.StateOfferReceived, domain.StateOfferAccepted, domain.StateCancelled} {
		t.Run(state, func(t *testing.T) {
			svc, db, f := setupPropertiesTest(t)
			p := f.Property(t, db, "Flat", 100000)
			setState(t, db, p.PropertyID, state)
			sold, err := svc.SellProperty(context.Background(), f.AgentActor(), p.PropertyID)
			require.NoError(t, err)
			assert.Equal(t, domain.StateSold, sold.State)
		})
	}
}

func TestCancelProperty(t *testing.T) {
	svc, db, f := setupPropertiesTest(t)
	ctx := context.Background()

	for _, state := range []string{domain.StateNew, domain.StateOfferReceived, domain.StateOfferAccepted} {
		p := f.Property(t, db, "Flat "+state, 100000)
		setState(t, db, p.PropertyID, state)
		cancelled, err := svc.CancelProperty(ctx, f.AgentActor(), p.PropertyID)
		require.NoError(t, err)
		assert.Equal(t, domain.StateCancelled, cancelled.State)
	}

	sold := f.Property(t, db, "Sold flat", 100000)
	setState(t, db, sold.PropertyID, domain.StateSold)
	_, err := svc.CancelProperty(ctx, f.AgentActor(), sold.PropertyID)
	assert.Equal(t, ErrCannotCancelSold, err)

	got, err := svc.GetProperty(ctx, sold.PropertyID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateSold, got.State)
}

func TestDeleteProperty(t *testing.T) {
	svc, db, f := setupPropertiesTest(t)
	ctx := context.Background()
	manager := f.ManagerActor()

	for _, state := range []string{domain.StateOfferReceived, domain.StateOfferAccepted, domain.StateSold} {
		p := f.Property(t, db, "Keep "+state, 100000)
		setState(t, db, p.PropertyID, state)
		assert.Equal(t, ErrCannotDeleteProperty, svc.DeleteProperty(ctx, manager, p.PropertyID), state)
	}
	for _, state := range []string{domain.StateNew, domain.StateCancelled} {
		p := f.Property(t, db, "Drop "+state, 100000)
		setState(t, db, p.PropertyID, state)
		require.NoError(t, db.Create(&domain.Offer{PropertyID: p.PropertyID, PartnerID: f.Partner.PartnerID, Price: 1, Status: domain.OfferDraft}).Error)
		require.NoError(t, svc.DeleteProperty(ctx, manager, p.PropertyID), state)
		_, err := svc.GetProperty(ctx, p.PropertyID)
		assert.Equal(t, ErrPropertyNotFound, err)
		var n int64
		db.Model(&domain.Offer{}).Where("property_id = ?", p.PropertyID).Count(&n)
		assert.Zero(t, n)
	}

	p := f.Property(t, db, "Agent cannot delete", 100000)
	assert.Equal(t, apperror.ErrForbidden, svc.DeleteProperty(ctx, f.AgentActor(), p.PropertyID))
}

type eventSink struct{ events []domain.PropertyEvent }

func (s *eventSink) PublishPropertyEvents(ctx context.Context, events []domain.PropertyEvent) {
	s.events = append(s.events, events...)
}

func TestDeleteProperty_AnnouncesDeletion(t *testing.T) {
	svc, db, f := setupPropertiesTest(t)
	sink := &eventSink{}
	svc.Publisher = sink
	p := f.Property(t, db, "Gone", 100000)

	require.NoError(t, svc.DeleteProperty(context.Background(), f.ManagerActor(), p.PropertyID))
	require.Len(t, sink.events, 1)
	assert.Equal(t, domain.EventDeleted, sink.events[0].EventType)
	assert.Equal(t, p.PropertyID, sink.events[0].PropertyID)
	assert.True(t, sink.events[0].ChangesListing())

	var stored int64
	require.NoError(t, db.Model(&domain.PropertyEvent{}).Where("property_id = ?", p.PropertyID).Count(&stored).Error)
	assert.Zero(t, stored)
}

func TestSellHooks_OrderAndAbort(t *testing.T) {
	svc, db, f := setupPropertiesTest(t)
	ctx := context.Background()
	var calls []string
	svc.Hooks.OnBeforeSell(SellHookFunc(func(ctx context.Context, tx *gorm.DB, actor domain.Actor, p *domain.Property) error {
		calls = append(calls, "before:"+p.State)
		return nil
	}))
	svc.Hooks.OnAfterSell(SellHookFunc(func(ctx context.Context, tx *gorm.DB, actor domain.Actor, p *domain.Property) error {
		calls = append(calls, "after:"+p.State)
		return nil
	}))
	p := f.Property(t, db, "Flat", 100000)
	_, err := svc.SellProperty(ctx, f.AgentActor(), p.PropertyID)
	require.NoError(t, err)
	assert.Equal(t, []string{"before:new", "after:sold"}, calls)

	boom := errors.New("billing down")
	svc.Hooks.OnBeforeSell(SellHookFunc(func(ctx context.Context, tx *gorm.DB, actor domain.Actor, p *domain.Property) error {
		return boom
	}))
	q := f.Property(t, db, "Other", 100000)
	_, err = svc.SellProperty(ctx, f.AgentActor(), q.PropertyID)
	assert.ErrorIs(t, err, boom)
	got, err := svc.GetProperty(ctx, q.PropertyID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateNew, got.State)
}

func TestTransition_RequiresManageCapability(t *testing.T) {
	_, db, f := setupPropertiesTest(t)
	p := f.Property(t, db, "Flat", 100000)
	portal := testutil.PortalActor(f.Partner)

	err := db.Transaction(func(tx *gorm.DB) error {
		return Transition(tx, portal, p, domain.StateOfferReceived, domain.EventOfferReceived, nil, nil)
	})
	assert.Equal(t, apperror.ErrForbidden, err)

	err = db.Transaction(func(tx *gorm.DB) error {
		return Transition(tx, portal.Elevated(), p, domain.StateOfferReceived, domain.EventOfferReceived, nil, nil)
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StateOfferReceived, p.State)
}

func TestListProperties_Filters(t *testing.T) {
	svc, db, f := setupPropertiesTest(t)
	ctx := context.Background()
	a := f.Property(t, db, "Alpha House", 100000)
	b := f.Property(t, db, "Beta Flat", 100000)
	c := f.Property(t, db, "Gamma Loft", 100000)
	setState(t, db, b.PropertyID, domain.StateSold)
	require.NoError(t, db.Model(&domain.Property{}).Where("property_id = ?", c.PropertyID).Update("active", false).Error)

	all, total, err := svc.ListProperties(ctx, ListFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, all, 3)

	open, total, err := svc.ListProperties(ctx, ListFilter{OpenOnly: true, ActiveOnly: true})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, open, 1)
	assert.Equal(t, a.PropertyID, open[0].PropertyID)

	found, _, err := svc.ListProperties(ctx, ListFilter{Search: "beta"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, b.PropertyID, found[0].PropertyID)

	page, total, err := svc.ListProperties(ctx, ListFilter{Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, page, 2)
}

func TestCountAvailableForSalesperson(t *testing.T) {
	svc, db, f := setupPropertiesTest(t)
	ctx := context.Background()
	for i, state := range []string{domain.StateNew, domain.StateOfferReceived, domain.StateOfferAccepted, domain.StateSold, domain.StateCancelled} {
		p := f.Property(t, db, "P"+string(rune('A'+i)), 100000)
		setState(t, db, p.PropertyID, state)
	}
	n, err := svc.CountAvailableForSalesperson(ctx, f.Agent.UserID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	byState, err := svc.CountByState(ctx)
	require.NoError(t, err)
	assert.Len(t, byState, 5)
	assert.EqualValues(t, 1, byState[domain.StateSold])
}
