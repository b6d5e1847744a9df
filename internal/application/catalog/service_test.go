package catalog

import (
	"context"
	"errors"
	"testing"

	"estate-backend/internal/domain"
	"estate-backend/internal/pkg/apperror"
	"estate-backend/internal/pkg/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupCatalogTest(t *testing.T) (*Service, *gorm.DB, *testutil.Fixture) {
	db := testutil.NewDB(t)
	f := testutil.Seed(t, db)
	return &Service{DB: db}, db, f
}

func TestCreatePropertyType(t *testing.T) {
	svc, _, f := setupCatalogTest(t)
	ctx := context.Background()

	pt, err := svc.CreatePropertyType(ctx, f.ManagerActor(), TypeInput{Name: "Apartment"})
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultTypeSequence, pt.Sequence)

	_, err = svc.CreatePropertyType(ctx, f.ManagerActor(), TypeInput{Name: "house"})
	assert.True(t, errors.Is(err, ErrTypeNameTaken))

	_, err = svc.CreatePropertyType(ctx, f.ManagerActor(), TypeInput{Name: "  "})
	assert.True(t, errors.Is(err, ErrNameRequired))
}

func TestCatalog_RequiresManagePermission(t *testing.T) {
	svc, _, f := setupCatalogTest(t)
	_, err := svc.CreatePropertyType(context.Background(), f.AgentActor(), TypeInput{Name: "Loft"})
	assert.True(t, errors.Is(err, apperror.ErrForbidden))

	_, err = svc.CreateTag(context.Background(), f.AgentActor(), TagInput{Name: "cozy"})
	assert.True(t, errors.Is(err, apperror.ErrForbidden))
}

func TestListPropertyTypes_Counts(t *testing.T) {
	svc, db, f := setupCatalogTest(t)
	ctx := context.Background()
	seq := 1
	_, err := svc.CreatePropertyType(ctx, f.ManagerActor(), TypeInput{Name: "Castle", Sequence: &seq})
	require.NoError(t, err)

	p := f.Property(t, db, "Villa", 100000)
	typeID := p.PropertyTypeID
	require.NoError(t, db.Create(&domain.Offer{PropertyID: p.PropertyID, PartnerID: f.Partner.PartnerID, PropertyTypeID: &typeID, Price: 95000, Status: domain.OfferDraft}).Error)

	types, err := svc.ListPropertyTypes(ctx)
	require.NoError(t, err)
	require.Len(t, types, 2)
	assert.Equal(t, "Castle", types[0].Name)
	assert.Equal(t, int64(0), types[0].PropertyCount)
	assert.Equal(t, "House", types[1].Name)
	assert.Equal(t, int64(1), types[1].PropertyCount)
	assert.Equal(t, int64(1), types[1].OfferCount)
}

func TestUpdatePropertyType(t *testing.T) {
	svc, _, f := setupCatalogTest(t)
	ctx := context.Background()
	seq := 3
	pt, err := svc.UpdatePropertyType(ctx, f.ManagerActor(), f.Type.PropertyTypeID, TypeInput{Name: "Detached house", Sequence: &seq})
	require.NoError(t, err)
	assert.Equal(t, "Detached house", pt.Name)
	assert.Equal(t, 3, pt.Sequence)

	other, err := svc.CreatePropertyType(ctx, f.ManagerActor(), TypeInput{Name: "Flat"})
	require.NoError(t, err)
	_, err = svc.UpdatePropertyType(ctx, f.ManagerActor(), other.PropertyTypeID, TypeInput{Name: "Detached house"})
	assert.True(t, errors.Is(err, ErrTypeNameTaken))
}

func TestDeletePropertyType_InUse(t *testing.T) {
	svc, db, f := setupCatalogTest(t)
	ctx := context.Background()
	f.Property(t, db, "Villa", 100000)

	err := svc.DeletePropertyType(ctx, f.ManagerActor(), f.Type.PropertyTypeID)
	assert.True(t, errors.Is(err, ErrTypeInUse))

	unused, err := svc.CreatePropertyType(ctx, f.ManagerActor(), TypeInput{Name: "Barn"})
	require.NoError(t, err)
	require.NoError(t, svc.DeletePropertyType(ctx, f.ManagerActor(), unused.PropertyTypeID))
	_, err = svc.GetPropertyType(ctx, unused.PropertyTypeID)
	assert.True(t, errors.Is(err, ErrTypeNotFound))
}

func TestTags_LifeCycle(t *testing.T) {
	svc, db, f := setupCatalogTest(t)
	ctx := context.Background()

	_, err := svc.CreateTag(ctx, f.ManagerActor(), TagInput{Name: "renovated", Color: 12})
	assert.True(t, errors.Is(err, ErrInvalidColor))

	tag, err := svc.CreateTag(ctx, f.ManagerActor(), TagInput{Name: "renovated", Color: 3})
	require.NoError(t, err)
	_, err = svc.CreateTag(ctx, f.ManagerActor(), TagInput{Name: "Renovated"})
	assert.True(t, errors.Is(err, ErrTagNameTaken))

	p := f.Property(t, db, "Villa", 100000)
	require.NoError(t, db.Exec("INSERT INTO property_tag_rel (property_id, tag_id) VALUES (?, ?)", p.PropertyID, tag.TagID).Error)

	tags, err := svc.ListTags(ctx)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, int64(1), tags[0].PropertyCount)

	updated, err := svc.UpdateTag(ctx, f.ManagerActor(), tag.TagID, TagInput{Name: "refurbished", Color: 5})
	require.NoError(t, err)
	assert.Equal(t, "refurbished", updated.Name)
	assert.Equal(t, 5, updated.Color)

	require.NoError(t, svc.DeleteTag(ctx, f.ManagerActor(), tag.TagID))
	var links int64
	require.NoError(t, db.Table("property_tag_rel").Where("tag_id = ?", tag.TagID).Count(&links).Error)
	assert.Equal(t, int64(0), links)

	err = svc.DeleteTag(ctx, f.ManagerActor(), tag.TagID)
	assert.True(t, errors.Is(err, ErrTagNotFound))
}
