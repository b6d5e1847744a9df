package website

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	portfoliosvc "estate-backend/internal/application/portfolio"
	propsvc "estate-backend/internal/application/properties"
	"estate-backend/internal/domain"
	"estate-backend/internal/pkg/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupWebsiteApp(t *testing.T) (*fiber.App, *gorm.DB, *testutil.Fixture, *miniredis.Miniredis) {
	db := testutil.NewDB(t)
	f := testutil.Seed(t, db)
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	h := &Handlers{
		Properties: &propsvc.Service{DB: db, Clock: testutil.Clock},
		Portfolio:  &portfoliosvc.Service{DB: db, Clock: testutil.Clock},
		Rdb:        rdb,
	}
	app := fiber.New()
	g := app.Group("/website")
	g.Get("/properties", h.ListProperties)
	g.Get("/properties/:id", h.Property)
	g.Get("/portfolio", h.ListPortfolio)
	g.Get("/portfolio/:id", h.PortfolioProject)
	return app, db, f, mr
}

func get(t *testing.T, app *fiber.App, path string) (int, map[string]interface{}) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest("GET", path, nil))
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	var out map[string]interface{}
	_ = json.Unmarshal(raw, &out)
	return resp.StatusCode, out
}

func TestProperties_CachesTotal(t *testing.T) {
	app, db, f, mr := setupWebsiteApp(t)
	f.Property(t, db, "Open", 1000)
	sold := f.Property(t, db, "Sold", 1000)
	require.NoError(t, db.Model(sold).Update("state", domain.StateSold).Error)

	status, body := get(t, app, "/website/properties")
	require.Equal(t, fiber.StatusOK, status)
	list, _ := body["data"].([]interface{})
	assert.Len(t, list, 1)
	meta, _ := body["metadata"].(map[string]interface{})
	assert.EqualValues(t, 1, meta["total"])
	assert.Equal(t, false, meta["has_next"])

	cached, err := mr.Get(CountCacheKey)
	require.NoError(t, err)
	assert.Equal(t, "1", cached)

	f.Property(t, db, "Second", 1000)
	_, body = get(t, app, "/website/properties")
	meta, _ = body["metadata"].(map[string]interface{})
	assert.EqualValues(t, 1, meta["total"], "total is served from cache until it expires")

	mr.FastForward(2 * time.Minute)
	_, body = get(t, app, "/website/properties")
	meta, _ = body["metadata"].(map[string]interface{})
	assert.EqualValues(t, 2, meta["total"])
}

func TestProperty_OnlyPublic(t *testing.T) {
	app, db, f, _ := setupWebsiteApp(t)
	open := f.Property(t, db, "Open", 1000)
	archived := f.Property(t, db, "Archived", 1000)
	require.NoError(t, db.Model(archived).Update("active", false).Error)

	status, body := get(t, app, "/website/properties/"+open.PropertyID.String())
	require.Equal(t, fiber.StatusOK, status)
	data, _ := body["data"].(map[string]interface{})
	assert.Equal(t, "Open", data["name"])
	_, hasOffers := data["offers"]
	assert.False(t, hasOffers)

	status, _ = get(t, app, "/website/properties/"+archived.PropertyID.String())
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = get(t, app, "/website/properties/nope")
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestPortfolio_TagFilterAndDetail(t *testing.T) {
	app, db, _, _ := setupWebsiteApp(t)
	past := testutil.Today.Add(-time.Hour)
	goTag := domain.PortfolioTag{Name: "Go", Slug: "go"}
	require.NoError(t, db.Create(&goTag).Error)
	tool := domain.PortfolioProject{Name: "tool", WebsitePublished: true, PublishFrom: &past, Tags: []domain.PortfolioTag{goTag}}
	site := domain.PortfolioProject{Name: "site", WebsitePublished: true, PublishFrom: &past}
	hidden := domain.PortfolioProject{Name: "hidden"}
	for _, p := range []*domain.PortfolioProject{&tool, &site, &hidden} {
		require.NoError(t, db.Create(p).Error)
	}

	status, body := get(t, app, "/website/portfolio")
	require.Equal(t, fiber.StatusOK, status)
	data, _ := body["data"].(map[string]interface{})
	projects, _ := data["projects"].([]interface{})
	assert.Len(t, projects, 2)
	tags, _ := data["tags"].([]interface{})
	assert.Len(t, tags, 1)
	favorites, _ := data["favorites"].([]interface{})
	assert.Len(t, favorites, 2)

	_, body = get(t, app, "/website/portfolio?tag=go")
	data, _ = body["data"].(map[string]interface{})
	projects, _ = data["projects"].([]interface{})
	require.Len(t, projects, 1)
	assert.Equal(t, "go", data["active_tag"])

	status, _ = get(t, app, "/website/portfolio/"+tool.ProjectID.String())
	assert.Equal(t, fiber.StatusOK, status)
	status, _ = get(t, app, "/website/portfolio/"+hidden.ProjectID.String())
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestPublicCount_WithoutRedis(t *testing.T) {
	db := testutil.NewDB(t)
	f := testutil.Seed(t, db)
	f.Property(t, db, "Open", 1000)
	h := &Handlers{Properties: &propsvc.Service{DB: db, Clock: testutil.Clock}}
	n, err := h.publicCount(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestCountInvalidator(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	ctx := context.Background()
	inv := &CountInvalidator{Rdb: rdb}

	require.NoError(t, mr.Set(CountCacheKey, "3"))
	inv.PublishPropertyEvents(ctx, []domain.PropertyEvent{{FromState: domain.StateOfferReceived, ToState: domain.StateOfferReceived}})
	assert.True(t, mr.Exists(CountCacheKey))

	inv.PublishPropertyEvents(ctx, []domain.PropertyEvent{{FromState: domain.StateOfferAccepted, ToState: domain.StateSold}})
	assert.False(t, mr.Exists(CountCacheKey))

	require.NoError(t, mr.Set(CountCacheKey, "3"))
	inv.PublishPropertyEvents(ctx, []domain.PropertyEvent{{EventType: domain.EventDeleted, FromState: domain.StateNew}})
	assert.False(t, mr.Exists(CountCacheKey))
}

func TestCountInvalidator_DeleteAndDeactivate(t *testing.T) {
	app, db, f, mr := setupWebsiteApp(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	props := &propsvc.Service{DB: db, Clock: testutil.Clock, Publisher: &CountInvalidator{Rdb: rdb}}
	ctx := context.Background()
	keep := f.Property(t, db, "Keep", 1000)
	hide := f.Property(t, db, "Hide", 1000)
	drop := f.Property(t, db, "Drop", 1000)

	total := func() interface{} {
		_, body := get(t, app, "/website/properties")
		meta, _ := body["metadata"].(map[string]interface{})
		return meta["total"]
	}
	assert.EqualValues(t, 3, total())

	_, err := props.UpdateProperty(ctx, f.AgentActor(), keep.PropertyID, propsvc.UpdatePropertyInput{Name: ptr("Kept")})
	require.NoError(t, err)
	assert.True(t, mr.Exists(CountCacheKey), "a rename leaves the count cached")

	_, err = props.UpdateProperty(ctx, f.AgentActor(), hide.PropertyID, propsvc.UpdatePropertyInput{Active: ptr(false)})
	require.NoError(t, err)
	assert.False(t, mr.Exists(CountCacheKey))
	assert.EqualValues(t, 2, total())

	require.NoError(t, props.DeleteProperty(ctx, f.ManagerActor(), drop.PropertyID))
	assert.False(t, mr.Exists(CountCacheKey))
	assert.EqualValues(t, 1, total())
}

func ptr[T any](v T) *T { return &v }

