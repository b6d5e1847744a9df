package offers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	offersvc "estate-backend/internal/application/offers"
	"estate-backend/internal/domain"
	"estate-backend/internal/pkg/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupOffersApp(t *testing.T) (*fiber.App, *gorm.DB, *testutil.Fixture) {
	db := testutil.NewDB(t)
	f := testutil.Seed(t, db)
	h := &Handlers{Service: &offersvc.Service{DB: db, Clock: testutil.Clock}}
	app := fiber.New()
	g := app.Group("/offers", testutil.AsActor(f.AgentActor()))
	g.Post("/", h.Create)
	g.Get("/:id", h.Get)
	g.Post("/:id/accept", h.Accept)
	g.Post("/:id/refuse", h.Refuse)
	g.Patch("/:id/validity", h.SetValidity)
	g.Patch("/:id/deadline", h.SetDeadline)
	return app, db, f
}

func call(t *testing.T, app *fiber.App, method, path string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	var out map[string]interface{}
	_ = json.Unmarshal(raw, &out)
	return resp.StatusCode, out
}

func offerID(t *testing.T, body map[string]interface{}, i int) string {
	t.Helper()
	data, _ := body["data"].([]interface{})
	require.Greater(t, len(data), i)
	o, _ := data[i].(map[string]interface{})
	id, _ := o["offer_id"].(string)
	require.NotEmpty(t, id)
	return id
}

func TestCreate_BatchAndSingle(t *testing.T) {
	app, db, f := setupOffersApp(t)
	p := f.Property(t, db, "Villa", 200000)

	status, body := call(t, app, "POST", "/offers", map[string]interface{}{
		"offers": []map[string]interface{}{
			{"property_id": p.PropertyID.String(), "partner_id": f.Partner.PartnerID.String(), "price": 190000},
			{"property_id": p.PropertyID.String(), "partner_id": f.Partner2.PartnerID.String(), "price": 195000},
		},
	})
	require.Equal(t, fiber.StatusCreated, status, body)
	data, _ := body["data"].([]interface{})
	assert.Len(t, data, 2)

	var stored domain.Property
	require.NoError(t, db.First(&stored, "property_id = ?", p.PropertyID).Error)
	assert.Equal(t, domain.StateOfferReceived, stored.State)
	assert.InDelta(t, 195000, stored.BestPrice, 0.001)

	status, body = call(t, app, "POST", "/offers", map[string]interface{}{
		"property_id": p.PropertyID.String(), "partner_id": f.Partner.PartnerID.String(), "price": 150000,
	})
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	errBody, _ := body["error"].(map[string]interface{})
	assert.Contains(t, errBody["message"], "Offer price must be strictly higher than existing offers.")
}

func TestCreate_BadInput(t *testing.T) {
	app, _, _ := setupOffersApp(t)
	status, _ := call(t, app, "POST", "/offers", map[string]interface{}{"property_id": "nope", "price": 10})
	assert.Equal(t, fiber.StatusBadRequest, status)

	req := httptest.NewRequest("POST", "/offers", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestAccept_ThenSecondAcceptConflicts(t *testing.T) {
	app, db, f := setupOffersApp(t)
	p := f.Property(t, db, "Villa", 200000)
	_, body := call(t, app, "POST", "/offers", map[string]interface{}{
		"offers": []map[string]interface{}{
			{"property_id": p.PropertyID.String(), "partner_id": f.Partner.PartnerID.String(), "price": 190000},
			{"property_id": p.PropertyID.String(), "partner_id": f.Partner2.PartnerID.String(), "price": 199000},
		},
	})
	first, second := offerID(t, body, 0), offerID(t, body, 1)

	status, body := call(t, app, "POST", "/offers/"+second+"/accept", nil)
	require.Equal(t, fiber.StatusOK, status, body)
	data, _ := body["data"].(map[string]interface{})
	assert.Equal(t, domain.OfferAccepted, data["status"])

	var stored domain.Property
	require.NoError(t, db.First(&stored, "property_id = ?", p.PropertyID).Error)
	assert.Equal(t, domain.StateOfferAccepted, stored.State)
	assert.InDelta(t, 199000, stored.SellingPrice, 0.001)

	status, body = call(t, app, "POST", "/offers/"+first+"/accept", nil)
	assert.Equal(t, fiber.StatusConflict, status)
	errBody, _ := body["error"].(map[string]interface{})
	assert.Equal(t, "This property already has an accepted offer.", errBody["message"])

	status, body = call(t, app, "POST", "/offers/"+second+"/refuse", nil)
	require.Equal(t, fiber.StatusOK, status)
	data, _ = body["data"].(map[string]interface{})
	assert.Equal(t, domain.OfferAccepted, data["status"])
}

func TestAccept_UnknownOffer(t *testing.T) {
	app, _, _ := setupOffersApp(t)
	status, _ := call(t, app, "POST", "/offers/00000000-0000-0000-0000-000000000009/accept", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestValidityAndDeadline(t *testing.T) {
	app, db, f := setupOffersApp(t)
	p := f.Property(t, db, "Flat", 80000)
	_, body := call(t, app, "POST", "/offers", map[string]interface{}{
		"property_id": p.PropertyID.String(), "partner_id": f.Partner.PartnerID.String(), "price": 79000,
	})
	id := offerID(t, body, 0)

	status, body := call(t, app, "PATCH", "/offers/"+id+"/validity", map[string]interface{}{"validity": 10})
	require.Equal(t, fiber.StatusOK, status, body)
	data, _ := body["data"].(map[string]interface{})
	assert.EqualValues(t, 10, data["validity"])
	assert.NotNil(t, data["date_deadline"])

	status, _ = call(t, app, "PATCH", "/offers/"+id+"/validity", map[string]interface{}{})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, body = call(t, app, "PATCH", "/offers/"+id+"/deadline", map[string]interface{}{"date_deadline": nil})
	require.Equal(t, fiber.StatusOK, status)
	data, _ = body["data"].(map[string]interface{})
	assert.EqualValues(t, 0, data["validity"])
	assert.Nil(t, data["date_deadline"])

	status, _ = call(t, app, "PATCH", "/offers/"+id+"/deadline", map[string]interface{}{"date_deadline": "tomorrow"})
	assert.Equal(t, fiber.StatusBadRequest, status)
}
