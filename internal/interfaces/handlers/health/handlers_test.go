package health

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	healthsvc "estate-backend/internal/application/health"
	"estate-backend/internal/middleware"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type okPinger struct{}

func (okPinger) Ping() error { return nil }

func setupHealth(t *testing.T) (*fiber.App, *redis.Client) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	h := &Handlers{
		Sources: healthsvc.Sources{
			Redis: rdb,
			DB:    okPinger{},
			Workflow: func(ctx context.Context) (map[string]int64, error) {
				return map[string]int64{"new": 2, "sold": 1}, nil
			},
		},
		HealthAdminKey: "admin-key",
	}
	app := fiber.New()
	app.Get("/", h.Dashboard)
	app.Get("/reset", h.Reset)
	app.Get("/health/json", h.JSON)
	app.Get("/health/errors", h.Errors)
	return app, rdb
}

func TestJSON(t *testing.T) {
	app, _ := setupHealth(t)
	resp, err := app.Test(httptest.NewRequest("GET", "/health/json", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var out map[string]interface{}
	b, _ := io.ReadAll(resp.Body)
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, "estate-api", out["service"])
	assert.Equal(t, "ok", out["status"])
	props, _ := out["properties"].(map[string]interface{})
	assert.EqualValues(t, 2, props["new"])
}

func TestReset_RequiresKey(t *testing.T) {
	app, rdb := setupHealth(t)
	ctx := context.Background()
	require.NoError(t, rdb.Set(ctx, middleware.KeyReqTotal, 10, 0).Err())

	resp, err := app.Test(httptest.NewRequest("GET", "/reset?key=wrong", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/reset?key=admin-key", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	n, _ := rdb.Exists(ctx, middleware.KeyReqTotal).Result()
	assert.Zero(t, n)
	start, _ := rdb.Get(ctx, middleware.KeyStartTime).Result()
	assert.NotEmpty(t, start)
}

func TestErrors(t *testing.T) {
	app, rdb := setupHealth(t)
	require.NoError(t, rdb.LPush(context.Background(), middleware.KeyErrorLog, `{"message":"boom"}`, "not json").Err())

	resp, err := app.Test(httptest.NewRequest("GET", "/health/errors", nil))
	require.NoError(t, err)
	var out []map[string]interface{}
	b, _ := io.ReadAll(resp.Body)
	require.NoError(t, json.Unmarshal(b, &out))
	require.Len(t, out, 1)
	assert.Equal(t, "boom", out[0]["message"])
}

func TestDashboard(t *testing.T) {
	app, _ := setupHealth(t)
	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	b, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(b), "Estate API")
}
