package bootstrap

import (
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_HealthWithoutDatabase(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	t.Setenv("REDIS_URL", "redis://"+mr.Addr())
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DATABASE_URL_DEV", "")

	app, err := New()
	require.NoError(t, err)
	resp, err := app.Test(httptest.NewRequest("GET", "/health/json", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestNew_BadRedisURL(t *testing.T) {
	t.Setenv("REDIS_URL", "not a url")
	_, err := New()
	assert.Error(t, err)
}
