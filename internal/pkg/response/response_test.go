package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"estate-backend/internal/pkg/apperror"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromError_StatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
		msg  string
	}{
		{"validation", apperror.Validation("Name is required"), 422, "Name is required"},
		{"business", fmt.Errorf("%w Current best offer is 10.00.", apperror.Business("Too low.")), 409, "Too low. Current best offer is 10.00."},
		{"not found", apperror.NotFound("Property not found"), 404, "Property not found"},
		{"forbidden", apperror.ErrForbidden, 403, apperror.ErrForbidden.Error()},
		{"unexpected", errors.New("connection reset"), 500, "Internal Server Error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", func(c *fiber.Ctx) error { return FromError(c, tc.err) })
			resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
			require.NoError(t, err)
			assert.Equal(t, tc.code, resp.StatusCode)
			body, _ := io.ReadAll(resp.Body)
			var out ErrorBody
			require.NoError(t, json.Unmarshal(body, &out))
			assert.Equal(t, "error", out.Status)
			assert.Equal(t, tc.msg, out.Error.Message)
		})
	}
}

func TestNewPage(t *testing.T) {
	p := NewPage(1, 20, 45)
	assert.True(t, p.HasNext)
	assert.False(t, p.HasPrev)

	p = NewPage(3, 20, 45)
	assert.False(t, p.HasNext)
	assert.True(t, p.HasPrev)

	p = NewPage(0, 20, 0)
	assert.Equal(t, 1, p.Page)
	assert.False(t, p.HasNext)
}
