package middleware

import (
	"estate-backend/internal/domain"
	"estate-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const userLocal = "user"

// RequireAuth ensures a user is in the session or bearer token. Returns 401 with standard error format if not.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := c.Locals(userLocal)
		if user == nil {
			return response.Unauthorized(c, "Unauthorized")
		}
		if _, ok := GetActor(c); !ok {
			return response.Unauthorized(c, "Unauthorized")
		}
		c.Locals("auth", user)
		return c.Next()
	}
}

// GetUser returns the session user from Locals (nil if not logged in).
func GetUser(c *fiber.Ctx) interface{} {
	return c.Locals(userLocal)
}

// GetActor builds the acting user from the session user. ok is false for anonymous requests.
func GetActor(c *fiber.Ctx) (domain.Actor, bool) {
	m, ok := GetUser(c).(map[string]interface{})
	if !ok {
		return domain.Actor{}, false
	}
	userID, err := uuid.Parse(stringField(m["user_id"]))
	if err != nil {
		return domain.Actor{}, false
	}
	return domain.Actor{
		UserID:    userID,
		Role:      stringField(m["role"]),
		PartnerID: uuidField(m["partner_id"]),
		CompanyID: uuidField(m["company_id"]),
	}, true
}

// stringField reads a session value that is a string, or a *string before the session round-trips through JSON.
func stringField(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case *string:
		if s != nil {
			return *s
		}
	}
	return ""
}

func uuidField(v interface{}) *uuid.UUID {
	id, err := uuid.Parse(stringField(v))
	if err != nil {
		return nil
	}
	return &id
}
