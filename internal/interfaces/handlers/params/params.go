// Package params holds the request parsing shared by the HTTP handlers.
package params

import (
	"time"

	"estate-backend/internal/domain"
	"estate-backend/internal/middleware"
	"estate-backend/internal/pkg/response"
	"estate-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// UUID parses the route parameter name. On failure the 400 response is already written and ok is false.
func UUID(c *fiber.Ctx, name string) (uuid.UUID, bool, error) {
	raw := c.Params(name)
	if raw == "" {
		return uuid.Nil, false, response.Error(c, name+" is required", fiber.StatusBadRequest, nil)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false, response.Error(c, "Invalid "+name+" format", fiber.StatusBadRequest, nil)
	}
	return id, true, nil
}

// QueryUUID parses an optional query parameter; empty yields nil.
func QueryUUID(c *fiber.Ctx, name string) (*uuid.UUID, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// OptionalUUID parses a body field holding a uuid string.
func OptionalUUID(raw *string) (*uuid.UUID, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// Date parses a YYYY-MM-DD body field.
func Date(raw *string) (*time.Time, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, *raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Page reads ?page= and returns the page with its offset for the given size.
func Page(c *fiber.Ctx, size int) (page, offset int) {
	page = validation.ParsePage(c.Query("page"))
	return page, (page - 1) * size
}

// Actor returns the acting user. Routes sit behind RequireAuth, so a miss is answered with 401.
func Actor(c *fiber.Ctx) (domain.Actor, bool, error) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		return domain.Actor{}, false, response.Unauthorized(c, "Unauthorized")
	}
	return actor, true, nil
}
