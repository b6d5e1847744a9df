package catalog

import (
	catsvc "estate-backend/internal/application/catalog"
	"estate-backend/internal/interfaces/handlers/params"
	"estate-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *catsvc.Service
}

type typeRequest struct {
	Name     string `json:"name"`
	Sequence *int   `json:"sequence"`
}

type tagRequest struct {
	Name  string `json:"name"`
	Color int    `json:"color"`
}

// ListTypes GET /api/v1/catalog/types
func (h *Handlers) ListTypes(c *fiber.Ctx) error {
	types, err := h.Service.ListPropertyTypes(c.UserContext())
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Property types fetched successfully", types, nil)
}

// GetType GET /api/v1/catalog/types/:id
func (h *Handlers) GetType(c *fiber.Ctx) error {
	id, ok, err := params.UUID(c, "id")
	if !ok {
		return err
	}
	t, err := h.Service.GetPropertyType(c.UserContext(), id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Property type fetched successfully", t, nil)
}

// CreateType POST /api/v1/catalog/types
func (h *Handlers) CreateType(c *fiber.Ctx) error {
	actor, ok, err := params.Actor(c)
	if !ok {
		return err
	}
	var req typeRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	t, err := h.Service.CreatePropertyType(c.UserContext(), actor, catsvc.TypeInput{Name: req.Name, Sequence: req.Sequence})
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Property type created successfully", t, nil)
}

// UpdateType PATCH /api/v1/catalog/types/:id
func (h *Handlers) UpdateType(c *fiber.Ctx) error {
	actor, ok, err := params.Actor(c)
	if !ok {
		return err
	}
	id, ok, err := params.UUID(c, "id")
	if !ok {
		return err
	}
	var req typeRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	t, err := h.Service.UpdatePropertyType(c.UserContext(), actor, id, catsvc.TypeInput{Name: req.Name, Sequence: req.Sequence})
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Property type updated successfully", t, nil)
}

// DeleteType DELETE /api/v1/catalog/types/:id
func (h *Handlers) DeleteType(c *fiber.Ctx) error {
	actor, ok, err := params.Actor(c)
	if !ok {
		return err
	}
	id, ok, err := params.UUID(c, "id")
	if !ok {
		return err
	}
	if err := h.Service.DeletePropertyType(c.UserContext(), actor, id); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Property type deleted successfully", fiber.Map{"property_type_id": id}, nil)
}

// ListTags GET /api/v1/catalog/tags
func (h *Handlers) ListTags(c *fiber.Ctx) error {
	tags, err := h.Service.ListTags(c.UserContext())
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Property tags fetched successfully", tags, nil)
}

// CreateTag POST /api/v1/catalog/tags
func (h *Handlers) CreateTag(c *fiber.Ctx) error {
	actor, ok, err := params.Actor(c)
	if !ok {
		return err
	}
	var req tagRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	tag, err := h.Service.CreateTag(c.UserContext(), actor, catsvc.TagInput{Name: req.Name, Color: req.Color})
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Property tag created successfully", tag, nil)
}

// UpdateTag PATCH /api/v1/catalog/tags/:id
func (h *Handlers) UpdateTag(c *fiber.Ctx) error {
	actor, ok, err := params.Actor(c)
	if !ok {
		return err
	}
	id, ok, err := params.UUID(c, "id")
	if !ok {
		return err
	}
	var req tagRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	tag, err := h.Service.UpdateTag(c.UserContext(), actor, id, catsvc.TagInput{Name: req.Name, Color: req.Color})
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Property tag updated successfully", tag, nil)
}

// DeleteTag DELETE /api/v1/catalog/tags/:id
func (h *Handlers) DeleteTag(c *fiber.Ctx) error {
	actor, ok, err := params.Actor(c)
	if !ok {
		return err
	}
	id, ok, err := params.UUID(c, "id")
	if !ok {
		return err
	}
	if err := h.Service.DeleteTag(c.UserContext(), actor, id); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Property tag deleted successfully", fiber.Map{"tag_id": id}, nil)
}
