package invoices

import (
	billingsvc "estate-backend/internal/application/billing"
	"estate-backend/internal/interfaces/handlers/params"
	"estate-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *billingsvc.Service
}

// List GET /api/v1/invoices?property_id=
func (h *Handlers) List(c *fiber.Ctx) error {
	actor, ok, err := params.Actor(c)
	if !ok {
		return err
	}
	propertyID, err := params.QueryUUID(c, "property_id")
	if err != nil {
		return response.Error(c, "Invalid property_id format", fiber.StatusBadRequest, nil)
	}
	invoices, err := h.Service.ListInvoices(c.UserContext(), actor, propertyID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Invoices fetched successfully", invoices, nil)
}

// Get GET /api/v1/invoices/:id
func (h *Handlers) Get(c *fiber.Ctx) error {
	actor, ok, err := params.Actor(c)
	if !ok {
		return err
	}
	id, ok, err := params.UUID(c, "id")
	if !ok {
		return err
	}
	inv, err := h.Service.GetInvoice(c.UserContext(), actor, id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Invoice fetched successfully", inv, nil)
}
