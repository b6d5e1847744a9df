package offers

import (
	"encoding/json"

	offersvc "estate-backend/internal/application/offers"
	"estate-backend/internal/interfaces/handlers/params"
	"estate-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *offersvc.Service
}

// OfferRequest is one bid in a create request.
type OfferRequest struct {
	PropertyID   string  `json:"property_id"`
	PartnerID    string  `json:"partner_id"`
	Price        float64 `json:"price"`
	Validity     *int    `json:"validity"`
	DateDeadline *string `json:"date_deadline"`
}

func (r OfferRequest) input() (offersvc.CreateOfferInput, string) {
	var in offersvc.CreateOfferInput
	propertyID, err := uuid.Parse(r.PropertyID)
	if err != nil {
		return in, "Invalid property_id format"
	}
	in.PropertyID = propertyID
	if r.PartnerID != "" {
		if in.PartnerID, err = uuid.Parse(r.PartnerID); err != nil {
			return in, "Invalid partner_id format"
		}
	}
	if in.DateDeadline, err = params.Date(r.DateDeadline); err != nil {
		return in, "date_deadline must be YYYY-MM-DD"
	}
	in.Price = r.Price
	in.Validity = r.Validity
	return in, ""
}

// Create POST /api/v1/offers accepts either one offer object or {"offers": [...]} placed atomically.
func (h *Handlers) Create(c *fiber.Ctx) error {
	actor, ok, err := params.Actor(c)
	if !ok {
		return err
	}
	var batch struct {
		Offers []OfferRequest `json:"offers"`
	}
	if err := json.Unmarshal(c.Body(), &batch); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	reqs := batch.Offers
	if reqs == nil {
		var single OfferRequest
		if err := json.Unmarshal(c.Body(), &single); err != nil {
			return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
		}
		reqs = []OfferRequest{single}
	}
	inputs := make([]offersvc.CreateOfferInput, 0, len(reqs))
	for _, r := range reqs {
		in, msg := r.input()
		if msg != "" {
			return response.Error(c, msg, fiber.StatusBadRequest, nil)
		}
		inputs = append(inputs, in)
	}

	created, err := h.Service.CreateOffers(c.UserContext(), actor, inputs)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Offers created successfully", created, nil)
}

// Get GET /api/v1/offers/:id
func (h *Handlers) Get(c *fiber.Ctx) error {
	id, ok, err := params.UUID(c, "id")
	if !ok {
		return err
	}
	o, err := h.Service.GetOffer(c.UserContext(), id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Offer fetched successfully", o, nil)
}

// Accept POST /api/v1/offers/:id/accept
func (h *Handlers) Accept(c *fiber.Ctx) error {
	actor, ok, err := params.Actor(c)
	if !ok {
		return err
	}
	id, ok, err := params.UUID(c, "id")
	if !ok {
		return err
	}
	o, err := h.Service.AcceptOffer(c.UserContext(), actor, id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Offer accepted", o, nil)
}

// Refuse POST /api/v1/offers/:id/refuse
func (h *Handlers) Refuse(c *fiber.Ctx) error {
	actor, ok, err := params.Actor(c)
	if !ok {
		return err
	}
	id, ok, err := params.UUID(c, "id")
	if !ok {
		return err
	}
	o, err := h.Service.RefuseOffer(c.UserContext(), actor, id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Offer refused", o, nil)
}

// SetValidity PATCH /api/v1/offers/:id/validity {"validity": days}; the deadline follows.
func (h *Handlers) SetValidity(c *fiber.Ctx) error {
	actor, ok, err := params.Actor(c)
	if !ok {
		return err
	}
	id, ok, err := params.UUID(c, "id")
	if !ok {
		return err
	}
	var body struct {
		Validity *int `json:"validity"`
	}
	if err := c.BodyParser(&body); err != nil || body.Validity == nil {
		return response.Error(c, "validity is required", fiber.StatusBadRequest, nil)
	}
	o, err := h.Service.SetValidity(c.UserContext(), actor, id, *body.Validity)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Offer validity updated", o, nil)
}

// SetDeadline PATCH /api/v1/offers/:id/deadline {"date_deadline": "YYYY-MM-DD" | null}; the validity follows.
func (h *Handlers) SetDeadline(c *fiber.Ctx) error {
	actor, ok, err := params.Actor(c)
	if !ok {
		return err
	}
	id, ok, err := params.UUID(c, "id")
	if !ok {
		return err
	}
	var body struct {
		DateDeadline *string `json:"date_deadline"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	deadline, err := params.Date(body.DateDeadline)
	if err != nil {
		return response.Error(c, "date_deadline must be YYYY-MM-DD", fiber.StatusBadRequest, nil)
	}
	o, err := h.Service.SetDeadline(c.UserContext(), actor, id, deadline)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Offer deadline updated", o, nil)
}
