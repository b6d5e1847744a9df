package properties

import (
	"strings"
	"time"

	propsvc "estate-backend/internal/application/properties"
	"estate-backend/internal/interfaces/handlers/params"
	"estate-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const defaultPageSize = 20

type Handlers struct {
	Service  *propsvc.Service
	PageSize int
}

func (h *Handlers) pageSize() int {
	if h.PageSize > 0 {
		return h.PageSize
	}
	return defaultPageSize
}

// PropertyRequest is the body of create and update. Omitted fields keep their default or current value.
type PropertyRequest struct {
	Name              *string   `json:"name"`
	Description       *string   `json:"description"`
	Postcode          *string   `json:"postcode"`
	DateAvailability  *string   `json:"date_availability"`
	ExpectedPrice     *float64  `json:"expected_price"`
	Bedrooms          *int      `json:"bedrooms"`
	LivingArea        *int      `json:"living_area"`
	Facades           *int      `json:"facades"`
	Garage            *bool     `json:"garage"`
	Garden            *bool     `json:"garden"`
	GardenArea        *int      `json:"garden_area"`
	GardenOrientation *string   `json:"garden_orientation"`
	Active            *bool     `json:"active"`
	PropertyTypeID    *string   `json:"property_type_id"`
	TagIDs            *[]string `json:"tag_ids"`
	SalespersonID     *string   `json:"salesperson_id"`
}

type parsedRefs struct {
	date        *time.Time
	typeID      *uuid.UUID
	tagIDs      *[]uuid.UUID
	salesperson *uuid.UUID
}

func (r PropertyRequest) refs() (parsedRefs, string) {
	var out parsedRefs
	var err error
	if out.date, err = params.Date(r.DateAvailability); err != nil {
		return out, "date_availability must be YYYY-MM-DD"
	}
	if out.typeID, err = params.OptionalUUID(r.PropertyTypeID); err != nil {
		return out, "Invalid property_type_id format"
	}
	if out.salesperson, err = params.OptionalUUID(r.SalespersonID); err != nil {
		return out, "Invalid salesperson_id format"
	}
	if r.TagIDs != nil {
		ids := make([]uuid.UUID, 0, len(*r.TagIDs))
		for _, s := range *r.TagIDs {
			id, err := uuid.Parse(s)
			if err != nil {
				return out, "Invalid tag_ids format"
			}
			ids = append(ids, id)
		}
		out.tagIDs = &ids
	}
	return out, ""
}

// Create POST /api/v1/properties
func (h *Handlers) Create(c *fiber.Ctx) error {
	actor, ok, err := params.Actor(c)
	if !ok {
		return err
	}
	var req PropertyRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	refs, msg := req.refs()
	if msg != "" {
		return response.Error(c, msg, fiber.StatusBadRequest, nil)
	}
	in := propsvc.CreatePropertyInput{
		Bedrooms:          req.Bedrooms,
		Facades:           req.Facades,
		GardenArea:        req.GardenArea,
		GardenOrientation: req.GardenOrientation,
		Active:            req.Active,
		SalespersonID:     refs.salesperson,
	}
	if req.Name != nil {
		in.Name = *req.Name
	}
	if req.Description != nil {
		in.Description = *req.Description
	}
	if req.Postcode != nil {
		in.Postcode = *req.Postcode
	}
	in.DateAvailability = refs.date
	if req.ExpectedPrice != nil {
		in.ExpectedPrice = *req.ExpectedPrice
	}
	if req.LivingArea != nil {
		in.LivingArea = *req.LivingArea
	}
	if req.Garage != nil {
		in.Garage = *req.Garage
	}
	if req.Garden != nil {
		in.Garden = *req.Garden
	}
	if refs.typeID != nil {
		in.PropertyTypeID = *refs.typeID
	}
	if refs.tagIDs != nil {
		in.TagIDs = *refs.tagIDs
	}

	p, err := h.Service.CreateProperty(c.UserContext(), actor, in)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Property created successfully", p, nil)
}

// List GET /api/v1/properties?state=&type_id=&tag_id=&salesperson_id=&active=&q=&page=
func (h *Handlers) List(c *fiber.Ctx) error {
	f := propsvc.ListFilter{
		Search:     c.Query("q"),
		ActiveOnly: c.Query("active") == "true",
	}
	if s := c.Query("state"); s != "" {
		f.States = strings.Split(s, ",")
	}
	var err error
	if f.PropertyTypeID, err = params.QueryUUID(c, "type_id"); err != nil {
		return response.Error(c, "Invalid type_id format", fiber.StatusBadRequest, nil)
	}
	if f.TagID, err = params.QueryUUID(c, "tag_id"); err != nil {
		return response.Error(c, "Invalid tag_id format", fiber.StatusBadRequest, nil)
	}
	if f.SalespersonID, err = params.QueryUUID(c, "salesperson_id"); err != nil {
		return response.Error(c, "Invalid salesperson_id format", fiber.StatusBadRequest, nil)
	}
	page, offset := params.Page(c, h.pageSize())
	f.Limit, f.Offset = h.pageSize(), offset

	props, total, err := h.Service.ListProperties(c.UserContext(), f)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Properties fetched successfully", props, response.NewPage(page, h.pageSize(), total))
}

// Get GET /api/v1/properties/:id
func (h *Handlers) Get(c *fiber.Ctx) error {
	id, ok, err := params.UUID(c, "id")
	if !ok {
		return err
	}
	p, err := h.Service.GetProperty(c.UserContext(), id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Property fetched successfully", p, nil)
}

// Update PATCH /api/v1/properties/:id
func (h *Handlers) Update(c *fiber.Ctx) error {
	actor, ok, err := params.Actor(c)
	if !ok {
		return err
	}
	id, ok, err := params.UUID(c, "id")
	if !ok {
		return err
	}
	var req PropertyRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	refs, msg := req.refs()
	if msg != "" {
		return response.Error(c, msg, fiber.StatusBadRequest, nil)
	}
	in := propsvc.UpdatePropertyInput{
		Name:              req.Name,
		Description:       req.Description,
		Postcode:          req.Postcode,
		ExpectedPrice:     req.ExpectedPrice,
		Bedrooms:          req.Bedrooms,
		LivingArea:        req.LivingArea,
		Facades:           req.Facades,
		Garage:            req.Garage,
		Garden:            req.Garden,
		GardenArea:        req.GardenArea,
		GardenOrientation: req.GardenOrientation,
		Active:            req.Active,
		PropertyTypeID:    refs.typeID,
		TagIDs:            refs.tagIDs,
		SalespersonID:     refs.salesperson,
		DateAvailability:  refs.date,
	}
	p, err := h.Service.UpdateProperty(c.UserContext(), actor, id, in)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Property updated successfully", p, nil)
}

// Delete DELETE /api/v1/properties/:id
func (h *Handlers) Delete(c *fiber.Ctx) error {
	actor, ok, err := params.Actor(c)
	if !ok {
		return err
	}
	id, ok, err := params.UUID(c, "id")
	if !ok {
		return err
	}
	if err := h.Service.DeleteProperty(c.UserContext(), actor, id); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Property deleted successfully", fiber.Map{"property_id": id}, nil)
}

// Sell POST /api/v1/properties/:id/sell
func (h *Handlers) Sell(c *fiber.Ctx) error {
	actor, ok, err := params.Actor(c)
	if !ok {
		return err
	}
	id, ok, err := params.UUID(c, "id")
	if !ok {
		return err
	}
	p, err := h.Service.SellProperty(c.UserContext(), actor, id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Property sold", p, nil)
}

// Cancel POST /api/v1/properties/:id/cancel
func (h *Handlers) Cancel(c *fiber.Ctx) error {
	actor, ok, err := params.Actor(c)
	if !ok {
		return err
	}
	id, ok, err := params.UUID(c, "id")
	if !ok {
		return err
	}
	p, err := h.Service.CancelProperty(c.UserContext(), actor, id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Property cancelled", p, nil)
}

// Offers GET /api/v1/properties/:id/offers
func (h *Handlers) Offers(c *fiber.Ctx) error {
	id, ok, err := params.UUID(c, "id")
	if !ok {
		return err
	}
	if _, err := h.Service.GetProperty(c.UserContext(), id); err != nil {
		return response.FromError(c, err)
	}
	offers, err := h.Service.ListOffers(c.UserContext(), id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Offers fetched successfully", offers, nil)
}

// Events GET /api/v1/properties/:id/events
func (h *Handlers) Events(c *fiber.Ctx) error {
	id, ok, err := params.UUID(c, "id")
	if !ok {
		return err
	}
	events, err := h.Service.ListEvents(c.UserContext(), id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Property events fetched successfully", events, nil)
}

// MyAvailableCount GET /api/v1/properties/my/available-count: open properties assigned to the caller.
func (h *Handlers) MyAvailableCount(c *fiber.Ctx) error {
	actor, ok, err := params.Actor(c)
	if !ok {
		return err
	}
	n, err := h.Service.CountAvailableForSalesperson(c.UserContext(), actor.UserID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Available properties counted", fiber.Map{"count": n}, nil)
}
