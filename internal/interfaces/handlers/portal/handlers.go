package portal

import (
	"encoding/json"
	"errors"
	"strconv"

	offersvc "estate-backend/internal/application/offers"
	propsvc "estate-backend/internal/application/properties"
	"estate-backend/internal/domain"
	"estate-backend/internal/interfaces/handlers/params"
	"estate-backend/internal/pkg/response"
	"estate-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
)

// PageSize is the number of properties per portal page.
const PageSize = 20

// Handlers serve logged-in bidders: the hub, the open properties, bidding and their own offers.
type Handlers struct {
	Properties *propsvc.Service
	Offers     *offersvc.Service
}

func marketFilter() propsvc.ListFilter {
	return propsvc.ListFilter{ActiveOnly: true, OpenOnly: true}
}

// Hub GET /api/v1/portal: counts of open properties and of the caller's offers.
func (h *Handlers) Hub(c *fiber.Ctx) error {
	actor, ok, err := params.Actor(c)
	if !ok {
		return err
	}
	f := marketFilter()
	f.Limit = 1
	_, propsCount, err := h.Properties.ListProperties(c.UserContext(), f)
	if err != nil {
		return response.FromError(c, err)
	}
	var myOffers int64
	if actor.PartnerID != nil {
		if myOffers, err = h.Offers.CountPartnerOffers(c.UserContext(), *actor.PartnerID); err != nil {
			return response.FromError(c, err)
		}
	}
	return response.Success(c, "Estate hub", fiber.Map{
		"props_count":     propsCount,
		"my_offers_count": myOffers,
	}, nil)
}

// ListProperties GET /api/v1/portal/properties?page=
func (h *Handlers) ListProperties(c *fiber.Ctx) error {
	page, offset := params.Page(c, PageSize)
	f := marketFilter()
	f.Limit, f.Offset = PageSize, offset
	props, total, err := h.Properties.ListProperties(c.UserContext(), f)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Properties fetched successfully", props, response.NewPage(page, PageSize, total))
}

// Property GET /api/v1/portal/properties/:id. Archived properties are not shown.
func (h *Handlers) Property(c *fiber.Ctx) error {
	p, ok, err := h.activeProperty(c)
	if !ok {
		return err
	}
	return response.Success(c, "Property fetched successfully", p, nil)
}

func (h *Handlers) activeProperty(c *fiber.Ctx) (*domain.Property, bool, error) {
	id, ok, err := params.UUID(c, "id")
	if !ok {
		return nil, false, err
	}
	p, err := h.Properties.GetProperty(c.UserContext(), id)
	if err == nil && !p.Active {
		err = propsvc.ErrPropertyNotFound
	}
	if err != nil {
		return nil, false, response.FromError(c, err)
	}
	return p, true, nil
}

// Bid POST /api/v1/portal/properties/:id/bid {"amount": "1250,50"}. The offer is placed for the caller's partner.
func (h *Handlers) Bid(c *fiber.Ctx) error {
	actor, ok, err := params.Actor(c)
	if !ok {
		return err
	}
	if actor.PartnerID == nil {
		return response.Error(c, "Your account is not linked to a partner", fiber.StatusForbidden, nil)
	}
	p, ok, err := h.activeProperty(c)
	if !ok {
		return err
	}
	var body map[string]interface{}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	amount, err := validation.ParseAmount(rawAmount(body["amount"]))
	switch {
	case errors.Is(err, validation.ErrInvalidAmount):
		return response.Error(c, err.Error(), fiber.StatusBadRequest, fiber.Map{"code": "invalid_amount"})
	case errors.Is(err, validation.ErrNonPositiveAmount):
		return response.Error(c, err.Error(), fiber.StatusUnprocessableEntity, fiber.Map{"code": "non_positive"})
	}

	offer, err := h.Offers.CreateOffer(c.UserContext(), actor, offersvc.CreateOfferInput{
		PropertyID: p.PropertyID,
		PartnerID:  *actor.PartnerID,
		Price:      amount,
	})
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Your offer has been submitted", offer, nil)
}

func rawAmount(v interface{}) string {
	switch a := v.(type) {
	case string:
		return a
	case float64:
		return strconv.FormatFloat(a, 'f', -1, 64)
	}
	return ""
}

// MyOffers GET /api/v1/portal/my-offers, newest first.
func (h *Handlers) MyOffers(c *fiber.Ctx) error {
	actor, ok, err := params.Actor(c)
	if !ok {
		return err
	}
	if actor.PartnerID == nil {
		return response.Success(c, "Offers fetched successfully", []domain.Offer{}, nil)
	}
	offers, err := h.Offers.ListPartnerOffers(c.UserContext(), *actor.PartnerID)
	if err != nil {
		return response.FromError(c, err)
	}
	out := make([]fiber.Map, 0, len(offers))
	for i := range offers {
		o := offers[i]
		out = append(out, fiber.Map{
			"offer_id":      o.OfferID,
			"property_id":   o.PropertyID,
			"property":      o.Property,
			"price":         o.Price,
			"status":        o.DisplayStatus(),
			"validity":      o.Validity,
			"date_deadline": o.DateDeadline,
			"createdAt":     o.CreatedAt,
		})
	}
	return response.Success(c, "Offers fetched successfully", out, nil)
}
