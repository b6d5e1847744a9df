package offers

import "estate-backend/internal/pkg/apperror"

var (
	ErrOfferNotFound   = apperror.NotFound("Offer not found")
	ErrNoOffers        = apperror.Validation("At least one offer is required")
	ErrPartnerRequired = apperror.Validation("A partner is required to place an offer")
	ErrPartnerNotFound = apperror.Validation("Partner not found")
	ErrPriceNotHigher  = apperror.Validation("Offer price must be strictly higher than existing offers.")
	ErrPropertyClosed  = apperror.Business("Offers cannot be placed on a sold or cancelled property.")
	ErrAlreadyAccepted = apperror.Business("This property already has an accepted offer.")
	ErrOfferNotPending = apperror.Business("Only pending offers can be accepted.")
	ErrPartnerMismatch = apperror.Forbidden("Portal users can only bid for their own partner")
)
