package offers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	propsvc "estate-backend/internal/application/properties"
	"estate-backend/internal/domain"
	"estate-backend/internal/pkg/apperror"
	"estate-backend/internal/pkg/constants"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Notifier is told about decided offers after commit. Nil = no-op.
type Notifier interface {
	OfferAccepted(ctx context.Context, partner domain.Partner, property domain.Property, price float64) error
}

type Service struct {
	DB        *gorm.DB
	Notifier  Notifier
	Publisher propsvc.EventPublisher
	Clock     func() time.Time
}

func (s *Service) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

// CreateOfferInput describes one bid. Validity defaults to 7 days; a deadline, when given, wins over validity.
type CreateOfferInput struct {
	PropertyID   uuid.UUID
	PartnerID    uuid.UUID
	Price        float64
	Validity     *int
	DateDeadline *time.Time
}

// CreateOffer places a single offer.
func (s *Service) CreateOffer(ctx context.Context, actor domain.Actor, in CreateOfferInput) (*domain.Offer, error) {
	out, err := s.CreateOffers(ctx, actor, []CreateOfferInput{in})
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

// CreateOffers places a batch of offers atomically. Every request is validated against the
// offers already persisted when the batch starts, not against its siblings. Touched properties
// are row-locked in id order, their best price refreshed, and any still in state new moved to
// offer_received through an elevated transition so bidders without property rights can trigger it.
func (s *Service) CreateOffers(ctx context.Context, actor domain.Actor, inputs []CreateOfferInput) ([]domain.Offer, error) {
	if !actor.Can(constants.PlaceOffer) {
		return nil, apperror.ErrForbidden
	}
	if len(inputs) == 0 {
		return nil, ErrNoOffers
	}
	reqs := make([]CreateOfferInput, len(inputs))
	for i, in := range inputs {
		if err := s.normalizeBidder(actor, &in); err != nil {
			return nil, err
		}
		if in.Price < 0 {
			return nil, domain.ErrOfferPriceNegative
		}
		in.Price = domain.RoundMoney(in.Price)
		reqs[i] = in
	}

	now := s.now()
	var created []domain.Offer
	err := propsvc.RunInTx(ctx, s.DB, s.Publisher, func(tx *gorm.DB) error {
		props, err := lockProperties(tx, reqs)
		if err != nil {
			return err
		}
		for _, in := range reqs {
			if err := ensurePartner(tx, in.PartnerID); err != nil {
				return err
			}
			best, err := maxOfferPrice(tx, in.PropertyID)
			if err != nil {
				return err
			}
			if best.Valid && in.Price <= domain.RoundMoney(best.Float64) {
				return fmt.Errorf("%w Current best offer is %.2f.", ErrPriceNotHigher, best.Float64)
			}
		}

		for _, in := range reqs {
			p := props[in.PropertyID]
			typeID := p.PropertyTypeID
			o := domain.Offer{
				PropertyID:     in.PropertyID,
				PartnerID:      in.PartnerID,
				PropertyTypeID: &typeID,
				Price:          in.Price,
				Status:         domain.OfferDraft,
				CreatedAt:      now,
			}
			if in.DateDeadline != nil {
				o.ApplyDeadline(in.DateDeadline, now)
			} else {
				validity := domain.DefaultOfferValidity
				if in.Validity != nil {
					validity = *in.Validity
				}
				o.ApplyValidity(validity, now)
			}
			if err := tx.Omit(clause.Associations).Create(&o).Error; err != nil {
				return fmt.Errorf("Failed to create offer: %v", err)
			}
			created = append(created, o)
		}

		for _, id := range sortedPropertyIDs(reqs) {
			p := props[id]
			best, err := propsvc.RefreshBestPrice(tx, p)
			if err != nil {
				return err
			}
			data := map[string]interface{}{"best_price": best, "offer_ids": offerIDsFor(created, id)}
			if p.State == domain.StateNew {
				if err := propsvc.Transition(tx, actor.Elevated(), p, domain.StateOfferReceived, domain.EventOfferReceived, nil, data); err != nil {
					return err
				}
				continue
			}
			if err := propsvc.RecordEvent(tx, actor, p.PropertyID, domain.EventOfferReceived, p.State, p.State, data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// AcceptOffer accepts a pending offer: the property moves to offer_accepted with the offer's
// price and partner as selling price and buyer, and every sibling offer is refused.
func (s *Service) AcceptOffer(ctx context.Context, actor domain.Actor, offerID uuid.UUID) (*domain.Offer, error) {
	if !actor.Can(constants.DecideOffer) {
		return nil, apperror.ErrForbidden
	}
	var offer domain.Offer
	var property *domain.Property
	err := propsvc.RunInTx(ctx, s.DB, s.Publisher, func(tx *gorm.DB) error {
		o, err := findOffer(tx, offerID)
		if err != nil {
			return err
		}
		p, err := propsvc.LockProperty(tx, o.PropertyID)
		if err != nil {
			return err
		}
		var accepted int64
		if err := tx.Model(&domain.Offer{}).Where("property_id = ? AND status = ?", p.PropertyID, domain.OfferAccepted).Count(&accepted).Error; err != nil {
			return err
		}
		if accepted > 0 {
			return ErrAlreadyAccepted
		}
		if o.Status != domain.OfferDraft {
			return ErrOfferNotPending
		}
		if p.State == domain.StateSold || p.State == domain.StateCancelled {
			return ErrPropertyClosed
		}
		if err := domain.CheckPrices(p.ExpectedPrice, o.Price); err != nil {
			return err
		}

		if err := tx.Model(&domain.Offer{}).Where("offer_id = ?", o.OfferID).Update("status", domain.OfferAccepted).Error; err != nil {
			return fmt.Errorf("Failed to accept offer: %v", err)
		}
		o.Status = domain.OfferAccepted
		if err := tx.Model(&domain.Offer{}).
			Where("property_id = ? AND offer_id <> ?", p.PropertyID, o.OfferID).
			Update("status", domain.OfferRefused).Error; err != nil {
			return fmt.Errorf("Failed to refuse sibling offers: %v", err)
		}
		buyer := o.PartnerID
		extra := map[string]interface{}{"selling_price": o.Price, "buyer_id": buyer}
		data := map[string]interface{}{"offer_id": o.OfferID.String(), "selling_price": o.Price, "buyer_id": buyer.String()}
		if err := propsvc.Transition(tx, actor.Elevated(), p, domain.StateOfferAccepted, domain.EventOfferAccepted, extra, data); err != nil {
			return err
		}
		p.SellingPrice = o.Price
		p.BuyerID = &buyer
		offer, property = *o, p
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notifyAccepted(ctx, offer, property)
	return &offer, nil
}

// RefuseOffer refuses an offer. Refusing an accepted offer is a no-op: the acceptance stands.
func (s *Service) RefuseOffer(ctx context.Context, actor domain.Actor, offerID uuid.UUID) (*domain.Offer, error) {
	if !actor.Can(constants.DecideOffer) {
		return nil, apperror.ErrForbidden
	}
	var offer domain.Offer
	err := propsvc.RunInTx(ctx, s.DB, s.Publisher, func(tx *gorm.DB) error {
		o, err := findOffer(tx, offerID)
		if err != nil {
			return err
		}
		p, err := propsvc.LockProperty(tx, o.PropertyID)
		if err != nil {
			return err
		}
		// Re-read under the property lock so a concurrent accept is seen.
		if err := tx.Where("offer_id = ?", offerID).First(o).Error; err != nil {
			return err
		}
		offer = *o
		if o.Status != domain.OfferDraft {
			return nil
		}
		if err := tx.Model(&domain.Offer{}).Where("offer_id = ?", o.OfferID).Update("status", domain.OfferRefused).Error; err != nil {
			return fmt.Errorf("Failed to refuse offer: %v", err)
		}
		offer.Status = domain.OfferRefused
		return propsvc.RecordEvent(tx, actor, p.PropertyID, domain.EventOfferRefused, p.State, p.State, map[string]interface{}{
			"offer_id": o.OfferID.String(),
			"price":    o.Price,
		})
	})
	if err != nil {
		return nil, err
	}
	return &offer, nil
}

// SetValidity changes an offer's validity and recomputes its deadline.
func (s *Service) SetValidity(ctx context.Context, actor domain.Actor, offerID uuid.UUID, days int) (*domain.Offer, error) {
	return s.editTerms(ctx, actor, offerID, func(o *domain.Offer, now time.Time) {
		o.ApplyValidity(days, now)
	})
}

// SetDeadline changes an offer's deadline and recomputes its validity. A nil deadline clears both.
func (s *Service) SetDeadline(ctx context.Context, actor domain.Actor, offerID uuid.UUID, deadline *time.Time) (*domain.Offer, error) {
	return s.editTerms(ctx, actor, offerID, func(o *domain.Offer, now time.Time) {
		o.ApplyDeadline(deadline, now)
	})
}

func (s *Service) editTerms(ctx context.Context, actor domain.Actor, offerID uuid.UUID, apply func(*domain.Offer, time.Time)) (*domain.Offer, error) {
	if !actor.Can(constants.EditOffer) {
		return nil, apperror.ErrForbidden
	}
	var offer domain.Offer
	err := propsvc.RunInTx(ctx, s.DB, s.Publisher, func(tx *gorm.DB) error {
		o, err := findOffer(tx, offerID)
		if err != nil {
			return err
		}
		apply(o, s.now())
		if err := tx.Model(&domain.Offer{}).Where("offer_id = ?", o.OfferID).
			Select("validity", "date_deadline").
			Updates(map[string]interface{}{"validity": o.Validity, "date_deadline": o.DateDeadline}).Error; err != nil {
			return fmt.Errorf("Failed to update offer: %v", err)
		}
		offer = *o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &offer, nil
}

func (s *Service) GetOffer(ctx context.Context, offerID uuid.UUID) (*domain.Offer, error) {
	var o domain.Offer
	err := s.DB.WithContext(ctx).Preload("Property").Preload("Partner").Where("offer_id = ?", offerID).First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOfferNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// ListPartnerOffers returns a partner's offers, newest first, with their properties.
func (s *Service) ListPartnerOffers(ctx context.Context, partnerID uuid.UUID) ([]domain.Offer, error) {
	var out []domain.Offer
	if err := s.DB.WithContext(ctx).Preload("Property").Where("partner_id = ?", partnerID).Order(`"createdAt" DESC`).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) CountPartnerOffers(ctx context.Context, partnerID uuid.UUID) (int64, error) {
	var n int64
	err := s.DB.WithContext(ctx).Model(&domain.Offer{}).Where("partner_id = ?", partnerID).Count(&n).Error
	return n, err
}

// normalizeBidder fills the partner from a portal actor and stops portal users bidding for someone else.
func (s *Service) normalizeBidder(actor domain.Actor, in *CreateOfferInput) error {
	if actor.Role == constants.Portal {
		if actor.PartnerID == nil {
			return ErrPartnerRequired
		}
		if in.PartnerID != uuid.Nil && in.PartnerID != *actor.PartnerID {
			return ErrPartnerMismatch
		}
		in.PartnerID = *actor.PartnerID
	}
	if in.PartnerID == uuid.Nil {
		return ErrPartnerRequired
	}
	return nil
}

func (s *Service) notifyAccepted(ctx context.Context, offer domain.Offer, property *domain.Property) {
	if s.Notifier == nil || property == nil {
		return
	}
	var partner domain.Partner
	if err := s.DB.WithContext(ctx).Where("partner_id = ?", offer.PartnerID).First(&partner).Error; err != nil {
		log.Warn().Err(err).Str("offer_id", offer.OfferID.String()).Msg("offer accepted: partner lookup failed")
		return
	}
	if err := s.Notifier.OfferAccepted(ctx, partner, *property, offer.Price); err != nil {
		log.Warn().Err(err).Str("offer_id", offer.OfferID.String()).Msg("offer accepted: notification failed")
	}
}

// lockProperties locks every property referenced by reqs in ascending id order.
func lockProperties(tx *gorm.DB, reqs []CreateOfferInput) (map[uuid.UUID]*domain.Property, error) {
	out := make(map[uuid.UUID]*domain.Property)
	for _, id := range sortedPropertyIDs(reqs) {
		p, err := propsvc.LockProperty(tx, id)
		if err != nil {
			return nil, err
		}
		if p.IsClosed() {
			return nil, ErrPropertyClosed
		}
		out[id] = p
	}
	return out, nil
}

func sortedPropertyIDs(reqs []CreateOfferInput) []uuid.UUID {
	seen := make(map[uuid.UUID]bool)
	var ids []uuid.UUID
	for _, r := range reqs {
		if !seen[r.PropertyID] {
			seen[r.PropertyID] = true
			ids = append(ids, r.PropertyID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

func offerIDsFor(offers []domain.Offer, propertyID uuid.UUID) []string {
	var ids []string
	for _, o := range offers {
		if o.PropertyID == propertyID {
			ids = append(ids, o.OfferID.String())
		}
	}
	return ids
}

func ensurePartner(tx *gorm.DB, id uuid.UUID) error {
	var n int64
	if err := tx.Model(&domain.Partner{}).Where("partner_id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return ErrPartnerNotFound
	}
	return nil
}

func maxOfferPrice(tx *gorm.DB, propertyID uuid.UUID) (sql.NullFloat64, error) {
	var best sql.NullFloat64
	err := tx.Model(&domain.Offer{}).Select("MAX(price)").Where("property_id = ?", propertyID).Row().Scan(&best)
	return best, err
}

func findOffer(tx *gorm.DB, id uuid.UUID) (*domain.Offer, error) {
	var o domain.Offer
	err := tx.Where("offer_id = ?", id).First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOfferNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}
