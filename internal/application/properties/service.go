package properties

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"estate-backend/internal/domain"
	"estate-backend/internal/pkg/apperror"
	"estate-backend/internal/pkg/constants"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const tagRelTable = "property_tag_rel"

type Service struct {
	DB        *gorm.DB
	Hooks     *Hooks
	Publisher EventPublisher
	Clock     func() time.Time
}

func (s *Service) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

type CreatePropertyInput struct {
	Name              string
	Description       string
	Postcode          string
	DateAvailability  *time.Time
	ExpectedPrice     float64
	Bedrooms          *int
	LivingArea        int
	Facades           *int
	Garage            bool
	Garden            bool
	GardenArea        *int
	GardenOrientation *string
	Active            *bool
	PropertyTypeID    uuid.UUID
	TagIDs            []uuid.UUID
	SalespersonID     *uuid.UUID
}

// CreateProperty inserts a property in state new. Unset fields get their defaults:
// postcode 1000, availability in 90 days, 2 bedrooms, 1 facade, active.
func (s *Service) CreateProperty(ctx context.Context, actor domain.Actor, in CreatePropertyInput) (*domain.Property, error) {
	if !actor.Can(constants.ManageProperties) {
		return nil, apperror.ErrForbidden
	}
	if in.PropertyTypeID == uuid.Nil {
		return nil, ErrPropertyTypeRequired
	}
	p := &domain.Property{
		Name:           strings.TrimSpace(in.Name),
		Description:    in.Description,
		Postcode:       strings.TrimSpace(in.Postcode),
		ExpectedPrice:  in.ExpectedPrice,
		Bedrooms:       intOr(in.Bedrooms, domain.DefaultBedrooms),
		LivingArea:     in.LivingArea,
		Facades:        intOr(in.Facades, domain.DefaultFacades),
		Garage:         in.Garage,
		Active:         in.Active == nil || *in.Active,
		PropertyTypeID: in.PropertyTypeID,
		SalespersonID:  in.SalespersonID,
		CompanyID:      actor.CompanyID,
	}
	if in.DateAvailability != nil {
		p.DateAvailability = domain.TruncateDay(*in.DateAvailability)
	}
	if p.SalespersonID == nil && actor.Role != constants.Portal {
		p.SalespersonID = actor.UserRef()
	}
	if in.Garden {
		p.SetGarden(true)
	}
	applyGardenOverrides(p, in.GardenArea, in.GardenOrientation)
	p.ApplyDefaults(s.now())
	if err := validate(p); err != nil {
		return nil, err
	}

	err := RunInTx(ctx, s.DB, s.Publisher, func(tx *gorm.DB) error {
		if err := ensurePropertyType(tx, p.PropertyTypeID); err != nil {
			return err
		}
		if err := ensureTags(tx, in.TagIDs); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Create(p).Error; err != nil {
			return fmt.Errorf("Failed to create property: %v", err)
		}
		if err := replaceTags(tx, p.PropertyID, in.TagIDs); err != nil {
			return err
		}
		return RecordEvent(tx, actor, p.PropertyID, domain.EventCreated, "", p.State, map[string]interface{}{
			"name":           p.Name,
			"expected_price": p.ExpectedPrice,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.GetProperty(ctx, p.PropertyID)
}

// GetProperty returns a property with its type, tags and offers (best first).
func (s *Service) GetProperty(ctx context.Context, id uuid.UUID) (*domain.Property, error) {
	var p domain.Property
	err := s.DB.WithContext(ctx).
		Preload("PropertyType").
		Preload("Tags").
		Preload("Offers", func(db *gorm.DB) *gorm.DB { return db.Order("price DESC") }).
		Preload("Offers.Partner").
		Where("property_id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPropertyNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListFilter narrows ListProperties. Zero values mean "no constraint".
type ListFilter struct {
	States         []string
	PropertyTypeID *uuid.UUID
	TagID          *uuid.UUID
	SalespersonID  *uuid.UUID
	ActiveOnly     bool
	OpenOnly       bool
	Search         string
	Limit          int
	Offset         int
}

// ListProperties returns one page of properties, newest first, and the total match count.
func (s *Service) ListProperties(ctx context.Context, f ListFilter) ([]domain.Property, int64, error) {
	total, err := s.CountProperties(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	out, err := s.FindProperties(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// FindProperties returns one page of properties, newest first, without counting.
func (s *Service) FindProperties(ctx context.Context, f ListFilter) ([]domain.Property, error) {
	q := s.filtered(ctx, f)
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}
	var out []domain.Property
	if err := q.Preload("PropertyType").Preload("Tags").Order(`"createdAt" DESC`).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("Failed to fetch properties: %v", err)
	}
	return out, nil
}

// CountProperties counts the properties matching f, ignoring its paging.
func (s *Service) CountProperties(ctx context.Context, f ListFilter) (int64, error) {
	var total int64
	if err := s.filtered(ctx, f).Count(&total).Error; err != nil {
		return 0, fmt.Errorf("Failed to count properties: %v", err)
	}
	return total, nil
}

func (s *Service) filtered(ctx context.Context, f ListFilter) *gorm.DB {
	q := s.DB.WithContext(ctx).Model(&domain.Property{})
	if len(f.States) > 0 {
		q = q.Where("state IN ?", f.States)
	}
	if f.OpenOnly {
		q = q.Where("state NOT IN ?", []string{domain.StateSold, domain.StateCancelled})
	}
	if f.ActiveOnly {
		q = q.Where("active = ?", true)
	}
	if f.PropertyTypeID != nil {
		q = q.Where("property_type_id = ?", *f.PropertyTypeID)
	}
	if f.SalespersonID != nil {
		q = q.Where("salesperson_id = ?", *f.SalespersonID)
	}
	if f.TagID != nil {
		q = q.Where("property_id IN (?)", s.DB.Table(tagRelTable).Select("property_id").Where("tag_id = ?", *f.TagID))
	}
	if term := strings.TrimSpace(f.Search); term != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(term)+"%")
	}
	return q
}

// UpdatePropertyInput carries a partial update; nil fields are left untouched.
// State is not editable here: it only moves through sell, cancel and the offer workflow.
type UpdatePropertyInput struct {
	Name              *string
	Description       *string
	Postcode          *string
	DateAvailability  *time.Time
	ExpectedPrice     *float64
	Bedrooms          *int
	LivingArea        *int
	Facades           *int
	Garage            *bool
	Garden            *bool
	GardenArea        *int
	GardenOrientation *string
	Active            *bool
	PropertyTypeID    *uuid.UUID
	TagIDs            *[]uuid.UUID
	SalespersonID     *uuid.UUID
}

func (s *Service) UpdateProperty(ctx context.Context, actor domain.Actor, id uuid.UUID, in UpdatePropertyInput) (*domain.Property, error) {
	if !actor.Can(constants.ManageProperties) {
		return nil, apperror.ErrForbidden
	}
	err := RunInTx(ctx, s.DB, s.Publisher, func(tx *gorm.DB) error {
		p, err := LockProperty(tx, id)
		if err != nil {
			return err
		}
		changed := applyUpdate(p, in)
		if in.PropertyTypeID != nil {
			if err := ensurePropertyType(tx, p.PropertyTypeID); err != nil {
				return err
			}
		}
		if err := validate(p); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Save(p).Error; err != nil {
			return fmt.Errorf("Failed to update property: %v", err)
		}
		if in.TagIDs != nil {
			if err := ensureTags(tx, *in.TagIDs); err != nil {
				return err
			}
			if err := replaceTags(tx, p.PropertyID, *in.TagIDs); err != nil {
				return err
			}
			changed = append(changed, "tags")
		}
		return RecordEvent(tx, actor, p.PropertyID, domain.EventUpdated, p.State, p.State, map[string]interface{}{"fields": changed})
	})
	if err != nil {
		return nil, err
	}
	return s.GetProperty(ctx, id)
}

// DeleteProperty removes a property and its offers, tags links and events. Only new or cancelled properties can go.
func (s *Service) DeleteProperty(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	if !actor.Can(constants.DeleteProperty) {
		return apperror.ErrForbidden
	}
	return RunInTx(ctx, s.DB, s.Publisher, func(tx *gorm.DB) error {
		p, err := LockProperty(tx, id)
		if err != nil {
			return err
		}
		if p.State != domain.StateNew && p.State != domain.StateCancelled {
			return ErrCannotDeleteProperty
		}
		if err := tx.Where("property_id = ?", id).Delete(&domain.Offer{}).Error; err != nil {
			return err
		}
		if err := tx.Where("property_id = ?", id).Delete(&domain.PropertyEvent{}).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM "+tagRelTable+" WHERE property_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&domain.Property{}, "property_id = ?", id).Error; err != nil {
			return err
		}
		bufferEvent(tx, domain.PropertyEvent{PropertyID: id, EventType: domain.EventDeleted, FromState: p.State, ActorUserID: actor.UserRef()})
		return nil
	})
}

// SellProperty marks a property sold. Before-sell hooks run first, inside the same transaction,
// so a failing hook (e.g. invoicing) leaves the property unsold.
func (s *Service) SellProperty(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Property, error) {
	if !actor.Can(constants.SellProperty) {
		return nil, apperror.ErrForbidden
	}
	err := RunInTx(ctx, s.DB, s.Publisher, func(tx *gorm.DB) error {
		p, err := LockProperty(tx, id)
		if err != nil {
			return err
		}
		if p.State == domain.StateSold {
			return ErrAlreadySold
		}
		if err := s.Hooks.runBefore(ctx, tx, actor, p); err != nil {
			return err
		}
		data := map[string]interface{}{"selling_price": p.SellingPrice}
		if p.BuyerID != nil {
			data["buyer_id"] = p.BuyerID.String()
		}
		if err := Transition(tx, actor, p, domain.StateSold, domain.EventSold, nil, data); err != nil {
			return err
		}
		return s.Hooks.runAfter(ctx, tx, actor, p)
	})
	if err != nil {
		return nil, err
	}
	return s.GetProperty(ctx, id)
}

// CancelProperty marks a property cancelled unless it was already sold.
func (s *Service) CancelProperty(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Property, error) {
	if !actor.Can(constants.CancelProperty) {
		return nil, apperror.ErrForbidden
	}
	err := RunInTx(ctx, s.DB, s.Publisher, func(tx *gorm.DB) error {
		p, err := LockProperty(tx, id)
		if err != nil {
			return err
		}
		if p.State == domain.StateSold {
			return ErrCannotCancelSold
		}
		return Transition(tx, actor, p, domain.StateCancelled, domain.EventCancelled, nil, nil)
	})
	if err != nil {
		return nil, err
	}
	return s.GetProperty(ctx, id)
}

// ListOffers returns a property's offers, highest price first.
func (s *Service) ListOffers(ctx context.Context, propertyID uuid.UUID) ([]domain.Offer, error) {
	var offers []domain.Offer
	if err := s.DB.WithContext(ctx).Preload("Partner").Where("property_id = ?", propertyID).Order("price DESC").Find(&offers).Error; err != nil {
		return nil, err
	}
	return offers, nil
}

// ListEvents returns the audit trail of a property, oldest first.
func (s *Service) ListEvents(ctx context.Context, propertyID uuid.UUID) ([]domain.PropertyEvent, error) {
	var events []domain.PropertyEvent
	if err := s.DB.WithContext(ctx).Where("property_id = ?", propertyID).Order(`"createdAt" ASC`).Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

// CountAvailableForSalesperson counts a salesperson's properties still on the market (new, offer received or offer accepted).
func (s *Service) CountAvailableForSalesperson(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := s.DB.WithContext(ctx).Model(&domain.Property{}).
		Where("salesperson_id = ? AND state IN ?", userID, []string{domain.StateNew, domain.StateOfferReceived, domain.StateOfferAccepted}).
		Count(&n).Error
	return n, err
}

// CountByState returns the number of properties in each workflow state.
func (s *Service) CountByState(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		State string
		Total int64
	}
	err := s.DB.WithContext(ctx).Model(&domain.Property{}).
		Select("state, COUNT(*) AS total").Group("state").Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.State] = r.Total
	}
	return out, nil
}

func validate(p *domain.Property) error {
	if p.Name == "" {
		return ErrNameRequired
	}
	if p.LivingArea < 0 || p.GardenArea < 0 || p.Bedrooms < 0 || p.Facades < 0 {
		return ErrNegativeArea
	}
	if p.GardenOrientation != nil && !domain.IsValidOrientation(*p.GardenOrientation) {
		return ErrInvalidOrientation
	}
	return p.CheckPrices()
}

func applyGardenOverrides(p *domain.Property, area *int, orientation *string) {
	if area != nil {
		p.GardenArea = *area
	}
	if orientation != nil {
		if *orientation == "" {
			p.GardenOrientation = nil
		} else {
			o := strings.ToLower(*orientation)
			p.GardenOrientation = &o
		}
	}
	p.RecomputeTotalArea()
}

// applyUpdate copies set fields onto p and returns the names of the fields touched.
func applyUpdate(p *domain.Property, in UpdatePropertyInput) []string {
	var changed []string
	set := func(name string) { changed = append(changed, name) }
	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
		set("name")
	}
	if in.Description != nil {
		p.Description = *in.Description
		set("description")
	}
	if in.Postcode != nil {
		p.Postcode = strings.TrimSpace(*in.Postcode)
		set("postcode")
	}
	if in.DateAvailability != nil {
		p.DateAvailability = domain.TruncateDay(*in.DateAvailability)
		set("date_availability")
	}
	if in.ExpectedPrice != nil {
		p.ExpectedPrice = *in.ExpectedPrice
		set("expected_price")
	}
	if in.Bedrooms != nil {
		p.Bedrooms = *in.Bedrooms
		set("bedrooms")
	}
	if in.LivingArea != nil {
		p.LivingArea = *in.LivingArea
		set("living_area")
	}
	if in.Facades != nil {
		p.Facades = *in.Facades
		set("facades")
	}
	if in.Garage != nil {
		p.Garage = *in.Garage
		set("garage")
	}
	if in.Garden != nil && *in.Garden != p.Garden {
		p.SetGarden(*in.Garden)
		set("garden")
	}
	if in.GardenArea != nil || in.GardenOrientation != nil {
		applyGardenOverrides(p, in.GardenArea, in.GardenOrientation)
		set("garden_details")
	}
	if in.Active != nil && *in.Active != p.Active {
		p.Active = *in.Active
		set("active")
	}
	if in.PropertyTypeID != nil {
		p.PropertyTypeID = *in.PropertyTypeID
		set("property_type_id")
	}
	if in.SalespersonID != nil {
		id := *in.SalespersonID
		p.SalespersonID = &id
		set("salesperson_id")
	}
	p.RecomputeTotalArea()
	sort.Strings(changed)
	return changed
}

func ensurePropertyType(tx *gorm.DB, id uuid.UUID) error {
	var n int64
	if err := tx.Model(&domain.PropertyType{}).Where("property_type_id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return ErrPropertyTypeNotFound
	}
	return nil
}

func ensureTags(tx *gorm.DB, ids []uuid.UUID) error {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return nil
	}
	var n int64
	if err := tx.Model(&domain.PropertyTag{}).Where("tag_id IN ?", ids).Count(&n).Error; err != nil {
		return err
	}
	if int(n) != len(ids) {
		return ErrTagNotFound
	}
	return nil
}

func replaceTags(tx *gorm.DB, propertyID uuid.UUID, ids []uuid.UUID) error {
	if err := tx.Exec("DELETE FROM "+tagRelTable+" WHERE property_id = ?", propertyID).Error; err != nil {
		return err
	}
	for _, tagID := range uniqueIDs(ids) {
		if err := tx.Table(tagRelTable).Create(map[string]interface{}{"property_id": propertyID, "tag_id": tagID}).Error; err != nil {
			return fmt.Errorf("Failed to link tag: %v", err)
		}
	}
	return nil
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}
