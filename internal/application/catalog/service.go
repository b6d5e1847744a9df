package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"estate-backend/internal/domain"
	"estate-backend/internal/pkg/apperror"
	"estate-backend/internal/pkg/constants"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrNameRequired  = apperror.Validation("Name is required")
	ErrTypeNameTaken = apperror.Validation("A property type with this name already exists")
	ErrTagNameTaken  = apperror.Validation("A property tag with this name already exists")
	ErrInvalidColor  = apperror.Validation("Color index must be between 0 and 9.")
	ErrTypeNotFound  = apperror.NotFound("Property type not found")
	ErrTagNotFound   = apperror.NotFound("Property tag not found")
	ErrTypeInUse     = apperror.Business("This property type is still used by properties")
)

// Service manages property types and tags.
type Service struct {
	DB *gorm.DB
}

type TypeInput struct {
	Name     string
	Sequence *int
}

type TagInput struct {
	Name  string
	Color int
}

func (s *Service) CreatePropertyType(ctx context.Context, actor domain.Actor, in TypeInput) (*domain.PropertyType, error) {
	if !actor.Can(constants.ManageCatalog) {
		return nil, apperror.ErrForbidden
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	t := &domain.PropertyType{Name: name, Sequence: domain.DefaultTypeSequence}
	if in.Sequence != nil {
		t.Sequence = *in.Sequence
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if taken, err := nameTaken(tx, &domain.PropertyType{}, name, "property_type_id", uuid.Nil); err != nil {
			return err
		} else if taken {
			return ErrTypeNameTaken
		}
		if err := tx.Create(t).Error; err != nil {
			return fmt.Errorf("Failed to create property type: %v", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// ListPropertyTypes returns types ordered by sequence then name, with property and offer counts.
func (s *Service) ListPropertyTypes(ctx context.Context) ([]domain.PropertyType, error) {
	var types []domain.PropertyType
	if err := s.DB.WithContext(ctx).Order("sequence ASC, name ASC").Find(&types).Error; err != nil {
		return nil, err
	}
	props, err := countBy(s.DB.WithContext(ctx), &domain.Property{}, "property_type_id")
	if err != nil {
		return nil, err
	}
	offers, err := countBy(s.DB.WithContext(ctx), &domain.Offer{}, "property_type_id")
	if err != nil {
		return nil, err
	}
	for i := range types {
		types[i].PropertyCount = props[types[i].PropertyTypeID.String()]
		types[i].OfferCount = offers[types[i].PropertyTypeID.String()]
	}
	return types, nil
}

func (s *Service) GetPropertyType(ctx context.Context, id uuid.UUID) (*domain.PropertyType, error) {
	var t domain.PropertyType
	err := s.DB.WithContext(ctx).Where("property_type_id = ?", id).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTypeNotFound
	}
	if err != nil {
		return nil, err
	}
	db := s.DB.WithContext(ctx)
	if err := db.Model(&domain.Property{}).Where("property_type_id = ?", id).Count(&t.PropertyCount).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&domain.Offer{}).Where("property_type_id = ?", id).Count(&t.OfferCount).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Service) UpdatePropertyType(ctx context.Context, actor domain.Actor, id uuid.UUID, in TypeInput) (*domain.PropertyType, error) {
	if !actor.Can(constants.ManageCatalog) {
		return nil, apperror.ErrForbidden
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var t domain.PropertyType
		if err := tx.Where("property_type_id = ?", id).First(&t).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTypeNotFound
			}
			return err
		}
		updates := map[string]interface{}{}
		if name := strings.TrimSpace(in.Name); name != "" && name != t.Name {
			taken, err := nameTaken(tx, &domain.PropertyType{}, name, "property_type_id", id)
			if err != nil {
				return err
			}
			if taken {
				return ErrTypeNameTaken
			}
			updates["name"] = name
		}
		if in.Sequence != nil {
			updates["sequence"] = *in.Sequence
		}
		if len(updates) == 0 {
			return nil
		}
		return tx.Model(&domain.PropertyType{}).Where("property_type_id = ?", id).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}
	return s.GetPropertyType(ctx, id)
}

// DeletePropertyType removes an unused type.
func (s *Service) DeletePropertyType(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	if !actor.Can(constants.ManageCatalog) {
		return apperror.ErrForbidden
	}
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&domain.Property{}).Where("property_type_id = ?", id).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrTypeInUse
		}
		res := tx.Where("property_type_id = ?", id).Delete(&domain.PropertyType{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrTypeNotFound
		}
		return nil
	})
}

func (s *Service) CreateTag(ctx context.Context, actor domain.Actor, in TagInput) (*domain.PropertyTag, error) {
	if !actor.Can(constants.ManageCatalog) {
		return nil, apperror.ErrForbidden
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if in.Color < 0 || in.Color > 9 {
		return nil, ErrInvalidColor
	}
	tag := &domain.PropertyTag{Name: name, Color: in.Color}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if taken, err := nameTaken(tx, &domain.PropertyTag{}, name, "tag_id", uuid.Nil); err != nil {
			return err
		} else if taken {
			return ErrTagNameTaken
		}
		if err := tx.Create(tag).Error; err != nil {
			return fmt.Errorf("Failed to create tag: %v", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tag, nil
}

// ListTags returns tags by name with the number of properties carrying each.
func (s *Service) ListTags(ctx context.Context) ([]domain.PropertyTag, error) {
	var tags []domain.PropertyTag
	if err := s.DB.WithContext(ctx).Order("name ASC").Find(&tags).Error; err != nil {
		return nil, err
	}
	counts, err := countBy(s.DB.WithContext(ctx).Table("property_tag_rel"), nil, "tag_id")
	if err != nil {
		return nil, err
	}
	for i := range tags {
		tags[i].PropertyCount = counts[tags[i].TagID.String()]
	}
	return tags, nil
}

func (s *Service) UpdateTag(ctx context.Context, actor domain.Actor, id uuid.UUID, in TagInput) (*domain.PropertyTag, error) {
	if !actor.Can(constants.ManageCatalog) {
		return nil, apperror.ErrForbidden
	}
	if in.Color < 0 || in.Color > 9 {
		return nil, ErrInvalidColor
	}
	var tag domain.PropertyTag
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tag_id = ?", id).First(&tag).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTagNotFound
			}
			return err
		}
		if name := strings.TrimSpace(in.Name); name != "" && name != tag.Name {
			taken, err := nameTaken(tx, &domain.PropertyTag{}, name, "tag_id", id)
			if err != nil {
				return err
			}
			if taken {
				return ErrTagNameTaken
			}
			tag.Name = name
		}
		tag.Color = in.Color
		return tx.Model(&domain.PropertyTag{}).Where("tag_id = ?", id).
			Updates(map[string]interface{}{"name": tag.Name, "color": tag.Color}).Error
	})
	if err != nil {
		return nil, err
	}
	return &tag, nil
}

// DeleteTag removes a tag and detaches it from every property.
func (s *Service) DeleteTag(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	if !actor.Can(constants.ManageCatalog) {
		return apperror.ErrForbidden
	}
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM property_tag_rel WHERE tag_id = ?", id).Error; err != nil {
			return err
		}
		res := tx.Where("tag_id = ?", id).Delete(&domain.PropertyTag{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrTagNotFound
		}
		return nil
	})
}

func nameTaken(tx *gorm.DB, model interface{}, name, idColumn string, exclude uuid.UUID) (bool, error) {
	var n int64
	q := tx.Model(model).Where("LOWER(name) = ?", strings.ToLower(name))
	if exclude != uuid.Nil {
		q = q.Where(idColumn+" <> ?", exclude)
	}
	if err := q.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

type groupCount struct {
	Grp   string
	Total int64
}

// countBy returns row counts grouped by column, keyed by the column's string value.
func countBy(db *gorm.DB, model interface{}, column string) (map[string]int64, error) {
	q := db
	if model != nil {
		q = q.Model(model)
	}
	var rows []groupCount
	if err := q.Select(column + " AS grp, COUNT(*) AS total").Where(column + " IS NOT NULL").Group(column).Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Grp] = r.Total
	}
	return out, nil
}
