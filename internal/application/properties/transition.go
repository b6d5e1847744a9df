package properties

import (
	"encoding/json"
	"errors"
	"fmt"

	"estate-backend/internal/domain"
	"estate-backend/internal/pkg/apperror"
	"estate-backend/internal/pkg/constants"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LockProperty loads a property row with SELECT ... FOR UPDATE. Must run inside tx.
func LockProperty(tx *gorm.DB, id uuid.UUID) (*domain.Property, error) {
	var p domain.Property
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("property_id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPropertyNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Transition writes the property's new state (plus extra columns) and appends an event.
// The write needs manage_properties; offer workflows pass an elevated actor.
func Transition(tx *gorm.DB, actor domain.Actor, p *domain.Property, to, eventType string, extra map[string]interface{}, data map[string]interface{}) error {
	if !actor.Can(constants.ManageProperties) {
		return apperror.ErrForbidden
	}
	if !domain.IsValidState(to) {
		return ErrInvalidState
	}
	from := p.State
	updates := map[string]interface{}{"state": to}
	for k, v := range extra {
		updates[k] = v
	}
	if err := tx.Model(&domain.Property{}).Where("property_id = ?", p.PropertyID).Updates(updates).Error; err != nil {
		return fmt.Errorf("Failed to update property state: %v", err)
	}
	p.State = to
	return RecordEvent(tx, actor, p.PropertyID, eventType, from, to, data)
}

// RecordEvent appends a PropertyEvent row in tx.
func RecordEvent(tx *gorm.DB, actor domain.Actor, propertyID uuid.UUID, eventType, from, to string, data map[string]interface{}) error {
	if data == nil {
		data = map[string]interface{}{}
	}
	eventDataBytes, _ := json.Marshal(data)
	ev := domain.PropertyEvent{
		PropertyID:  propertyID,
		EventType:   eventType,
		FromState:   from,
		ToState:     to,
		EventData:   datatypes.JSON(eventDataBytes),
		ActorUserID: actor.UserRef(),
	}
	if err := tx.Create(&ev).Error; err != nil {
		return fmt.Errorf("Failed to create property event: %v", err)
	}
	bufferEvent(tx, ev)
	return nil
}

// RefreshBestPrice recomputes best_price as the highest offer price (0 without offers) and stores it.
func RefreshBestPrice(tx *gorm.DB, p *domain.Property) (float64, error) {
	var best float64
	if err := tx.Model(&domain.Offer{}).Select("COALESCE(MAX(price), 0)").Where("property_id = ?", p.PropertyID).Row().Scan(&best); err != nil {
		return 0, err
	}
	best = domain.RoundMoney(best)
	if err := tx.Model(&domain.Property{}).Where("property_id = ?", p.PropertyID).Update("best_price", best).Error; err != nil {
		return 0, fmt.Errorf("Failed to update best price: %v", err)
	}
	p.BestPrice = best
	return best, nil
}
