package domain

import (
	"estate-backend/internal/pkg/constants"

	"github.com/google/uuid"
)

// Actor is the identity an operation runs as. Elevated actors bypass
// capability checks; only internal transitions obtain one.
type Actor struct {
	UserID    uuid.UUID
	Role      string
	PartnerID *uuid.UUID
	CompanyID *uuid.UUID
	elevated  bool
}

// Can reports whether the actor holds permission.
func (a Actor) Can(permission string) bool {
	return a.elevated || constants.AllowedRole(permission, a.Role)
}

// Elevated returns a copy of the actor that passes every capability check.
func (a Actor) Elevated() Actor {
	a.elevated = true
	return a
}

func (a Actor) IsElevated() bool {
	return a.elevated
}

// UserRef returns a pointer to UserID, or nil for anonymous actors.
func (a Actor) UserRef() *uuid.UUID {
	if a.UserID == uuid.Nil {
		return nil
	}
	id := a.UserID
	return &id
}

// SystemActor is used by CLI jobs and seeds.
func SystemActor() Actor {
	return Actor{Role: constants.Admin}.Elevated()
}
