package properties

import "estate-backend/internal/pkg/apperror"

var (
	ErrPropertyNotFound     = apperror.NotFound("Property not found")
	ErrNameRequired         = apperror.Validation("Property name is required")
	ErrPropertyTypeRequired = apperror.Validation("Property type is required")
	ErrPropertyTypeNotFound = apperror.Validation("Property type not found")
	ErrTagNotFound          = apperror.Validation("One or more tags do not exist")
	ErrInvalidOrientation   = apperror.Validation("Garden orientation must be one of north, south, east, west")
	ErrNegativeArea         = apperror.Validation("Areas must not be negative")
	ErrInvalidState         = apperror.Validation("Unknown property state")
	ErrAlreadySold          = apperror.Business("This property is already sold.")
	ErrCannotCancelSold     = apperror.Business("You cannot cancel a property that has been sold.")
	ErrCannotDeleteProperty = apperror.Business("You cannot delete a property that is not new or cancelled.")
)
