package facility

import "errors"

var (
	ErrFacilityNotFound  = errors.New("facility not found")
	ErrFacilityInactive  = errors.New("facility is not active")
	ErrDuplicateCode     = errors.New("facility with this code already exists")
	ErrInvalidType       = errors.New("invalid facility type")
	ErrInvalidCoordinate = errors.New("latitude must be within [-90, 90] and longitude within [-180, 180]")
	ErrInvalidCapacity   = errors.New("available beds cannot be negative or exceed capacity")
)
