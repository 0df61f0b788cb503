package service

import "errors"

// Store level failures (database.ErrNotFound, database.ErrSlotTaken,
// database.ErrBarberPaused, database.ErrConflict) pass through wrapped.
var (
	ErrIdentityMissing = errors.New("customer name or phone unknown")
	ErrForbidden       = errors.New("order belongs to another user")
	ErrOutOfScope      = errors.New("order is outside the requested scope")
	ErrInvalidScope    = errors.New("unknown cancellation scope")
	ErrPastSlot        = errors.New("slot is in the past")
	ErrInvalidSlot     = errors.New("slot is not bookable")
	ErrInvalidPhone    = errors.New("invalid phone number")
	ErrInvalidName     = errors.New("invalid name")
	ErrTextTooShort    = errors.New("text is too short")
	ErrInvalidInput    = errors.New("invalid input")
)
