package services

import "errors"

// Engine error taxonomy. Callers match with errors.Is; messages carry detail via %w wrapping.
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidState    = errors.New("invalid state")
	ErrAlreadyResolved = errors.New("already resolved")
	ErrNotOwner        = errors.New("not owner")
	ErrDeadlinePassed  = errors.New("deadline passed")
	ErrNotEligible     = errors.New("not eligible")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidInput    = errors.New("invalid input")
	ErrSelectionBusy   = errors.New("selection in progress")
)
