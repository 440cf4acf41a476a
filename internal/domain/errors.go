package domain

import "errors"

// Sentinel errors for the domain layer. Anything that does not wrap one of
// these is treated as a storage failure by the callers.
var (
	ErrNotFound           = errors.New("domain: not found")
	ErrConflict           = errors.New("domain: conflict")
	ErrUnauthenticated    = errors.New("domain: unauthenticated")
	ErrUnconfigured       = errors.New("domain: identity not configured")
	ErrDenied             = errors.New("domain: denied")
	ErrInvalidTransition  = errors.New("domain: invalid status transition")
	ErrWrongState         = errors.New("domain: wrong state")
	ErrValidation         = errors.New("domain: validation failed")
	ErrDuplicateReference = errors.New("domain: duplicate reference number")
)
