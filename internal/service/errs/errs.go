// Package errs holds the error kinds the service layer reports to its callers.
// Services wrap them with context, callers match with errors.Is.
package errs

import "errors"

var (
	// ErrNotFound is returned when an id-based lookup yields nothing.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned on a uniqueness violation or a lost concurrent update.
	ErrConflict = errors.New("conflict")
	// ErrInvalidTransition is returned when an order status change is not permitted.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrValidation is returned on malformed input.
	ErrValidation = errors.New("validation failed")
	// ErrUnauthenticated is returned when a request carries no valid credentials.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden is returned when the caller lacks the required role.
	ErrForbidden = errors.New("forbidden")
)
