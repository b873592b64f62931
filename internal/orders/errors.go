package orders

import "errors"

var (
	// ErrValidation marks malformed input: empty item list, missing
	// shipping fields, non-positive quantity. Never retried.
	ErrValidation = errors.New("invalid order input")

	// ErrConflict is a unique order-code collision at commit time; safe to
	// retry with a freshly generated code.
	ErrConflict = errors.New("order code already exists")

	// ErrPersistence covers any failure inside the atomic order-write
	// sequence after the whole transaction has been rolled back.
	ErrPersistence = errors.New("order write failed")

	ErrNotFound = errors.New("order not found")

	ErrInvalidTransition = errors.New("status transition not allowed")
)
