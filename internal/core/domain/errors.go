// internal/core/domain/errors.go
package domain

import "errors"

var (
	// ErrNotFound is returned when a record id does not resolve
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateID is returned when adding a record whose id already exists
	ErrDuplicateID = errors.New("duplicate record id")

	// ErrUnknownCollection is returned for collection names outside the contract
	ErrUnknownCollection = errors.New("unknown collection")

	// ErrStaleVersion is returned when a push carries a version older than the stored one
	ErrStaleVersion = errors.New("stale version")

	// ErrLedgerFieldsImmutable is returned when an edit would change the stock
	// effect of an already applied transaction
	ErrLedgerFieldsImmutable = errors.New("transaction item and quantity fields cannot change after submission")

	// ErrInvalidCredentials is returned when a login does not match an active user
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrValidation wraps struct validation failures
	ErrValidation = errors.New("validation failed")
)
