package services

import "errors"

// Domain errors surfaced by the license service. Handlers translate these
// to HTTP statuses; anything else is an internal storage fault.
var (
	// ErrNotFound covers both "does not exist" and "not owned by the
	// caller" so responses never leak whether a resource exists.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateEntry is returned when a (product, place) pair already
	// has a whitelist entry, including when a concurrent insert loses the
	// race on the unique index.
	ErrDuplicateEntry = errors.New("whitelist entry already exists")

	// ErrInvalidStatus is returned for status values outside
	// pending/whitelisted/unwhitelisted.
	ErrInvalidStatus = errors.New("invalid whitelist status")
)
