package adapter

import (
	"errors"
)

var (
	// ErrNotFound is returned when a requested resource is not found.
	ErrNotFound = errors.New("resource not found")

	// ErrForbidden is returned when the account lacks rights for an operation.
	ErrForbidden = errors.New("operation forbidden")
)
