package storage

import "errors"

var (
	// ErrNotFound is returned when a record id does not exist
	ErrNotFound = errors.New("not found")
	// ErrInvalidState is returned when a transition is not allowed from the current state
	ErrInvalidState = errors.New("invalid state")
)
