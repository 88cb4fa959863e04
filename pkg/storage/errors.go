package storage

import "errors"

var (
	// ErrNotFound is returned when a referenced organization, region, user or
	// content object does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnavailable wraps any backend failure. Callers surface it as a 500
	// and never render partial results.
	ErrUnavailable = errors.New("store unavailable")
)
