// Package common holds sentinel errors shared by the storage layer and its
// callers. Match them with errors.Is.
package common

import "errors"

var (
	// ErrNotFound is returned when the addressed record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a write violates a uniqueness constraint.
	ErrConflict = errors.New("conflict")

	// ErrUnavailable wraps failures to reach the backing store.
	ErrUnavailable = errors.New("store unavailable")

	// ErrForbidden is returned by services when the acting user may not touch the resource.
	ErrForbidden = errors.New("forbidden")
)
