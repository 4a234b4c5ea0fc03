package repository

import "errors"

var (
	// ErrNotFound is returned by id-scoped lookups that locate nothing.
	// Content- and type-scoped searches return empty collections instead.
	ErrNotFound = errors.New("not found")

	// ErrTaxonomyViolation rejects an edge whose (from, label, type, to)
	// triple is not legal under the relationship taxonomy. No write occurs.
	ErrTaxonomyViolation = errors.New("relationship not allowed by the taxonomy")

	// ErrTypeMismatch rejects an explicit-id tag update that supplies a
	// different property variant than the stored tag.
	ErrTypeMismatch = errors.New("property type does not match the existing tag")

	// ErrStoreUnavailable wraps connection and transport failures from the
	// graph store driver.
	ErrStoreUnavailable = errors.New("graph store unavailable")
)
