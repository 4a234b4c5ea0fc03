package domain

import "time"

// EntityTag attaches a Property to an Entity. At most one tag with a
// content-equal property exists per owner; resubmission merges by
// freshness.
type EntityTag struct {
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time
	Property  Property
	Entity    *Entity

	// Extra holds caller-defined stored fields, keyed with the "extra_"
	// prefix, preserved verbatim across encode/decode.
	Extra map[string]any
}

// EdgeTag attaches a Property to an Edge, with the same uniqueness and
// merge discipline as EntityTag.
type EdgeTag struct {
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time
	Property  Property
	Edge      *Edge

	Extra map[string]any
}
