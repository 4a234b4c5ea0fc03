package domain

import "time"

// Entity is a stored, identity-bearing wrapper around an Asset. One entity
// exists per distinct asset content; resubmitting equal content advances
// UpdatedAt but never changes ID or CreatedAt.
type Entity struct {
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time
	Asset     Asset

	// Extra holds caller-defined stored fields, keyed with the "extra_"
	// prefix, preserved verbatim across encode/decode.
	Extra map[string]any
}
