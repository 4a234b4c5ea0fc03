package domain

import (
	"strings"
	"time"
)

// Edge is a stored directed relation between two entities. At most one
// edge exists per (from, to) pair with a content-equal relation;
// duplicates merge by freshness instead of multiplying.
type Edge struct {
	ID         string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Relation   Relation
	FromEntity *Entity
	ToEntity   *Entity

	// Extra holds caller-defined stored fields, keyed with the "extra_"
	// prefix, preserved verbatim across encode/decode.
	Extra map[string]any
}

// TypeLabel returns the relationship type used in the graph store: the
// relation label upper-cased.
func (e *Edge) TypeLabel() string {
	return strings.ToUpper(e.Relation.Label())
}
