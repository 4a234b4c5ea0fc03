package repository

import (
	"context"
	"time"

	"assetgraph/internal/codec"
)

// Direction selects which adjacency of an entity to scan.
type Direction int

const (
	Outgoing Direction = iota
	Incoming
)

// TagKind selects which tag collection a driver operates on.
type TagKind int

const (
	EntityTagKind TagKind = iota
	EdgeTagKind
)

// Label returns the graph label of the tag kind.
func (k TagKind) Label() string {
	if k == EdgeTagKind {
		return "EdgeTag"
	}
	return "EntityTag"
}

// OwnerKey returns the property key naming the owning record.
func (k TagKind) OwnerKey() string {
	if k == EdgeTagKind {
		return codec.KeyEdgeID
	}
	return codec.KeyEntityID
}

// EdgeRecord is a stored relationship's property map plus its structural
// endpoints.
type EdgeRecord struct {
	Props  map[string]any
	FromID string
	ToID   string
}

// Store is the minimal surface a graph backend provides. Drivers exchange
// flat codec property maps; all reconciliation logic lives above this
// interface.
//
// Get* operations return ErrNotFound (wrapped) when the id is absent.
// Match* operations return empty slices when nothing matches. A zero
// since means unfiltered; otherwise only records with updated_at at or
// after since are returned. Filter maps are matched by property equality.
type Store interface {
	InsertEntity(ctx context.Context, id string, props map[string]any) error
	UpdateEntity(ctx context.Context, id string, props map[string]any) error
	GetEntity(ctx context.Context, id string) (map[string]any, error)
	MatchEntities(ctx context.Context, etype string, filter map[string]any, since time.Time) ([]map[string]any, error)
	// DeleteEntity cascades to the entity's edges and tags, and to the
	// tags of those edges.
	DeleteEntity(ctx context.Context, id string) error

	InsertEdge(ctx context.Context, id, fromID, toID, relType string, props map[string]any) error
	UpdateEdge(ctx context.Context, id string, props map[string]any) error
	GetEdge(ctx context.Context, id string) (*EdgeRecord, error)
	MatchEdges(ctx context.Context, entityID string, dir Direction, since time.Time) ([]EdgeRecord, error)
	// DeleteEdge cascades to the edge's tags.
	DeleteEdge(ctx context.Context, id string) error

	InsertTag(ctx context.Context, kind TagKind, id, ttype string, props map[string]any) error
	UpdateTag(ctx context.Context, kind TagKind, id string, props map[string]any) error
	GetTag(ctx context.Context, kind TagKind, id string) (map[string]any, error)
	MatchTagsByContent(ctx context.Context, kind TagKind, ttype string, filter map[string]any, since time.Time) ([]map[string]any, error)
	MatchTagsByOwner(ctx context.Context, kind TagKind, ownerID string, since time.Time) ([]map[string]any, error)
	DeleteTag(ctx context.Context, kind TagKind, id string) error

	Close() error
}
