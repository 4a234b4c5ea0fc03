package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"assetgraph/internal/codec"
	"assetgraph/internal/domain"
)

// CreateRelation stores a relation between two entities as an edge,
// deduplicating against existing edges of the same (from, to) pair.
func (r *Repository) CreateRelation(ctx context.Context, relation domain.Relation, from, to *domain.Entity) (*domain.Edge, error) {
	return r.CreateEdge(ctx, &domain.Edge{Relation: relation, FromEntity: from, ToEntity: to})
}

// CreateEdge upserts an edge. The taxonomy gate runs first and rejects an
// illegal triple with ErrTaxonomyViolation before any write. An existing
// content-equal edge between the same endpoints is merged by freshness:
// fresher incoming data overrides the stored relation's volatile fields
// (EventEdgeUpdated), stale data leaves the store untouched
// (EventEdgeUntouched). An edge with an explicit id must already exist.
func (r *Repository) CreateEdge(ctx context.Context, edge *domain.Edge) (*domain.Edge, error) {
	if edge == nil || edge.Relation == nil || edge.FromEntity == nil || edge.ToEntity == nil {
		return nil, fmt.Errorf("create edge: failed input validation check")
	}
	if edge.FromEntity.ID == "" || edge.ToEntity.ID == "" {
		return nil, fmt.Errorf("create edge: endpoints must be stored entities")
	}

	if r.enforce {
		if edge.FromEntity.Asset == nil || edge.ToEntity.Asset == nil {
			return nil, fmt.Errorf("create edge: endpoints must carry assets for taxonomy validation")
		}
		from := edge.FromEntity.Asset.AssetType()
		to := edge.ToEntity.Asset.AssetType()
		if !r.validate(from, edge.Relation.Label(), edge.Relation.RelationType(), to) {
			return nil, fmt.Errorf("%s -%s-> %s: %w", from, edge.Relation.Label(), to, ErrTaxonomyViolation)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	old, err := r.findExistingEdge(ctx, edge)
	if err != nil {
		return nil, err
	}

	if old == nil {
		now := r.now()
		created := &domain.Edge{
			ID:         uuid.NewString(),
			CreatedAt:  now,
			UpdatedAt:  now,
			Relation:   edge.Relation,
			FromEntity: edge.FromEntity,
			ToEntity:   edge.ToEntity,
			Extra:      edge.Extra,
		}
		err := r.store.InsertEdge(ctx, created.ID, created.FromEntity.ID, created.ToEntity.ID,
			created.TypeLabel(), codec.EncodeEdge(created))
		if err != nil {
			return nil, fmt.Errorf("insert edge: %w", err)
		}
		r.log.Debug("edge inserted",
			zap.String("id", created.ID),
			zap.String("label", created.Relation.Label()),
			zap.String("from", created.FromEntity.ID),
			zap.String("to", created.ToEntity.ID))
		r.emit(domain.Event{Type: domain.EventEdgeInserted, Edge: created})
		return created, nil
	}

	if edge.Relation.FresherThan(old.Relation) {
		updated := &domain.Edge{
			ID:         old.ID,
			CreatedAt:  old.CreatedAt,
			UpdatedAt:  r.now(),
			Relation:   old.Relation.OverrideWith(edge.Relation),
			FromEntity: old.FromEntity,
			ToEntity:   old.ToEntity,
			Extra:      old.Extra,
		}
		if err := r.store.UpdateEdge(ctx, updated.ID, codec.EncodeEdge(updated)); err != nil {
			return nil, fmt.Errorf("update edge %s: %w", updated.ID, err)
		}
		r.emit(domain.Event{Type: domain.EventEdgeUpdated, Edge: updated, OldEdge: old})
		return updated, nil
	}

	r.emit(domain.Event{Type: domain.EventEdgeUntouched, Edge: old})
	return old, nil
}

// findExistingEdge resolves the stored edge an upsert should reconcile
// against. An explicit id is looked up directly and must exist. Otherwise
// the from-entity's outgoing adjacency is scanned for a content-equal
// relation to the same destination. Lookup errors propagate; they are
// never treated as "no duplicate".
func (r *Repository) findExistingEdge(ctx context.Context, edge *domain.Edge) (*domain.Edge, error) {
	if edge.ID != "" {
		return r.FindEdgeByID(ctx, edge.ID)
	}

	outs, err := r.OutgoingEdges(ctx, edge.FromEntity, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("edge duplicate lookup: %w", err)
	}
	for _, out := range outs {
		if out.ToEntity.ID == edge.ToEntity.ID && edge.Relation.Equals(out.Relation) {
			return out, nil
		}
	}
	return nil, nil
}

// IncomingEdges returns the edges pointing at the entity, hydrated with
// both endpoints. A zero since means unfiltered; labels, when given,
// filter case-insensitively. Returns an empty slice when nothing matches.
func (r *Repository) IncomingEdges(ctx context.Context, entity *domain.Entity, since time.Time, labels ...string) ([]*domain.Edge, error) {
	return r.adjacentEdges(ctx, entity, Incoming, since, labels)
}

// OutgoingEdges returns the edges leaving the entity. Same filter
// semantics as IncomingEdges.
func (r *Repository) OutgoingEdges(ctx context.Context, entity *domain.Entity, since time.Time, labels ...string) ([]*domain.Edge, error) {
	return r.adjacentEdges(ctx, entity, Outgoing, since, labels)
}

func (r *Repository) adjacentEdges(ctx context.Context, entity *domain.Entity, dir Direction, since time.Time, labels []string) ([]*domain.Edge, error) {
	if entity == nil || entity.ID == "" {
		return nil, fmt.Errorf("edge lookup: missing entity")
	}
	records, err := r.store.MatchEdges(ctx, entity.ID, dir, since)
	if err != nil {
		return nil, fmt.Errorf("edge lookup: %w", err)
	}

	edges := make([]*domain.Edge, 0, len(records))
	for _, rec := range records {
		edge, err := codec.DecodeEdge(rec.Props)
		if err != nil {
			return nil, err
		}
		if len(labels) > 0 && !matchesLabel(labels, edge.Relation.Label()) {
			continue
		}
		if dir == Outgoing {
			to, err := r.FindEntityByID(ctx, rec.ToID)
			if err != nil {
				return nil, fmt.Errorf("hydrate edge %s: %w", edge.ID, err)
			}
			edge.FromEntity, edge.ToEntity = entity, to
		} else {
			from, err := r.FindEntityByID(ctx, rec.FromID)
			if err != nil {
				return nil, fmt.Errorf("hydrate edge %s: %w", edge.ID, err)
			}
			edge.FromEntity, edge.ToEntity = from, entity
		}
		edges = append(edges, edge)
	}
	return edges, nil
}

func matchesLabel(labels []string, label string) bool {
	for _, l := range labels {
		if strings.EqualFold(l, label) {
			return true
		}
	}
	return false
}

// FindEdgeByID returns the edge with the given id, hydrated with both
// endpoint entities, or ErrNotFound.
func (r *Repository) FindEdgeByID(ctx context.Context, id string) (*domain.Edge, error) {
	rec, err := r.store.GetEdge(ctx, id)
	if err != nil {
		return nil, err
	}
	edge, err := codec.DecodeEdge(rec.Props)
	if err != nil {
		return nil, err
	}
	from, err := r.FindEntityByID(ctx, rec.FromID)
	if err != nil {
		return nil, fmt.Errorf("hydrate edge %s: %w", id, err)
	}
	to, err := r.FindEntityByID(ctx, rec.ToID)
	if err != nil {
		return nil, fmt.Errorf("hydrate edge %s: %w", id, err)
	}
	edge.FromEntity, edge.ToEntity = from, to
	return edge, nil
}

// DeleteEdge removes the edge and, at the store level, its tags. It
// returns the pre-deletion record and emits EventEdgeDeleted.
func (r *Repository) DeleteEdge(ctx context.Context, id string) (*domain.Edge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	edge, err := r.FindEdgeByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.store.DeleteEdge(ctx, id); err != nil {
		return nil, fmt.Errorf("delete edge %s: %w", id, err)
	}
	r.emit(domain.Event{Type: domain.EventEdgeDeleted, OldEdge: edge})
	return edge, nil
}
