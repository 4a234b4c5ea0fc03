package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"assetgraph/internal/codec"
	"assetgraph/internal/domain"
)

type tagOutcome int

const (
	tagInserted tagOutcome = iota
	tagUpdated
	tagUntouched
)

// upsertTag is the kind-independent tag reconciliation core. An explicit
// id is looked up directly (ErrNotFound if absent, ErrTypeMismatch if the
// stored tag holds a different property variant); otherwise a content
// search scoped to the owner locates the duplicate. Lookup errors
// propagate. Callers hold the repository mutex.
func (r *Repository) upsertTag(ctx context.Context, kind TagKind, ownerID string, tag codec.TagRecord) (codec.TagRecord, tagOutcome, *codec.TagRecord, error) {
	var old *codec.TagRecord

	if tag.ID != "" {
		props, err := r.store.GetTag(ctx, kind, tag.ID)
		if err != nil {
			return codec.TagRecord{}, 0, nil, err
		}
		stored, err := codec.DecodeTag(kind.OwnerKey(), props)
		if err != nil {
			return codec.TagRecord{}, 0, nil, err
		}
		if stored.Property.PropertyType() != tag.Property.PropertyType() {
			return codec.TagRecord{}, 0, nil, fmt.Errorf("tag %s: %w", tag.ID, ErrTypeMismatch)
		}
		old = &stored
	} else {
		filter := codec.Flatten(tag.Property.ContentKey())
		findings, err := r.store.MatchTagsByContent(ctx, kind, string(tag.Property.PropertyType()), filter, time.Time{})
		if err != nil {
			return codec.TagRecord{}, 0, nil, fmt.Errorf("tag duplicate lookup: %w", err)
		}
		for _, props := range findings {
			stored, err := codec.DecodeTag(kind.OwnerKey(), props)
			if err != nil {
				return codec.TagRecord{}, 0, nil, err
			}
			if stored.OwnerID == ownerID {
				old = &stored
				break
			}
		}
	}

	if old == nil {
		now := r.now()
		created := codec.TagRecord{
			ID:        uuid.NewString(),
			OwnerID:   ownerID,
			CreatedAt: now,
			UpdatedAt: now,
			Property:  tag.Property,
			Extra:     tag.Extra,
		}
		ttype := string(created.Property.PropertyType())
		if err := r.store.InsertTag(ctx, kind, created.ID, ttype, codec.EncodeTag(kind.OwnerKey(), created)); err != nil {
			return codec.TagRecord{}, 0, nil, fmt.Errorf("insert tag: %w", err)
		}
		return created, tagInserted, nil, nil
	}

	if tag.Property.FresherThan(old.Property) {
		updated := codec.TagRecord{
			ID:        old.ID,
			OwnerID:   old.OwnerID,
			CreatedAt: old.CreatedAt,
			UpdatedAt: r.now(),
			Property:  old.Property.OverrideWith(tag.Property),
			Extra:     old.Extra,
		}
		if err := r.store.UpdateTag(ctx, kind, updated.ID, codec.EncodeTag(kind.OwnerKey(), updated)); err != nil {
			return codec.TagRecord{}, 0, nil, fmt.Errorf("update tag %s: %w", updated.ID, err)
		}
		return updated, tagUpdated, old, nil
	}

	return *old, tagUntouched, nil, nil
}

// matchTags runs a tag search and decodes every hit.
func (r *Repository) matchTags(ctx context.Context, kind TagKind, findings []map[string]any, names []string) ([]codec.TagRecord, error) {
	records := make([]codec.TagRecord, 0, len(findings))
	for _, props := range findings {
		rec, err := codec.DecodeTag(kind.OwnerKey(), props)
		if err != nil {
			return nil, err
		}
		if len(names) > 0 && !containsName(names, rec.Property.Name()) {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// Property-name filters match case-sensitively, unlike edge labels.
func containsName(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Entity tags

// CreateEntityTag upserts a property tag on an entity, merging a
// content-equal stored tag by freshness.
func (r *Repository) CreateEntityTag(ctx context.Context, tag *domain.EntityTag) (*domain.EntityTag, error) {
	if tag == nil || tag.Property == nil || tag.Entity == nil || tag.Entity.ID == "" {
		return nil, fmt.Errorf("create entity tag: malformed tag")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, outcome, old, err := r.upsertTag(ctx, EntityTagKind, tag.Entity.ID,
		codec.TagRecord{ID: tag.ID, Property: tag.Property, Extra: tag.Extra})
	if err != nil {
		return nil, err
	}

	owner := tag.Entity
	if rec.OwnerID != owner.ID {
		if owner, err = r.FindEntityByID(ctx, rec.OwnerID); err != nil {
			return nil, fmt.Errorf("hydrate entity tag %s: %w", rec.ID, err)
		}
	}
	result := entityTagFromRecord(rec, owner)

	switch outcome {
	case tagInserted:
		r.emit(domain.Event{Type: domain.EventEntityTagInserted, EntityTag: result})
	case tagUpdated:
		r.emit(domain.Event{Type: domain.EventEntityTagUpdated, EntityTag: result, OldEntityTag: entityTagFromRecord(*old, owner)})
	case tagUntouched:
		r.emit(domain.Event{Type: domain.EventEntityTagUntouched, EntityTag: result})
	}
	return result, nil
}

// CreateEntityProperty attaches a property to an entity, constructing the
// tag record.
func (r *Repository) CreateEntityProperty(ctx context.Context, entity *domain.Entity, prop domain.Property) (*domain.EntityTag, error) {
	return r.CreateEntityTag(ctx, &domain.EntityTag{Entity: entity, Property: prop})
}

// FindEntityTagByID returns the entity tag with the given id, hydrated
// with its owning entity, or ErrNotFound.
func (r *Repository) FindEntityTagByID(ctx context.Context, id string) (*domain.EntityTag, error) {
	props, err := r.store.GetTag(ctx, EntityTagKind, id)
	if err != nil {
		return nil, err
	}
	rec, err := codec.DecodeTag(EntityTagKind.OwnerKey(), props)
	if err != nil {
		return nil, err
	}
	owner, err := r.FindEntityByID(ctx, rec.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("hydrate entity tag %s: %w", id, err)
	}
	return entityTagFromRecord(rec, owner), nil
}

// FindEntityTagsByContent returns all entity tags whose property identity
// fields match the given property, anywhere in storage. Returns an empty
// slice when nothing matches.
func (r *Repository) FindEntityTagsByContent(ctx context.Context, prop domain.Property, since time.Time) ([]*domain.EntityTag, error) {
	if prop == nil {
		return nil, fmt.Errorf("find entity tags by content: missing property")
	}
	findings, err := r.store.MatchTagsByContent(ctx, EntityTagKind, string(prop.PropertyType()), codec.Flatten(prop.ContentKey()), since)
	if err != nil {
		return nil, fmt.Errorf("entity tag content lookup: %w", err)
	}
	records, err := r.matchTags(ctx, EntityTagKind, findings, nil)
	if err != nil {
		return nil, err
	}
	tags := make([]*domain.EntityTag, 0, len(records))
	for _, rec := range records {
		owner, err := r.FindEntityByID(ctx, rec.OwnerID)
		if err != nil {
			return nil, fmt.Errorf("hydrate entity tag %s: %w", rec.ID, err)
		}
		tags = append(tags, entityTagFromRecord(rec, owner))
	}
	return tags, nil
}

// FindEntityTags returns the tags attached to an entity, optionally
// filtered by property name (case-sensitive exact match). Returns an
// empty slice when nothing matches.
func (r *Repository) FindEntityTags(ctx context.Context, entity *domain.Entity, since time.Time, names ...string) ([]*domain.EntityTag, error) {
	if entity == nil || entity.ID == "" {
		return nil, fmt.Errorf("find entity tags: missing entity")
	}
	findings, err := r.store.MatchTagsByOwner(ctx, EntityTagKind, entity.ID, since)
	if err != nil {
		return nil, fmt.Errorf("entity tag lookup: %w", err)
	}
	records, err := r.matchTags(ctx, EntityTagKind, findings, names)
	if err != nil {
		return nil, err
	}
	tags := make([]*domain.EntityTag, 0, len(records))
	for _, rec := range records {
		tags = append(tags, entityTagFromRecord(rec, entity))
	}
	return tags, nil
}

// DeleteEntityTag removes the tag, returning the pre-deletion record and
// emitting EventEntityTagDeleted.
func (r *Repository) DeleteEntityTag(ctx context.Context, id string) (*domain.EntityTag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tag, err := r.FindEntityTagByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.store.DeleteTag(ctx, EntityTagKind, id); err != nil {
		return nil, fmt.Errorf("delete entity tag %s: %w", id, err)
	}
	r.emit(domain.Event{Type: domain.EventEntityTagDeleted, OldEntityTag: tag})
	return tag, nil
}

func entityTagFromRecord(rec codec.TagRecord, owner *domain.Entity) *domain.EntityTag {
	return &domain.EntityTag{
		ID:        rec.ID,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
		Property:  rec.Property,
		Entity:    owner,
		Extra:     rec.Extra,
	}
}

// ---------------------------------------------------------------------------
// Edge tags

// CreateEdgeTag upserts a property tag on an edge, merging a
// content-equal stored tag by freshness.
func (r *Repository) CreateEdgeTag(ctx context.Context, tag *domain.EdgeTag) (*domain.EdgeTag, error) {
	if tag == nil || tag.Property == nil || tag.Edge == nil || tag.Edge.ID == "" {
		return nil, fmt.Errorf("create edge tag: malformed tag")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, outcome, old, err := r.upsertTag(ctx, EdgeTagKind, tag.Edge.ID,
		codec.TagRecord{ID: tag.ID, Property: tag.Property, Extra: tag.Extra})
	if err != nil {
		return nil, err
	}

	owner := tag.Edge
	if rec.OwnerID != owner.ID {
		if owner, err = r.FindEdgeByID(ctx, rec.OwnerID); err != nil {
			return nil, fmt.Errorf("hydrate edge tag %s: %w", rec.ID, err)
		}
	}
	result := edgeTagFromRecord(rec, owner)

	switch outcome {
	case tagInserted:
		r.emit(domain.Event{Type: domain.EventEdgeTagInserted, EdgeTag: result})
	case tagUpdated:
		r.emit(domain.Event{Type: domain.EventEdgeTagUpdated, EdgeTag: result, OldEdgeTag: edgeTagFromRecord(*old, owner)})
	case tagUntouched:
		r.emit(domain.Event{Type: domain.EventEdgeTagUntouched, EdgeTag: result})
	}
	return result, nil
}

// CreateEdgeProperty attaches a property to an edge, constructing the tag
// record.
func (r *Repository) CreateEdgeProperty(ctx context.Context, edge *domain.Edge, prop domain.Property) (*domain.EdgeTag, error) {
	return r.CreateEdgeTag(ctx, &domain.EdgeTag{Edge: edge, Property: prop})
}

// FindEdgeTagByID returns the edge tag with the given id, hydrated with
// its owning edge, or ErrNotFound.
func (r *Repository) FindEdgeTagByID(ctx context.Context, id string) (*domain.EdgeTag, error) {
	props, err := r.store.GetTag(ctx, EdgeTagKind, id)
	if err != nil {
		return nil, err
	}
	rec, err := codec.DecodeTag(EdgeTagKind.OwnerKey(), props)
	if err != nil {
		return nil, err
	}
	owner, err := r.FindEdgeByID(ctx, rec.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("hydrate edge tag %s: %w", id, err)
	}
	return edgeTagFromRecord(rec, owner), nil
}

// FindEdgeTagsByContent returns all edge tags whose property identity
// fields match the given property. Returns an empty slice when nothing
// matches.
func (r *Repository) FindEdgeTagsByContent(ctx context.Context, prop domain.Property, since time.Time) ([]*domain.EdgeTag, error) {
	if prop == nil {
		return nil, fmt.Errorf("find edge tags by content: missing property")
	}
	findings, err := r.store.MatchTagsByContent(ctx, EdgeTagKind, string(prop.PropertyType()), codec.Flatten(prop.ContentKey()), since)
	if err != nil {
		return nil, fmt.Errorf("edge tag content lookup: %w", err)
	}
	records, err := r.matchTags(ctx, EdgeTagKind, findings, nil)
	if err != nil {
		return nil, err
	}
	tags := make([]*domain.EdgeTag, 0, len(records))
	for _, rec := range records {
		owner, err := r.FindEdgeByID(ctx, rec.OwnerID)
		if err != nil {
			return nil, fmt.Errorf("hydrate edge tag %s: %w", rec.ID, err)
		}
		tags = append(tags, edgeTagFromRecord(rec, owner))
	}
	return tags, nil
}

// FindEdgeTags returns the tags attached to an edge, optionally filtered
// by property name (case-sensitive exact match). Returns an empty slice
// when nothing matches.
func (r *Repository) FindEdgeTags(ctx context.Context, edge *domain.Edge, since time.Time, names ...string) ([]*domain.EdgeTag, error) {
	if edge == nil || edge.ID == "" {
		return nil, fmt.Errorf("find edge tags: missing edge")
	}
	findings, err := r.store.MatchTagsByOwner(ctx, EdgeTagKind, edge.ID, since)
	if err != nil {
		return nil, fmt.Errorf("edge tag lookup: %w", err)
	}
	records, err := r.matchTags(ctx, EdgeTagKind, findings, names)
	if err != nil {
		return nil, err
	}
	tags := make([]*domain.EdgeTag, 0, len(records))
	for _, rec := range records {
		tags = append(tags, edgeTagFromRecord(rec, edge))
	}
	return tags, nil
}

// DeleteEdgeTag removes the tag, returning the pre-deletion record and
// emitting EventEdgeTagDeleted.
func (r *Repository) DeleteEdgeTag(ctx context.Context, id string) (*domain.EdgeTag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tag, err := r.FindEdgeTagByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.store.DeleteTag(ctx, EdgeTagKind, id); err != nil {
		return nil, fmt.Errorf("delete edge tag %s: %w", id, err)
	}
	r.emit(domain.Event{Type: domain.EventEdgeTagDeleted, OldEdgeTag: tag})
	return tag, nil
}

func edgeTagFromRecord(rec codec.TagRecord, owner *domain.Edge) *domain.EdgeTag {
	return &domain.EdgeTag{
		ID:        rec.ID,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
		Property:  rec.Property,
		Edge:      owner,
		Extra:     rec.Extra,
	}
}
