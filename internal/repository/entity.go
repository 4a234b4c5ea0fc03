package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"assetgraph/internal/codec"
	"assetgraph/internal/domain"
)

// CreateAsset stores an asset as an entity, deduplicating by content.
// First submission inserts and emits EventEntityInserted; resubmitting
// equal content bumps updated_at only and emits EventEntityUntouched. The
// stored id and created_at never change on resubmission.
func (r *Repository) CreateAsset(ctx context.Context, asset domain.Asset) (*domain.Entity, error) {
	if asset == nil {
		return nil, fmt.Errorf("create asset: missing asset")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.upsertAsset(ctx, asset)
}

// upsertAsset runs the content-addressed entity upsert. Callers hold the
// repository mutex.
func (r *Repository) upsertAsset(ctx context.Context, asset domain.Asset) (*domain.Entity, error) {
	matches, err := r.store.MatchEntities(ctx, string(asset.AssetType()), codec.Flatten(asset.Props()), time.Time{})
	if err != nil {
		return nil, fmt.Errorf("entity content lookup: %w", err)
	}

	if len(matches) > 0 {
		existing, err := codec.DecodeEntity(matches[0])
		if err != nil {
			return nil, err
		}
		existing.UpdatedAt = r.now()
		if err := r.store.UpdateEntity(ctx, existing.ID, codec.EncodeEntity(existing)); err != nil {
			return nil, fmt.Errorf("bump entity %s: %w", existing.ID, err)
		}
		r.emit(domain.Event{Type: domain.EventEntityUntouched, Entity: existing})
		return existing, nil
	}

	now := r.now()
	entity := &domain.Entity{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
		Asset:     asset,
	}
	if err := r.store.InsertEntity(ctx, entity.ID, codec.EncodeEntity(entity)); err != nil {
		return nil, fmt.Errorf("insert entity: %w", err)
	}
	r.log.Debug("entity inserted",
		zap.String("id", entity.ID),
		zap.String("etype", string(asset.AssetType())),
		zap.String("key", asset.Key()))
	r.emit(domain.Event{Type: domain.EventEntityInserted, Entity: entity})
	return entity, nil
}

// CreateEntity stores an entity record. Without an explicit id it behaves
// like CreateAsset. With one it bypasses content lookup and writes
// directly: an absent id inserts, a present id overwrites the asset while
// preserving the stored created_at, emitting EventEntityUpdated.
func (r *Repository) CreateEntity(ctx context.Context, entity *domain.Entity) (*domain.Entity, error) {
	if entity == nil || entity.Asset == nil {
		return nil, fmt.Errorf("create entity: missing asset")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if entity.ID == "" {
		return r.upsertAsset(ctx, entity.Asset)
	}

	now := r.now()
	stored, err := r.store.GetEntity(ctx, entity.ID)
	if errors.Is(err, ErrNotFound) {
		created := &domain.Entity{
			ID:        entity.ID,
			CreatedAt: now,
			UpdatedAt: now,
			Asset:     entity.Asset,
			Extra:     entity.Extra,
		}
		if err := r.store.InsertEntity(ctx, created.ID, codec.EncodeEntity(created)); err != nil {
			return nil, fmt.Errorf("insert entity: %w", err)
		}
		r.emit(domain.Event{Type: domain.EventEntityInserted, Entity: created})
		return created, nil
	}
	if err != nil {
		return nil, fmt.Errorf("entity lookup: %w", err)
	}

	old, err := codec.DecodeEntity(stored)
	if err != nil {
		return nil, err
	}
	updated := &domain.Entity{
		ID:        old.ID,
		CreatedAt: old.CreatedAt,
		UpdatedAt: now,
		Asset:     entity.Asset,
		Extra:     entity.Extra,
	}
	if err := r.store.UpdateEntity(ctx, updated.ID, codec.EncodeEntity(updated)); err != nil {
		return nil, fmt.Errorf("update entity %s: %w", updated.ID, err)
	}
	r.emit(domain.Event{Type: domain.EventEntityUpdated, Entity: updated, OldEntity: old})
	return updated, nil
}

// FindEntityByID returns the entity with the given id, or ErrNotFound.
func (r *Repository) FindEntityByID(ctx context.Context, id string) (*domain.Entity, error) {
	props, err := r.store.GetEntity(ctx, id)
	if err != nil {
		return nil, err
	}
	return codec.DecodeEntity(props)
}

// FindEntitiesByContent returns all entities whose asset content matches
// the given asset exactly. A zero since means unfiltered. Returns an
// empty slice when nothing matches.
func (r *Repository) FindEntitiesByContent(ctx context.Context, asset domain.Asset, since time.Time) ([]*domain.Entity, error) {
	if asset == nil {
		return nil, fmt.Errorf("find entities by content: missing asset")
	}
	matches, err := r.store.MatchEntities(ctx, string(asset.AssetType()), codec.Flatten(asset.Props()), since)
	if err != nil {
		return nil, fmt.Errorf("entity content lookup: %w", err)
	}
	return decodeEntities(matches)
}

// FindEntitiesByType returns all entities of the given asset type. A zero
// since means unfiltered. Returns an empty slice when nothing matches.
func (r *Repository) FindEntitiesByType(ctx context.Context, atype domain.AssetType, since time.Time) ([]*domain.Entity, error) {
	matches, err := r.store.MatchEntities(ctx, string(atype), nil, since)
	if err != nil {
		return nil, fmt.Errorf("entity type lookup: %w", err)
	}
	return decodeEntities(matches)
}

func decodeEntities(matches []map[string]any) ([]*domain.Entity, error) {
	entities := make([]*domain.Entity, 0, len(matches))
	for _, props := range matches {
		entity, err := codec.DecodeEntity(props)
		if err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}
	return entities, nil
}

// DeleteEntity removes the entity and, at the store level, its edges and
// tags. It returns the pre-deletion record and emits EventEntityDeleted.
func (r *Repository) DeleteEntity(ctx context.Context, id string) (*domain.Entity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entity, err := r.FindEntityByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.store.DeleteEntity(ctx, id); err != nil {
		return nil, fmt.Errorf("delete entity %s: %w", id, err)
	}
	r.emit(domain.Event{Type: domain.EventEntityDeleted, OldEntity: entity})
	return entity, nil
}
