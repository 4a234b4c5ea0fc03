// Package loader imports YAML seed files into an asset graph. A seed
// declares keyed assets, relations referencing assets by key, and
// property tags attached to either; all records run through the normal
// repository upserts so imports are idempotent.
package loader

import (
	"context"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"assetgraph/internal/codec"
	"assetgraph/internal/domain"
	"assetgraph/internal/repository"
)

// SeedYAML represents the YAML file structure. Asset entries carry the
// etype discriminator plus the asset's flat fields; relation and tag
// entries carry etype/ttype plus their flat fields the same way.
type SeedYAML struct {
	Version   string                    `yaml:"version,omitempty"`
	Assets    map[string]map[string]any `yaml:"assets"`
	Relations []RelationYAML            `yaml:"relations,omitempty"`
	Tags      []TagYAML                 `yaml:"tags,omitempty"`
}

// RelationYAML represents one relation between two declared assets. Key
// is optional and lets tags reference the resulting edge.
type RelationYAML struct {
	Key   string         `yaml:"key,omitempty"`
	From  string         `yaml:"from"`
	To    string         `yaml:"to"`
	Props map[string]any `yaml:"props"`
}

// TagYAML represents one property tag. Exactly one of Asset or Relation
// names the owner.
type TagYAML struct {
	Asset    string         `yaml:"asset,omitempty"`
	Relation string         `yaml:"relation,omitempty"`
	Props    map[string]any `yaml:"props"`
}

// Summary reports what an import touched.
type Summary struct {
	Assets    int
	Relations int
	Tags      int
}

// Load reads and applies a seed file.
func Load(ctx context.Context, repo *repository.Repository, path string) (*Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	seed, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return Apply(ctx, repo, seed)
}

// Parse parses a seed from YAML bytes.
func Parse(data []byte) (*SeedYAML, error) {
	var seed SeedYAML
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	return &seed, nil
}

// Apply upserts every record in the seed, assets first so relations and
// tags can resolve their references. Asset keys are processed in sorted
// order; relations and tags keep file order.
func Apply(ctx context.Context, repo *repository.Repository, seed *SeedYAML) (*Summary, error) {
	summary := &Summary{}
	entities := make(map[string]*domain.Entity, len(seed.Assets))
	edges := make(map[string]*domain.Edge)

	keys := make([]string, 0, len(seed.Assets))
	for key := range seed.Assets {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		props := seed.Assets[key]
		etype, ok := props[codec.KeyEtype].(string)
		if !ok {
			return nil, fmt.Errorf("asset %q: missing %s", key, codec.KeyEtype)
		}
		asset, err := codec.DecodeAsset(domain.AssetType(etype), props)
		if err != nil {
			return nil, fmt.Errorf("asset %q: %w", key, err)
		}
		entity, err := repo.CreateAsset(ctx, asset)
		if err != nil {
			return nil, fmt.Errorf("asset %q: %w", key, err)
		}
		entities[key] = entity
		summary.Assets++
	}

	for i, rel := range seed.Relations {
		from, ok := entities[rel.From]
		if !ok {
			return nil, fmt.Errorf("relation %d: unknown asset %q", i, rel.From)
		}
		to, ok := entities[rel.To]
		if !ok {
			return nil, fmt.Errorf("relation %d: unknown asset %q", i, rel.To)
		}
		etype, ok := rel.Props[codec.KeyEtype].(string)
		if !ok {
			return nil, fmt.Errorf("relation %d: missing %s", i, codec.KeyEtype)
		}
		relation, err := codec.DecodeRelation(domain.RelationType(etype), rel.Props)
		if err != nil {
			return nil, fmt.Errorf("relation %d: %w", i, err)
		}
		edge, err := repo.CreateRelation(ctx, relation, from, to)
		if err != nil {
			return nil, fmt.Errorf("relation %d: %w", i, err)
		}
		if rel.Key != "" {
			edges[rel.Key] = edge
		}
		summary.Relations++
	}

	for i, tag := range seed.Tags {
		ttype, ok := tag.Props[codec.KeyTtype].(string)
		if !ok {
			return nil, fmt.Errorf("tag %d: missing %s", i, codec.KeyTtype)
		}
		prop, err := codec.DecodeProperty(domain.PropertyType(ttype), tag.Props)
		if err != nil {
			return nil, fmt.Errorf("tag %d: %w", i, err)
		}
		switch {
		case tag.Asset != "" && tag.Relation == "":
			entity, ok := entities[tag.Asset]
			if !ok {
				return nil, fmt.Errorf("tag %d: unknown asset %q", i, tag.Asset)
			}
			if _, err := repo.CreateEntityProperty(ctx, entity, prop); err != nil {
				return nil, fmt.Errorf("tag %d: %w", i, err)
			}
		case tag.Relation != "" && tag.Asset == "":
			edge, ok := edges[tag.Relation]
			if !ok {
				return nil, fmt.Errorf("tag %d: unknown relation %q", i, tag.Relation)
			}
			if _, err := repo.CreateEdgeProperty(ctx, edge, prop); err != nil {
				return nil, fmt.Errorf("tag %d: %w", i, err)
			}
		default:
			return nil, fmt.Errorf("tag %d: needs exactly one of asset or relation", i)
		}
		summary.Tags++
	}

	return summary, nil
}
