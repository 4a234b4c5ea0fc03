// Package codec maps typed payloads to and from the flat key/value
// property sets stored on graph nodes and relationships.
//
// Encoding flattens the payload's declared fields into a single-level map
// and adds the record envelope: identifier, created_at, updated_at, and
// the variant discriminator ("etype" for assets and relations, "ttype"
// for properties). Decoding reads the discriminator first, projects only
// the fields declared by that variant's registry entry, and preserves any
// "extra_"-prefixed keys verbatim.
package codec

import (
	"strings"
	"time"

	"assetgraph/internal/domain"
)

// Envelope property keys shared with the store drivers.
const (
	KeyEntityID  = "entity_id"
	KeyEdgeID    = "edge_id"
	KeyTagID     = "tag_id"
	KeyCreatedAt = "created_at"
	KeyUpdatedAt = "updated_at"
	KeyEtype     = "etype"
	KeyTtype     = "ttype"

	// ExtraPrefix marks caller-defined fields that round-trip verbatim.
	ExtraPrefix = "extra_"
)

// Flatten recursively flattens nested maps into a single level. Later
// keys win on collision.
func Flatten(in map[string]any) map[string]any {
	flat := make(map[string]any, len(in))
	for k, v := range in {
		if nested, ok := v.(map[string]any); ok {
			for nk, nv := range Flatten(nested) {
				flat[nk] = nv
			}
			continue
		}
		flat[k] = v
	}
	return flat
}

// EncodeEntity produces the property map persisted on an entity node.
func EncodeEntity(e *domain.Entity) map[string]any {
	props := Flatten(e.Asset.Props())
	props[KeyEntityID] = e.ID
	props[KeyCreatedAt] = e.CreatedAt
	props[KeyUpdatedAt] = e.UpdatedAt
	props[KeyEtype] = string(e.Asset.AssetType())
	copyExtras(props, e.Extra)
	return props
}

// EncodeEdge produces the property map persisted on an edge relationship.
// The endpoints are structural (the relationship itself) and are not part
// of the property map.
func EncodeEdge(e *domain.Edge) map[string]any {
	props := Flatten(e.Relation.Props())
	props[KeyEdgeID] = e.ID
	props[KeyCreatedAt] = e.CreatedAt
	props[KeyUpdatedAt] = e.UpdatedAt
	props[KeyEtype] = string(e.Relation.RelationType())
	copyExtras(props, e.Extra)
	return props
}

// TagRecord is the kind-independent envelope of a stored tag node. The
// owner is referenced by identifier only; hydration is the repository's
// concern.
type TagRecord struct {
	ID        string
	OwnerID   string
	CreatedAt time.Time
	UpdatedAt time.Time
	Property  domain.Property
	Extra     map[string]any
}

// EncodeTag produces the property map persisted on a tag node. ownerKey
// is KeyEntityID for entity tags and KeyEdgeID for edge tags.
func EncodeTag(ownerKey string, rec TagRecord) map[string]any {
	props := Flatten(rec.Property.Props())
	props[KeyTagID] = rec.ID
	props[ownerKey] = rec.OwnerID
	props[KeyCreatedAt] = rec.CreatedAt
	props[KeyUpdatedAt] = rec.UpdatedAt
	props[KeyTtype] = string(rec.Property.PropertyType())
	copyExtras(props, rec.Extra)
	return props
}

func copyExtras(props, extra map[string]any) {
	for k, v := range extra {
		if strings.HasPrefix(k, ExtraPrefix) {
			props[k] = v
		}
	}
}

func collectExtras(props map[string]any) map[string]any {
	var extra map[string]any
	for k, v := range props {
		if strings.HasPrefix(k, ExtraPrefix) {
			if extra == nil {
				extra = make(map[string]any)
			}
			extra[k] = v
		}
	}
	return extra
}
