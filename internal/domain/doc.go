// Package domain defines the typed payload model for the asset graph:
// polymorphic assets, relations, and properties, the stored records that
// wrap them (entities, edges, tags), the relationship taxonomy, and the
// events emitted for every mutation attempt.
//
// Payload variants are a closed set. Each variant declares its flat
// field-to-value projection through Props, which the codec uses
// symmetrically for encode and decode. Content equality covers identity
// fields only; volatile fields (TTLs, preferences, confidence scores)
// belong to the freshness model expressed by FresherThan and OverrideWith.
package domain
