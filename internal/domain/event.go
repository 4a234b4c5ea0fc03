package domain

// EventType identifies the outcome of a mutation attempt.
type EventType string

const (
	EventEntityInserted  EventType = "entity_inserted"
	EventEntityUpdated   EventType = "entity_updated"
	EventEntityUntouched EventType = "entity_untouched"
	EventEntityDeleted   EventType = "entity_deleted"

	EventEdgeInserted  EventType = "edge_inserted"
	EventEdgeUpdated   EventType = "edge_updated"
	EventEdgeUntouched EventType = "edge_untouched"
	EventEdgeDeleted   EventType = "edge_deleted"

	EventEntityTagInserted  EventType = "entity_tag_inserted"
	EventEntityTagUpdated   EventType = "entity_tag_updated"
	EventEntityTagUntouched EventType = "entity_tag_untouched"
	EventEntityTagDeleted   EventType = "entity_tag_deleted"

	EventEdgeTagInserted  EventType = "edge_tag_inserted"
	EventEdgeTagUpdated   EventType = "edge_tag_updated"
	EventEdgeTagUntouched EventType = "edge_tag_untouched"
	EventEdgeTagDeleted   EventType = "edge_tag_deleted"
)

// Event describes a single mutation outcome. The field matching the event
// type carries the resulting record; the Old* counterpart is set for
// updates (the prior record) and deletes (the removed record).
type Event struct {
	Type EventType

	Entity    *Entity
	OldEntity *Entity

	Edge    *Edge
	OldEdge *Edge

	EntityTag    *EntityTag
	OldEntityTag *EntityTag

	EdgeTag    *EdgeTag
	OldEdgeTag *EdgeTag
}
