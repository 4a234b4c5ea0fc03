// Package neo4j implements the repository.Store interface on a Neo4j
// database. Entities are nodes labeled Entity, relations are typed
// relationships between them, and tags are EntityTag/EdgeTag nodes that
// reference their owner by id property.
package neo4j

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"assetgraph/internal/codec"
	"assetgraph/internal/repository"
)

// Config holds the connection settings for a Neo4j store.
type Config struct {
	URI      string
	Username string
	Password string
	Database string
}

// Store is a Neo4j-backed repository.Store.
type Store struct {
	driver neo4j.DriverWithContext
	dbname string
	log    *zap.Logger
}

// Connect opens a driver against the configured server and verifies
// connectivity before returning.
func Connect(ctx context.Context, cfg Config, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("verify connectivity: %w: %v", repository.ErrStoreUnavailable, err)
	}
	log.Info("connected to neo4j", zap.String("uri", cfg.URI), zap.String("database", cfg.Database))
	return &Store{driver: driver, dbname: cfg.Database, log: log}, nil
}

// Close shuts down the driver and its connection pool.
func (s *Store) Close() error {
	return s.driver.Close(context.Background())
}

func (s *Store) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode, DatabaseName: s.dbname})
}

// InsertEntity creates an Entity node carrying the property map.
func (s *Store) InsertEntity(ctx context.Context, id string, props map[string]any) error {
	return s.write(ctx, `CREATE (n:Entity) SET n = $props`, map[string]any{"props": props})
}

// UpdateEntity replaces the property map of an Entity node.
func (s *Store) UpdateEntity(ctx context.Context, id string, props map[string]any) error {
	return s.writeExisting(ctx,
		`MATCH (n:Entity {entity_id: $id}) SET n = $props RETURN count(n) AS c`,
		map[string]any{"id": id, "props": props}, id)
}

// GetEntity returns the property map of an Entity node by id.
func (s *Store) GetEntity(ctx context.Context, id string) (map[string]any, error) {
	return s.getProps(ctx,
		`MATCH (n:Entity {entity_id: $id}) RETURN properties(n) AS props`,
		map[string]any{"id": id}, id)
}

// MatchEntities returns entities of the given type whose properties match
// the filter exactly.
func (s *Store) MatchEntities(ctx context.Context, etype string, filter map[string]any, since time.Time) ([]map[string]any, error) {
	query := `MATCH (n:Entity) WHERE n.etype = $etype`
	params := map[string]any{"etype": etype}
	clause, err := filterClause("n", filter, params)
	if err != nil {
		return nil, err
	}
	query += clause
	if !since.IsZero() {
		query += ` AND n.updated_at >= $since`
		params["since"] = since.UTC()
	}
	query += ` RETURN properties(n) AS props`
	return s.queryProps(ctx, query, params)
}

// DeleteEntity removes the entity node together with its relationships,
// its tags, and the tags of those relationships.
func (s *Store) DeleteEntity(ctx context.Context, id string) error {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	cascades := []string{
		`MATCH (:Entity {entity_id: $id})-[r]-() MATCH (t:EdgeTag) WHERE t.edge_id = r.edge_id DETACH DELETE t`,
		`MATCH (t:EntityTag {entity_id: $id}) DETACH DELETE t`,
	}
	for _, q := range cascades {
		if _, err := session.Run(ctx, q, map[string]any{"id": id}); err != nil {
			return runErr(err)
		}
	}

	result, err := session.Run(ctx, `MATCH (n:Entity {entity_id: $id}) DETACH DELETE n`, map[string]any{"id": id})
	if err != nil {
		return runErr(err)
	}
	summary, err := result.Consume(ctx)
	if err != nil {
		return runErr(err)
	}
	if summary.Counters().NodesDeleted() == 0 {
		return fmt.Errorf("entity %s: %w", id, repository.ErrNotFound)
	}
	return nil
}

// InsertEdge creates a typed relationship between two stored entities.
// The relationship type is interpolated and must be a plain identifier.
func (s *Store) InsertEdge(ctx context.Context, id, fromID, toID, relType string, props map[string]any) error {
	if !validIdentifier(relType) {
		return fmt.Errorf("relationship type %q: invalid identifier", relType)
	}
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	query := `MATCH (a:Entity {entity_id: $from}), (b:Entity {entity_id: $to})
		CREATE (a)-[r:` + relType + `]->(b) SET r = $props`
	result, err := session.Run(ctx, query, map[string]any{"from": fromID, "to": toID, "props": props})
	if err != nil {
		return runErr(err)
	}
	summary, err := result.Consume(ctx)
	if err != nil {
		return runErr(err)
	}
	if summary.Counters().RelationshipsCreated() == 0 {
		return fmt.Errorf("edge %s: endpoints %s, %s: %w", id, fromID, toID, repository.ErrNotFound)
	}
	return nil
}

// UpdateEdge replaces the property map of a relationship. Endpoints and
// type are immutable.
func (s *Store) UpdateEdge(ctx context.Context, id string, props map[string]any) error {
	return s.writeExisting(ctx,
		`MATCH ()-[r]->() WHERE r.edge_id = $id SET r = $props RETURN count(r) AS c`,
		map[string]any{"id": id, "props": props}, id)
}

// GetEdge returns the relationship's property map and endpoint ids.
func (s *Store) GetEdge(ctx context.Context, id string) (*repository.EdgeRecord, error) {
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	query := `MATCH (a:Entity)-[r]->(b:Entity) WHERE r.edge_id = $id
		RETURN properties(r) AS props, a.entity_id AS from_id, b.entity_id AS to_id`
	result, err := session.Run(ctx, query, map[string]any{"id": id})
	if err != nil {
		return nil, runErr(err)
	}
	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return nil, runErr(err)
		}
		return nil, fmt.Errorf("edge %s: %w", id, repository.ErrNotFound)
	}
	return recordToEdge(result.Record())
}

// MatchEdges returns the relationships adjacent to an entity in the given
// direction.
func (s *Store) MatchEdges(ctx context.Context, entityID string, dir repository.Direction, since time.Time) ([]repository.EdgeRecord, error) {
	pattern := `(a:Entity {entity_id: $id})-[r]->(b:Entity)`
	if dir == repository.Incoming {
		pattern = `(a:Entity)-[r]->(b:Entity {entity_id: $id})`
	}
	query := `MATCH ` + pattern
	params := map[string]any{"id": entityID}
	if !since.IsZero() {
		query += ` WHERE r.updated_at >= $since`
		params["since"] = since.UTC()
	}
	query += ` RETURN properties(r) AS props, a.entity_id AS from_id, b.entity_id AS to_id`

	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	result, err := session.Run(ctx, query, params)
	if err != nil {
		return nil, runErr(err)
	}
	var records []repository.EdgeRecord
	for result.Next(ctx) {
		rec, err := recordToEdge(result.Record())
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	if err := result.Err(); err != nil {
		return nil, runErr(err)
	}
	return records, nil
}

// DeleteEdge removes the relationship and its tag nodes.
func (s *Store) DeleteEdge(ctx context.Context, id string) error {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	if _, err := session.Run(ctx, `MATCH (t:EdgeTag {edge_id: $id}) DETACH DELETE t`, map[string]any{"id": id}); err != nil {
		return runErr(err)
	}
	result, err := session.Run(ctx, `MATCH ()-[r]->() WHERE r.edge_id = $id DELETE r`, map[string]any{"id": id})
	if err != nil {
		return runErr(err)
	}
	summary, err := result.Consume(ctx)
	if err != nil {
		return runErr(err)
	}
	if summary.Counters().RelationshipsDeleted() == 0 {
		return fmt.Errorf("edge %s: %w", id, repository.ErrNotFound)
	}
	return nil
}

// InsertTag creates an EntityTag or EdgeTag node carrying the property
// map; the owner reference travels inside the map. The property type
// becomes a second label so typed tag lookups stay indexed.
func (s *Store) InsertTag(ctx context.Context, kind repository.TagKind, id, ttype string, props map[string]any) error {
	if !validIdentifier(ttype) {
		return fmt.Errorf("tag type %q: invalid identifier", ttype)
	}
	return s.write(ctx, `CREATE (t:`+kind.Label()+`:`+ttype+`) SET t = $props`, map[string]any{"props": props})
}

// UpdateTag replaces the property map of a tag node.
func (s *Store) UpdateTag(ctx context.Context, kind repository.TagKind, id string, props map[string]any) error {
	return s.writeExisting(ctx,
		`MATCH (t:`+kind.Label()+` {tag_id: $id}) SET t = $props RETURN count(t) AS c`,
		map[string]any{"id": id, "props": props}, id)
}

// GetTag returns the property map of a tag node by id.
func (s *Store) GetTag(ctx context.Context, kind repository.TagKind, id string) (map[string]any, error) {
	return s.getProps(ctx,
		`MATCH (t:`+kind.Label()+` {tag_id: $id}) RETURN properties(t) AS props`,
		map[string]any{"id": id}, id)
}

// MatchTagsByContent returns tags of the given type whose properties
// match the filter exactly.
func (s *Store) MatchTagsByContent(ctx context.Context, kind repository.TagKind, ttype string, filter map[string]any, since time.Time) ([]map[string]any, error) {
	query := `MATCH (t:` + kind.Label() + `) WHERE t.ttype = $ttype`
	params := map[string]any{"ttype": ttype}
	clause, err := filterClause("t", filter, params)
	if err != nil {
		return nil, err
	}
	query += clause
	if !since.IsZero() {
		query += ` AND t.updated_at >= $since`
		params["since"] = since.UTC()
	}
	query += ` RETURN properties(t) AS props`
	return s.queryProps(ctx, query, params)
}

// MatchTagsByOwner returns the tags attached to an entity or edge.
func (s *Store) MatchTagsByOwner(ctx context.Context, kind repository.TagKind, ownerID string, since time.Time) ([]map[string]any, error) {
	query := `MATCH (t:` + kind.Label() + `) WHERE t.` + kind.OwnerKey() + ` = $owner`
	params := map[string]any{"owner": ownerID}
	if !since.IsZero() {
		query += ` AND t.updated_at >= $since`
		params["since"] = since.UTC()
	}
	query += ` RETURN properties(t) AS props`
	return s.queryProps(ctx, query, params)
}

// DeleteTag removes a tag node.
func (s *Store) DeleteTag(ctx context.Context, kind repository.TagKind, id string) error {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	result, err := session.Run(ctx, `MATCH (t:`+kind.Label()+` {tag_id: $id}) DETACH DELETE t`, map[string]any{"id": id})
	if err != nil {
		return runErr(err)
	}
	summary, err := result.Consume(ctx)
	if err != nil {
		return runErr(err)
	}
	if summary.Counters().NodesDeleted() == 0 {
		return fmt.Errorf("tag %s: %w", id, repository.ErrNotFound)
	}
	return nil
}

func (s *Store) write(ctx context.Context, query string, params map[string]any) error {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	result, err := session.Run(ctx, query, params)
	if err != nil {
		return runErr(err)
	}
	if _, err := result.Consume(ctx); err != nil {
		return runErr(err)
	}
	return nil
}

// writeExisting runs a write that must touch an existing record; a zero
// count maps to ErrNotFound.
func (s *Store) writeExisting(ctx context.Context, query string, params map[string]any, id string) error {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	result, err := session.Run(ctx, query, params)
	if err != nil {
		return runErr(err)
	}
	record, err := result.Single(ctx)
	if err != nil {
		return runErr(err)
	}
	if c, _ := record.Get("c"); asInt(c) == 0 {
		return fmt.Errorf("%s: %w", id, repository.ErrNotFound)
	}
	return nil
}

func (s *Store) getProps(ctx context.Context, query string, params map[string]any, id string) (map[string]any, error) {
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	result, err := session.Run(ctx, query, params)
	if err != nil {
		return nil, runErr(err)
	}
	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return nil, runErr(err)
		}
		return nil, fmt.Errorf("%s: %w", id, repository.ErrNotFound)
	}
	return recordProps(result.Record())
}

func (s *Store) queryProps(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	result, err := session.Run(ctx, query, params)
	if err != nil {
		return nil, runErr(err)
	}
	var results []map[string]any
	for result.Next(ctx) {
		props, err := recordProps(result.Record())
		if err != nil {
			return nil, err
		}
		results = append(results, props)
	}
	if err := result.Err(); err != nil {
		return nil, runErr(err)
	}
	return results, nil
}

// filterClause appends one parameterized equality predicate per filter
// key. Keys are interpolated as property accessors and must be plain
// identifiers; values stay parameterized.
func filterClause(alias string, filter map[string]any, params map[string]any) (string, error) {
	var sb strings.Builder
	i := 0
	for _, key := range sortedKeys(filter) {
		if !validIdentifier(key) {
			return "", fmt.Errorf("filter key %q: invalid identifier", key)
		}
		param := fmt.Sprintf("f%d", i)
		sb.WriteString(` AND ` + alias + `.` + key + ` = $` + param)
		params[param] = filter[key]
		i++
	}
	return sb.String(), nil
}

func runErr(err error) error {
	return fmt.Errorf("neo4j: %w: %v", repository.ErrStoreUnavailable, err)
}

func recordToEdge(record *neo4j.Record) (*repository.EdgeRecord, error) {
	props, err := recordProps(record)
	if err != nil {
		return nil, err
	}
	fromID, _ := record.Get("from_id")
	toID, _ := record.Get("to_id")
	from, ok := fromID.(string)
	if !ok {
		return nil, fmt.Errorf("edge record: missing from_id")
	}
	to, ok := toID.(string)
	if !ok {
		return nil, fmt.Errorf("edge record: missing to_id")
	}
	return &repository.EdgeRecord{Props: props, FromID: from, ToID: to}, nil
}

func recordProps(record *neo4j.Record) (map[string]any, error) {
	raw, ok := record.Get("props")
	if !ok {
		return nil, fmt.Errorf("result record: missing props column")
	}
	props, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("result record: props is %T", raw)
	}
	return normalizeProps(props), nil
}

// normalizeProps converts driver temporal types back into time.Time for
// the envelope timestamps the codec expects.
func normalizeProps(props map[string]any) map[string]any {
	for _, key := range []string{codec.KeyCreatedAt, codec.KeyUpdatedAt} {
		switch v := props[key].(type) {
		case time.Time:
			props[key] = v
		case interface{ Time() time.Time }:
			props[key] = v.Time()
		}
	}
	return props
}
