// Package sqlite implements the repository.Store interface on a single
// SQLite database file. Each record kind lives in its own table with the
// codec property map serialized into a JSON column; content filters run
// through json_extract so no per-field schema is needed.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"assetgraph/internal/repository"
)

const schema = `
CREATE TABLE IF NOT EXISTS entities (
	id         TEXT PRIMARY KEY,
	etype      TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	props      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_entities_etype ON entities(etype);

CREATE TABLE IF NOT EXISTS edges (
	id         TEXT PRIMARY KEY,
	from_id    TEXT NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
	to_id      TEXT NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
	rel_type   TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	props      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_edges_from ON edges(from_id);
CREATE INDEX IF NOT EXISTS idx_edges_to ON edges(to_id);

CREATE TABLE IF NOT EXISTS entity_tags (
	id         TEXT PRIMARY KEY,
	owner_id   TEXT NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
	ttype      TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	props      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_entity_tags_owner ON entity_tags(owner_id);

CREATE TABLE IF NOT EXISTS edge_tags (
	id         TEXT PRIMARY KEY,
	owner_id   TEXT NOT NULL REFERENCES edges(id) ON DELETE CASCADE,
	ttype      TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	props      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_edge_tags_owner ON edge_tags(owner_id);
`

// Store is a SQLite-backed repository.Store.
type Store struct {
	db *sql.DB
}

// Open connects to the database at path (":memory:" for an in-memory
// database) and ensures the schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// A pool would hand each connection its own empty in-memory database,
	// and the cascade pragma is per-connection anyway.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// InsertEntity stores a new entity row.
func (s *Store) InsertEntity(ctx context.Context, id string, props map[string]any) error {
	doc, etype, updated, err := marshalProps(props)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO entities (id, etype, updated_at, props) VALUES (?, ?, ?, ?)`,
		id, etype, updated, doc)
	if err != nil {
		return fmt.Errorf("insert entity %s: %w", id, err)
	}
	return nil
}

// UpdateEntity replaces the stored property map of an entity.
func (s *Store) UpdateEntity(ctx context.Context, id string, props map[string]any) error {
	doc, etype, updated, err := marshalProps(props)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE entities SET etype = ?, updated_at = ?, props = ? WHERE id = ?`,
		etype, updated, doc, id)
	if err != nil {
		return fmt.Errorf("update entity %s: %w", id, err)
	}
	return requireAffected(res, id)
}

// GetEntity returns the property map of an entity by id.
func (s *Store) GetEntity(ctx context.Context, id string) (map[string]any, error) {
	return s.getProps(ctx, `SELECT props FROM entities WHERE id = ?`, id)
}

// MatchEntities returns entities of the given type whose properties match
// the filter exactly.
func (s *Store) MatchEntities(ctx context.Context, etype string, filter map[string]any, since time.Time) ([]map[string]any, error) {
	query := `SELECT props FROM entities WHERE etype = ?`
	args := []any{etype}
	where, filterArgs, err := filterClause(filter)
	if err != nil {
		return nil, err
	}
	query += where
	args = append(args, filterArgs...)
	if !since.IsZero() {
		query += ` AND updated_at >= ?`
		args = append(args, formatTime(since))
	}
	return s.queryProps(ctx, query, args...)
}

// DeleteEntity removes an entity; foreign keys cascade to its edges,
// its tags, and the tags of those edges.
func (s *Store) DeleteEntity(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM entities WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete entity %s: %w", id, err)
	}
	return requireAffected(res, id)
}

// InsertEdge stores a new edge row between two entity rows.
func (s *Store) InsertEdge(ctx context.Context, id, fromID, toID, relType string, props map[string]any) error {
	doc, _, updated, err := marshalProps(props)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO edges (id, from_id, to_id, rel_type, updated_at, props) VALUES (?, ?, ?, ?, ?, ?)`,
		id, fromID, toID, relType, updated, doc)
	if err != nil {
		return fmt.Errorf("insert edge %s: %w", id, err)
	}
	return nil
}

// UpdateEdge replaces the stored property map of an edge. Endpoints are
// immutable.
func (s *Store) UpdateEdge(ctx context.Context, id string, props map[string]any) error {
	doc, _, updated, err := marshalProps(props)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE edges SET updated_at = ?, props = ? WHERE id = ?`,
		updated, doc, id)
	if err != nil {
		return fmt.Errorf("update edge %s: %w", id, err)
	}
	return requireAffected(res, id)
}

// GetEdge returns the edge record by id.
func (s *Store) GetEdge(ctx context.Context, id string) (*repository.EdgeRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT props, from_id, to_id FROM edges WHERE id = ?`, id)
	var doc, fromID, toID string
	if err := row.Scan(&doc, &fromID, &toID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("edge %s: %w", id, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("get edge %s: %w", id, err)
	}
	props, err := unmarshalProps(doc)
	if err != nil {
		return nil, err
	}
	return &repository.EdgeRecord{Props: props, FromID: fromID, ToID: toID}, nil
}

// MatchEdges returns the edges adjacent to an entity in the given
// direction.
func (s *Store) MatchEdges(ctx context.Context, entityID string, dir repository.Direction, since time.Time) ([]repository.EdgeRecord, error) {
	col := "from_id"
	if dir == repository.Incoming {
		col = "to_id"
	}
	query := `SELECT props, from_id, to_id FROM edges WHERE ` + col + ` = ?`
	args := []any{entityID}
	if !since.IsZero() {
		query += ` AND updated_at >= ?`
		args = append(args, formatTime(since))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("match edges: %w", err)
	}
	defer rows.Close()

	var records []repository.EdgeRecord
	for rows.Next() {
		var doc, fromID, toID string
		if err := rows.Scan(&doc, &fromID, &toID); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		props, err := unmarshalProps(doc)
		if err != nil {
			return nil, err
		}
		records = append(records, repository.EdgeRecord{Props: props, FromID: fromID, ToID: toID})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("match edges: %w", err)
	}
	return records, nil
}

// DeleteEdge removes an edge; foreign keys cascade to its tags.
func (s *Store) DeleteEdge(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM edges WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete edge %s: %w", id, err)
	}
	return requireAffected(res, id)
}

func tagTable(kind repository.TagKind) string {
	if kind == repository.EdgeTagKind {
		return "edge_tags"
	}
	return "entity_tags"
}

// InsertTag stores a new tag row owned by an entity or an edge.
func (s *Store) InsertTag(ctx context.Context, kind repository.TagKind, id, ttype string, props map[string]any) error {
	doc, _, updated, err := marshalProps(props)
	if err != nil {
		return err
	}
	ownerID, _ := props[kind.OwnerKey()].(string)
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO `+tagTable(kind)+` (id, owner_id, ttype, updated_at, props) VALUES (?, ?, ?, ?, ?)`,
		id, ownerID, ttype, updated, doc)
	if err != nil {
		return fmt.Errorf("insert tag %s: %w", id, err)
	}
	return nil
}

// UpdateTag replaces the stored property map of a tag.
func (s *Store) UpdateTag(ctx context.Context, kind repository.TagKind, id string, props map[string]any) error {
	doc, _, updated, err := marshalProps(props)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE `+tagTable(kind)+` SET updated_at = ?, props = ? WHERE id = ?`,
		updated, doc, id)
	if err != nil {
		return fmt.Errorf("update tag %s: %w", id, err)
	}
	return requireAffected(res, id)
}

// GetTag returns the property map of a tag by id.
func (s *Store) GetTag(ctx context.Context, kind repository.TagKind, id string) (map[string]any, error) {
	return s.getProps(ctx, `SELECT props FROM `+tagTable(kind)+` WHERE id = ?`, id)
}

// MatchTagsByContent returns tags of the given type whose properties
// match the filter exactly.
func (s *Store) MatchTagsByContent(ctx context.Context, kind repository.TagKind, ttype string, filter map[string]any, since time.Time) ([]map[string]any, error) {
	query := `SELECT props FROM ` + tagTable(kind) + ` WHERE ttype = ?`
	args := []any{ttype}
	where, filterArgs, err := filterClause(filter)
	if err != nil {
		return nil, err
	}
	query += where
	args = append(args, filterArgs...)
	if !since.IsZero() {
		query += ` AND updated_at >= ?`
		args = append(args, formatTime(since))
	}
	return s.queryProps(ctx, query, args...)
}

// MatchTagsByOwner returns the tags attached to an entity or edge.
func (s *Store) MatchTagsByOwner(ctx context.Context, kind repository.TagKind, ownerID string, since time.Time) ([]map[string]any, error) {
	query := `SELECT props FROM ` + tagTable(kind) + ` WHERE owner_id = ?`
	args := []any{ownerID}
	if !since.IsZero() {
		query += ` AND updated_at >= ?`
		args = append(args, formatTime(since))
	}
	return s.queryProps(ctx, query, args...)
}

// DeleteTag removes a tag row.
func (s *Store) DeleteTag(ctx context.Context, kind repository.TagKind, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM `+tagTable(kind)+` WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete tag %s: %w", id, err)
	}
	return requireAffected(res, id)
}

func (s *Store) getProps(ctx context.Context, query, id string) (map[string]any, error) {
	var doc string
	if err := s.db.QueryRowContext(ctx, query, id).Scan(&doc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", id, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("get %s: %w", id, err)
	}
	return unmarshalProps(doc)
}

func (s *Store) queryProps(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var results []map[string]any
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan props: %w", err)
		}
		props, err := unmarshalProps(doc)
		if err != nil {
			return nil, err
		}
		results = append(results, props)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	return results, nil
}

// filterClause turns a property filter into json_extract predicates. Keys
// are interpolated into JSON paths and must be plain identifiers; values
// stay parameterized.
func filterClause(filter map[string]any) (string, []any, error) {
	var sb strings.Builder
	var args []any
	for _, key := range sortedKeys(filter) {
		if !validIdentifier(key) {
			return "", nil, fmt.Errorf("filter key %q: invalid identifier", key)
		}
		sb.WriteString(` AND json_extract(props, '$.` + key + `') = ?`)
		args = append(args, filterValue(filter[key]))
	}
	return sb.String(), args, nil
}

func requireAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", id, repository.ErrNotFound)
	}
	return nil
}
