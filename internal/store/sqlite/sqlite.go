// Package sqlite implements the RecordStore on a local SQLite database.
// The schema mirrors the flat node/edge tables the engine expects: records
// keyed by (collection, id) with properties serialized as JSON text.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"kgraph/internal/store"
)

// Store is a SQLite-backed record store
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and ensures the
// schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS kg_node (
			collection TEXT NOT NULL,
			node_id    TEXT NOT NULL,
			node_name  TEXT NOT NULL,
			node_type  TEXT,
			properties TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			PRIMARY KEY (collection, node_id)
		);
		CREATE TABLE IF NOT EXISTS kg_edge (
			collection     TEXT NOT NULL,
			edge_id        TEXT NOT NULL,
			source_node_id TEXT NOT NULL,
			target_node_id TEXT NOT NULL,
			relation_type  TEXT,
			properties     TEXT,
			weight         REAL NOT NULL DEFAULT 1.0,
			created_at     DATETIME NOT NULL,
			updated_at     DATETIME NOT NULL,
			PRIMARY KEY (collection, edge_id)
		);
		CREATE INDEX IF NOT EXISTS idx_kg_edge_source ON kg_edge (collection, source_node_id);
		CREATE INDEX IF NOT EXISTS idx_kg_edge_target ON kg_edge (collection, target_node_id);
	`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

func marshalProps(p map[string]any) (sql.NullString, error) {
	if len(p) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to marshal properties: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func unmarshalProps(raw sql.NullString) (map[string]any, error) {
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	var p map[string]any
	if err := json.Unmarshal([]byte(raw.String), &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal properties: %w", err)
	}
	return p, nil
}

func (s *Store) GetNode(ctx context.Context, coll, id string) (*store.NodeRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT node_id, node_name, node_type, properties, created_at, updated_at
		FROM kg_node WHERE collection = ? AND node_id = ?`, coll, id)
	rec, err := scanNode(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNode(row rowScanner) (*store.NodeRecord, error) {
	var rec store.NodeRecord
	var nodeType, props sql.NullString
	var createdAt, updatedAt time.Time
	if err := row.Scan(&rec.ID, &rec.Name, &nodeType, &props, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	rec.Type = nodeType.String
	rec.CreatedAt = createdAt
	rec.UpdatedAt = updatedAt
	p, err := unmarshalProps(props)
	if err != nil {
		return nil, err
	}
	rec.Properties = p
	return &rec, nil
}

func (s *Store) ListNodes(ctx context.Context, coll string, filter store.NodeFilter) ([]store.NodeRecord, error) {
	query := `
		SELECT node_id, node_name, node_type, properties, created_at, updated_at
		FROM kg_node WHERE collection = ?`
	args := []any{coll}
	if filter.Type != "" {
		query += ` AND node_type = ?`
		args = append(args, filter.Type)
	}
	query += ` ORDER BY node_id`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}
	defer rows.Close()

	var out []store.NodeRecord
	for rows.Next() {
		rec, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func (s *Store) UpsertNode(ctx context.Context, coll string, record store.NodeRecord) error {
	props, err := marshalProps(record.Properties)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO kg_node (collection, node_id, node_name, node_type, properties, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(collection, node_id) DO UPDATE SET
			node_name  = excluded.node_name,
			node_type  = excluded.node_type,
			properties = excluded.properties,
			updated_at = excluded.updated_at`,
		coll, record.ID, record.Name, nullable(record.Type), props, record.CreatedAt, record.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert node: %w", err)
	}
	return nil
}

func (s *Store) DeleteNode(ctx context.Context, coll, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM kg_node WHERE collection = ? AND node_id = ?`, coll, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete node: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *Store) GetEdge(ctx context.Context, coll, id string) (*store.EdgeRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT edge_id, source_node_id, target_node_id, relation_type, properties, weight, created_at, updated_at
		FROM kg_edge WHERE collection = ? AND edge_id = ?`, coll, id)
	rec, err := scanEdge(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func scanEdge(row rowScanner) (*store.EdgeRecord, error) {
	var rec store.EdgeRecord
	var relation, props sql.NullString
	var createdAt, updatedAt time.Time
	if err := row.Scan(&rec.ID, &rec.Source, &rec.Target, &relation, &props, &rec.Weight, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	rec.Relation = relation.String
	rec.CreatedAt = createdAt
	rec.UpdatedAt = updatedAt
	p, err := unmarshalProps(props)
	if err != nil {
		return nil, err
	}
	rec.Properties = p
	return &rec, nil
}

func (s *Store) ListEdges(ctx context.Context, coll string, filter store.EdgeFilter) ([]store.EdgeRecord, error) {
	query := `
		SELECT edge_id, source_node_id, target_node_id, relation_type, properties, weight, created_at, updated_at
		FROM kg_edge WHERE collection = ?`
	args := []any{coll}
	if filter.NodeID != "" {
		query += ` AND (source_node_id = ? OR target_node_id = ?)`
		args = append(args, filter.NodeID, filter.NodeID)
	}
	if filter.Relation != "" {
		query += ` AND relation_type = ?`
		args = append(args, filter.Relation)
	}
	query += ` ORDER BY edge_id`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list edges: %w", err)
	}
	defer rows.Close()

	var out []store.EdgeRecord
	for rows.Next() {
		rec, err := scanEdge(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func (s *Store) UpsertEdge(ctx context.Context, coll string, record store.EdgeRecord) error {
	props, err := marshalProps(record.Properties)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO kg_edge (collection, edge_id, source_node_id, target_node_id, relation_type, properties, weight, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(collection, edge_id) DO UPDATE SET
			source_node_id = excluded.source_node_id,
			target_node_id = excluded.target_node_id,
			relation_type  = excluded.relation_type,
			properties     = excluded.properties,
			weight         = excluded.weight,
			updated_at     = excluded.updated_at`,
		coll, record.ID, record.Source, record.Target, nullable(record.Relation), props,
		record.Weight, record.CreatedAt, record.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert edge: %w", err)
	}
	return nil
}

func (s *Store) DeleteEdge(ctx context.Context, coll, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM kg_edge WHERE collection = ? AND edge_id = ?`, coll, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete edge: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *Store) DeleteEdgesTouching(ctx context.Context, coll, nodeID string) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM kg_edge
		WHERE collection = ? AND (source_node_id = ? OR target_node_id = ?)`,
		coll, nodeID, nodeID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete edges: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *Store) Count(ctx context.Context, coll string) (int, int, error) {
	var nodes, edges int
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM kg_node WHERE collection = ?),
			(SELECT COUNT(*) FROM kg_edge WHERE collection = ?)`,
		coll, coll).Scan(&nodes, &edges)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count records: %w", err)
	}
	return nodes, edges, nil
}

func (s *Store) Clear(ctx context.Context, coll string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM kg_edge WHERE collection = ?`, coll); err != nil {
		return fmt.Errorf("failed to clear edges: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM kg_node WHERE collection = ?`, coll); err != nil {
		return fmt.Errorf("failed to clear nodes: %w", err)
	}
	return tx.Commit()
}

func nullable(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
