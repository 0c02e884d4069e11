// Package neo4j implements the RecordStore on a Neo4j instance. Records are
// stored as flat :KGNode and :KGEdge property nodes keyed by collection and
// id. Traversal is not delegated to Cypher; the engine builds its own
// adjacency view from these records like it does for every other backend.
package neo4j

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"kgraph/internal/store"
	"kgraph/pkg/logger"
)

// Store is a Neo4j-backed record store
type Store struct {
	driver neo4j.DriverWithContext
	logger *zap.Logger
}

// Open connects to Neo4j and verifies connectivity.
func Open(ctx context.Context, uri, user, password string) (*Store, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("failed to verify connectivity: %w", err)
	}
	return &Store{driver: driver, logger: logger.Named("neo4j")}, nil
}

// NewStore wraps an existing driver, used by tests.
func NewStore(driver neo4j.DriverWithContext) *Store {
	return &Store{driver: driver, logger: logger.Named("neo4j")}
}

// Close closes the underlying driver
func (s *Store) Close() error {
	return s.driver.Close(context.Background())
}

func (s *Store) read(ctx context.Context) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
}

func (s *Store) write(ctx context.Context) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
}

func propsToJSON(p map[string]any) (string, error) {
	if len(p) == 0 {
		return "", nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("failed to marshal properties: %w", err)
	}
	return string(data), nil
}

func propsFromJSON(raw string) (map[string]any, error) {
	if raw == "" {
		return nil, nil
	}
	var p map[string]any
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal properties: %w", err)
	}
	return p, nil
}

func (s *Store) GetNode(ctx context.Context, coll, id string) (*store.NodeRecord, error) {
	session := s.read(ctx)
	defer session.Close(ctx)

	result, err := session.Run(ctx, `
		MATCH (n:KGNode {collection: $collection, node_id: $id})
		RETURN n.node_id as node_id, n.node_name as node_name, n.node_type as node_type,
		       n.properties as properties, n.created_at as created_at, n.updated_at as updated_at`,
		map[string]any{"collection": coll, "id": id})
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return nil, fmt.Errorf("failed to fetch record: %w", err)
		}
		return nil, nil
	}
	return nodeFromRecord(result.Record())
}

func nodeFromRecord(record *neo4j.Record) (*store.NodeRecord, error) {
	props, err := propsFromJSON(getString(record, "properties", ""))
	if err != nil {
		return nil, err
	}
	return &store.NodeRecord{
		ID:         getString(record, "node_id", ""),
		Name:       getString(record, "node_name", ""),
		Type:       getString(record, "node_type", ""),
		Properties: props,
		CreatedAt:  getTime(record, "created_at"),
		UpdatedAt:  getTime(record, "updated_at"),
	}, nil
}

func (s *Store) ListNodes(ctx context.Context, coll string, filter store.NodeFilter) ([]store.NodeRecord, error) {
	session := s.read(ctx)
	defer session.Close(ctx)

	query := `MATCH (n:KGNode {collection: $collection})`
	params := map[string]any{"collection": coll}
	if filter.Type != "" {
		query += ` WHERE n.node_type = $type`
		params["type"] = filter.Type
	}
	query += `
		RETURN n.node_id as node_id, n.node_name as node_name, n.node_type as node_type,
		       n.properties as properties, n.created_at as created_at, n.updated_at as updated_at
		ORDER BY n.node_id`
	if filter.Limit > 0 {
		query += ` LIMIT $limit`
		params["limit"] = filter.Limit
	}

	result, err := session.Run(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	var out []store.NodeRecord
	for result.Next(ctx) {
		rec, err := nodeFromRecord(result.Record())
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, result.Err()
}

func (s *Store) UpsertNode(ctx context.Context, coll string, record store.NodeRecord) error {
	session := s.write(ctx)
	defer session.Close(ctx)

	props, err := propsToJSON(record.Properties)
	if err != nil {
		return err
	}
	_, err = session.Run(ctx, `
		MERGE (n:KGNode {collection: $collection, node_id: $id})
		SET n.node_name = $name,
		    n.node_type = $type,
		    n.properties = $properties,
		    n.created_at = $createdAt,
		    n.updated_at = $updatedAt`,
		map[string]any{
			"collection": coll,
			"id":         record.ID,
			"name":       record.Name,
			"type":       record.Type,
			"properties": props,
			"createdAt":  record.CreatedAt.UTC().Format(time.RFC3339Nano),
			"updatedAt":  record.UpdatedAt.UTC().Format(time.RFC3339Nano),
		})
	if err != nil {
		return fmt.Errorf("failed to upsert node: %w", err)
	}
	return nil
}

func (s *Store) DeleteNode(ctx context.Context, coll, id string) (bool, error) {
	session := s.write(ctx)
	defer session.Close(ctx)

	result, err := session.Run(ctx, `
		MATCH (n:KGNode {collection: $collection, node_id: $id})
		DELETE n
		RETURN count(n) as removed`,
		map[string]any{"collection": coll, "id": id})
	if err != nil {
		return false, fmt.Errorf("failed to delete node: %w", err)
	}
	rec, err := result.Single(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to fetch delete count: %w", err)
	}
	return getInt64(rec, "removed") > 0, nil
}

func (s *Store) GetEdge(ctx context.Context, coll, id string) (*store.EdgeRecord, error) {
	session := s.read(ctx)
	defer session.Close(ctx)

	result, err := session.Run(ctx, `
		MATCH (e:KGEdge {collection: $collection, edge_id: $id})
		RETURN e.edge_id as edge_id, e.source_node_id as source_node_id,
		       e.target_node_id as target_node_id, e.relation_type as relation_type,
		       e.properties as properties, e.weight as weight,
		       e.created_at as created_at, e.updated_at as updated_at`,
		map[string]any{"collection": coll, "id": id})
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return nil, fmt.Errorf("failed to fetch record: %w", err)
		}
		return nil, nil
	}
	return edgeFromRecord(result.Record())
}

func edgeFromRecord(record *neo4j.Record) (*store.EdgeRecord, error) {
	props, err := propsFromJSON(getString(record, "properties", ""))
	if err != nil {
		return nil, err
	}
	return &store.EdgeRecord{
		ID:         getString(record, "edge_id", ""),
		Source:     getString(record, "source_node_id", ""),
		Target:     getString(record, "target_node_id", ""),
		Relation:   getString(record, "relation_type", ""),
		Properties: props,
		Weight:     getFloat64(record, "weight", 1.0),
		CreatedAt:  getTime(record, "created_at"),
		UpdatedAt:  getTime(record, "updated_at"),
	}, nil
}

func (s *Store) ListEdges(ctx context.Context, coll string, filter store.EdgeFilter) ([]store.EdgeRecord, error) {
	session := s.read(ctx)
	defer session.Close(ctx)

	query := `MATCH (e:KGEdge {collection: $collection})`
	params := map[string]any{"collection": coll}
	conds := ""
	if filter.NodeID != "" {
		conds = ` WHERE (e.source_node_id = $nodeID OR e.target_node_id = $nodeID)`
		params["nodeID"] = filter.NodeID
	}
	if filter.Relation != "" {
		if conds == "" {
			conds = ` WHERE e.relation_type = $relation`
		} else {
			conds += ` AND e.relation_type = $relation`
		}
		params["relation"] = filter.Relation
	}
	query += conds + `
		RETURN e.edge_id as edge_id, e.source_node_id as source_node_id,
		       e.target_node_id as target_node_id, e.relation_type as relation_type,
		       e.properties as properties, e.weight as weight,
		       e.created_at as created_at, e.updated_at as updated_at
		ORDER BY e.edge_id`
	if filter.Limit > 0 {
		query += ` LIMIT $limit`
		params["limit"] = filter.Limit
	}

	result, err := session.Run(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	var out []store.EdgeRecord
	for result.Next(ctx) {
		rec, err := edgeFromRecord(result.Record())
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, result.Err()
}

func (s *Store) UpsertEdge(ctx context.Context, coll string, record store.EdgeRecord) error {
	session := s.write(ctx)
	defer session.Close(ctx)

	props, err := propsToJSON(record.Properties)
	if err != nil {
		return err
	}
	_, err = session.Run(ctx, `
		MERGE (e:KGEdge {collection: $collection, edge_id: $id})
		SET e.source_node_id = $source,
		    e.target_node_id = $target,
		    e.relation_type = $relation,
		    e.properties = $properties,
		    e.weight = $weight,
		    e.created_at = $createdAt,
		    e.updated_at = $updatedAt`,
		map[string]any{
			"collection": coll,
			"id":         record.ID,
			"source":     record.Source,
			"target":     record.Target,
			"relation":   record.Relation,
			"properties": props,
			"weight":     record.Weight,
			"createdAt":  record.CreatedAt.UTC().Format(time.RFC3339Nano),
			"updatedAt":  record.UpdatedAt.UTC().Format(time.RFC3339Nano),
		})
	if err != nil {
		return fmt.Errorf("failed to upsert edge: %w", err)
	}
	return nil
}

func (s *Store) DeleteEdge(ctx context.Context, coll, id string) (bool, error) {
	session := s.write(ctx)
	defer session.Close(ctx)

	result, err := session.Run(ctx, `
		MATCH (e:KGEdge {collection: $collection, edge_id: $id})
		DELETE e
		RETURN count(e) as removed`,
		map[string]any{"collection": coll, "id": id})
	if err != nil {
		return false, fmt.Errorf("failed to delete edge: %w", err)
	}
	rec, err := result.Single(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to fetch delete count: %w", err)
	}
	return getInt64(rec, "removed") > 0, nil
}

func (s *Store) DeleteEdgesTouching(ctx context.Context, coll, nodeID string) (int, error) {
	session := s.write(ctx)
	defer session.Close(ctx)

	result, err := session.Run(ctx, `
		MATCH (e:KGEdge {collection: $collection})
		WHERE e.source_node_id = $nodeID OR e.target_node_id = $nodeID
		DELETE e
		RETURN count(e) as removed`,
		map[string]any{"collection": coll, "nodeID": nodeID})
	if err != nil {
		return 0, fmt.Errorf("failed to delete edges: %w", err)
	}
	rec, err := result.Single(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch delete count: %w", err)
	}
	return int(getInt64(rec, "removed")), nil
}

func (s *Store) Count(ctx context.Context, coll string) (int, int, error) {
	session := s.read(ctx)
	defer session.Close(ctx)

	result, err := session.Run(ctx, `
		OPTIONAL MATCH (n:KGNode {collection: $collection})
		WITH count(n) as nodes
		OPTIONAL MATCH (e:KGEdge {collection: $collection})
		RETURN nodes, count(e) as edges`,
		map[string]any{"collection": coll})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to execute query: %w", err)
	}
	rec, err := result.Single(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to fetch counts: %w", err)
	}
	return int(getInt64(rec, "nodes")), int(getInt64(rec, "edges")), nil
}

func (s *Store) Clear(ctx context.Context, coll string) error {
	session := s.write(ctx)
	defer session.Close(ctx)

	_, err := session.Run(ctx, `
		MATCH (r) WHERE (r:KGNode OR r:KGEdge) AND r.collection = $collection
		DELETE r`,
		map[string]any{"collection": coll})
	if err != nil {
		return fmt.Errorf("failed to clear collection: %w", err)
	}
	s.logger.Info("Collection cleared", zap.String("collection", coll))
	return nil
}

// Record helpers

func getString(record *neo4j.Record, key string, defaultValue string) string {
	val, ok := record.Get(key)
	if !ok {
		return defaultValue
	}
	if str, ok := val.(string); ok {
		return str
	}
	return defaultValue
}

func getFloat64(record *neo4j.Record, key string, defaultValue float64) float64 {
	val, ok := record.Get(key)
	if !ok {
		return defaultValue
	}
	if f, ok := val.(float64); ok {
		return f
	}
	return defaultValue
}

func getInt64(record *neo4j.Record, key string) int64 {
	val, ok := record.Get(key)
	if !ok {
		return 0
	}
	if n, ok := val.(int64); ok {
		return n
	}
	return 0
}

func getTime(record *neo4j.Record, key string) time.Time {
	raw := getString(record, key, "")
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
