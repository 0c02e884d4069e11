// Package store defines the flat record storage the graph engine sits on.
// Backends persist node and edge records grouped by collection name; all
// graph semantics (adjacency, traversal, integrity) live above this layer.
package store

import (
	"context"
	"encoding/json"
	"time"
)

// NodeRecord is a flat node row, one per (collection, id)
type NodeRecord struct {
	ID         string         `json:"node_id"`
	Name       string         `json:"node_name"`
	Type       string         `json:"node_type,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// EdgeRecord is a flat edge row, one per (collection, id)
type EdgeRecord struct {
	ID         string         `json:"edge_id"`
	Source     string         `json:"source_node_id"`
	Target     string         `json:"target_node_id"`
	Relation   string         `json:"relation_type,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
	Weight     float64        `json:"weight"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// UnmarshalJSON defaults weight to 1.0 when the field is absent, while an
// explicit 0 survives a round-trip.
func (e *EdgeRecord) UnmarshalJSON(data []byte) error {
	type alias EdgeRecord
	aux := struct {
		Weight *float64 `json:"weight"`
		*alias
	}{alias: (*alias)(e)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.Weight == nil {
		e.Weight = 1.0
	} else {
		e.Weight = *aux.Weight
	}
	return nil
}

// NodeFilter narrows ListNodes. Zero values mean "no filter"; Limit <= 0
// means unbounded.
type NodeFilter struct {
	Type  string
	Limit int
}

// EdgeFilter narrows ListEdges. NodeID matches edges touching the node as
// either source or target.
type EdgeFilter struct {
	NodeID   string
	Relation string
	Limit    int
}

// RecordStore is the persistence collaborator for one deployment. Get
// methods return (nil, nil) when the record is absent; the engine maps
// absence to its own not-found errors. Delete methods report whether a
// record was removed.
//
// Implementations must be safe for concurrent use; serialization of
// mutations within a collection is the engine's job, not the store's.
type RecordStore interface {
	GetNode(ctx context.Context, collection, id string) (*NodeRecord, error)
	ListNodes(ctx context.Context, collection string, filter NodeFilter) ([]NodeRecord, error)
	UpsertNode(ctx context.Context, collection string, record NodeRecord) error
	DeleteNode(ctx context.Context, collection, id string) (bool, error)

	GetEdge(ctx context.Context, collection, id string) (*EdgeRecord, error)
	ListEdges(ctx context.Context, collection string, filter EdgeFilter) ([]EdgeRecord, error)
	UpsertEdge(ctx context.Context, collection string, record EdgeRecord) error
	DeleteEdge(ctx context.Context, collection, id string) (bool, error)

	// DeleteEdgesTouching removes every edge whose source or target is
	// nodeID and reports how many were removed. Used by cascade delete.
	DeleteEdgesTouching(ctx context.Context, collection, nodeID string) (int, error)

	// Count returns node and edge counts taken from one snapshot of the
	// collection.
	Count(ctx context.Context, collection string) (nodes, edges int, err error)

	// Clear removes all records in the collection. Clearing an empty or
	// unknown collection is not an error.
	Clear(ctx context.Context, collection string) error

	Close() error
}
