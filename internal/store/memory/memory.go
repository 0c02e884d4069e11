// Package memory provides an in-process RecordStore used for development
// and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"kgraph/internal/store"
)

type collection struct {
	nodes map[string]store.NodeRecord
	edges map[string]store.EdgeRecord
}

// Store keeps all records in process memory
type Store struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

// New creates an empty in-memory store
func New() *Store {
	return &Store{collections: make(map[string]*collection)}
}

func (s *Store) coll(name string) *collection {
	c, ok := s.collections[name]
	if !ok {
		c = &collection{
			nodes: make(map[string]store.NodeRecord),
			edges: make(map[string]store.EdgeRecord),
		}
		s.collections[name] = c
	}
	return c
}

func cloneProps(p map[string]any) map[string]any {
	if p == nil {
		return nil
	}
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

func (s *Store) GetNode(_ context.Context, coll, id string) (*store.NodeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[coll]
	if !ok {
		return nil, nil
	}
	rec, ok := c.nodes[id]
	if !ok {
		return nil, nil
	}
	rec.Properties = cloneProps(rec.Properties)
	return &rec, nil
}

func (s *Store) ListNodes(_ context.Context, coll string, filter store.NodeFilter) ([]store.NodeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[coll]
	if !ok {
		return nil, nil
	}
	out := make([]store.NodeRecord, 0, len(c.nodes))
	for _, rec := range c.nodes {
		if filter.Type != "" && rec.Type != filter.Type {
			continue
		}
		rec.Properties = cloneProps(rec.Properties)
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *Store) UpsertNode(_ context.Context, coll string, record store.NodeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record.Properties = cloneProps(record.Properties)
	s.coll(coll).nodes[record.ID] = record
	return nil
}

func (s *Store) DeleteNode(_ context.Context, coll, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[coll]
	if !ok {
		return false, nil
	}
	_, existed := c.nodes[id]
	delete(c.nodes, id)
	return existed, nil
}

func (s *Store) GetEdge(_ context.Context, coll, id string) (*store.EdgeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[coll]
	if !ok {
		return nil, nil
	}
	rec, ok := c.edges[id]
	if !ok {
		return nil, nil
	}
	rec.Properties = cloneProps(rec.Properties)
	return &rec, nil
}

func (s *Store) ListEdges(_ context.Context, coll string, filter store.EdgeFilter) ([]store.EdgeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[coll]
	if !ok {
		return nil, nil
	}
	out := make([]store.EdgeRecord, 0, len(c.edges))
	for _, rec := range c.edges {
		if filter.NodeID != "" && rec.Source != filter.NodeID && rec.Target != filter.NodeID {
			continue
		}
		if filter.Relation != "" && rec.Relation != filter.Relation {
			continue
		}
		rec.Properties = cloneProps(rec.Properties)
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *Store) UpsertEdge(_ context.Context, coll string, record store.EdgeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record.Properties = cloneProps(record.Properties)
	s.coll(coll).edges[record.ID] = record
	return nil
}

func (s *Store) DeleteEdge(_ context.Context, coll, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[coll]
	if !ok {
		return false, nil
	}
	_, existed := c.edges[id]
	delete(c.edges, id)
	return existed, nil
}

func (s *Store) DeleteEdgesTouching(_ context.Context, coll, nodeID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[coll]
	if !ok {
		return 0, nil
	}
	removed := 0
	for id, rec := range c.edges {
		if rec.Source == nodeID || rec.Target == nodeID {
			delete(c.edges, id)
			removed++
		}
	}
	return removed, nil
}

func (s *Store) Count(_ context.Context, coll string) (int, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[coll]
	if !ok {
		return 0, 0, nil
	}
	return len(c.nodes), len(c.edges), nil
}

func (s *Store) Clear(_ context.Context, coll string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections, coll)
	return nil
}

func (s *Store) Close() error {
	return nil
}
