package graph

import (
	"context"

	"kgraph/internal/store"
	kgerrors "kgraph/pkg/errors"
)

// view is the in-memory directed-multigraph form of one collection:
// nodes and edges by id plus adjacency lists. Edge id slices stay in
// ascending order, which is what makes traversal order deterministic.
type view struct {
	nodes map[string]*Node
	edges map[string]*Edge
	out   map[string][]string // node id -> outgoing edge ids
	in    map[string][]string // node id -> incoming edge ids
}

// materialize rebuilds the view from the flat records of a collection. An
// empty or unknown collection yields an empty view, not an error.
func (s *Service) materialize(ctx context.Context, collection string) (*view, error) {
	nodes, err := s.store.ListNodes(ctx, collection, store.NodeFilter{})
	if err != nil {
		return nil, kgerrors.NewStore("list nodes", err)
	}
	edges, err := s.store.ListEdges(ctx, collection, store.EdgeFilter{})
	if err != nil {
		return nil, kgerrors.NewStore("list edges", err)
	}

	v := &view{
		nodes: make(map[string]*Node, len(nodes)),
		edges: make(map[string]*Edge, len(edges)),
		out:   make(map[string][]string),
		in:    make(map[string][]string),
	}
	for i := range nodes {
		n := nodes[i]
		v.nodes[n.ID] = &n
	}
	// ListEdges returns edges ordered by id, so appending preserves the
	// sorted adjacency order.
	for i := range edges {
		e := edges[i]
		v.edges[e.ID] = &e
		v.out[e.Source] = append(v.out[e.Source], e.ID)
		v.in[e.Target] = append(v.in[e.Target], e.ID)
	}
	return v, nil
}

// neighborEdges returns the edge ids leaving nodeID in the given direction,
// in ascending order.
func (v *view) neighborEdges(nodeID string, direction Direction) []string {
	switch direction {
	case DirectionOut:
		return v.out[nodeID]
	case DirectionIn:
		return v.in[nodeID]
	default:
		out := v.out[nodeID]
		in := v.in[nodeID]
		if len(in) == 0 {
			return out
		}
		if len(out) == 0 {
			return in
		}
		// Merge the two sorted lists.
		merged := make([]string, 0, len(out)+len(in))
		i, j := 0, 0
		for i < len(out) && j < len(in) {
			if out[i] <= in[j] {
				merged = append(merged, out[i])
				i++
			} else {
				merged = append(merged, in[j])
				j++
			}
		}
		merged = append(merged, out[i:]...)
		merged = append(merged, in[j:]...)
		return merged
	}
}

// otherEnd resolves the node an edge leads to when traversed from nodeID in
// the given direction. Edge aliases the store record type, so this cannot be
// a method on it.
func otherEnd(e *Edge, nodeID string, direction Direction) string {
	switch direction {
	case DirectionOut:
		return e.Target
	case DirectionIn:
		return e.Source
	default:
		if e.Source == nodeID {
			return e.Target
		}
		return e.Source
	}
}
