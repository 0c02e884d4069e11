package graph

import (
	"context"
	"fmt"

	kgerrors "kgraph/pkg/errors"
)

// Neighbors expands breadth-first from nodeID, following edges in the given
// direction at every hop, out to maxDepth hops. Each reachable node appears
// once at its first-discovered distance; the start node is not part of the
// result. maxDepth = 1 yields direct neighbors only.
func (s *Service) Neighbors(ctx context.Context, collection, nodeID string, direction Direction, maxDepth int) (*NeighborResult, error) {
	if maxDepth < 1 {
		return nil, kgerrors.NewValidation("max_depth", fmt.Sprintf("must be >= 1, got %d", maxDepth))
	}

	l := s.lockFor(collection)
	l.RLock()
	defer l.RUnlock()

	v, err := s.view(ctx, collection)
	if err != nil {
		return nil, err
	}
	if _, ok := v.nodes[nodeID]; !ok {
		return nil, kgerrors.NewNotFound("node", nodeID)
	}

	result := &NeighborResult{Nodes: []NeighborNode{}, Edges: []Edge{}}
	visited := map[string]bool{nodeID: true}
	seenEdges := map[string]bool{}

	type frontierEntry struct {
		id    string
		depth int
	}
	queue := []frontierEntry{{nodeID, 0}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth == maxDepth {
			continue
		}
		for _, edgeID := range v.neighborEdges(cur.id, direction) {
			edge := v.edges[edgeID]
			if !seenEdges[edgeID] {
				seenEdges[edgeID] = true
				result.Edges = append(result.Edges, *edge)
			}
			next := otherEnd(edge, cur.id, direction)
			if visited[next] {
				continue
			}
			visited[next] = true
			node, ok := v.nodes[next]
			if !ok {
				continue
			}
			result.Nodes = append(result.Nodes, NeighborNode{Node: *node, Depth: cur.depth + 1})
			queue = append(queue, frontierEntry{next, cur.depth + 1})
		}
	}
	return result, nil
}

// FindPath returns a shortest directed path from source to target within
// maxLength hops, or Found=false when the endpoints exist but no such path
// does. Ties between equal-length paths resolve deterministically because
// BFS visits each node's outgoing edges in ascending edge-id order.
func (s *Service) FindPath(ctx context.Context, collection, sourceID, targetID string, maxLength int) (*PathResult, error) {
	if maxLength < 1 {
		return nil, kgerrors.NewValidation("max_length", fmt.Sprintf("must be >= 1, got %d", maxLength))
	}

	l := s.lockFor(collection)
	l.RLock()
	defer l.RUnlock()

	v, err := s.view(ctx, collection)
	if err != nil {
		return nil, err
	}
	for _, id := range []string{sourceID, targetID} {
		if _, ok := v.nodes[id]; !ok {
			return nil, kgerrors.NewNotFound("node", id)
		}
	}
	if sourceID == targetID {
		return &PathResult{Found: true, Nodes: []string{sourceID}, Edges: []Edge{}}, nil
	}

	parents := map[string]pathStep{}
	visited := map[string]bool{sourceID: true}

	type frontierEntry struct {
		id    string
		depth int
	}
	queue := []frontierEntry{{sourceID, 0}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth == maxLength {
			continue
		}
		for _, edgeID := range v.out[cur.id] {
			edge := v.edges[edgeID]
			if visited[edge.Target] {
				continue
			}
			visited[edge.Target] = true
			parents[edge.Target] = pathStep{prev: cur.id, edgeID: edgeID}
			if edge.Target == targetID {
				return reconstructPath(v, sourceID, targetID, parents), nil
			}
			queue = append(queue, frontierEntry{edge.Target, cur.depth + 1})
		}
	}
	return &PathResult{Found: false}, nil
}

// pathStep records how BFS first reached a node
type pathStep struct {
	prev   string
	edgeID string
}

func reconstructPath(v *view, sourceID, targetID string, parents map[string]pathStep) *PathResult {
	var nodes []string
	var edges []Edge
	for cur := targetID; ; {
		nodes = append(nodes, cur)
		if cur == sourceID {
			break
		}
		p := parents[cur]
		edges = append(edges, *v.edges[p.edgeID])
		cur = p.prev
	}
	// Reverse into source-to-target order.
	for i, j := 0, len(nodes)-1; i < j; i, j = i+1, j-1 {
		nodes[i], nodes[j] = nodes[j], nodes[i]
	}
	for i, j := 0, len(edges)-1; i < j; i, j = i+1, j-1 {
		edges[i], edges[j] = edges[j], edges[i]
	}
	return &PathResult{Found: true, Nodes: nodes, Edges: edges}
}

// Stats reports counts and degree summaries from one consistent snapshot of
// the collection.
func (s *Service) Stats(ctx context.Context, collection string) (*Stats, error) {
	l := s.lockFor(collection)
	l.RLock()
	defer l.RUnlock()

	v, err := s.view(ctx, collection)
	if err != nil {
		return nil, err
	}

	st := &Stats{NodeCount: len(v.nodes), EdgeCount: len(v.edges)}
	for id := range v.nodes {
		if d := len(v.in[id]); d > st.MaxInDegree {
			st.MaxInDegree = d
		}
		if d := len(v.out[id]); d > st.MaxOutDegree {
			st.MaxOutDegree = d
		}
	}
	if st.NodeCount > 0 {
		st.AvgDegree = float64(2*st.EdgeCount) / float64(st.NodeCount)
	}
	return st, nil
}
