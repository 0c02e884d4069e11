package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	kgerrors "kgraph/pkg/errors"
)

// Match tiers, best first. The rank policy is deliberately simple and
// deterministic: where a node matches decides its tier, ties within a tier
// break by node id.
const (
	rankExactName = iota
	rankPrefixName
	rankSubstringName
	rankElsewhere // type or stringified properties
)

type scoredNode struct {
	node Node
	rank int
}

// SearchNodes matches keyword case-insensitively against node name, type
// and stringified properties, returning up to limit nodes best-first.
func (s *Service) SearchNodes(ctx context.Context, collection, keyword string, limit int) ([]Node, error) {
	if limit <= 0 {
		return nil, kgerrors.NewValidation("limit", fmt.Sprintf("must be positive, got %d", limit))
	}
	if strings.TrimSpace(keyword) == "" {
		return nil, kgerrors.NewValidation("keyword", "must not be empty")
	}

	l := s.lockFor(collection)
	l.RLock()
	defer l.RUnlock()

	v, err := s.view(ctx, collection)
	if err != nil {
		return nil, err
	}
	return searchView(v, keyword, limit), nil
}

// searchView ranks matching nodes in an already-materialized view; callers
// hold the collection read lock.
func searchView(v *view, keyword string, limit int) []Node {
	needle := strings.ToLower(strings.TrimSpace(keyword))
	var matches []scoredNode
	for _, node := range v.nodes {
		rank, ok := rankNode(node, needle)
		if !ok {
			continue
		}
		matches = append(matches, scoredNode{node: *node, rank: rank})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].rank != matches[j].rank {
			return matches[i].rank < matches[j].rank
		}
		return matches[i].node.ID < matches[j].node.ID
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}

	out := make([]Node, len(matches))
	for i, m := range matches {
		out[i] = m.node
	}
	return out
}

func rankNode(node *Node, needle string) (int, bool) {
	name := strings.ToLower(node.Name)
	switch {
	case name == needle:
		return rankExactName, true
	case strings.HasPrefix(name, needle):
		return rankPrefixName, true
	case strings.Contains(name, needle):
		return rankSubstringName, true
	}
	if strings.Contains(strings.ToLower(node.Type), needle) {
		return rankElsewhere, true
	}
	if len(node.Properties) > 0 {
		if data, err := json.Marshal(node.Properties); err == nil &&
			strings.Contains(strings.ToLower(string(data)), needle) {
			return rankElsewhere, true
		}
	}
	return 0, false
}
