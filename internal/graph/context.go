package graph

import (
	"context"
	"fmt"
	"sort"
	"strings"

	kgerrors "kgraph/pkg/errors"
)

// NoKnowledgeSentinel is returned by FormatContext when there is nothing to
// summarize. Callers can substitute it into prompts as-is.
const NoKnowledgeSentinel = "No relevant knowledge found."

const contextHeader = "# Knowledge Graph Context"

// GraphContext runs the search-then-format pipeline the text-generation
// caller consumes: rank nodes for the query, gather the edges touching
// them, and render a bounded summary.
func (s *Service) GraphContext(ctx context.Context, collection, query string, topK, maxChars int) (*ContextResult, error) {
	if maxChars <= 0 {
		return nil, kgerrors.NewValidation("max_chars", fmt.Sprintf("must be positive, got %d", maxChars))
	}
	if topK <= 0 {
		return nil, kgerrors.NewValidation("top_k", fmt.Sprintf("must be positive, got %d", topK))
	}
	if strings.TrimSpace(query) == "" {
		return nil, kgerrors.NewValidation("query", "must not be empty")
	}

	l := s.lockFor(collection)
	l.RLock()
	defer l.RUnlock()

	v, err := s.view(ctx, collection)
	if err != nil {
		return nil, err
	}
	nodes := searchView(v, query, topK)

	seen := map[string]bool{}
	var edges []Edge
	for _, node := range nodes {
		for _, edgeID := range v.neighborEdges(node.ID, DirectionBoth) {
			if seen[edgeID] {
				continue
			}
			seen[edgeID] = true
			edges = append(edges, *v.edges[edgeID])
		}
	}

	text := formatContext(nodes, edges, v.nodes, maxChars)
	if nodes == nil {
		nodes = []Node{}
	}
	if edges == nil {
		edges = []Edge{}
	}
	return &ContextResult{Nodes: nodes, Edges: edges, Context: text}, nil
}

// FormatContext renders ranked nodes and their connecting edges as a
// bounded, human-readable summary. Lowest-ranked entities are dropped first
// when the budget runs out; empty input yields the sentinel string.
func (s *Service) FormatContext(nodes []Node, edges []Edge, maxChars int) string {
	names := make(map[string]*Node, len(nodes))
	for i := range nodes {
		names[nodes[i].ID] = &nodes[i]
	}
	return formatContext(nodes, edges, names, maxChars)
}

func formatContext(nodes []Node, edges []Edge, known map[string]*Node, maxChars int) string {
	if len(nodes) == 0 || maxChars < len(contextHeader) {
		return NoKnowledgeSentinel
	}

	blocks := make([]string, 0, len(nodes))
	for _, node := range nodes {
		blocks = append(blocks, formatEntityBlock(node, edges, known))
	}

	var b strings.Builder
	b.WriteString(contextHeader)
	for _, block := range blocks {
		if b.Len()+len("\n\n")+len(block) > maxChars {
			break
		}
		b.WriteString("\n\n")
		b.WriteString(block)
	}
	out := b.String()
	if len(out) > maxChars {
		// Even the header alone may exceed a tiny budget.
		out = out[:maxChars]
	}
	if out == contextHeader {
		return NoKnowledgeSentinel
	}
	return out
}

func formatEntityBlock(node Node, edges []Edge, known map[string]*Node) string {
	var b strings.Builder

	typ := node.Type
	if typ == "" {
		typ = "uncategorized"
	}
	fmt.Fprintf(&b, "## Entity: %s (%s)", node.Name, typ)

	if len(node.Properties) > 0 {
		keys := make([]string, 0, len(node.Properties))
		for k := range node.Properties {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString("\nProperties:")
		for _, k := range keys {
			fmt.Fprintf(&b, "\n  - %s: %v", k, node.Properties[k])
		}
	}

	var relations []string
	for _, edge := range edges {
		relation := edge.Relation
		if relation == "" {
			relation = "related_to"
		}
		switch node.ID {
		case edge.Source:
			relations = append(relations,
				fmt.Sprintf("  - %s -> %s", relation, displayName(known, edge.Target)))
		case edge.Target:
			relations = append(relations,
				fmt.Sprintf("  - %s %s -> %s", displayName(known, edge.Source), relation, node.Name))
		}
	}
	if len(relations) > 0 {
		b.WriteString("\nRelations:")
		for _, r := range relations {
			b.WriteString("\n" + r)
		}
	}
	return b.String()
}

func displayName(known map[string]*Node, nodeID string) string {
	if node, ok := known[nodeID]; ok {
		return node.Name
	}
	return nodeID
}
