package graph

import (
	"fmt"
	"strings"

	"kgraph/internal/store"
	kgerrors "kgraph/pkg/errors"
)

// Node and Edge are the engine's record types; the store persists them
// as-is, so the wire shape and the stored shape stay identical.
type (
	Node = store.NodeRecord
	Edge = store.EdgeRecord
)

// Direction selects which edges a traversal follows from a node
type Direction string

const (
	DirectionOut  Direction = "out"  // source -> target
	DirectionIn   Direction = "in"   // target -> source
	DirectionBoth Direction = "both" // either
)

// ParseDirection validates a direction string, defaulting empty to "both"
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case DirectionIn, DirectionOut, DirectionBoth:
		return Direction(s), nil
	case "":
		return DirectionBoth, nil
	default:
		return "", kgerrors.NewValidation("direction", fmt.Sprintf("must be in, out or both, got %q", s))
	}
}

// NodeInput carries the caller-supplied fields of a node create
type NodeInput struct {
	ID         string         `json:"node_id"`
	Name       string         `json:"node_name"`
	Type       string         `json:"node_type,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
}

// NodeUpdate carries a partial node update; nil fields keep the stored value
type NodeUpdate struct {
	Name       *string        `json:"node_name,omitempty"`
	Type       *string        `json:"node_type,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
}

// EdgeInput carries the caller-supplied fields of an edge create. ID may be
// empty, in which case the engine derives one from source, relation and
// target. Weight defaults to 1.0 when nil.
type EdgeInput struct {
	ID         string         `json:"edge_id,omitempty"`
	Source     string         `json:"source_node_id"`
	Target     string         `json:"target_node_id"`
	Relation   string         `json:"relation_type,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
	Weight     *float64       `json:"weight,omitempty"`
}

// EdgeUpdate carries a partial edge update; nil fields keep the stored
// value. Changing source or target revalidates endpoint existence.
type EdgeUpdate struct {
	Source     *string        `json:"source_node_id,omitempty"`
	Target     *string        `json:"target_node_id,omitempty"`
	Relation   *string        `json:"relation_type,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
	Weight     *float64       `json:"weight,omitempty"`
}

// Stats summarizes one consistent snapshot of a collection
type Stats struct {
	NodeCount    int     `json:"node_count"`
	EdgeCount    int     `json:"edge_count"`
	MaxInDegree  int     `json:"max_in_degree"`
	MaxOutDegree int     `json:"max_out_degree"`
	AvgDegree    float64 `json:"avg_degree"`
}

// NeighborNode is a node reached by expansion, with its discovery depth
type NeighborNode struct {
	Node
	Depth int `json:"depth"`
}

// NeighborResult holds the nodes reached from a start node and the edges
// traversed to reach them. The start node itself is not included.
type NeighborResult struct {
	Nodes []NeighborNode `json:"nodes"`
	Edges []Edge         `json:"edges"`
}

// PathResult is the outcome of a path search. Found is false when the
// endpoints exist but no path connects them within the bound.
type PathResult struct {
	Found bool     `json:"found"`
	Nodes []string `json:"nodes,omitempty"`
	Edges []Edge   `json:"edges,omitempty"`
}

// ExportDocument is the interchange format for a whole collection. Its
// field names are stable; extensions must be new optional fields.
type ExportDocument struct {
	Collection string `json:"collection"`
	Nodes      []Node `json:"nodes"`
	Edges      []Edge `json:"edges"`
}

// ImportResult reports how many records an import applied
type ImportResult struct {
	NodesImported int `json:"nodes_imported"`
	EdgesImported int `json:"edges_imported"`
}

// BatchFailure identifies one failed item of a batch operation
type BatchFailure struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// BatchResult reports per-item outcomes of a batch create. One item's
// failure never rolls back another's success.
type BatchResult struct {
	Succeeded int            `json:"succeeded"`
	Failed    int            `json:"failed"`
	Failures  []BatchFailure `json:"failures,omitempty"`
}

// ContextResult is the search-then-format pipeline output consumed by the
// text-generation caller.
type ContextResult struct {
	Nodes   []Node `json:"nodes"`
	Edges   []Edge `json:"edges"`
	Context string `json:"context"`
}

// validateProperties checks a property bag against the closed variant type:
// string | number | bool | nil | nested map/slice thereof.
func validateProperties(props map[string]any) error {
	for key, val := range props {
		if key == "" {
			return kgerrors.NewValidation("properties", "empty property key")
		}
		if err := validatePropertyValue(key, val); err != nil {
			return err
		}
	}
	return nil
}

func validatePropertyValue(path string, val any) error {
	switch v := val.(type) {
	case nil, string, bool,
		int, int32, int64, float32, float64:
		return nil
	case map[string]any:
		for k, nested := range v {
			if err := validatePropertyValue(path+"."+k, nested); err != nil {
				return err
			}
		}
		return nil
	case []any:
		for i, nested := range v {
			if err := validatePropertyValue(fmt.Sprintf("%s[%d]", path, i), nested); err != nil {
				return err
			}
		}
		return nil
	default:
		return kgerrors.NewValidation("properties",
			fmt.Sprintf("unsupported value type %T at %s", val, strings.TrimPrefix(path, ".")))
	}
}
