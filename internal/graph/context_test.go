package graph

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kgerrors "kgraph/pkg/errors"
)

func TestGraphContext_Pipeline(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	_, err := s.CreateNode(ctx, "kg1", NodeInput{
		ID: "p1", Name: "Alice", Type: "Person",
		Properties: map[string]any{"age": 30, "city": "Berlin"},
	})
	require.NoError(t, err)
	_, err = s.CreateNode(ctx, "kg1", NodeInput{ID: "c1", Name: "Acme", Type: "Company"})
	require.NoError(t, err)
	_, err = s.CreateEdge(ctx, "kg1", EdgeInput{ID: "e1", Source: "p1", Target: "c1", Relation: "works_at"})
	require.NoError(t, err)

	result, err := s.GraphContext(ctx, "kg1", "Alice", 5, 4000)
	require.NoError(t, err)
	require.Len(t, result.Nodes, 1)
	assert.Equal(t, "p1", result.Nodes[0].ID)
	require.Len(t, result.Edges, 1)

	assert.Contains(t, result.Context, "# Knowledge Graph Context")
	assert.Contains(t, result.Context, "## Entity: Alice (Person)")
	assert.Contains(t, result.Context, "  - age: 30")
	assert.Contains(t, result.Context, "  - city: Berlin")
	// Properties render in sorted key order.
	assert.Less(t, strings.Index(result.Context, "age:"), strings.Index(result.Context, "city:"))
	// The edge target resolves to its display name.
	assert.Contains(t, result.Context, "  - works_at -> Acme")
}

func TestGraphContext_NoMatches(t *testing.T) {
	s := newTestService()
	seedTriple(t, s, "kg1")

	result, err := s.GraphContext(context.Background(), "kg1", "zzz-nothing", 5, 4000)
	require.NoError(t, err)
	assert.Empty(t, result.Nodes)
	assert.Empty(t, result.Edges)
	assert.Equal(t, NoKnowledgeSentinel, result.Context)
}

func TestGraphContext_Validation(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	_, err := s.GraphContext(ctx, "kg1", "  ", 5, 4000)
	assert.True(t, kgerrors.IsErrorType(err, kgerrors.ErrorTypeValidation))
	_, err = s.GraphContext(ctx, "kg1", "Alice", 0, 4000)
	assert.True(t, kgerrors.IsErrorType(err, kgerrors.ErrorTypeValidation))
	_, err = s.GraphContext(ctx, "kg1", "Alice", 5, 0)
	assert.True(t, kgerrors.IsErrorType(err, kgerrors.ErrorTypeValidation))
}

func TestFormatContext_BudgetDropsLowestRanked(t *testing.T) {
	s := newTestService()

	first := Node{ID: "p1", Name: "Alice", Type: "Person"}
	second := Node{ID: "p2", Name: "Alicia", Type: "Person"}

	full := s.FormatContext([]Node{first, second}, nil, 10000)
	assert.Contains(t, full, "Alicia")

	// A budget that fits only the first block drops the second whole,
	// never mid-block.
	firstOnly := s.FormatContext([]Node{first}, nil, 10000)
	tight := s.FormatContext([]Node{first, second}, nil, len(firstOnly)+5)
	assert.Equal(t, firstOnly, tight)
	assert.NotContains(t, tight, "Alicia")
	assert.LessOrEqual(t, len(tight), len(firstOnly)+5)
}

func TestFormatContext_Sentinels(t *testing.T) {
	s := newTestService()

	assert.Equal(t, NoKnowledgeSentinel, s.FormatContext(nil, nil, 4000))

	// A budget too small for even one block yields the sentinel rather
	// than a truncated header.
	node := Node{ID: "p1", Name: "Alice"}
	assert.Equal(t, NoKnowledgeSentinel, s.FormatContext([]Node{node}, nil, 10))
	assert.Equal(t, NoKnowledgeSentinel, s.FormatContext([]Node{node}, nil, len("# Knowledge Graph Context")))
}

func TestFormatContext_UnknownEndpointFallsBackToID(t *testing.T) {
	s := newTestService()

	node := Node{ID: "p1", Name: "Alice"}
	edge := Edge{ID: "e1", Source: "p1", Target: "mystery", Relation: "knows", Weight: 1}
	out := s.FormatContext([]Node{node}, []Edge{edge}, 4000)
	assert.Contains(t, out, "  - knows -> mystery")
	// An empty type renders as uncategorized.
	assert.Contains(t, out, "## Entity: Alice (uncategorized)")
}
