package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	memorystore "kgraph/internal/store/memory"
	kgerrors "kgraph/pkg/errors"
)

func newTestService() *Service {
	return NewService(memorystore.New())
}

// seedTriple builds the Alice-knows-Bob fixture used across tests
func seedTriple(t *testing.T, s *Service, collection string) {
	t.Helper()
	ctx := context.Background()
	_, err := s.CreateNode(ctx, collection, NodeInput{ID: "p1", Name: "Alice", Type: "Person"})
	require.NoError(t, err)
	_, err = s.CreateNode(ctx, collection, NodeInput{ID: "p2", Name: "Bob", Type: "Person"})
	require.NoError(t, err)
	_, err = s.CreateEdge(ctx, collection, EdgeInput{ID: "e1", Source: "p1", Target: "p2", Relation: "knows"})
	require.NoError(t, err)
}

func TestCreateNode_DuplicateID(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	_, err := s.CreateNode(ctx, "kg1", NodeInput{ID: "p1", Name: "Alice"})
	require.NoError(t, err)

	_, err = s.CreateNode(ctx, "kg1", NodeInput{ID: "p1", Name: "Eve"})
	require.Error(t, err)
	assert.True(t, kgerrors.IsErrorType(err, kgerrors.ErrorTypeDuplicate))

	// The stored node must be unchanged.
	node, err := s.GetNode(ctx, "kg1", "p1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", node.Name)
}

func TestCreateNode_Validation(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	_, err := s.CreateNode(ctx, "kg1", NodeInput{ID: "", Name: "Alice"})
	assert.True(t, kgerrors.IsErrorType(err, kgerrors.ErrorTypeValidation))

	_, err = s.CreateNode(ctx, "kg1", NodeInput{ID: "p1", Name: ""})
	assert.True(t, kgerrors.IsErrorType(err, kgerrors.ErrorTypeValidation))

	_, err = s.CreateNode(ctx, "kg1", NodeInput{
		ID: "p1", Name: "Alice",
		Properties: map[string]any{"bad": make(chan int)},
	})
	assert.True(t, kgerrors.IsErrorType(err, kgerrors.ErrorTypeValidation))
}

func TestCreateEdge_EndpointNotFound(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	_, err := s.CreateNode(ctx, "kg1", NodeInput{ID: "p1", Name: "Alice"})
	require.NoError(t, err)

	_, err = s.CreateEdge(ctx, "kg1", EdgeInput{ID: "e1", Source: "p1", Target: "ghost"})
	require.Error(t, err)
	assert.True(t, kgerrors.IsErrorType(err, kgerrors.ErrorTypeEndpoint))

	// Once both endpoints exist the same create succeeds and the edge is
	// retrievable.
	_, err = s.CreateNode(ctx, "kg1", NodeInput{ID: "ghost", Name: "Ghost"})
	require.NoError(t, err)
	_, err = s.CreateEdge(ctx, "kg1", EdgeInput{ID: "e1", Source: "p1", Target: "ghost"})
	require.NoError(t, err)

	edge, err := s.GetEdge(ctx, "kg1", "e1")
	require.NoError(t, err)
	assert.Equal(t, "p1", edge.Source)
	assert.Equal(t, 1.0, edge.Weight)
}

func TestCreateEdge_DerivedAndParallelIDs(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	seedTriple(t, s, "kg1")

	edge, err := s.CreateEdge(ctx, "kg1", EdgeInput{Source: "p1", Target: "p2", Relation: "likes"})
	require.NoError(t, err)
	assert.Equal(t, "p1_likes_p2", edge.ID)

	// A second identical create must not collide with the derived id.
	parallel, err := s.CreateEdge(ctx, "kg1", EdgeInput{Source: "p1", Target: "p2", Relation: "likes"})
	require.NoError(t, err)
	assert.NotEqual(t, edge.ID, parallel.ID)
}

func TestDeleteNode_CascadesEdges(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	seedTriple(t, s, "kg1")

	// An incoming edge must cascade too.
	_, err := s.CreateNode(ctx, "kg1", NodeInput{ID: "p3", Name: "Carol", Type: "Person"})
	require.NoError(t, err)
	_, err = s.CreateEdge(ctx, "kg1", EdgeInput{ID: "e2", Source: "p3", Target: "p1", Relation: "knows"})
	require.NoError(t, err)

	require.NoError(t, s.DeleteNode(ctx, "kg1", "p1"))

	stats, err := s.Stats(ctx, "kg1")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.NodeCount)
	assert.Equal(t, 0, stats.EdgeCount)

	_, err = s.GetEdge(ctx, "kg1", "e1")
	assert.True(t, kgerrors.IsErrorType(err, kgerrors.ErrorTypeNotFound))
	_, err = s.GetEdge(ctx, "kg1", "e2")
	assert.True(t, kgerrors.IsErrorType(err, kgerrors.ErrorTypeNotFound))
}

func TestDeleteNode_NotFound(t *testing.T) {
	s := newTestService()
	err := s.DeleteNode(context.Background(), "kg1", "nope")
	assert.True(t, kgerrors.IsErrorType(err, kgerrors.ErrorTypeNotFound))
}

func TestUpdateNode_PartialFields(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	_, err := s.CreateNode(ctx, "kg1", NodeInput{
		ID: "p1", Name: "Alice", Type: "Person",
		Properties: map[string]any{"age": 30},
	})
	require.NoError(t, err)

	newType := "Employee"
	node, err := s.UpdateNode(ctx, "kg1", "p1", NodeUpdate{Type: &newType})
	require.NoError(t, err)

	// Unspecified fields survive.
	assert.Equal(t, "Alice", node.Name)
	assert.Equal(t, "Employee", node.Type)
	assert.Equal(t, 30, node.Properties["age"])
}

func TestUpdateEdge_EndpointRevalidation(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	seedTriple(t, s, "kg1")

	ghost := "ghost"
	_, err := s.UpdateEdge(ctx, "kg1", "e1", EdgeUpdate{Target: &ghost})
	assert.True(t, kgerrors.IsErrorType(err, kgerrors.ErrorTypeEndpoint))

	weight := 2.5
	edge, err := s.UpdateEdge(ctx, "kg1", "e1", EdgeUpdate{Weight: &weight})
	require.NoError(t, err)
	assert.Equal(t, 2.5, edge.Weight)
	assert.Equal(t, "knows", edge.Relation)
}

func TestNeighbors_DirectOut(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	seedTriple(t, s, "kg1")

	result, err := s.Neighbors(ctx, "kg1", "p1", DirectionOut, 1)
	require.NoError(t, err)
	require.Len(t, result.Nodes, 1)
	assert.Equal(t, "p2", result.Nodes[0].ID)
	assert.Equal(t, 1, result.Nodes[0].Depth)
	require.Len(t, result.Edges, 1)
	assert.Equal(t, "e1", result.Edges[0].ID)

	// Reverse direction from p1 reaches nothing.
	result, err = s.Neighbors(ctx, "kg1", "p1", DirectionIn, 1)
	require.NoError(t, err)
	assert.Empty(t, result.Nodes)
}

func TestNeighbors_BothDirections(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	seedTriple(t, s, "kg1")
	_, err := s.CreateNode(ctx, "kg1", NodeInput{ID: "p3", Name: "Carol"})
	require.NoError(t, err)
	_, err = s.CreateEdge(ctx, "kg1", EdgeInput{ID: "e2", Source: "p3", Target: "p1", Relation: "knows"})
	require.NoError(t, err)

	// With direction both, the incoming edge from p3 is walked back to
	// its source.
	result, err := s.Neighbors(ctx, "kg1", "p1", DirectionBoth, 1)
	require.NoError(t, err)
	require.Len(t, result.Nodes, 2)
	ids := map[string]bool{}
	for _, n := range result.Nodes {
		ids[n.ID] = true
	}
	assert.True(t, ids["p2"])
	assert.True(t, ids["p3"])
	require.Len(t, result.Edges, 2)
	assert.Equal(t, "e1", result.Edges[0].ID)
	assert.Equal(t, "e2", result.Edges[1].ID)
}

func TestNeighbors_DepthAndDedup(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	// p1 -> p2 -> p3 and a shortcut p1 -> p3.
	seedTriple(t, s, "kg1")
	_, err := s.CreateNode(ctx, "kg1", NodeInput{ID: "p3", Name: "Carol"})
	require.NoError(t, err)
	_, err = s.CreateEdge(ctx, "kg1", EdgeInput{ID: "e2", Source: "p2", Target: "p3"})
	require.NoError(t, err)
	_, err = s.CreateEdge(ctx, "kg1", EdgeInput{ID: "e3", Source: "p1", Target: "p3"})
	require.NoError(t, err)

	result, err := s.Neighbors(ctx, "kg1", "p1", DirectionOut, 2)
	require.NoError(t, err)
	require.Len(t, result.Nodes, 2)

	// p3 is reachable at depth 1 (shortcut) and depth 2; first-discovered
	// distance wins and it appears once.
	depths := map[string]int{}
	for _, n := range result.Nodes {
		depths[n.ID] = n.Depth
	}
	assert.Equal(t, 1, depths["p2"])
	assert.Equal(t, 1, depths["p3"])
}

func TestNeighbors_Errors(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	seedTriple(t, s, "kg1")

	_, err := s.Neighbors(ctx, "kg1", "ghost", DirectionOut, 1)
	assert.True(t, kgerrors.IsErrorType(err, kgerrors.ErrorTypeNotFound))

	_, err = s.Neighbors(ctx, "kg1", "p1", DirectionOut, 0)
	assert.True(t, kgerrors.IsErrorType(err, kgerrors.ErrorTypeValidation))
}

func TestFindPath_Shortest(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	// Long way p1->p2->p3->p4 and short way p1->p3->p4.
	for _, id := range []string{"p1", "p2", "p3", "p4"} {
		_, err := s.CreateNode(ctx, "kg1", NodeInput{ID: id, Name: id})
		require.NoError(t, err)
	}
	for _, e := range [][3]string{
		{"a1", "p1", "p2"}, {"a2", "p2", "p3"}, {"a3", "p3", "p4"}, {"b1", "p1", "p3"},
	} {
		_, err := s.CreateEdge(ctx, "kg1", EdgeInput{ID: e[0], Source: e[1], Target: e[2]})
		require.NoError(t, err)
	}

	result, err := s.FindPath(ctx, "kg1", "p1", "p4", 5)
	require.NoError(t, err)
	require.True(t, result.Found)
	assert.Equal(t, []string{"p1", "p3", "p4"}, result.Nodes)
	require.Len(t, result.Edges, 2)
	assert.Equal(t, "b1", result.Edges[0].ID)
	assert.Equal(t, "a3", result.Edges[1].ID)
}

func TestFindPath_BoundAndNoPath(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	seedTriple(t, s, "kg1")
	_, err := s.CreateNode(ctx, "kg1", NodeInput{ID: "p3", Name: "Carol"})
	require.NoError(t, err)
	_, err = s.CreateEdge(ctx, "kg1", EdgeInput{ID: "e2", Source: "p2", Target: "p3"})
	require.NoError(t, err)

	// Two hops needed, bound of one: no path, not an error.
	result, err := s.FindPath(ctx, "kg1", "p1", "p3", 1)
	require.NoError(t, err)
	assert.False(t, result.Found)

	// Edges are directed; nothing leads back to p1.
	result, err = s.FindPath(ctx, "kg1", "p3", "p1", 5)
	require.NoError(t, err)
	assert.False(t, result.Found)

	_, err = s.FindPath(ctx, "kg1", "p1", "ghost", 5)
	assert.True(t, kgerrors.IsErrorType(err, kgerrors.ErrorTypeNotFound))
}

func TestFindPath_SameNode(t *testing.T) {
	s := newTestService()
	seedTriple(t, s, "kg1")

	result, err := s.FindPath(context.Background(), "kg1", "p1", "p1", 3)
	require.NoError(t, err)
	require.True(t, result.Found)
	assert.Equal(t, []string{"p1"}, result.Nodes)
	assert.Empty(t, result.Edges)
}

func TestStats_Scenario(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	seedTriple(t, s, "kg1")

	stats, err := s.Stats(ctx, "kg1")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.NodeCount)
	assert.Equal(t, 1, stats.EdgeCount)
	assert.Equal(t, 1, stats.MaxOutDegree)
	assert.Equal(t, 1, stats.MaxInDegree)

	require.NoError(t, s.DeleteNode(ctx, "kg1", "p1"))

	stats, err = s.Stats(ctx, "kg1")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.NodeCount)
	assert.Equal(t, 0, stats.EdgeCount)
}

func TestStats_EmptyCollection(t *testing.T) {
	s := newTestService()
	stats, err := s.Stats(context.Background(), "nothing-here")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.NodeCount)
	assert.Equal(t, 0, stats.EdgeCount)
}

func TestBatchCreateNodes_PartialFailure(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	_, err := s.CreateNode(ctx, "kg1", NodeInput{ID: "p1", Name: "Alice"})
	require.NoError(t, err)

	result, err := s.BatchCreateNodes(ctx, "kg1", []NodeInput{
		{ID: "p1", Name: "Duplicate"},
		{ID: "p2", Name: "Bob"},
		{ID: "", Name: "NoID"},
		{ID: "p3", Name: "Carol"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, 2, result.Failed)
	require.Len(t, result.Failures, 2)
	assert.Equal(t, "p1", result.Failures[0].ID)

	// Failures never abort later items.
	_, err = s.GetNode(ctx, "kg1", "p3")
	assert.NoError(t, err)
}

func TestBatchCreateEdges_PartialFailure(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	seedTriple(t, s, "kg1")

	result, err := s.BatchCreateEdges(ctx, "kg1", []EdgeInput{
		{ID: "e1", Source: "p1", Target: "p2"},    // duplicate
		{ID: "e2", Source: "p1", Target: "ghost"}, // bad endpoint
		{ID: "e3", Source: "p2", Target: "p1"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 2, result.Failed)

	_, err = s.GetEdge(ctx, "kg1", "e3")
	assert.NoError(t, err)
}

func TestClear_Idempotent(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	seedTriple(t, s, "kg1")

	require.NoError(t, s.Clear(ctx, "kg1"))
	stats, err := s.Stats(ctx, "kg1")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.NodeCount)

	// Clearing again succeeds.
	require.NoError(t, s.Clear(ctx, "kg1"))
}

func TestCollections_AreIsolated(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	seedTriple(t, s, "kg1")

	_, err := s.GetNode(ctx, "kg2", "p1")
	assert.True(t, kgerrors.IsErrorType(err, kgerrors.ErrorTypeNotFound))

	// An edge in kg2 cannot reference kg1's nodes.
	_, err = s.CreateEdge(ctx, "kg2", EdgeInput{ID: "x", Source: "p1", Target: "p2"})
	assert.True(t, kgerrors.IsErrorType(err, kgerrors.ErrorTypeEndpoint))
}
