package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kgraph/internal/store"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "kg.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNodeRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	rec, err := s.GetNode(ctx, "kg1", "p1")
	require.NoError(t, err)
	assert.Nil(t, rec)

	node := store.NodeRecord{
		ID: "p1", Name: "Alice", Type: "Person",
		Properties: map[string]any{"age": float64(30), "city": "Berlin"},
		CreatedAt:  now, UpdatedAt: now,
	}
	require.NoError(t, s.UpsertNode(ctx, "kg1", node))

	rec, err = s.GetNode(ctx, "kg1", "p1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "Alice", rec.Name)
	assert.Equal(t, "Person", rec.Type)
	assert.Equal(t, float64(30), rec.Properties["age"])
	assert.True(t, rec.CreatedAt.Equal(now))

	// Upsert on the same key replaces the row.
	node.Name = "Alice Smith"
	node.Properties = nil
	require.NoError(t, s.UpsertNode(ctx, "kg1", node))
	rec, err = s.GetNode(ctx, "kg1", "p1")
	require.NoError(t, err)
	assert.Equal(t, "Alice Smith", rec.Name)
	assert.Nil(t, rec.Properties)
}

func TestEdgeRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	edge := store.EdgeRecord{
		ID: "e1", Source: "p1", Target: "p2", Relation: "knows", Weight: 0,
		CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, s.UpsertEdge(ctx, "kg1", edge))

	rec, err := s.GetEdge(ctx, "kg1", "e1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "p1", rec.Source)
	assert.Equal(t, "knows", rec.Relation)
	// Explicit zero weight survives storage.
	assert.Equal(t, 0.0, rec.Weight)
}

func TestListNodes_FilterSortLimit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for _, n := range []store.NodeRecord{
		{ID: "c", Name: "Carol", Type: "Person", CreatedAt: now, UpdatedAt: now},
		{ID: "a", Name: "Alice", Type: "Person", CreatedAt: now, UpdatedAt: now},
		{ID: "b", Name: "Acme", Type: "Company", CreatedAt: now, UpdatedAt: now},
	} {
		require.NoError(t, s.UpsertNode(ctx, "kg1", n))
	}

	nodes, err := s.ListNodes(ctx, "kg1", store.NodeFilter{})
	require.NoError(t, err)
	require.Len(t, nodes, 3)
	assert.Equal(t, "a", nodes[0].ID)
	assert.Equal(t, "c", nodes[2].ID)

	nodes, err = s.ListNodes(ctx, "kg1", store.NodeFilter{Type: "Company"})
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "b", nodes[0].ID)

	nodes, err = s.ListNodes(ctx, "kg1", store.NodeFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, nodes, 2)
}

func TestListEdges_Filters(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for _, e := range []store.EdgeRecord{
		{ID: "e1", Source: "p1", Target: "p2", Relation: "knows", Weight: 1, CreatedAt: now, UpdatedAt: now},
		{ID: "e2", Source: "p2", Target: "p3", Relation: "knows", Weight: 1, CreatedAt: now, UpdatedAt: now},
		{ID: "e3", Source: "p3", Target: "p1", Relation: "likes", Weight: 1, CreatedAt: now, UpdatedAt: now},
	} {
		require.NoError(t, s.UpsertEdge(ctx, "kg1", e))
	}

	edges, err := s.ListEdges(ctx, "kg1", store.EdgeFilter{NodeID: "p1"})
	require.NoError(t, err)
	require.Len(t, edges, 2)
	assert.Equal(t, "e1", edges[0].ID)
	assert.Equal(t, "e3", edges[1].ID)

	edges, err = s.ListEdges(ctx, "kg1", store.EdgeFilter{NodeID: "p1", Relation: "likes"})
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, "e3", edges[0].ID)
}

func TestDeleteAndCascadeHelpers(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, s.UpsertNode(ctx, "kg1", store.NodeRecord{ID: "p1", Name: "Alice", CreatedAt: now, UpdatedAt: now}))
	for _, e := range []store.EdgeRecord{
		{ID: "e1", Source: "p1", Target: "p2", Weight: 1, CreatedAt: now, UpdatedAt: now},
		{ID: "e2", Source: "p3", Target: "p1", Weight: 1, CreatedAt: now, UpdatedAt: now},
		{ID: "e3", Source: "p2", Target: "p3", Weight: 1, CreatedAt: now, UpdatedAt: now},
	} {
		require.NoError(t, s.UpsertEdge(ctx, "kg1", e))
	}

	removed, err := s.DeleteEdgesTouching(ctx, "kg1", "p1")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	existed, err := s.DeleteNode(ctx, "kg1", "p1")
	require.NoError(t, err)
	assert.True(t, existed)
	existed, err = s.DeleteNode(ctx, "kg1", "p1")
	require.NoError(t, err)
	assert.False(t, existed)

	existed, err = s.DeleteEdge(ctx, "kg1", "e3")
	require.NoError(t, err)
	assert.True(t, existed)
}

func TestCountAndClear_CollectionScoped(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, s.UpsertNode(ctx, "kg1", store.NodeRecord{ID: "p1", Name: "Alice", CreatedAt: now, UpdatedAt: now}))
	require.NoError(t, s.UpsertEdge(ctx, "kg1", store.EdgeRecord{ID: "e1", Source: "p1", Target: "p1", Weight: 1, CreatedAt: now, UpdatedAt: now}))
	require.NoError(t, s.UpsertNode(ctx, "kg2", store.NodeRecord{ID: "q1", Name: "Other", CreatedAt: now, UpdatedAt: now}))

	nodes, edges, err := s.Count(ctx, "kg1")
	require.NoError(t, err)
	assert.Equal(t, 1, nodes)
	assert.Equal(t, 1, edges)

	require.NoError(t, s.Clear(ctx, "kg1"))
	nodes, edges, err = s.Count(ctx, "kg1")
	require.NoError(t, err)
	assert.Zero(t, nodes)
	assert.Zero(t, edges)

	nodes, _, err = s.Count(ctx, "kg2")
	require.NoError(t, err)
	assert.Equal(t, 1, nodes)
}
