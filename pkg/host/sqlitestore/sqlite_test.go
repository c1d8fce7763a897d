package sqlitestore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-frlayout/pkg/host"
	"github.com/dd0wney/cluso-frlayout/pkg/layout"
	"github.com/dd0wney/cluso-frlayout/pkg/metrics"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleGraph() *host.GraphFile {
	return &host.GraphFile{
		Viewport: &host.ViewportSize{Width: 640, Height: 480},
		Nodes: []layout.NodeRecord{
			{ID: "b", Position: layout.Position{X: 1.5, Y: -2}},
			{ID: "a", Position: layout.Position{X: 3, Y: 4}, Fixed: true},
			{ID: "c"},
		},
		Edges: []layout.EdgeRecord{
			{ID: "ba", Source: "b", Target: "a"},
			{Source: "a", Target: "c"},
		},
	}
}

func TestStore_SaveLoad(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	in := sampleGraph()
	require.NoError(t, s.SaveGraph(ctx, "g1", in))

	out, err := s.LoadGraph(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, in, out, "order, fixed flags and viewport survive")
}

func TestStore_SaveReplaces(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveGraph(ctx, "g1", sampleGraph()))
	small := &host.GraphFile{Nodes: []layout.NodeRecord{{ID: "only"}}}
	require.NoError(t, s.SaveGraph(ctx, "g1", small))

	out, err := s.LoadGraph(ctx, "g1")
	require.NoError(t, err)
	assert.Nil(t, out.Viewport)
	assert.Equal(t, small.Nodes, out.Nodes)
	assert.Empty(t, out.Edges)
}

func TestStore_LoadMissing(t *testing.T) {
	_, err := newStore(t).LoadGraph(context.Background(), "nope")
	assert.True(t, errors.Is(err, host.ErrGraphNotFound))
}

func TestStore_SavePositions(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveGraph(ctx, "g1", sampleGraph()))

	err := s.SavePositions(ctx, "g1", []layout.PositionUpdate{
		{ID: "a", Position: layout.Position{X: 10, Y: 20}},
		{ID: "c", Position: layout.Position{X: -5, Y: 0.25}},
	})
	require.NoError(t, err)

	out, err := s.LoadGraph(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, layout.Position{X: 1.5, Y: -2}, out.Nodes[0].Position)
	assert.Equal(t, layout.Position{X: 10, Y: 20}, out.Nodes[1].Position)
	assert.Equal(t, layout.Position{X: -5, Y: 0.25}, out.Nodes[2].Position)
}

func TestStore_SavePositionsUnknownRollsBack(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveGraph(ctx, "g1", sampleGraph()))

	err := s.SavePositions(ctx, "g1", []layout.PositionUpdate{
		{ID: "a", Position: layout.Position{X: 99, Y: 99}},
		{ID: "ghost"},
	})
	assert.True(t, errors.Is(err, host.ErrUnknownNode))

	out, err := s.LoadGraph(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, layout.Position{X: 3, Y: 4}, out.Nodes[1].Position)
}

func TestStore_ListGraphs(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	ids, err := s.ListGraphs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	for _, id := range []string{"zeta", "alpha"} {
		require.NoError(t, s.SaveGraph(ctx, id, sampleGraph()))
	}
	ids, err = s.ListGraphs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "zeta"}, ids)
	assert.Equal(t, "sqlite", s.Name())
}

func TestStore_FileBacked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layout.db")
	s, err := New(path)
	require.NoError(t, err)
	require.NoError(t, s.SaveGraph(context.Background(), "g", sampleGraph()))
	require.NoError(t, s.Close())

	s, err = New(path)
	require.NoError(t, err)
	defer s.Close()
	ids, err := s.ListGraphs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"g"}, ids)
}

func TestStore_PersistentLayout(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveGraph(ctx, "g1", sampleGraph()))

	g, err := host.OpenGraph(ctx, s, "g1", metrics.NewRegistry())
	require.NoError(t, err)

	cfg := layout.DefaultConfig()
	cfg.Iterations = 30
	e, err := layout.New(g, cfg)
	require.NoError(t, err)
	require.NoError(t, e.Run(ctx))

	out, err := s.LoadGraph(ctx, "g1")
	require.NoError(t, err)
	for i, n := range out.Nodes {
		mem, _ := g.Position(n.ID)
		assert.Equal(t, mem, n.Position, "node %d not persisted", i)
	}
	assert.Equal(t, layout.Position{X: 3, Y: 4}, out.Nodes[1].Position, "fixed node moved")
}
