package graph

import (
	"errors"
	"testing"
	"time"

	"github.com/oneconcern/braid/pkg/core/status"
	"github.com/oneconcern/braid/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(t testing.TB, offset int) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", "2024-03-01")
	require.NoError(t, err)
	return d.AddDate(0, 0, offset)
}

func TestTopologicalOrder(t *testing.T) {
	g := New()
	g.AddNode("task-1", day(t, 0))
	g.AddNode("task-2", day(t, 1))
	g.AddNode("task-3", day(t, 2))
	require.NoError(t, g.AddEdge("task-3", "task-1"))
	require.NoError(t, g.AddEdge("task-3", "task-2"))

	assert.Equal(t, []string{"task-1", "task-2", "task-3"}, g.TopologicalOrder())
}

func TestTopologicalOrderTieBreak(t *testing.T) {
	g := New()
	// same creation date everywhere: ties resolve by id, numerically
	for _, id := range []string{"task-10", "task-2", "task-1"} {
		g.AddNode(id, day(t, 0))
	}
	assert.Equal(t, []string{"task-1", "task-2", "task-10"}, g.TopologicalOrder())

	// an older node sorts first regardless of id
	g.AddNode("task-99", day(t, -1))
	assert.Equal(t, []string{"task-99", "task-1", "task-2", "task-10"}, g.TopologicalOrder())
}

func TestAddEdgeRejectsCycles(t *testing.T) {
	g := New()
	g.AddNode("task-1", day(t, 0))
	g.AddNode("task-2", day(t, 1))
	g.AddNode("task-3", day(t, 2))
	require.NoError(t, g.AddEdge("task-2", "task-1"))
	require.NoError(t, g.AddEdge("task-3", "task-2"))

	edgesBefore := g.Edges()

	err := g.AddEdge("task-1", "task-3")
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrCycle))

	err = g.AddEdge("task-1", "task-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrCycle))

	// the rejected insertions left no partial state behind
	assert.Equal(t, edgesBefore, g.Edges())
}

func TestHasPath(t *testing.T) {
	g := New()
	for i, id := range []string{"task-1", "task-2", "task-3", "task-4"} {
		g.AddNode(id, day(t, i))
	}
	require.NoError(t, g.AddEdge("task-2", "task-1"))
	require.NoError(t, g.AddEdge("task-3", "task-2"))

	assert.True(t, g.HasPath("task-3", "task-1"))
	assert.True(t, g.HasPath("task-2", "task-1"))
	assert.False(t, g.HasPath("task-1", "task-3"))
	assert.False(t, g.HasPath("task-4", "task-1"))
}

func TestRemoveNodeKeepsDependentEdges(t *testing.T) {
	g := New()
	g.AddNode("task-1", day(t, 0))
	g.AddNode("task-2", day(t, 1))
	require.NoError(t, g.AddEdge("task-2", "task-1"))

	g.RemoveNode("task-1")
	assert.False(t, g.HasNode("task-1"))
	// the dependent still declares its edge, now dangling
	assert.Equal(t, []string{"task-1"}, g.Dependencies("task-2"))
	// reinserting the target revives the path
	g.AddNode("task-1", day(t, 2))
	assert.True(t, g.HasPath("task-2", "task-1"))
}

func TestBuildReportsDanglingDependencies(t *testing.T) {
	created := day(t, 0)
	records := model.Records{
		{ID: "task-1", Kind: model.KindTask, Status: model.StatusOpen, Created: created},
		{ID: "task-2", Kind: model.KindTask, Status: model.StatusOpen, Created: created,
			Dependencies: []string{"task-1", "task-9"}},
		{ID: "doc-1", Kind: model.KindDocument, Status: model.StatusDraft, Created: created},
	}
	g, err := Build(records)
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrValidation))

	require.NotNil(t, g)
	assert.True(t, g.HasNode("doc-1"))
	assert.Equal(t, []string{"task-1", "task-9"}, g.Dependencies("task-2"))
}

func TestBuildAcceptsDocDependencies(t *testing.T) {
	created := day(t, 0)
	records := model.Records{
		{ID: "doc-1", Kind: model.KindDocument, Status: model.StatusDraft, Created: created},
		{ID: "task-1", Kind: model.KindTask, Status: model.StatusOpen, Created: created,
			Dependencies: []string{"doc-1"}},
	}
	g, err := Build(records)
	require.NoError(t, err)
	assert.True(t, g.HasPath("task-1", "doc-1"))
}

func TestRemoveEdge(t *testing.T) {
	g := New()
	g.AddNode("task-1", day(t, 0))
	g.AddNode("task-2", day(t, 1))
	require.NoError(t, g.AddEdge("task-2", "task-1"))

	g.RemoveEdge("task-2", "task-1")
	assert.Empty(t, g.Dependencies("task-2"))
	assert.Empty(t, g.Dependents("task-1"))

	// removing an edge that was never there is a no-op
	g.RemoveEdge("task-1", "task-2")
}

func TestDependentsAndDependencies(t *testing.T) {
	g := New()
	for i, id := range []string{"task-1", "task-2", "task-3"} {
		g.AddNode(id, day(t, i))
	}
	require.NoError(t, g.AddEdge("task-2", "task-1"))
	require.NoError(t, g.AddEdge("task-3", "task-1"))

	assert.Equal(t, []string{"task-2", "task-3"}, g.Dependents("task-1"))
	assert.Equal(t, []string{"task-1"}, g.Dependencies("task-3"))
}
