package reconcile

import (
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/oneconcern/braid/pkg/core/status"
	"github.com/oneconcern/braid/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(t testing.TB) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", "2024-03-01")
	require.NoError(t, err)
	return d
}

func task(t testing.TB, id, title string, deps ...string) model.Record {
	t.Helper()
	return model.Record{
		ID:           id,
		Kind:         model.KindTask,
		Title:        title,
		Status:       model.StatusOpen,
		Created:      day(t),
		Dependencies: deps,
	}
}

func snapshot(branch string, records ...model.Record) model.BranchSnapshot {
	s := model.BranchSnapshot{Branch: branch, Records: make(map[string]model.Record, len(records))}
	for _, r := range records {
		s.Records[r.ID] = r
	}
	return s
}

// contentSet captures the multiset of record contents regardless of ids
func contentSet(t testing.TB, resolved map[string]model.Record) []string {
	t.Helper()
	out := make([]string, 0, len(resolved))
	for _, r := range resolved {
		out = append(out, skeleton(&r))
	}
	sort.Strings(out)
	return out
}

func TestMergeDisjoint(t *testing.T) {
	local := snapshot("main", task(t, "task-1", "local work"))
	remote := snapshot("feature", task(t, "task-2", "remote work"))

	res, err := Merge(local, remote)
	require.NoError(t, err)
	assert.Empty(t, res.Conflicts)
	require.Len(t, res.Resolved, 2)
	assert.Equal(t, "local work", res.Resolved["task-1"].Title)
	assert.Equal(t, "remote work", res.Resolved["task-2"].Title)
}

func TestMergeIdenticalRecords(t *testing.T) {
	shared := task(t, "task-1", "same everywhere")
	local := snapshot("main", shared)
	remote := snapshot("feature", shared)

	res, err := Merge(local, remote)
	require.NoError(t, err)
	assert.Empty(t, res.Conflicts)
	require.Len(t, res.Resolved, 1)
	assert.Equal(t, "same everywhere", res.Resolved["task-1"].Title)
}

func TestMergeCollisionRenames(t *testing.T) {
	local := snapshot("main",
		task(t, "task-4", "local extra"),
		task(t, "task-5", "Fix bug"),
	)
	remote := snapshot("feature",
		task(t, "task-5", "Improve logging"),
		task(t, "task-7", "remote follow-up", "task-5"),
	)

	res, err := Merge(local, remote)
	require.NoError(t, err)

	// the local record keeps its id, the remote one is renumbered to the
	// lowest unused suffix above the collided id
	require.Len(t, res.Conflicts, 1)
	conflict := res.Conflicts[0]
	assert.Equal(t, "task-5", conflict.OriginalID)
	assert.Equal(t, "task-6", conflict.RenamedID)

	require.Len(t, res.Resolved, 4)
	assert.Equal(t, "Fix bug", res.Resolved["task-5"].Title)
	assert.Equal(t, "Improve logging", res.Resolved["task-6"].Title)

	// the remote-authored edge follows the rename
	assert.Equal(t, []string{"task-6"}, res.Resolved["task-7"].Dependencies)
	require.Len(t, conflict.RewrittenEdges, 1)
	assert.Equal(t, model.DependencyEdge{From: "task-7", To: "task-6"}, conflict.RewrittenEdges[0])
}

func TestMergeRenameSkipsGapsBelowCollision(t *testing.T) {
	// suffixes 1..4 are free, but a rename never falls below the record it
	// collided with
	local := snapshot("main", task(t, "task-5", "Fix bug"))
	remote := snapshot("feature",
		task(t, "task-5", "Improve logging"),
		task(t, "task-7", "remote follow-up", "task-5"),
	)

	res, err := Merge(local, remote)
	require.NoError(t, err)

	require.Len(t, res.Conflicts, 1)
	assert.Equal(t, "task-6", res.Conflicts[0].RenamedID)
	assert.NotContains(t, res.Resolved, "task-1")
	assert.Equal(t, "Improve logging", res.Resolved["task-6"].Title)
	assert.Equal(t, []string{"task-6"}, res.Resolved["task-7"].Dependencies)
}

func TestMergeIsIdempotent(t *testing.T) {
	local := snapshot("main", task(t, "task-5", "Fix bug"))
	remote := snapshot("feature",
		task(t, "task-5", "Improve logging"),
		task(t, "task-7", "remote follow-up", "task-5"),
	)

	first, err := Merge(local, remote)
	require.NoError(t, err)
	require.Len(t, first.Resolved, 3)

	// merging the already-merged set against the same remote changes nothing
	merged := model.BranchSnapshot{Branch: "main", Records: first.Resolved}
	second, err := Merge(merged, remote)
	require.NoError(t, err)
	assert.Equal(t, first.Resolved, second.Resolved)
}

func TestMergeOrderIndependentContent(t *testing.T) {
	s1 := snapshot("main",
		task(t, "task-1", "shared base"),
		task(t, "task-2", "local take"),
	)
	s2 := snapshot("feature",
		task(t, "task-1", "shared base"),
		task(t, "task-2", "remote take"),
		task(t, "task-3", "remote only"),
	)

	ab, err := Merge(s1, s2)
	require.NoError(t, err)
	ba, err := Merge(s2, s1)
	require.NoError(t, err)

	// either merge order resolves to the same ids and the same contents
	assert.Equal(t, contentSet(t, ab.Resolved), contentSet(t, ba.Resolved))
	idsOf := func(resolved map[string]model.Record) []string {
		out := make([]string, 0, len(resolved))
		for id := range resolved {
			out = append(out, id)
		}
		sort.Strings(out)
		return out
	}
	assert.Equal(t, idsOf(ab.Resolved), idsOf(ba.Resolved))
}

func TestMergeRejectsIntroducedCycle(t *testing.T) {
	// each snapshot is acyclic on its own; union of edges closes a loop
	local := snapshot("main", task(t, "task-1", "depends forward", "task-2"))
	remote := snapshot("feature", task(t, "task-2", "depends backward", "task-1"))

	_, err := Merge(local, remote)
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrReconciliation))
}

func TestMergeRenumbersAcrossKinds(t *testing.T) {
	localDoc := model.Record{ID: "doc-1", Kind: model.KindDocument, Title: "local notes",
		Status: model.StatusDraft, Created: day(t)}
	remoteDoc := model.Record{ID: "doc-1", Kind: model.KindDocument, Title: "remote notes",
		Status: model.StatusDraft, Created: day(t)}

	res, err := Merge(snapshot("main", localDoc), snapshot("feature", remoteDoc))
	require.NoError(t, err)
	require.Len(t, res.Conflicts, 1)
	assert.Equal(t, "doc-2", res.Conflicts[0].RenamedID)
	assert.Equal(t, "remote notes", res.Resolved["doc-2"].Title)
}
