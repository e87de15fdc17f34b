package store

import (
	"bytes"
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/oneconcern/braid/pkg/core/status"
	"github.com/oneconcern/braid/pkg/model"
	"github.com/oneconcern/braid/pkg/storage"
	"github.com/oneconcern/braid/pkg/storage/localfs"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testStore(t testing.TB) (*Store, storage.Store) {
	t.Helper()
	backend, err := localfs.New(afero.NewMemMapFs())
	require.NoError(t, err)
	s, err := New(Backend(backend))
	require.NoError(t, err)
	return s, backend
}

func testTask(t testing.TB, id, title string) model.Record {
	t.Helper()
	created, err := time.Parse("2006-01-02", "2024-03-15")
	require.NoError(t, err)
	return model.Record{
		ID:      id,
		Kind:    model.KindTask,
		Title:   title,
		Status:  model.StatusOpen,
		Created: created,
	}
}

func TestCreateAndLoad(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()

	r := testTask(t, "task-1", "first")
	hash, err := s.Create(ctx, &r)
	require.NoError(t, err)
	require.NotEmpty(t, hash)

	loaded, err := s.Load(ctx, "task-1")
	require.NoError(t, err)
	assert.Equal(t, "first", loaded.Title)
	assert.Equal(t, hash, loaded.ContentHash)

	dup := testTask(t, "task-1", "again")
	_, err = s.Create(ctx, &dup)
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrConflict))
}

func TestLoadNotFound(t *testing.T) {
	s, _ := testStore(t)

	_, err := s.Load(context.Background(), "task-404")
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrNotFound))

	_, err = s.Load(context.Background(), "not-an-id")
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrValidation))
}

func TestSaveConflictOnStaleHash(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()

	r := testTask(t, "task-1", "first")
	_, err := s.Create(ctx, &r)
	require.NoError(t, err)

	loaded, err := s.Load(ctx, "task-1")
	require.NoError(t, err)

	winner := loaded.Clone()
	winner.Title = "updated by the winner"
	_, err = s.Save(ctx, &winner, loaded.ContentHash)
	require.NoError(t, err)

	loser := loaded.Clone()
	loser.Title = "updated by the loser"
	_, err = s.Save(ctx, &loser, loaded.ContentHash)
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrConflict))

	final, err := s.Load(ctx, "task-1")
	require.NoError(t, err)
	assert.Equal(t, "updated by the winner", final.Title)
}

func TestConcurrentUpdates(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()

	r := testTask(t, "task-1", "shared")
	_, err := s.Create(ctx, &r)
	require.NoError(t, err)

	const writers = 16
	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		label := "writer-" + strconv.Itoa(i)
		go func() {
			defer wg.Done()
			_, uerr := s.Update(ctx, "task-1", func(r *model.Record) error {
				r.Labels = append(r.Labels, label)
				return nil
			})
			assert.NoError(t, uerr)
		}()
	}
	wg.Wait()

	final, err := s.Load(ctx, "task-1")
	require.NoError(t, err)
	assert.Len(t, final.Labels, writers)
}

func TestUpdateRejectsIDChange(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()

	r := testTask(t, "task-1", "first")
	_, err := s.Create(ctx, &r)
	require.NoError(t, err)

	_, err = s.Update(ctx, "task-1", func(r *model.Record) error {
		r.ID = "task-2"
		return nil
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrValidation))
}

func TestDelete(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()

	r := testTask(t, "task-1", "first")
	_, err := s.Create(ctx, &r)
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "task-1"))
	has, err := s.Has(ctx, "task-1")
	require.NoError(t, err)
	assert.False(t, has)

	err = s.Delete(ctx, "task-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrNotFound))
}

func TestListSkipsMalformedRecords(t *testing.T) {
	s, backend := testStore(t)
	ctx := context.Background()

	for _, id := range []string{"task-2", "task-10", "task-1"} {
		r := testTask(t, id, "task "+id)
		_, err := s.Create(ctx, &r)
		require.NoError(t, err)
	}
	err := backend.Put(ctx, "records/task-3.md", bytes.NewBufferString("not a record"), storage.OverWrite)
	require.NoError(t, err)

	records, err := s.ListRecords(ctx)
	require.NoError(t, err)
	ids := make([]string, 0, len(records))
	for i := range records {
		ids = append(ids, records[i].ID)
	}
	assert.Equal(t, []string{"task-1", "task-2", "task-10"}, ids)
}

func TestListFilters(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()

	open := testTask(t, "task-1", "open task")
	open.Labels = []string{"urgent"}
	closed := testTask(t, "task-2", "closed task")
	closed.Status = model.StatusClosed
	doc := model.Record{
		ID: "doc-1", Kind: model.KindDocument, Title: "a doc",
		Status: model.StatusDraft, Created: open.Created,
	}
	for _, r := range []model.Record{open, closed, doc} {
		rec := r
		_, err := s.Create(ctx, &rec)
		require.NoError(t, err)
	}

	records, err := s.ListRecords(ctx, KindFilter(model.KindTask))
	require.NoError(t, err)
	assert.Len(t, records, 2)

	records, err = s.ListRecords(ctx, KindFilter(model.KindTask), StatusFilter(model.StatusOpen))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "task-1", records[0].ID)

	records, err = s.ListRecords(ctx, LabelFilter("urgent"))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "task-1", records[0].ID)
}

func TestEvents(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()

	var events []Event
	s.Subscribe(func(ev Event) {
		events = append(events, ev)
	})

	r := testTask(t, "task-1", "first")
	_, err := s.Create(ctx, &r)
	require.NoError(t, err)
	_, err = s.Update(ctx, "task-1", func(r *model.Record) error {
		r.Title = "second"
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, "task-1"))

	require.Len(t, events, 3)
	assert.Equal(t, OpPut, events[0].Op)
	require.NotNil(t, events[1].Record)
	assert.Equal(t, "second", events[1].Record.Title)
	assert.Equal(t, OpDelete, events[2].Op)
	assert.Nil(t, events[2].Record)
}

func TestUpdateMany(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()

	ids := []string{"task-1", "task-2", "task-3"}
	for _, id := range ids {
		r := testTask(t, id, "task "+id)
		_, err := s.Create(ctx, &r)
		require.NoError(t, err)
	}

	err := s.UpdateMany(ctx, ids, func(records map[string]*model.Record) error {
		for _, r := range records {
			r.Status = model.StatusClosed
		}
		return nil
	})
	require.NoError(t, err)

	for _, id := range ids {
		r, err := s.Load(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, model.StatusClosed, r.Status)
	}
}
