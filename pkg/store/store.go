// Package store implements the record store: the single source of truth for
// record bytes.
//
// Records are parsed from and serialized to one file each, with an atomic
// save path and optimistic-conflict detection on content hashes. Writers
// targeting the same id are serialized by a per-id mutex; writers targeting
// different ids proceed independently.
package store

import (
	"bytes"
	"context"
	"io/ioutil"
	"sort"
	"sync"

	"github.com/oneconcern/braid/pkg/core/status"
	"github.com/oneconcern/braid/pkg/errors"
	"github.com/oneconcern/braid/pkg/model"
	"github.com/oneconcern/braid/pkg/storage"
	"github.com/oneconcern/braid/pkg/storage/localfs"
	storagestatus "github.com/oneconcern/braid/pkg/storage/status"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Op describes a store mutation reported to subscribers
type Op int

const (
	// OpPut reports a record created or updated
	OpPut Op = iota

	// OpDelete reports a record removed
	OpDelete
)

// Event is a store mutation notification
type Event struct {
	Op     Op
	ID     string
	Record *model.Record // nil for OpDelete
}

// Listener consumes store mutation events. Listeners run synchronously on
// the mutating goroutine and must not call back into the store.
type Listener func(Event)

// Store is a file-backed record store
type Store struct {
	backend storage.Store
	locks   *lockTable
	l       *zap.Logger

	lmu       sync.RWMutex
	listeners []Listener
}

// New builds a record store. The default backend is a local file system
// store rooted at .braid/ in the current directory.
func New(opts ...Option) (*Store, error) {
	s := &Store{
		locks: newLockTable(),
		l:     zap.NewNop(),
	}
	for _, apply := range opts {
		apply(s)
	}
	if s.backend == nil {
		backend, err := localfs.New(nil)
		if err != nil {
			return nil, status.ErrFileSystem.Wrap(err)
		}
		s.backend = backend
	}
	return s, nil
}

// Subscribe registers a mutation listener (e.g. a search index)
func (s *Store) Subscribe(fn Listener) {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Store) notify(ev Event) {
	s.lmu.RLock()
	defer s.lmu.RUnlock()
	for _, fn := range s.listeners {
		fn(ev)
	}
}

// Has tells whether a record with this id is stored
func (s *Store) Has(ctx context.Context, id string) (bool, error) {
	if _, ok := model.KindOfID(id); !ok {
		return false, status.ErrValidation.WrapMessage("malformed id %q", id)
	}
	has, err := s.backend.Has(ctx, model.GetPathToRecord(id))
	if err != nil {
		return false, s.asFileSystemErr(id, err)
	}
	return has, nil
}

// Load reads and parses one record. The returned record carries the content
// hash of the stored bytes.
func (s *Store) Load(ctx context.Context, id string) (model.Record, error) {
	if _, ok := model.KindOfID(id); !ok {
		return model.Record{}, status.ErrValidation.WrapMessage("malformed id %q", id)
	}
	return s.load(ctx, id)
}

func (s *Store) load(ctx context.Context, id string) (model.Record, error) {
	rdr, err := s.backend.Get(ctx, model.GetPathToRecord(id))
	if err != nil {
		if errors.Is(err, storagestatus.ErrNotExists) {
			return model.Record{}, status.ErrNotFound.WrapMessage("record %s", id)
		}
		return model.Record{}, s.asFileSystemErr(id, err)
	}
	defer func() { _ = rdr.Close() }()

	data, err := ioutil.ReadAll(rdr)
	if err != nil {
		return model.Record{}, s.asFileSystemErr(id, err)
	}
	r, err := model.Parse(data)
	if err != nil {
		return model.Record{}, err
	}
	if r.ID != id {
		return model.Record{}, status.ErrValidation.WrapMessage("record file for %s declares id %s", id, r.ID)
	}
	return r, nil
}

// Save persists a record atomically and returns the new content hash.
//
// A non-empty expectedHash turns the save into a compare-and-swap: when the
// currently stored content hash differs, the save fails with ErrConflict and
// nothing is written. An empty expectedHash saves unconditionally.
func (s *Store) Save(ctx context.Context, r *model.Record, expectedHash string) (string, error) {
	if err := r.Validate(); err != nil {
		return "", err
	}
	defer s.locks.acquire(r.ID)()
	return s.saveLocked(ctx, r, expectedHash, true)
}

// saveLocked performs the actual save. The caller must hold the id lock.
func (s *Store) saveLocked(ctx context.Context, r *model.Record, expectedHash string, checkHash bool) (string, error) {
	if checkHash && expectedHash != "" {
		current, err := s.storedHash(ctx, r.ID)
		if err != nil {
			return "", err
		}
		if current != expectedHash {
			return "", status.ErrConflict.WrapMessage("record %s: expected %.12s, stored %.12s", r.ID, expectedHash, current)
		}
	}
	data, err := model.Serialize(r)
	if err != nil {
		return "", err
	}
	if err := s.backend.Put(ctx, model.GetPathToRecord(r.ID), bytes.NewReader(data), storage.OverWrite); err != nil {
		return "", s.asFileSystemErr(r.ID, err)
	}
	saved := r.Clone()
	saved.ContentHash = model.HashOf(data)
	s.notify(Event{Op: OpPut, ID: r.ID, Record: &saved})
	s.l.Debug("record saved", zap.String("id", r.ID), zap.String("hash", saved.ContentHash))
	return saved.ContentHash, nil
}

// storedHash returns the hash of the stored bytes for id, or "" when absent
func (s *Store) storedHash(ctx context.Context, id string) (string, error) {
	rdr, err := s.backend.Get(ctx, model.GetPathToRecord(id))
	if err != nil {
		if errors.Is(err, storagestatus.ErrNotExists) {
			return "", nil
		}
		return "", s.asFileSystemErr(id, err)
	}
	defer func() { _ = rdr.Close() }()
	data, err := ioutil.ReadAll(rdr)
	if err != nil {
		return "", s.asFileSystemErr(id, err)
	}
	return model.HashOf(data), nil
}

// Update runs a load-modify-save cycle under the record's mutex.
//
// The mutator receives the freshly loaded record; the save uses the loaded
// hash as its compare-and-swap expectation, so an external concurrent write
// between load and save surfaces as ErrConflict.
func (s *Store) Update(ctx context.Context, id string, mutate func(*model.Record) error) (model.Record, error) {
	if _, ok := model.KindOfID(id); !ok {
		return model.Record{}, status.ErrValidation.WrapMessage("malformed id %q", id)
	}
	defer s.locks.acquire(id)()

	r, err := s.load(ctx, id)
	if err != nil {
		return model.Record{}, err
	}
	loadedHash := r.ContentHash
	if err = mutate(&r); err != nil {
		return model.Record{}, err
	}
	if r.ID != id {
		return model.Record{}, status.ErrValidation.WrapMessage("update must not change the record id (%s -> %s)", id, r.ID)
	}
	newHash, err := s.saveLocked(ctx, &r, loadedHash, true)
	if err != nil {
		return model.Record{}, err
	}
	r.ContentHash = newHash
	return r, nil
}

// Create persists a new record, failing when the id is already taken
func (s *Store) Create(ctx context.Context, r *model.Record) (string, error) {
	if err := r.Validate(); err != nil {
		return "", err
	}
	defer s.locks.acquire(r.ID)()

	has, err := s.backend.Has(ctx, model.GetPathToRecord(r.ID))
	if err != nil {
		return "", s.asFileSystemErr(r.ID, err)
	}
	if has {
		return "", status.ErrConflict.WrapMessage("record %s already exists", r.ID)
	}
	return s.saveLocked(ctx, r, "", false)
}

// UpdateMany runs a load-modify-save cycle over several records at once,
// with all their mutexes held, acquired in sorted id order.
//
// Each record is saved independently and atomically: a failure mid-way
// leaves every already-saved record valid. Errors are accumulated.
func (s *Store) UpdateMany(ctx context.Context, ids []string, mutate func(map[string]*model.Record) error) error {
	defer s.locks.acquireAll(ids)()

	loaded := make(map[string]*model.Record, len(ids))
	hashes := make(map[string]string, len(ids))
	for _, id := range ids {
		r, err := s.load(ctx, id)
		if err != nil {
			return err
		}
		hashes[id] = r.ContentHash
		loaded[id] = &r
	}
	if err := mutate(loaded); err != nil {
		return err
	}
	var errs error
	for _, id := range ids {
		if _, err := s.saveLocked(ctx, loaded[id], hashes[id], true); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

// SaveBatch persists a set of records unconditionally, with all their
// mutexes held. Used by reconciliation to write a resolved set.
func (s *Store) SaveBatch(ctx context.Context, records []model.Record) error {
	ids := make([]string, 0, len(records))
	for i := range records {
		ids = append(ids, records[i].ID)
	}
	defer s.locks.acquireAll(ids)()

	var errs error
	for i := range records {
		if _, err := s.saveLocked(ctx, &records[i], "", false); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

// Delete removes a record
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, ok := model.KindOfID(id); !ok {
		return status.ErrValidation.WrapMessage("malformed id %q", id)
	}
	defer s.locks.acquire(id)()

	if err := s.backend.Delete(ctx, model.GetPathToRecord(id)); err != nil {
		if errors.Is(err, storagestatus.ErrNotExists) {
			return status.ErrNotFound.WrapMessage("record %s", id)
		}
		return s.asFileSystemErr(id, err)
	}
	s.notify(Event{Op: OpDelete, ID: id})
	s.l.Debug("record deleted", zap.String("id", id))
	return nil
}

// ApplyRecordFunc is a function applied to each listed record
type ApplyRecordFunc func(model.Record) error

// ListApply lazily parses stored records one by one and applies fn to each,
// in ascending id order. Malformed record files are skipped with a warning,
// never silently coerced into records.
func (s *Store) ListApply(ctx context.Context, fn ApplyRecordFunc, opts ...ListOption) error {
	var settings listSettings
	for _, apply := range opts {
		apply(&settings)
	}
	keys, err := s.backend.KeysPrefix(ctx, model.GetPathPrefixToRecords())
	if err != nil {
		return s.asFileSystemErr("", err)
	}
	ids := make([]string, 0, len(keys))
	for _, key := range keys {
		if id := model.GetRecordIDFromPath(key); id != "" {
			ids = append(ids, id)
		}
	}
	sortIDs(ids)

	for _, id := range ids {
		if err = ctx.Err(); err != nil {
			return err
		}
		r, err := s.load(ctx, id)
		if err != nil {
			if errors.Is(err, status.ErrValidation) {
				s.l.Warn("skipping malformed record", zap.String("id", id), zap.Error(err))
				continue
			}
			return err
		}
		if !settings.matches(&r) {
			continue
		}
		if err = fn(r); err != nil {
			return err
		}
	}
	return nil
}

// ListRecords collects the listed records in a slice, in ascending id order
func (s *Store) ListRecords(ctx context.Context, opts ...ListOption) (model.Records, error) {
	out := make(model.Records, 0, 64)
	err := s.ListApply(ctx, func(r model.Record) error {
		out = append(out, r)
		return nil
	}, opts...)
	return out, err
}

// String identifies this store and its backend
func (s *Store) String() string {
	return "recordstore@" + s.backend.String()
}

func sortIDs(ids []string) {
	sort.Slice(ids, func(i, j int) bool { return model.CompareIDs(ids[i], ids[j]) < 0 })
}

func (s *Store) asFileSystemErr(id string, err error) error {
	if errors.Is(err, storagestatus.ErrInvalidResource) {
		return status.ErrValidation.Wrap(err)
	}
	if id == "" {
		return status.ErrFileSystem.Wrap(err)
	}
	return status.ErrFileSystem.WrapMessage("path %q: %v", model.GetPathToRecord(id), err)
}
