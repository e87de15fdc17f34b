package store

import (
	"sort"
	"sync"

	"github.com/oneconcern/braid/pkg/model"
)

// lockTable serializes writers per record id.
//
// Multi-id operations acquire their locks in sorted id order, so two
// overlapping multi-id operations cannot deadlock. Locks are never reclaimed:
// the table grows with the set of ids ever touched, which is bounded by the
// number of records.
type lockTable struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[string]*sync.Mutex)}
}

func (t *lockTable) lockFor(id string) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.locks[id]
	if !ok {
		l = &sync.Mutex{}
		t.locks[id] = l
	}
	return l
}

// acquire locks one id and returns the release function
func (t *lockTable) acquire(id string) func() {
	l := t.lockFor(id)
	l.Lock()
	return l.Unlock
}

// acquireAll locks several ids in sorted order and returns the release
// function, which releases in reverse order. Duplicate ids are collapsed.
func (t *lockTable) acquireAll(ids []string) func() {
	unique := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	sort.Slice(unique, func(i, j int) bool { return model.CompareIDs(unique[i], unique[j]) < 0 })

	held := make([]*sync.Mutex, 0, len(unique))
	for _, id := range unique {
		l := t.lockFor(id)
		l.Lock()
		held = append(held, l)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}
