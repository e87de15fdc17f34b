package core

import (
	"context"
	"time"

	"github.com/oneconcern/braid/pkg/core/status"
	"github.com/oneconcern/braid/pkg/model"
	"github.com/oneconcern/braid/pkg/store"
	"go.uber.org/zap"
)

// CreateRecord persists a new record.
//
// The caller supplies kind, title, labels, body and (for tasks) an optional
// dependency list; the id, the creation date, a default status and the
// order key placing the task last are filled in here.
func (c *Core) CreateRecord(ctx context.Context, r model.Record) (model.Record, error) {
	if !r.Kind.IsValid() {
		return model.Record{}, status.ErrValidation.WrapMessage("unknown kind %q", r.Kind)
	}
	if r.Status == "" {
		r.Status = model.DefaultStatus(r.Kind)
	}
	if r.Created.IsZero() {
		r.Created = time.Now().UTC().Truncate(24 * time.Hour)
	}

	// id allocation and graph patching are serialized with other creators
	c.mu.Lock()
	defer c.mu.Unlock()

	if r.ID == "" {
		r.ID = c.nextFreeIDLocked(r.Kind)
	}
	if r.Kind == model.KindTask && r.OrderKey == "" {
		key, err := c.keys.Between(c.lastOrderKey(), "")
		if err != nil {
			return model.Record{}, err
		}
		r.OrderKey = key
	}

	hash, err := c.store.Create(ctx, &r)
	if err != nil {
		return model.Record{}, err
	}
	c.g.AddNode(r.ID, r.Created)
	for _, dep := range r.Dependencies {
		// a brand new node has no dependents, so its edges cannot close a
		// cycle; dangling targets are allowed and stay unscheduled
		if err := c.g.AddEdge(r.ID, dep); err != nil {
			c.l.Warn("dependency edge rejected", zap.String("id", r.ID), zap.String("dep", dep), zap.Error(err))
		}
	}
	c.planner.MarkDirty(r.ID)

	r.ContentHash = hash
	return r, nil
}

// GetRecord loads one record by id
func (c *Core) GetRecord(ctx context.Context, id string) (model.Record, error) {
	return c.store.Load(ctx, id)
}

// UpdateRecord saves a modified record.
//
// expectedHash is the content hash the caller loaded; a concurrent change
// in between surfaces as ErrConflict and nothing is written. Dependency
// changes are validated against the graph first: an update closing a cycle
// fails with ErrCycle and leaves both the graph and the store untouched.
func (c *Core) UpdateRecord(ctx context.Context, r model.Record, expectedHash string) (model.Record, error) {
	current, err := c.store.Load(ctx, r.ID)
	if err != nil {
		return model.Record{}, err
	}
	if current.Kind != r.Kind {
		return model.Record{}, status.ErrValidation.WrapMessage("record %s: kind cannot change (%s -> %s)", r.ID, current.Kind, r.Kind)
	}

	g, planner := c.graphAndPlanner()
	rollback, err := applyEdgeDiff(g, r.ID, current.Dependencies, r.Dependencies)
	if err != nil {
		return model.Record{}, err
	}

	newHash, err := c.store.Save(ctx, &r, expectedHash)
	if err != nil {
		rollback()
		return model.Record{}, err
	}
	planner.MarkDirty(r.ID)
	r.ContentHash = newHash
	return r, nil
}

// DeleteRecord removes a record.
//
// Dependents of a deleted task keep their dependency entries: they park in
// the unscheduled layer and are reported as validation failures on the
// next rebuild, rather than being silently rewritten.
func (c *Core) DeleteRecord(ctx context.Context, id string) error {
	if err := c.store.Delete(ctx, id); err != nil {
		return err
	}
	g, planner := c.graphAndPlanner()
	g.RemoveNode(id)
	planner.MarkDirty(id)
	return nil
}

// ListRecords lists records, optionally filtered by kind, status or label
func (c *Core) ListRecords(ctx context.Context, opts ...store.ListOption) (model.Records, error) {
	return c.store.ListRecords(ctx, opts...)
}

// nextFreeIDLocked picks the lowest unused integer suffix for a kind.
// Caller holds c.mu.
func (c *Core) nextFreeIDLocked(kind model.Kind) string {
	used := make(map[string]struct{})
	for _, id := range c.g.Nodes() {
		used[id] = struct{}{}
	}
	n := 1
	for {
		candidate := model.FormatID(kind, n)
		if _, ok := used[candidate]; !ok {
			return candidate
		}
		n++
	}
}

// lastOrderKey yields the greatest order key currently assigned, "" when no
// task has one yet
func (c *Core) lastOrderKey() string {
	c.okmu.RLock()
	defer c.okmu.RUnlock()
	max := ""
	for _, key := range c.orderKeys {
		if key > max {
			max = key
		}
	}
	return max
}
