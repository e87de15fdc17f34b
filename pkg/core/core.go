// Package core exposes the record tracking operations consumed by the
// surrounding layers (CLI, TUI, web, agent tools).
//
// The store is the source of truth; the dependency graph, the sequence
// planner and the search index are derived views, patched on every
// mutation and rebuildable wholesale at any time. None of the operations
// here formats output or performs I/O beyond the record store and the
// branch snapshot provider.
package core

import (
	"context"
	"sync"

	"github.com/oneconcern/braid/pkg/graph"
	"github.com/oneconcern/braid/pkg/index"
	"github.com/oneconcern/braid/pkg/model"
	"github.com/oneconcern/braid/pkg/order"
	"github.com/oneconcern/braid/pkg/plan"
	"github.com/oneconcern/braid/pkg/reconcile"
	"github.com/oneconcern/braid/pkg/store"
	"go.uber.org/zap"
)

// Core ties the record store to its derived structures and implements the
// operation surface.
type Core struct {
	store    *store.Store
	keys     *order.Engine
	ix       *index.Index
	provider reconcile.Provider
	l        *zap.Logger

	// mu guards graph and planner swaps plus id allocation
	mu      sync.Mutex
	g       *graph.Graph
	planner *plan.Planner

	// orderKeys caches task order keys for the planner's within-layer
	// ordering, maintained from store events
	okmu      sync.RWMutex
	orderKeys map[string]string
}

// New builds a core over its collaborators and performs the cold start:
// a full scan populating the dependency graph, the planner and the search
// index.
func New(ctx context.Context, opts ...Option) (*Core, error) {
	c := &Core{
		keys:      order.New(),
		l:         zap.NewNop(),
		orderKeys: make(map[string]string),
	}
	for _, apply := range opts {
		apply(c)
	}
	if c.store == nil {
		s, err := store.New()
		if err != nil {
			return nil, err
		}
		c.store = s
	}
	if c.ix == nil {
		c.ix = index.New(index.Logger(c.l))
	}

	c.store.Subscribe(c.trackOrderKeys)
	c.ix.Observe(c.store)

	if err := c.Rebuild(ctx); err != nil {
		// dangling dependencies are reported, not fatal: the planner parks
		// the affected tasks in its unscheduled layer
		c.l.Warn("inconsistencies found while loading records", zap.Error(err))
	}
	return c, nil
}

// Rebuild reconstructs every derived structure from store contents. This is
// the recovery path after any detected inconsistency; the returned error
// accumulates validation failures such as dangling dependencies.
func (c *Core) Rebuild(ctx context.Context) error {
	records, err := c.store.ListRecords(ctx)
	if err != nil {
		return err
	}
	g, buildErr := graph.Build(records)

	c.okmu.Lock()
	c.orderKeys = make(map[string]string, len(records))
	for i := range records {
		if records[i].Kind == model.KindTask {
			c.orderKeys[records[i].ID] = records[i].OrderKey
		}
	}
	c.okmu.Unlock()

	c.mu.Lock()
	c.g = g
	c.planner = plan.New(g, c.orderKeyOf)
	c.mu.Unlock()

	c.ix.Rebuild(ctx, c.store)
	return buildErr
}

// Store exposes the underlying record store
func (c *Core) Store() *store.Store {
	return c.store
}

// LayerOf yields the dependency layer of a task, plan.UnscheduledLayer when
// the task or one of its transitive dependencies is unknown.
func (c *Core) LayerOf(id string) int {
	c.mu.Lock()
	p := c.planner
	c.mu.Unlock()
	return p.LayerOf(id)
}

// SequenceAt yields the ordered task sequence of one layer. Documents and
// decisions participate in layering as dependency targets but are not part
// of any sequence.
func (c *Core) SequenceAt(layer int) []string {
	c.mu.Lock()
	p := c.planner
	c.mu.Unlock()
	return tasksOnly(p.SequenceAt(layer))
}

// Layers yields every populated layer with its ordered task sequence, keyed
// by depth. Tasks that cannot run are grouped under plan.UnscheduledLayer.
func (c *Core) Layers() map[int][]string {
	c.mu.Lock()
	p := c.planner
	c.mu.Unlock()
	out := make(map[int][]string)
	if seq := tasksOnly(p.SequenceAt(plan.UnscheduledLayer)); len(seq) > 0 {
		out[plan.UnscheduledLayer] = seq
	}
	for depth := 0; depth <= p.Layers(); depth++ {
		if seq := tasksOnly(p.SequenceAt(depth)); len(seq) > 0 {
			out[depth] = seq
		}
	}
	return out
}

func tasksOnly(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if kind, ok := model.KindOfID(id); ok && kind == model.KindTask {
			out = append(out, id)
		}
	}
	return out
}

// TopologicalOrder yields all registered ids in dependency-respecting order
func (c *Core) TopologicalOrder() []string {
	c.mu.Lock()
	g := c.g
	c.mu.Unlock()
	return g.TopologicalOrder()
}

func (c *Core) orderKeyOf(id string) string {
	c.okmu.RLock()
	defer c.okmu.RUnlock()
	return c.orderKeys[id]
}

func (c *Core) trackOrderKeys(ev store.Event) {
	c.okmu.Lock()
	defer c.okmu.Unlock()
	switch {
	case ev.Op == store.OpDelete:
		delete(c.orderKeys, ev.ID)
	case ev.Record != nil && ev.Record.Kind == model.KindTask:
		c.orderKeys[ev.ID] = ev.Record.OrderKey
	}
}

// graphAndPlanner snapshots the current derived views under the core mutex
func (c *Core) graphAndPlanner() (*graph.Graph, *plan.Planner) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.g, c.planner
}
