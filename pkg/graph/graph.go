// Package graph maintains the in-memory directed dependency graph over task
// ids.
//
// The graph is a derived view, rebuilt or patched from record store
// contents: it is never the source of truth. Its single structural
// invariant is acyclicity, enforced on every edge insertion.
package graph

import (
	"sort"
	"sync"
	"time"

	"github.com/oneconcern/braid/pkg/core/status"
	"github.com/oneconcern/braid/pkg/model"
	"go.uber.org/multierr"
)

// Graph is a directed graph over record ids, where an edge (from, to) means
// "from depends on to". Safe for concurrent use.
type Graph struct {
	mu      sync.RWMutex
	created map[string]time.Time
	out     map[string]map[string]struct{} // id -> its dependencies
	in      map[string]map[string]struct{} // id -> its dependents
}

// New builds an empty graph
func New() *Graph {
	return &Graph{
		created: make(map[string]time.Time),
		out:     make(map[string]map[string]struct{}),
		in:      make(map[string]map[string]struct{}),
	}
}

// Build constructs a graph from a set of records. This is the recovery path
// after any detected inconsistency: a full rebuild is O(V+E).
//
// Dangling dependencies (a task depending on an id with no record) are
// reported as accumulated validation failures. The graph is still built,
// with the dangling edges kept so the planner can park the dependents in
// its unscheduled layer.
func Build(records model.Records) (*Graph, error) {
	g := New()
	var errs error
	for i := range records {
		r := &records[i]
		g.AddNode(r.ID, r.Created)
	}
	for i := range records {
		r := &records[i]
		for _, dep := range r.Dependencies {
			if !g.HasNode(dep) {
				errs = multierr.Append(errs,
					status.ErrValidation.WrapMessage("task %s depends on missing record %s", r.ID, dep))
			}
			if err := g.AddEdge(r.ID, dep); err != nil {
				errs = multierr.Append(errs, err)
			}
		}
	}
	return g, errs
}

// AddNode registers an id with its creation time, used as ordering tie-break
func (g *Graph) AddNode(id string, created time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.created[id]; ok {
		return
	}
	g.created[id] = created
}

// RemoveNode unregisters an id and drops its own dependency edges.
//
// Edges from dependents pointing at the removed id are kept: they become
// dangling, which parks the dependents in the planner's unscheduled layer
// and surfaces as a validation failure on the next full rebuild, rather
// than being silently removed.
func (g *Graph) RemoveNode(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.created, id)
	for to := range g.out[id] {
		delete(g.in[to], id)
	}
	delete(g.out, id)
}

// HasNode tells whether the id is a registered node
func (g *Graph) HasNode(id string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.created[id]
	return ok
}

// AddEdge inserts the dependency (from, to).
//
// The insertion is all-or-nothing: when a path to -> from already exists the
// edge would close a cycle, the call fails with ErrCycle and the graph is
// left unchanged. Edges to ids that are not (yet) nodes are accepted; they
// contribute no paths until the target id appears.
func (g *Graph) AddEdge(from, to string) error {
	if from == to {
		return status.ErrCycle.WrapMessage("%s cannot depend on itself", from)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.hasPathLocked(to, from) {
		return status.ErrCycle.WrapMessage("%s already depends on %s", to, from)
	}
	if g.out[from] == nil {
		g.out[from] = make(map[string]struct{})
	}
	g.out[from][to] = struct{}{}
	if g.in[to] == nil {
		g.in[to] = make(map[string]struct{})
	}
	g.in[to][from] = struct{}{}
	return nil
}

// RemoveEdge deletes the dependency (from, to), if present
func (g *Graph) RemoveEdge(from, to string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.out[from], to)
	delete(g.in[to], from)
}

// HasPath reports whether to is reachable from from along dependency edges
func (g *Graph) HasPath(from, to string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.hasPathLocked(from, to)
}

// hasPathLocked is an iterative reachability search, O(V+E)
func (g *Graph) hasPathLocked(from, to string) bool {
	if from == to {
		return true
	}
	seen := map[string]struct{}{from: {}}
	stack := []string{from}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for next := range g.out[n] {
			if next == to {
				return true
			}
			if _, ok := seen[next]; ok {
				continue
			}
			seen[next] = struct{}{}
			stack = append(stack, next)
		}
	}
	return false
}

// Dependencies returns the direct dependencies of id, sorted
func (g *Graph) Dependencies(id string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return sortedSet(g.out[id])
}

// Dependents returns the direct dependents of id, sorted
func (g *Graph) Dependents(id string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return sortedSet(g.in[id])
}

// Nodes returns all registered node ids, sorted
func (g *Graph) Nodes() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	ids := make([]string, 0, len(g.created))
	for id := range g.created {
		ids = append(ids, id)
	}
	sortIDs(ids)
	return ids
}

// Edges returns a snapshot of all edges, sorted by (from, to)
func (g *Graph) Edges() []model.DependencyEdge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	edges := make([]model.DependencyEdge, 0, len(g.out))
	for from, tos := range g.out {
		for to := range tos {
			edges = append(edges, model.DependencyEdge{From: from, To: to})
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if c := model.CompareIDs(edges[i].From, edges[j].From); c != 0 {
			return c < 0
		}
		return model.CompareIDs(edges[i].To, edges[j].To) < 0
	})
	return edges
}

// ApplyTopologicalFunc is a function applied to ids in topological order
type ApplyTopologicalFunc func(id string) error

// TopologicalOrder yields all nodes in a dependency-respecting order:
// every dependency precedes its dependents. Ties are broken by ascending
// creation time, then ascending id, so the order is deterministic.
func (g *Graph) TopologicalOrder() []string {
	out := make([]string, 0, 64)
	_ = g.TopologicalApply(func(id string) error {
		out = append(out, id)
		return nil
	})
	return out
}

// TopologicalApply applies fn to each node in topological order, stopping at
// the first error.
func (g *Graph) TopologicalApply(fn ApplyTopologicalFunc) error {
	g.mu.RLock()
	// remaining dependency counts, ignoring edges to unknown ids
	pending := make(map[string]int, len(g.created))
	for id := range g.created {
		n := 0
		for to := range g.out[id] {
			if _, known := g.created[to]; known {
				n++
			}
		}
		pending[id] = n
	}
	ready := make([]string, 0, len(pending))
	for id, n := range pending {
		if n == 0 {
			ready = append(ready, id)
		}
	}
	g.sortByCreationLocked(ready)

	order := make([]string, 0, len(pending))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)
		released := make([]string, 0, len(g.in[id]))
		for dependent := range g.in[id] {
			if _, known := g.created[dependent]; !known {
				continue
			}
			pending[dependent]--
			if pending[dependent] == 0 {
				released = append(released, dependent)
			}
		}
		g.sortByCreationLocked(released)
		ready = mergeSorted(ready, released, g.lessByCreationLocked)
	}
	g.mu.RUnlock()

	for _, id := range order {
		if err := fn(id); err != nil {
			return err
		}
	}
	return nil
}

func (g *Graph) lessByCreationLocked(a, b string) bool {
	ca, cb := g.created[a], g.created[b]
	if !ca.Equal(cb) {
		return ca.Before(cb)
	}
	return model.CompareIDs(a, b) < 0
}

func (g *Graph) sortByCreationLocked(ids []string) {
	sort.Slice(ids, func(i, j int) bool { return g.lessByCreationLocked(ids[i], ids[j]) })
}

func mergeSorted(a, b []string, less func(x, y string) bool) []string {
	if len(b) == 0 {
		return a
	}
	out := make([]string, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if less(b[j], a[i]) {
			out = append(out, b[j])
			j++
		} else {
			out = append(out, a[i])
			i++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}

func sortedSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sortIDs(out)
	return out
}

func sortIDs(ids []string) {
	sort.Slice(ids, func(i, j int) bool { return model.CompareIDs(ids[i], ids[j]) < 0 })
}
