// Package plan layers tasks into dependency-ordered sequences (lanes).
//
// A task's layer is one more than the maximum layer among its dependencies;
// tasks without dependencies sit in layer 0. A task depending on an id that
// has no record yet is parked in the distinguished unscheduled layer until
// the missing id appears. Layers are recomputed incrementally: a change
// marks the affected node and its transitive dependents dirty, and dirty
// nodes are relayered on the next query.
package plan

import (
	"sort"
	"sync"

	"github.com/oneconcern/braid/pkg/graph"
	"github.com/oneconcern/braid/pkg/model"
)

// UnscheduledLayer is the sentinel layer for tasks whose dependencies are
// not all known yet.
const UnscheduledLayer = -1

// KeyFunc resolves the order key of a task id, "" when unknown. Within a
// layer, tasks are ordered by their order keys, not by layer computation.
type KeyFunc func(id string) string

// Planner assigns layer numbers to the nodes of a dependency graph
type Planner struct {
	mu     sync.Mutex
	g      *graph.Graph
	keyOf  KeyFunc
	layers map[string]int
	dirty  map[string]struct{}
}

// New builds a planner over the given graph. All nodes start dirty and are
// layered on first query.
func New(g *graph.Graph, keyOf KeyFunc) *Planner {
	if keyOf == nil {
		keyOf = func(string) string { return "" }
	}
	p := &Planner{
		g:      g,
		keyOf:  keyOf,
		layers: make(map[string]int),
		dirty:  make(map[string]struct{}),
	}
	p.Invalidate()
	return p
}

// Invalidate marks every node dirty, forcing a full relayering on next query
func (p *Planner) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.layers = make(map[string]int)
	for _, id := range p.g.Nodes() {
		p.dirty[id] = struct{}{}
	}
}

// MarkDirty marks a node and its transitive dependents for relayering.
// Call it after any node or edge change affecting id.
func (p *Planner) MarkDirty(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	stack := []string{id}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := p.dirty[n]; ok {
			continue
		}
		p.dirty[n] = struct{}{}
		stack = append(stack, p.g.Dependents(n)...)
	}
}

// LayerOf yields the layer of a task. Unknown ids report the unscheduled
// layer.
func (p *Planner) LayerOf(id string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refreshLocked()
	layer, ok := p.layers[id]
	if !ok {
		return UnscheduledLayer
	}
	return layer
}

// SequenceAt yields the ordered sequence of ids sharing a layer, governed by
// each task's order key, then id.
func (p *Planner) SequenceAt(layer int) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refreshLocked()
	out := make([]string, 0, 16)
	for id, l := range p.layers {
		if l == layer {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ki, kj := p.keyOf(out[i]), p.keyOf(out[j])
		if ki != kj {
			return ki < kj
		}
		return model.CompareIDs(out[i], out[j]) < 0
	})
	return out
}

// Layers yields the highest assigned layer number, -1 when nothing is
// scheduled yet.
func (p *Planner) Layers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refreshLocked()
	max := -1
	for _, l := range p.layers {
		if l > max {
			max = l
		}
	}
	return max
}

// refreshLocked relayers dirty nodes in topological order. Dependencies are
// visited before their dependents, so a single pass suffices.
func (p *Planner) refreshLocked() {
	if len(p.dirty) == 0 {
		return
	}
	_ = p.g.TopologicalApply(func(id string) error {
		if _, isDirty := p.dirty[id]; !isDirty {
			return nil
		}
		p.layers[id] = p.computeLayerLocked(id)
		return nil
	})
	// nodes removed from the graph drop out of the layer map
	for id := range p.dirty {
		if !p.g.HasNode(id) {
			delete(p.layers, id)
		}
	}
	p.dirty = make(map[string]struct{})
}

func (p *Planner) computeLayerLocked(id string) int {
	deps := p.g.Dependencies(id)
	if len(deps) == 0 {
		return 0
	}
	max := -1
	for _, dep := range deps {
		if !p.g.HasNode(dep) {
			return UnscheduledLayer
		}
		l, ok := p.layers[dep]
		if !ok || l == UnscheduledLayer {
			return UnscheduledLayer
		}
		if l > max {
			max = l
		}
	}
	return max + 1
}
