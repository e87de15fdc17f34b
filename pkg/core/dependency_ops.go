package core

import (
	"context"

	"github.com/oneconcern/braid/pkg/core/status"
	"github.com/oneconcern/braid/pkg/graph"
	"github.com/oneconcern/braid/pkg/model"
)

// AddDependency records that task from depends on record to.
//
// The edge goes through the graph first: a cycle is rejected with ErrCycle
// before anything is written. Adding an edge that already exists is a no-op.
func (c *Core) AddDependency(ctx context.Context, from, to string) error {
	if kind, ok := model.KindOfID(from); !ok || kind != model.KindTask {
		return status.ErrValidation.WrapMessage("%s: only tasks carry dependencies", from)
	}
	if ok, err := c.store.Has(ctx, to); err != nil {
		return err
	} else if !ok {
		return status.ErrNotFound.WrapMessage("dependency target %s", to)
	}

	g, planner := c.graphAndPlanner()
	for _, dep := range g.Dependencies(from) {
		if dep == to {
			return nil
		}
	}
	if err := g.AddEdge(from, to); err != nil {
		return err
	}
	if _, err := c.store.Update(ctx, from, func(r *model.Record) error {
		for _, dep := range r.Dependencies {
			if dep == to {
				return nil
			}
		}
		r.Dependencies = append(r.Dependencies, to)
		return nil
	}); err != nil {
		g.RemoveEdge(from, to)
		return err
	}
	planner.MarkDirty(from)
	return nil
}

// RemoveDependency drops the dependency of task from on record to.
//
// A missing edge fails the mutation itself, so nothing is written when
// from never depended on to.
func (c *Core) RemoveDependency(ctx context.Context, from, to string) error {
	if _, err := c.store.Update(ctx, from, func(r *model.Record) error {
		found := false
		kept := r.Dependencies[:0]
		for _, dep := range r.Dependencies {
			if dep == to {
				found = true
				continue
			}
			kept = append(kept, dep)
		}
		if !found {
			return status.ErrNotFound.WrapMessage("%s does not depend on %s", from, to)
		}
		r.Dependencies = kept
		return nil
	}); err != nil {
		return err
	}
	g, planner := c.graphAndPlanner()
	g.RemoveEdge(from, to)
	planner.MarkDirty(from)
	return nil
}

// applyEdgeDiff patches the graph from an old to a new dependency list,
// all or nothing. On success it returns a rollback restoring the old
// edges, for use when the subsequent store write fails.
func applyEdgeDiff(g *graph.Graph, id string, oldDeps, newDeps []string) (rollback func(), err error) {
	oldSet := make(map[string]struct{}, len(oldDeps))
	for _, dep := range oldDeps {
		oldSet[dep] = struct{}{}
	}
	newSet := make(map[string]struct{}, len(newDeps))
	for _, dep := range newDeps {
		newSet[dep] = struct{}{}
	}

	var removed, added []string
	for dep := range oldSet {
		if _, ok := newSet[dep]; !ok {
			removed = append(removed, dep)
		}
	}
	for dep := range newSet {
		if _, ok := oldSet[dep]; !ok {
			added = append(added, dep)
		}
	}

	for _, dep := range removed {
		g.RemoveEdge(id, dep)
	}
	for i, dep := range added {
		if err := g.AddEdge(id, dep); err != nil {
			for _, back := range added[:i] {
				g.RemoveEdge(id, back)
			}
			for _, back := range removed {
				_ = g.AddEdge(id, back)
			}
			return nil, err
		}
	}
	return func() {
		for _, dep := range added {
			g.RemoveEdge(id, dep)
		}
		for _, dep := range removed {
			_ = g.AddEdge(id, dep)
		}
	}, nil
}
