package core

import (
	"context"

	"github.com/oneconcern/braid/pkg/core/status"
	"github.com/oneconcern/braid/pkg/model"
	"github.com/oneconcern/braid/pkg/order"
)

// Reorder moves a task to targetPosition within its dependency layer.
//
// Only the moved task is rewritten. When no key fits between the new
// neighbors, or the generated key exceeds the configured maximum length,
// the whole layer is compacted: every task in it gets a fresh short key
// in a single batch, preserving relative order.
func (c *Core) Reorder(ctx context.Context, id string, targetPosition int) error {
	r, err := c.store.Load(ctx, id)
	if err != nil {
		return err
	}
	if r.Kind != model.KindTask {
		return status.ErrValidation.WrapMessage("%s: only tasks are ordered", id)
	}

	_, planner := c.graphAndPlanner()
	layer := planner.LayerOf(id)
	seq := tasksOnly(planner.SequenceAt(layer))

	others := make([]string, 0, len(seq))
	for _, other := range seq {
		if other != id {
			others = append(others, other)
		}
	}
	if targetPosition < 0 {
		targetPosition = 0
	}
	if targetPosition > len(others) {
		targetPosition = len(others)
	}

	before, after := "", ""
	if targetPosition > 0 {
		before = c.orderKeyOf(others[targetPosition-1])
	}
	if targetPosition < len(others) {
		after = c.orderKeyOf(others[targetPosition])
	}

	key, err := c.keys.Between(before, after)
	if err == nil && !c.keys.NeedsCompaction(key) {
		if _, err = c.store.Update(ctx, id, func(r *model.Record) error {
			r.OrderKey = key
			return nil
		}); err != nil {
			return err
		}
		planner.MarkDirty(id)
		return nil
	}

	// no usable key between the neighbors: compact the layer
	desired := make([]string, 0, len(others)+1)
	desired = append(desired, others[:targetPosition]...)
	desired = append(desired, id)
	desired = append(desired, others[targetPosition:]...)

	fresh := order.Spread(len(desired))
	byID := make(map[string]string, len(desired))
	for i, taskID := range desired {
		byID[taskID] = fresh[i]
	}
	if err := c.store.UpdateMany(ctx, desired, func(records map[string]*model.Record) error {
		for taskID, r := range records {
			r.OrderKey = byID[taskID]
		}
		return nil
	}); err != nil {
		return err
	}
	for _, taskID := range desired {
		planner.MarkDirty(taskID)
	}
	return nil
}
