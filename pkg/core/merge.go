package core

import (
	"context"

	"github.com/oneconcern/braid/pkg/core/status"
	"github.com/oneconcern/braid/pkg/model"
	"github.com/oneconcern/braid/pkg/reconcile"
	"go.uber.org/zap"
)

// MergeBranch folds the records found on another branch into the store.
//
// The remote snapshot is read in full before any write happens: a snapshot
// failure surfaces as ErrReconciliation with nothing changed. Identical
// records merge silently, id collisions with differing content keep the
// local record and renumber the remote one, dependency edges following a
// renamed record along. The merged graph is checked for cycles before the
// batch is written.
func (c *Core) MergeBranch(ctx context.Context, branchRef string) (reconcile.MergeResult, error) {
	if c.provider == nil {
		return reconcile.MergeResult{}, status.ErrReconciliation.WrapMessage("no branch snapshot provider configured")
	}

	records, err := c.store.ListRecords(ctx)
	if err != nil {
		return reconcile.MergeResult{}, err
	}
	local := model.BranchSnapshot{Branch: "local", Records: make(map[string]model.Record, len(records))}
	for i := range records {
		local.Records[records[i].ID] = records[i]
	}

	remote, err := c.provider.Snapshot(ctx, branchRef)
	if err != nil {
		return reconcile.MergeResult{}, status.ErrReconciliation.Wrap(err)
	}

	res, err := reconcile.Merge(local, remote)
	if err != nil {
		return reconcile.MergeResult{}, err
	}

	changed := make([]model.Record, 0, len(res.Resolved))
	for id, r := range res.Resolved {
		if prev, ok := local.Records[id]; ok && sameContent(&prev, &r) {
			continue
		}
		changed = append(changed, r)
	}
	if err := c.store.SaveBatch(ctx, changed); err != nil {
		return reconcile.MergeResult{}, err
	}

	if err := c.Rebuild(ctx); err != nil {
		c.l.Warn("inconsistencies found after merge", zap.String("branch", branchRef), zap.Error(err))
	}
	c.l.Info("branch merged",
		zap.String("branch", branchRef),
		zap.Int("records", len(res.Resolved)),
		zap.Int("written", len(changed)),
		zap.Int("conflicts", len(res.Conflicts)),
	)
	return res, nil
}

func sameContent(a, b *model.Record) bool {
	ha, err := model.Hash(a)
	if err != nil {
		return false
	}
	hb, err := model.Hash(b)
	if err != nil {
		return false
	}
	return ha == hb
}
