// Package reconcile merges the task sets discovered on different branches
// into one consistent set.
//
// Identifier collisions, where two branches independently assign the same id
// to different content, are resolved deterministically: the remote record is
// renamed to the lowest unused id of its kind, and every edge referencing it
// under the remote's authorship is rewritten. Merging the same pair of
// snapshots twice, in either order, yields the same resolved content, which
// makes repeated merge attempts safe.
package reconcile

import (
	"context"

	"github.com/oneconcern/braid/pkg/core/status"
	"github.com/oneconcern/braid/pkg/errors"
	"github.com/oneconcern/braid/pkg/graph"
	"github.com/oneconcern/braid/pkg/model"
)

// Provider supplies the record set visible on a named branch.
//
// The surrounding application implements it, possibly by shelling out to a
// version-control binary; its failures are surfaced as ErrReconciliation
// and never retried here. Retry policy belongs to the caller, as does any
// timeout, carried by the context.
type Provider interface {
	Snapshot(ctx context.Context, branchRef string) (model.BranchSnapshot, error)
}

// MergeResult is the outcome of merging two branch snapshots
type MergeResult struct {
	// Resolved is the merged record set, keyed by resolved id
	Resolved map[string]model.Record

	// Conflicts lists the identifier collisions that were resolved,
	// ordered by original id
	Conflicts []model.ConflictRecord

	_ struct{}
}

// Merge reconciles the local snapshot with a remote one.
//
// Records present on a single side are taken unchanged. Records present on
// both sides with identical content are a no-op. Records present on both
// sides with differing content are identifier collisions: the local side
// wins the id, and the remote record is renamed. A cycle introduced purely
// by merging fails the whole merge with ErrReconciliation; no store is
// touched by this function either way.
func Merge(local, remote model.BranchSnapshot) (MergeResult, error) {
	res := MergeResult{Resolved: make(map[string]model.Record, len(local.Records)+len(remote.Records))}

	for id, r := range local.Records {
		res.Resolved[id] = r.Clone()
	}

	var collided, freshRemote []string
	for _, id := range remote.IDs() {
		lr, inLocal := local.Records[id]
		rr := remote.Records[id]
		if !inLocal {
			freshRemote = append(freshRemote, id)
			continue
		}
		lh, err := contentHash(&lr)
		if err != nil {
			return MergeResult{}, status.ErrReconciliation.Wrap(err)
		}
		rh, err := contentHash(&rr)
		if err != nil {
			return MergeResult{}, status.ErrReconciliation.Wrap(err)
		}
		if lh == rh {
			continue // idempotent no-op, either side will do
		}
		collided = append(collided, id)
	}

	rename, err := assignResolvedIDs(local, remote, collided)
	if err != nil {
		return MergeResult{}, err
	}

	// install remote-authored records with their edges rewritten through
	// the rename mapping
	for _, id := range freshRemote {
		rr := remote.Records[id]
		r := rr.Clone()
		rewriteDeps(&r, rename)
		res.Resolved[id] = r
	}
	for _, id := range collided {
		newID := rename[id]
		if newID == id {
			// local side stands as is: the only difference was dependency
			// edges rewritten by a previous merge
			continue
		}
		res.Conflicts = append(res.Conflicts, model.ConflictRecord{OriginalID: id, RenamedID: newID})
		if _, dedup := local.Records[newID]; dedup {
			// a previous merge already renamed this record: the local copy
			// under the resolved id stands, nothing new to install
			continue
		}
		rr := remote.Records[id]
		r := rr.Clone()
		r.ID = newID
		rewriteDeps(&r, rename)
		res.Resolved[newID] = r
	}
	// attribute every rewritten edge to the collision that caused it
	for i := range res.Conflicts {
		c := &res.Conflicts[i]
		for _, id := range append(append([]string(nil), freshRemote...), collided...) {
			from := id
			if mapped, ok := rename[id]; ok {
				if _, dedup := local.Records[mapped]; dedup {
					continue // dedup'd records are not installed
				}
				from = mapped
			}
			for _, dep := range remote.Records[id].Dependencies {
				if dep == c.OriginalID && c.RenamedID != c.OriginalID {
					c.RewrittenEdges = append(c.RewrittenEdges, model.DependencyEdge{From: from, To: c.RenamedID})
				}
			}
		}
	}

	if err := checkAcyclic(res.Resolved); err != nil {
		return MergeResult{}, err
	}
	return res, nil
}

// contentHash returns the snapshot-carried hash, or computes the canonical
// one when the provider did not supply it
func contentHash(r *model.Record) (string, error) {
	if r.ContentHash != "" {
		return r.ContentHash, nil
	}
	return model.Hash(r)
}

// skeleton captures a record's content identity minus its id and
// dependency list, used to recognize a record that was already merged and
// renamed by a previous reconciliation.
func skeleton(r *model.Record) string {
	c := r.Clone()
	c.ID = model.FormatID(c.Kind, 0)
	c.Dependencies = nil
	c.ContentHash = ""
	h, err := model.Hash(&c)
	if err != nil {
		return ""
	}
	return h
}

// assignResolvedIDs maps each collided remote id to its resolved id.
//
// A collided remote record whose content already exists on the local side
// under another id (a previous merge renamed it) is mapped to that existing
// id instead of being renamed again; anything else gets the lowest integer
// suffix of its kind above the collided suffix that is unused in the union
// of both id spaces plus the ids assigned so far. Allocating above the
// collision rather than into gaps below it keeps the renamed record next to
// its sibling. Collisions are processed in ascending id order, so the
// assignment is deterministic.
func assignResolvedIDs(local, remote model.BranchSnapshot, collided []string) (map[string]string, error) {
	rename := make(map[string]string, len(collided))

	used := make(map[string]struct{}, len(local.Records)+len(remote.Records))
	for id := range local.Records {
		used[id] = struct{}{}
	}
	for id := range remote.Records {
		used[id] = struct{}{}
	}

	// index local records by skeleton for dedup lookups
	bySkeleton := make(map[string][]string, len(local.Records))
	for _, id := range local.IDs() {
		r := local.Records[id]
		bySkeleton[skeleton(&r)] = append(bySkeleton[skeleton(&r)], id)
	}
	claimed := make(map[string]struct{}, len(collided))

	for _, id := range collided {
		rr := remote.Records[id]
		kind := rr.Kind
		if !kind.IsValid() {
			return nil, status.ErrReconciliation.WrapMessage("collided record %s has unknown kind %q", id, rr.Kind)
		}

		// dedup: the same content is already present locally, either under
		// this very id (its edges were rewritten by a previous merge) or
		// under another id of the same kind
		dedup := ""
		candidates := bySkeleton[skeleton(&rr)]
		for _, candidate := range candidates {
			if candidate == id {
				dedup = id
				break
			}
		}
		if dedup == "" {
			for _, candidate := range candidates {
				if _, ok := claimed[candidate]; ok {
					continue
				}
				dedup = candidate
				break
			}
		}
		if dedup != "" {
			claimed[dedup] = struct{}{}
			rename[id] = dedup
			continue
		}

		n := model.IDSuffix(id) + 1
		for {
			candidate := model.FormatID(kind, n)
			if _, ok := used[candidate]; !ok {
				used[candidate] = struct{}{}
				rename[id] = candidate
				break
			}
			n++
		}
	}
	return rename, nil
}

func rewriteDeps(r *model.Record, rename map[string]string) {
	for i, dep := range r.Dependencies {
		if newID, ok := rename[dep]; ok && newID != dep {
			r.Dependencies[i] = newID
		}
	}
}

// checkAcyclic validates the merged edge set. Dangling dependencies are
// tolerated here (they surface as validation failures on the next graph
// rebuild); cycles are not.
func checkAcyclic(resolved map[string]model.Record) error {
	records := make(model.Records, 0, len(resolved))
	for _, r := range resolved {
		records = append(records, r)
	}
	if _, err := graph.Build(records); err != nil && errors.Is(err, status.ErrCycle) {
		return status.ErrReconciliation.WrapMessage("merge would introduce a dependency cycle: %v", err)
	}
	return nil
}
