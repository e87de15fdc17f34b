package model

import "sort"

// BranchSnapshot is the read-only set of records visible on one named branch
// at one point in time. It is produced by a branch provider and never
// mutated by the core.
type BranchSnapshot struct {
	Branch  string
	Records map[string]Record

	_ struct{}
}

// IDs returns the record ids in the snapshot, in deterministic order
func (s BranchSnapshot) IDs() []string {
	ids := make([]string, 0, len(s.Records))
	for id := range s.Records {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return CompareIDs(ids[i], ids[j]) < 0 })
	return ids
}

// ConflictRecord describes one identifier collision resolved during a merge:
// the original id, the id the colliding record was renamed to, and the
// dependency edges rewritten to follow the rename. It lives only for the
// duration of a single merge and is never persisted.
type ConflictRecord struct {
	OriginalID     string
	RenamedID      string
	RewrittenEdges []DependencyEdge

	_ struct{}
}

// DependencyEdge is the ordered pair (From, To) meaning "From depends on To".
// Edges are derived from Record.Dependencies and owned by the dependency
// graph; they are never stored independently.
type DependencyEdge struct {
	From string
	To   string
}
