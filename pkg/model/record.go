package model

import (
	"time"

	yaml "gopkg.in/yaml.v2"
)

// Kind discriminates the record variants sharing the common metadata header.
type Kind string

const (
	// KindTask is a unit of work, ordered and dependency-tracked
	KindTask Kind = "task"

	// KindDocument is a free-form document attached to the project
	KindDocument Kind = "document"

	// KindDecision is a recorded decision
	KindDecision Kind = "decision"
)

// IsValid tells whether this is a known record kind
func (k Kind) IsValid() bool {
	switch k {
	case KindTask, KindDocument, KindDecision:
		return true
	}
	return false
}

// Status of a record. The set of valid statuses depends on the record kind.
type Status string

// Task statuses
const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusBlocked    Status = "blocked"
	StatusClosed     Status = "closed"
)

// Document statuses
const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
)

// Decision statuses
const (
	StatusProposed   Status = "proposed"
	StatusAccepted   Status = "accepted"
	StatusSuperseded Status = "superseded"
)

var statusByKind = map[Kind][]Status{
	KindTask:     {StatusOpen, StatusInProgress, StatusBlocked, StatusClosed},
	KindDocument: {StatusDraft, StatusPublished, StatusArchived},
	KindDecision: {StatusProposed, StatusAccepted, StatusSuperseded},
}

// IsValidFor tells whether this status is valid for records of the given kind
func (s Status) IsValidFor(k Kind) bool {
	for _, valid := range statusByKind[k] {
		if s == valid {
			return true
		}
	}
	return false
}

// DefaultStatus is the status given to newly created records of a kind
func DefaultStatus(k Kind) Status {
	switch k {
	case KindTask:
		return StatusOpen
	case KindDocument:
		return StatusDraft
	case KindDecision:
		return StatusProposed
	default:
		return ""
	}
}

// Record is a single persisted entry: one file, one identity.
//
// A record is a metadata header plus a free-form text body. Tasks
// additionally carry an ordered dependency list and a sortable order key.
type Record struct {
	ID           string    `json:"id" yaml:"id"`
	Kind         Kind      `json:"kind" yaml:"kind"`
	Title        string    `json:"title,omitempty" yaml:"title,omitempty"`
	Status       Status    `json:"status" yaml:"status"`
	Created      time.Time `json:"created" yaml:"created"`
	Labels       []string  `json:"labels,omitempty" yaml:"labels,omitempty"`
	Dependencies []string  `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	OrderKey     string    `json:"order,omitempty" yaml:"order,omitempty"`
	Body         string    `json:"body,omitempty" yaml:"-"`

	// Extra holds unknown metadata fields, preserved round-trip in their
	// original order but never interpreted.
	Extra yaml.MapSlice `json:"-" yaml:"-"`

	// ContentHash is derived from the serialized bytes and used for
	// optimistic concurrency. It is never written to the record file.
	ContentHash string `json:"contentHash,omitempty" yaml:"-"`

	_ struct{}
}

// Validate checks the record invariants: well-formed id matching the kind
// pattern, a status valid for the kind, a creation date, and for tasks a
// dependency list free of self-references.
func (r *Record) Validate() error {
	if !r.Kind.IsValid() {
		return ErrValidation.WrapMessage("unknown kind %q", r.Kind)
	}
	kind, ok := KindOfID(r.ID)
	if !ok {
		return ErrValidation.WrapMessage("malformed id %q", r.ID)
	}
	if kind != r.Kind {
		return ErrValidation.WrapMessage("id %q does not match kind %q", r.ID, r.Kind)
	}
	if !r.Status.IsValidFor(r.Kind) {
		return ErrValidation.WrapMessage("status %q is not valid for kind %q", r.Status, r.Kind)
	}
	if r.Created.IsZero() {
		return ErrValidation.WrapMessage("record %s has no creation date", r.ID)
	}
	if r.Kind != KindTask {
		if len(r.Dependencies) > 0 || r.OrderKey != "" {
			return ErrValidation.WrapMessage("record %s: dependencies and order are task-only fields", r.ID)
		}
		return nil
	}
	seen := make(map[string]struct{}, len(r.Dependencies))
	for _, dep := range r.Dependencies {
		if dep == r.ID {
			return ErrValidation.WrapMessage("task %s depends on itself", r.ID)
		}
		if _, ok := KindOfID(dep); !ok {
			return ErrValidation.WrapMessage("task %s has malformed dependency id %q", r.ID, dep)
		}
		if _, dup := seen[dep]; dup {
			return ErrValidation.WrapMessage("task %s lists dependency %s twice", r.ID, dep)
		}
		seen[dep] = struct{}{}
	}
	return nil
}

// Clone returns a deep copy of the record
func (r *Record) Clone() Record {
	out := *r
	out.Labels = append([]string(nil), r.Labels...)
	out.Dependencies = append([]string(nil), r.Dependencies...)
	out.Extra = append(yaml.MapSlice(nil), r.Extra...)
	return out
}

// Records is a sortable collection of records, ordered by id
type Records []Record

func (r Records) Len() int           { return len(r) }
func (r Records) Swap(i, j int)      { r[i], r[j] = r[j], r[i] }
func (r Records) Less(i, j int) bool { return CompareIDs(r[i].ID, r[j].ID) < 0 }
