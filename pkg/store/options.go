package store

import (
	"github.com/oneconcern/braid/pkg/model"
	"github.com/oneconcern/braid/pkg/storage"
	"go.uber.org/zap"
)

// Option is a functor to build a record store
type Option func(*Store)

// Backend sets the byte-level store backing records
func Backend(b storage.Store) Option {
	return func(s *Store) {
		if b != nil {
			s.backend = b
		}
	}
}

// Logger sets a zap logger for this store
func Logger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.l = l
		}
	}
}

// ListOption narrows down the records visited by List
type ListOption func(*listSettings)

type listSettings struct {
	kind   model.Kind
	status model.Status
	label  string
}

// KindFilter restricts listing to records of one kind
func KindFilter(k model.Kind) ListOption {
	return func(o *listSettings) {
		o.kind = k
	}
}

// StatusFilter restricts listing to records with the given status
func StatusFilter(s model.Status) ListOption {
	return func(o *listSettings) {
		o.status = s
	}
}

// LabelFilter restricts listing to records carrying the given label
func LabelFilter(label string) ListOption {
	return func(o *listSettings) {
		o.label = label
	}
}

func (o listSettings) matches(r *model.Record) bool {
	if o.kind != "" && r.Kind != o.kind {
		return false
	}
	if o.status != "" && r.Status != o.status {
		return false
	}
	if o.label != "" {
		found := false
		for _, l := range r.Labels {
			if l == o.label {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
