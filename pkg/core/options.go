package core

import (
	"github.com/oneconcern/braid/pkg/index"
	"github.com/oneconcern/braid/pkg/order"
	"github.com/oneconcern/braid/pkg/reconcile"
	"github.com/oneconcern/braid/pkg/store"
	"go.uber.org/zap"
)

// Option is a functor to build a core
type Option func(*Core)

// RecordStore sets the backing record store
func RecordStore(s *store.Store) Option {
	return func(c *Core) {
		if s != nil {
			c.store = s
		}
	}
}

// BranchProvider sets the branch snapshot collaborator used by MergeBranch
func BranchProvider(p reconcile.Provider) Option {
	return func(c *Core) {
		c.provider = p
	}
}

// SearchIndex overrides the search index
func SearchIndex(ix *index.Index) Option {
	return func(c *Core) {
		if ix != nil {
			c.ix = ix
		}
	}
}

// OrderKeys overrides the order key engine, e.g. to lower the compaction
// threshold
func OrderKeys(e *order.Engine) Option {
	return func(c *Core) {
		if e != nil {
			c.keys = e
		}
	}
}

// Logger sets a zap logger for the core and its derived structures
func Logger(l *zap.Logger) Option {
	return func(c *Core) {
		if l != nil {
			c.l = l
		}
	}
}
