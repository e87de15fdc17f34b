package core

import (
	"github.com/oneconcern/braid/pkg/index"
)

// Search queries the in-memory index and returns matching record ids
// ranked by term frequency
func (c *Core) Search(query string) []index.Hit {
	return c.ix.Query(query)
}
