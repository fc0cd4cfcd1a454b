// SPDX-License-Identifier: GPL-3.0

package csma

import "github.com/csma-noba/wpancsma/cwtable"

// Context is the simulation-scoped object threaded to every device at
// construction instead of true global state (DESIGN.md, spec.md §9 design
// note on shared mutable singletons): it carries the shared CwTable and,
// for the NOBA family, the per-priority COLLISION_COUNT/SUCCESS_COUNT pair
// that feeds the sw(p) recompute on transmission result (spec.md §4.7).
//
// SUCCESS_COUNT here is NOT the same counter the GNU-NOBA coordinator
// aggregates per beacon interval (coordinator.Aggregator.successCount):
// the source conflates one variable name across two distinct lifetimes
// (reset-to-1 every third success here, vs. raw-accumulate-until-beacon-
// boundary there), which cannot both hold of a single counter. DESIGN.md
// records the split as the resolution: the SW-NOBA and GNU-NOBA policies
// keep this counter through setSuccesses (resets-to-1 semantics), while the
// cmd/wpansim driver, in GNU-NOBA scenarios, calls
// coordinator.Aggregator.RecordSuccess (raw per-interval tally) on the same
// transmission-success event.
type Context struct {
	CW             *cwtable.Table
	collisionCount [cwtable.Priorities]int
	successCount   [cwtable.Priorities]int
}

// NewContext returns a Context wrapping the given shared CwTable.
func NewContext(cw *cwtable.Table) *Context {
	return &Context{CW: cw}
}

func (c *Context) collisions(p int) int { return c.collisionCount[p] }
func (c *Context) successes(p int) int  { return c.successCount[p] }

func (c *Context) setCollisions(p, v int) { c.collisionCount[p] = v }
func (c *Context) setSuccesses(p, v int)  { c.successCount[p] = v }
