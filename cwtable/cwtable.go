// SPDX-License-Identifier: GPL-3.0

// Package cwtable implements the process-wide shared contention-window
// range table the NOBA family of policies cooperatively maintains
// (spec.md §3 CwEntry, §4.3 CwTable). Every device of every priority reads
// the same Table snapshot; the single-threaded discrete-event scheduler
// (internal/engine) guarantees mutations never race with reads, so Table
// carries no lock of its own. A host that cannot guarantee that
// serialization must wrap Table in its own mutex at the call site.
package cwtable

// Priorities is the fixed number of traffic priorities, P=8.
const Priorities = 8

// DefaultWL is the default window-limit ladder, wl = {64,60,56,52,46,38,28,16}
// indexed by priority 0..7 (priority 7 is highest, smallest ceiling).
var DefaultWL = [Priorities]uint32{64, 60, 56, 52, 46, 38, 28, 16}

// Config configures a new Table.
type Config struct {
	WL [Priorities]uint32
}

// DefaultConfig returns the standard window-limit ladder.
func DefaultConfig() Config {
	return Config{WL: DefaultWL}
}

// Table holds the per-priority [lo,hi] range, step width sw, and hard
// ceiling wl, and keeps them rebalanced into the invariants of spec.md §3:
// 1 <= lo(p) <= hi(p) <= wl(p); hi(p) < lo(p-1); lo(P-1) = 1.
type Table struct {
	lo, hi, sw, wl [Priorities]uint32
}

// New returns a Table initialized with sw(p)=1 for all p and rebalanced.
func New(cfg Config) *Table {
	t := &Table{wl: cfg.WL}
	for p := range t.sw {
		t.sw[p] = 1
	}
	t.Rebalance()
	return t
}

// Rebalance recomputes hi and lo top-down from priority P-1 to 0:
//
//	hi(p) = min(lo(p) + sw(p), wl(p))
//	lo(p-1) = hi(p) + 1   (for p > 0)
//
// with lo(P-1) fixed at 1, per spec.md §4.3 and the canonical resolution of
// open question (c) in DESIGN.md.
func (t *Table) Rebalance() {
	t.lo[Priorities-1] = 1
	for p := Priorities - 1; p >= 0; p-- {
		hi := t.lo[p] + t.sw[p]
		if hi > t.wl[p] {
			hi = t.wl[p]
		}
		t.hi[p] = hi
		if p > 0 {
			t.lo[p-1] = hi + 1
		}
	}
}

// SetSW sets the step width for priority p and rebalances.
func (t *Table) SetSW(p int, sw uint32) {
	t.sw[p] = sw
	t.Rebalance()
}

// ResetDefaultWidths recomputes hi/lo from the current sw and wl values,
// without changing sw itself.
func (t *Table) ResetDefaultWidths() {
	t.Rebalance()
}

// DeltaTable is the piecewise δ -> sw mapping GNU-NOBA's beacon-phase
// re-allocation uses (spec.md §4.7, open question (a)). The lookup is keyed
// on |δ|: a priority whose success count this interval departs sharply
// (either up or down) from its own recent history gets a smaller sw,
// handing window space to lower priorities; a priority behaving typically
// keeps the large default sw. DESIGN.md records this as the resolution of
// open question (a) — spec.md's prose ("larger δ -> smaller sw") and its
// own scenario 5 (a sharp *drop* from the historical average must also
// shrink sw) are only jointly satisfiable by keying on magnitude, not sign.
// Thresholds are checked in order, descending; the first one |δ| exceeds
// wins.
type DeltaTable struct {
	Thresholds []float64
	SW         []uint32
	Default    uint32
}

// DefaultDeltaTable returns the reference thresholds/sw pairs from
// spec.md §9 open question (a): δ>10 -> 1, δ>8 -> 2, δ>4 -> 6, δ>2 -> 12,
// else -> 20.
func DefaultDeltaTable() DeltaTable {
	return DeltaTable{
		Thresholds: []float64{10, 8, 4, 2},
		SW:         []uint32{1, 2, 6, 12},
		Default:    20,
	}
}

// SW returns the step width for the given δ, keyed on |δ| (see DeltaTable
// doc comment).
func (d DeltaTable) SW(delta float64) uint32 {
	mag := delta
	if mag < 0 {
		mag = -mag
	}
	for i, th := range d.Thresholds {
		if mag > th {
			return d.SW[i]
		}
	}
	return d.Default
}

// ApplyAggregated sets sw(p) for every priority from the per-priority δ
// values using dt, then rebalances. This is GNU-NOBA's beacon-phase
// re-allocation primitive (spec.md §4.3, §4.7).
func (t *Table) ApplyAggregated(delta [Priorities]float64, dt DeltaTable) {
	for p := 0; p < Priorities; p++ {
		t.sw[p] = dt.SW(delta[p])
	}
	t.Rebalance()
}

// Lo returns the current lower bound for priority p.
func (t *Table) Lo(p int) uint32 { return t.lo[p] }

// Hi returns the current upper bound for priority p.
func (t *Table) Hi(p int) uint32 { return t.hi[p] }

// SW returns the current step width for priority p.
func (t *Table) SW(p int) uint32 { return t.sw[p] }

// WL returns the hard ceiling for priority p.
func (t *Table) WL(p int) uint32 { return t.wl[p] }
