// SPDX-License-Identifier: GPL-3.0

// Package coordinator implements the GNU-NOBA CoordinatorAggregator
// (spec.md §3 SuccessAggregator, §4.8): per-beacon aggregation of success
// counts and the periodic CW re-balance it drives. It is stateless except
// for the per-priority success counts and their sliding history, and lives
// for the lifetime of the coordinator device.
package coordinator

import "github.com/csma-noba/wpancsma/cwtable"

// HistoryLen is the fixed length of each priority's success-count history,
// |success_history[p]| = 5 always (spec.md §4.8).
const HistoryLen = 5

// sentinelHistory is the sentinel value new history slots are initialized
// with (9999 in the ns-3 reference) so early beacon intervals don't trigger
// a drastic sw shrinkage against a near-zero mean.
const sentinelHistory = 9999

// Aggregator is the per-coordinator SuccessAggregator.
type Aggregator struct {
	successCount   [cwtable.Priorities]int
	successHistory [cwtable.Priorities][HistoryLen]int
}

// New returns an Aggregator with every history slot sentinel-filled.
func New() *Aggregator {
	a := &Aggregator{}
	for p := 0; p < cwtable.Priorities; p++ {
		for i := range a.successHistory[p] {
			a.successHistory[p][i] = sentinelHistory
		}
	}
	return a
}

// RecordSuccess increments the running SUCCESS_COUNT for priority p during
// the ongoing beacon interval.
func (a *Aggregator) RecordSuccess(p int) {
	a.successCount[p]++
}

// BeaconStart runs GNU-NOBA's beacon-phase re-allocation (spec.md §4.7):
// for each priority, push the interval's SUCCESS_COUNT into the sliding
// history, compute δ = SUCCESS_COUNT - mean(history), map δ to a new sw via
// dt, reset SUCCESS_COUNT, and rebalance cw. It returns the computed δ per
// priority for observability/tests.
func (a *Aggregator) BeaconStart(cw *cwtable.Table, dt cwtable.DeltaTable) [cwtable.Priorities]float64 {
	var delta [cwtable.Priorities]float64
	for p := 0; p < cwtable.Priorities; p++ {
		a.pushHistory(p, a.successCount[p])
		delta[p] = float64(a.successCount[p]) - a.meanHistory(p)
		a.successCount[p] = 0
	}
	cw.ApplyAggregated(delta, dt)
	return delta
}

func (a *Aggregator) meanHistory(p int) float64 {
	sum := 0
	for _, v := range a.successHistory[p] {
		sum += v
	}
	return float64(sum) / float64(HistoryLen)
}

func (a *Aggregator) pushHistory(p int, v int) {
	copy(a.successHistory[p][:], a.successHistory[p][1:])
	a.successHistory[p][HistoryLen-1] = v
}

// SuccessCount returns the current (mid-interval) SUCCESS_COUNT for
// priority p, for observability/tests.
func (a *Aggregator) SuccessCount(p int) int {
	return a.successCount[p]
}
