// SPDX-License-Identifier: GPL-3.0

// Package slotclock converts real (virtual) time to symbol time and to
// backoff-period/superframe boundaries (spec.md §4.1). It holds no state of
// its own: every function is a pure derivation from an anchor time, the
// current time, and a symbol rate.
package slotclock

import "github.com/csma-noba/wpancsma/internal/engine"

// Clock is virtual simulation time, aliasing the scheduling engine's Clock
// so durations compose without conversion across package boundaries.
type Clock = engine.Clock

// SymbolRate is a PHY symbol rate, in symbols per second.
type SymbolRate uint64

// UnitBackoffPeriod is aUnitBackoffPeriod, the IEEE 802.15.4 backoff-period
// granularity in symbols.
const UnitBackoffPeriod = 20

// SuperframeSlots is the fixed number of equal slots per superframe.
const SuperframeSlots = 16

const nanosPerSecond = int64(1e9)

// symbolsElapsed converts a duration to a symbol count at the given rate.
func symbolsElapsed(d Clock, rate SymbolRate) int64 {
	if rate == 0 {
		return 0
	}
	return int64(d) * int64(rate) / nanosPerSecond
}

// symbolsToClock converts a symbol count to a duration at the given rate.
func symbolsToClock(symbols int64, rate SymbolRate) Clock {
	if rate == 0 {
		return 0
	}
	return Clock(symbols * nanosPerSecond / int64(rate))
}

// UnitPeriodDuration returns the duration of one aUnitBackoffPeriod (20
// symbols) at the given rate, the granularity the CSMA/CA countdown loop
// arms between each CCA request.
func UnitPeriodDuration(rate SymbolRate) Clock {
	return symbolsToClock(UnitBackoffPeriod, rate)
}

// SymbolsToClock converts a symbol count at the given rate to a duration,
// for callers (the csma countdown loop) that need to arm a delay expressed
// directly in symbols, such as an ACK-wait or IFS interval.
func SymbolsToClock(symbols uint32, rate SymbolRate) Clock {
	return symbolsToClock(int64(symbols), rate)
}

// NextSlotBoundary returns the absolute time of the next backoff-period
// slot boundary strictly after now (a now that sits exactly on a boundary
// gets the following one, a full aUnitBackoffPeriod later), anchored at the
// given beacon reference
// time (an outgoing beacon's transmission time, or an incoming beacon's
// reception time).
func NextSlotBoundary(anchor, now Clock, rate SymbolRate) Clock {
	elapsed := now - anchor
	es := symbolsElapsed(elapsed, rate)
	mod := es % UnitBackoffPeriod
	if mod < 0 {
		mod += UnitBackoffPeriod
	}
	remaining := UnitBackoffPeriod - mod
	return now + symbolsToClock(remaining, rate)
}

// TimeLeftInCAP returns how much time remains in the Contention Access
// Period of the superframe anchored at anchor, given the final CAP slot
// index and the total superframe duration in symbols. A non-positive
// result means the CAP has already ended (or is about to, within this
// instant) and the caller must defer rather than arm a negative delay.
func TimeLeftInCAP(anchor, now Clock, rate SymbolRate, superframeDurationSymbols uint32, finalCapSlot uint8) Clock {
	capSymbols := int64(finalCapSlot+1) * int64(superframeDurationSymbols) / SuperframeSlots
	capEnd := anchor + symbolsToClock(capSymbols, rate)
	return capEnd - now
}
