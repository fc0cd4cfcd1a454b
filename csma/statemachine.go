// SPDX-License-Identifier: GPL-3.0

// Package csma implements the generic slotted CSMA/CA control flow shared
// by all five channel-access variants (spec.md §4.4) and the five
// PolicyAdapters that plug their CW-adjust and draw rules into it
// (spec.md §4.5-§4.7). StateMachine owns nothing but per-device transient
// state; the contention-window range table and, for SW-NOBA and GNU-NOBA, the
// per-priority collision/success counters live in a Context shared across
// every device in the simulation (spec.md §9 design note).
package csma

import (
	"fmt"

	"github.com/csma-noba/wpancsma/backoff"
	"github.com/csma-noba/wpancsma/cwtable"
	"github.com/csma-noba/wpancsma/internal/engine"
	"github.com/csma-noba/wpancsma/macif"
	"github.com/csma-noba/wpancsma/slotclock"
)

// Variant selects which of the five channel-access algorithms a
// StateMachine runs.
type Variant int

const (
	BEB Variant = iota
	Standard
	Noba
	SwNoba
	GnuNoba
)

func (v Variant) String() string {
	switch v {
	case BEB:
		return "BEB"
	case Standard:
		return "STANDARD"
	case Noba:
		return "NOBA"
	case SwNoba:
		return "SW-NOBA"
	case GnuNoba:
		return "GNU-NOBA"
	default:
		return "UNKNOWN"
	}
}

// DefaultMaxBackoffs is macMaxCSMABackoffs, the retry ceiling on how many
// times a single transmission attempt may redraw and recount its backoff
// before giving up (SPEC_FULL.md §12; supplements the distilled spec, which
// otherwise never bounds the freeze-and-redraw loop).
const DefaultMaxBackoffs = 4

// Config configures a StateMachine. Priority, Variant and a nil MAC are
// checked at construction; Unslotted is always a fatal precondition since
// this core only implements slotted CSMA/CA (spec.md §7).
type Config struct {
	Priority             int
	Variant              Variant
	Unslotted            bool
	MaxBackoffs          int
	Seed                 uint64
	BatteryLifeExtension bool
}

// DefaultConfig returns a Config for the given priority and variant with
// MaxBackoffs and a priority-derived seed filled in.
func DefaultConfig(priority int, variant Variant) Config {
	return Config{
		Priority:    priority,
		Variant:     variant,
		MaxBackoffs: DefaultMaxBackoffs,
		Seed:        uint64(priority) + 1,
	}
}

// StateMachine runs one device's slotted CSMA/CA algorithm: Start aligns
// to the next slot boundary, draws a backoff, counts it down one unit
// period per CCA request, and reports CHANNEL_IDLE or MAC_CSMA_DEFERRED
// back through Callbacks.
type StateMachine struct {
	sched *engine.Scheduler
	phy   macif.PHY
	mac   macif.MAC
	cb    macif.Callbacks
	cfg   Config
	pol   policy

	targetIsCoord   bool
	backoffCount    uint32
	collisions      int
	backoffAttempts int
	ccaPending      bool
	running         bool

	alignTok, countdownTok *engine.Token
}

// New constructs a StateMachine. ctx may be nil for BEB and STANDARD, which
// never touch the shared CwTable. New panics on the programming-error
// preconditions spec.md §7 lists as fatal: a nil MAC, a priority outside
// 0..7, or Unslotted set.
func New(sched *engine.Scheduler, phy macif.PHY, mac macif.MAC, cb macif.Callbacks, cfg Config, ctx *Context) *StateMachine {
	if mac == nil {
		panic("csma: nil MAC")
	}
	if cfg.Priority < 0 || cfg.Priority >= cwtable.Priorities {
		panic(fmt.Sprintf("csma: priority %d out of range 0..%d", cfg.Priority, cwtable.Priorities-1))
	}
	if cfg.Unslotted {
		panic("csma: unslotted mode is not supported by this core")
	}
	if cfg.MaxBackoffs <= 0 {
		cfg.MaxBackoffs = DefaultMaxBackoffs
	}
	return &StateMachine{
		sched: sched,
		phy:   phy,
		mac:   mac,
		cb:    cb,
		cfg:   cfg,
		pol:   newPolicy(cfg, ctx, cb),
	}
}

func newPolicy(cfg Config, ctx *Context, cb macif.Callbacks) policy {
	switch cfg.Variant {
	case BEB:
		return newBEBPolicy(cfg.Seed, cfg.BatteryLifeExtension)
	case Standard:
		return newStandardPolicy(cfg.Seed, cfg.Priority)
	case Noba:
		return newNobaPolicy(ctx, cfg.Priority, backoff.NewUniform(cfg.Seed), cb)
	case SwNoba:
		return newSwNobaPolicy(ctx, cfg.Priority, backoff.NewUniform(cfg.Seed), cb)
	case GnuNoba:
		return newGnuNobaPolicy(ctx, cfg.Priority, backoff.NewBetaMD(cfg.Seed), cb)
	default:
		panic(fmt.Sprintf("csma: unknown variant %d", cfg.Variant))
	}
}

// Start begins a new transmission attempt: cancels anything left over from
// a previous attempt, clears the per-attempt collision counter (open
// question (d): the per-attempt counter resets at Start, the shared
// COLLISION_COUNT/SUCCESS_COUNT persist across attempts), and aligns to
// the next slot boundary.
func (sm *StateMachine) Start() {
	sm.cancelTokens()
	if sm.ccaPending {
		sm.phy.CancelCCA()
		sm.ccaPending = false
	}
	sm.collisions = 0
	sm.backoffAttempts = 0
	sm.running = true
	sm.pol.Reset()
	sm.targetIsCoord = sm.mac.IsCoordDestination()
	sm.armAlign()
}

// Cancel cancels every scheduled event this device holds and instructs the
// PHY to abort any outstanding CCA. Idempotent; safe from any state,
// including IDLE.
func (sm *StateMachine) Cancel() {
	sm.cancelTokens()
	if sm.ccaPending {
		sm.phy.CancelCCA()
		sm.ccaPending = false
	}
	sm.running = false
}

func (sm *StateMachine) cancelTokens() {
	sm.alignTok.Cancel()
	sm.countdownTok.Cancel()
	sm.alignTok = nil
	sm.countdownTok = nil
}

// anchor chooses the Incoming (beacon-reception) or Outgoing
// (beacon-transmission) reference per target_is_coord (spec.md §3).
func (sm *StateMachine) anchor() slotclock.Clock {
	if sm.targetIsCoord {
		return sm.mac.BeaconTxTime()
	}
	return sm.mac.BeaconRxTime()
}

func (sm *StateMachine) capParams() (duration uint32, finalSlot uint8) {
	if sm.targetIsCoord {
		return sm.mac.SuperframeDuration(), sm.mac.FinalCapSlot()
	}
	return sm.mac.IncomingSuperframeDuration(), sm.mac.IncomingFinalCapSlot()
}

func (sm *StateMachine) armAlign() {
	now := sm.sched.Now()
	next := slotclock.NextSlotBoundary(sm.anchor(), now, sm.phy.SymbolRate())
	sm.alignTok = sm.sched.Schedule(next-now, func(engine.Clock) {
		sm.alignTok = nil
		sm.drawBackoff()
	})
}

// drawBackoff samples a fresh backoff count from the policy and advances
// to CHECK_PROCEED. It is re-entered on every freeze-and-redraw, not just
// the initial draw, so a late redraw always rechecks CAP time and benefits
// from any CW adjustment made meanwhile (spec.md §4.4 edge cases).
func (sm *StateMachine) drawBackoff() {
	sm.backoffAttempts++
	if sm.backoffAttempts > sm.cfg.MaxBackoffs {
		sm.deferNow()
		return
	}
	sm.backoffCount = sm.pol.Draw()
	sm.checkProceed()
}

// checkProceed is CHECK_PROCEED: "enough time in CAP" means the CAP has
// room for the remaining backoff wait plus the transaction itself
// (tx+ack+ifs), not merely a positive time_left_in_cap (spec.md §8
// scenario 2: a small positive time_left_in_cap still defers a long
// transaction). A non-positive time_left_in_cap defers immediately rather
// than arming a negative delay (spec.md §4.4 edge cases).
func (sm *StateMachine) checkProceed() {
	now := sm.sched.Now()
	rate := sm.phy.SymbolRate()
	dur, finalSlot := sm.capParams()
	left := slotclock.TimeLeftInCAP(sm.anchor(), now, rate, dur, finalSlot)
	needed := sm.backoffCount*slotclock.UnitBackoffPeriod + sm.transCostSymbols()
	required := slotclock.SymbolsToClock(needed, rate)
	if left <= 0 || left < required {
		sm.deferNow()
		return
	}
	// A zero draw (BEB's [0, 2^BE-1] range includes it, spec.md §4.5) needs
	// no CCA at all: zero requests for a drawn backoff of zero keeps the
	// "CCA requests per attempt equals the drawn backoff count" invariant
	// (spec.md §8) literally true, and skips armCountdown/requestCCA so
	// PlmeCCAConfirm's backoffCount-- never runs against an already-zero
	// uint32 (which would underflow rather than reach CHANNEL_IDLE).
	if sm.backoffCount == 0 {
		sm.done()
		return
	}
	sm.armCountdown()
}

// armCountdown waits one aUnitBackoffPeriod, then requests a CCA. Each
// idle CCA confirm decrements backoff_count by exactly one and re-arms
// this same wait for the next CCA, so the number of CCA requests per
// attempt equals the drawn backoff count (spec.md §8 invariant).
func (sm *StateMachine) armCountdown() {
	rate := sm.phy.SymbolRate()
	sm.countdownTok = sm.sched.Schedule(slotclock.UnitPeriodDuration(rate), func(engine.Clock) {
		sm.countdownTok = nil
		sm.requestCCA()
	})
}

func (sm *StateMachine) requestCCA() {
	if sm.backoffCount == 1 {
		if notifier, ok := sm.cb.(macif.TransCostNotifier); ok {
			notifier.TransCost(sm.transCostSymbols())
		}
	}
	sm.ccaPending = true
	sm.phy.RequestCCA()
}

func (sm *StateMachine) transCostSymbols() uint32 {
	cost := sm.mac.TxPacketSymbols() + sm.mac.IfsSymbols()
	if sm.mac.IsTxAckRequired() {
		cost += sm.mac.AckWaitSymbols()
	}
	return cost
}

// PlmeCCAConfirm delivers the PHY's answer to the outstanding CCA request.
// A confirm arriving while no request is outstanding (cca_pending==false,
// e.g. the MAC canceled after the PHY had already launched the CCA) is
// silently discarded (spec.md §4.9).
func (sm *StateMachine) PlmeCCAConfirm(status macif.CCAStatus) {
	if !sm.ccaPending {
		return
	}
	sm.ccaPending = false
	switch status {
	case macif.CCAIdle:
		sm.backoffCount--
		if sm.backoffCount == 0 {
			sm.done()
			return
		}
		sm.armCountdown()
	default:
		sm.collisions++
		sm.pol.OnBusyCCA(sm.collisions)
		sm.drawBackoff()
	}
}

func (sm *StateMachine) done() {
	sm.running = false
	sm.cb.MACState(macif.ChannelIdle)
}

func (sm *StateMachine) deferNow() {
	sm.running = false
	sm.cb.MACState(macif.CSMADeferred)
}

// OnTxSuccess reports a successfully-ACKed transmission at the state
// machine's priority, driven externally by the MAC's ACK-received event.
func (sm *StateMachine) OnTxSuccess() {
	sm.pol.OnSuccess()
}

// OnTxFailureNoAck reports a transmission that timed out waiting for an
// ACK, driven externally by the MAC's ACK-wait-timeout event.
func (sm *StateMachine) OnTxFailureNoAck() {
	sm.pol.OnFailure()
}

// Running reports whether the state machine is between Start and a
// terminal CHANNEL_IDLE/MAC_CSMA_DEFERRED/Cancel, for observability/tests.
func (sm *StateMachine) Running() bool { return sm.running }
