// SPDX-License-Identifier: GPL-3.0

package csma

import (
	"math/rand/v2"

	"github.com/csma-noba/wpancsma/backoff"
	"github.com/csma-noba/wpancsma/cwtable"
	"github.com/csma-noba/wpancsma/macif"
	"github.com/csma-noba/wpancsma/mkwindow"
)

// policy plugs a CSMA variant's CW-adjust and draw rules into the common
// countdown loop StateMachine runs (spec.md §9 design note: the loop is
// parameterized by two closures, draw_backoff and on_busy_cca; the result
// hooks extend the same shape to OnSuccess/OnFailure). Reset rearms any
// per-attempt state the policy owns when a fresh Start begins.
type policy interface {
	Draw() uint32
	OnBusyCCA(collisions int)
	OnSuccess()
	OnFailure()
	Reset()
}

// TPM and TPK are the default (m,k) parameters per priority (spec.md §3):
// m = {6,6,7,7,8,8,9,10}, k = 10 for every priority.
var TPM = [cwtable.Priorities]int{6, 6, 7, 7, 8, 8, 9, 10}

const TPK = 10

// --- BEB ---

const (
	bebBEMin = 3
	bebBEMax = 5
)

// batteryLifeExtensionBECeiling is the capped BE ns-3's Battery Life
// Extension mode imposes on the first two backoff stages of an attempt
// (SPEC_FULL.md §12, from the inert `BatteryLifeExtension` attribute ns-3's
// `lr-wpan-csmaca-common.h` declares but never activates itself): draw from
// [0, 2^min(BE,2)-1] instead of [0, 2^BE-1] while stage < 2.
const batteryLifeExtensionBECeiling = 2

// bebPolicy is the BEB adapter (spec.md §4.5): a single global uniform draw
// on [0, 2^BE-1], BE escalating from 3 to 5 on each channel-busy event. The
// shared CwTable is never consulted. When ble is set, the first two backoff
// stages of each attempt draw against a capped BE instead of the full one.
type bebPolicy struct {
	rng   *rand.Rand
	be    uint8
	ble   bool
	stage int
}

func newBEBPolicy(seed uint64, ble bool) *bebPolicy {
	return &bebPolicy{rng: rand.New(rand.NewPCG(seed, seed^0xbeb)), be: bebBEMin, ble: ble}
}

func (p *bebPolicy) Draw() uint32 {
	be := p.be
	if p.ble && p.stage < 2 && be > batteryLifeExtensionBECeiling {
		be = batteryLifeExtensionBECeiling
	}
	hi := uint32(1)<<be - 1
	return uint32(p.rng.IntN(int(hi) + 1))
}

func (p *bebPolicy) OnBusyCCA(int) {
	p.stage++
	if p.be < bebBEMax {
		p.be++
	}
}

func (p *bebPolicy) OnSuccess() {}
func (p *bebPolicy) OnFailure() {}
func (p *bebPolicy) Reset() {
	p.be = bebBEMin
	p.stage = 0
}

// --- STANDARD ---

var standardLo = [cwtable.Priorities]uint32{16, 16, 8, 8, 4, 4, 2, 1}
var standardHi = [cwtable.Priorities]uint32{64, 32, 32, 16, 16, 8, 8, 4}

// standardPolicy is the STANDARD adapter (spec.md §4.6): fixed per-priority
// ranges, never adjusted by collisions or successes. Control baseline.
type standardPolicy struct {
	rng    *rand.Rand
	lo, hi uint32
}

func newStandardPolicy(seed uint64, priority int) *standardPolicy {
	return &standardPolicy{
		rng: rand.New(rand.NewPCG(seed, seed^0x5da)),
		lo:  standardLo[priority],
		hi:  standardHi[priority],
	}
}

func (p *standardPolicy) Draw() uint32 {
	return p.lo + uint32(p.rng.IntN(int(p.hi-p.lo+1)))
}

func (p *standardPolicy) OnBusyCCA(int) {}
func (p *standardPolicy) OnSuccess()    {}
func (p *standardPolicy) OnFailure()    {}
func (p *standardPolicy) Reset()        {}

// --- NOBA ---

// nobaPolicy is the NOBA adapter (spec.md §4.7 common rules): draws
// uniformly from the shared CwTable range, growing sw(p) by 2 every second
// busy CCA. CollisionTrace fires on every busy CCA, including the ones that
// don't grow sw, per the finer-grained ns-3 behavior SPEC_FULL.md §12
// supplements over the distilled scenario wording.
type nobaPolicy struct {
	ctx      *Context
	priority int
	draw     backoff.Drawer
	cb       macif.Callbacks
}

func newNobaPolicy(ctx *Context, priority int, draw backoff.Drawer, cb macif.Callbacks) *nobaPolicy {
	return &nobaPolicy{ctx: ctx, priority: priority, draw: draw, cb: cb}
}

func (p *nobaPolicy) Draw() uint32 {
	return p.draw.Draw(p.ctx.CW.Lo(p.priority), p.ctx.CW.Hi(p.priority))
}

func (p *nobaPolicy) OnBusyCCA(collisions int) {
	if p.cb != nil {
		p.cb.CollisionTrace(p.priority, collisions)
	}
	if collisions%2 == 0 {
		p.ctx.CW.SetSW(p.priority, p.ctx.CW.SW(p.priority)+2)
	}
}

func (p *nobaPolicy) OnSuccess() {}
func (p *nobaPolicy) OnFailure() {}
func (p *nobaPolicy) Reset()     {}

// --- SW-NOBA ---

// swNobaFactorial is the explicit factorial lookup spec.md §9 open
// question (b) calls for in place of a tgamma call on small integers;
// frozen above c=4 per the same note, so only 0!..4! are ever needed.
var swNobaFactorial = [5]uint32{1, 1, 2, 6, 24}

// swOnFailure computes sw(p) = 2^(c+1) - min(c!, 2^c) for c =
// COLLISION_COUNT[p] in {1..4}; c=0 -> 1; c>4 is frozen at cur, the
// caller's last sw (spec.md §4.7).
func swOnFailure(c int, cur uint32) uint32 {
	if c <= 0 {
		return 1
	}
	if c > 4 {
		return cur
	}
	pow2c1 := uint32(1) << uint(c+1)
	pow2c := uint32(1) << uint(c)
	m := swNobaFactorial[c]
	if pow2c < m {
		m = pow2c
	}
	return pow2c1 - m
}

// swOnSuccess computes sw(p) = 2^c - floor((c-1)!) for c =
// COLLISION_COUNT[p] after the success-driven decrement, with the same
// c=0/frozen-above-4 rules.
func swOnSuccess(c int, cur uint32) uint32 {
	if c <= 0 {
		return 1
	}
	if c > 4 {
		return cur
	}
	return uint32(1)<<uint(c) - swNobaFactorial[c-1]
}

// swNobaPolicy is the SW-NOBA adapter (spec.md §4.7): NOBA's busy-CCA
// growth rule plus a shared per-priority COLLISION_COUNT/SUCCESS_COUNT pair
// driving sw(p) from transmission results, and a per-device MKWindow
// surfacing MK_VIOLATION.
type swNobaPolicy struct {
	ctx      *Context
	priority int
	draw     backoff.Drawer
	mk       *mkwindow.Window
	m        int
	cb       macif.Callbacks
}

func newSwNobaPolicy(ctx *Context, priority int, draw backoff.Drawer, cb macif.Callbacks) *swNobaPolicy {
	return &swNobaPolicy{
		ctx:      ctx,
		priority: priority,
		draw:     draw,
		mk:       mkwindow.New(TPK),
		m:        TPM[priority],
		cb:       cb,
	}
}

func (p *swNobaPolicy) Draw() uint32 {
	return p.draw.Draw(p.ctx.CW.Lo(p.priority), p.ctx.CW.Hi(p.priority))
}

func (p *swNobaPolicy) OnBusyCCA(collisions int) {
	if p.cb != nil {
		p.cb.CollisionTrace(p.priority, collisions)
	}
	if collisions%2 == 0 {
		p.ctx.CW.SetSW(p.priority, p.ctx.CW.SW(p.priority)+2)
	}
}

func (p *swNobaPolicy) OnFailure() {
	c := p.ctx.collisions(p.priority) + 1
	p.ctx.setCollisions(p.priority, c)
	p.ctx.setSuccesses(p.priority, 0)
	p.ctx.CW.SetSW(p.priority, swOnFailure(c, p.ctx.CW.SW(p.priority)))
	p.mk.Push(false)
	if !p.mk.Satisfied(p.m) && p.cb != nil {
		p.cb.MKViolationTrace(p.priority)
	}
}

func (p *swNobaPolicy) OnSuccess() {
	s := p.ctx.successes(p.priority) + 1
	if s >= 3 {
		s = 1
		c := p.ctx.collisions(p.priority) - 1
		if c < 0 {
			c = 0
		}
		p.ctx.setCollisions(p.priority, c)
		p.ctx.CW.SetSW(p.priority, swOnSuccess(c, p.ctx.CW.SW(p.priority)))
	}
	p.ctx.setSuccesses(p.priority, s)
	p.mk.Push(true)
}

func (p *swNobaPolicy) Reset() {}

// --- GNU-NOBA ---

// gnuNobaPolicy is the GNU-NOBA adapter (spec.md §4.7): SW-NOBA's result
// handling plus a Beta-mapped draw whose alpha shape parameter is tuned by
// the MKWindow's Distance-Based Priority score.
type gnuNobaPolicy struct {
	ctx      *Context
	priority int
	draw     *backoff.BetaMD
	alpha    *backoff.AlphaFilter
	mk       *mkwindow.Window
	m        int
	cb       macif.Callbacks
}

func newGnuNobaPolicy(ctx *Context, priority int, draw *backoff.BetaMD, cb macif.Callbacks) *gnuNobaPolicy {
	return &gnuNobaPolicy{
		ctx:      ctx,
		priority: priority,
		draw:     draw,
		alpha:    backoff.NewAlphaFilter(),
		mk:       mkwindow.New(TPK),
		m:        TPM[priority],
		cb:       cb,
	}
}

func (p *gnuNobaPolicy) Draw() uint32 {
	p.draw.Alpha = p.alpha.Alpha
	return p.draw.Draw(p.ctx.CW.Lo(p.priority), p.ctx.CW.Hi(p.priority))
}

func (p *gnuNobaPolicy) OnBusyCCA(collisions int) {
	if p.cb != nil {
		p.cb.CollisionTrace(p.priority, collisions)
	}
	if collisions%2 == 0 {
		p.ctx.CW.SetSW(p.priority, p.ctx.CW.SW(p.priority)+2)
	}
}

func (p *gnuNobaPolicy) OnFailure() {
	c := p.ctx.collisions(p.priority) + 1
	p.ctx.setCollisions(p.priority, c)
	p.ctx.setSuccesses(p.priority, 0)
	p.ctx.CW.SetSW(p.priority, swOnFailure(c, p.ctx.CW.SW(p.priority)))
	p.mk.Push(false)
	p.updateAlpha()
}

func (p *gnuNobaPolicy) OnSuccess() {
	s := p.ctx.successes(p.priority) + 1
	if s >= 3 {
		s = 1
		c := p.ctx.collisions(p.priority) - 1
		if c < 0 {
			c = 0
		}
		p.ctx.setCollisions(p.priority, c)
		p.ctx.CW.SetSW(p.priority, swOnSuccess(c, p.ctx.CW.SW(p.priority)))
	}
	p.ctx.setSuccesses(p.priority, s)
	p.mk.Push(true)
	p.updateAlpha()
}

// updateAlpha applies the soft low-pass filter over the window's DBP
// score, or, when the window has fallen below m successes, signals
// MK_VIOLATION, resets alpha to its floor and refills the window with
// successes (spec.md §4.7 GNU-NOBA refinements).
func (p *gnuNobaPolicy) updateAlpha() {
	if !p.mk.Satisfied(p.m) {
		if p.cb != nil {
			p.cb.MKViolationTrace(p.priority)
		}
		p.alpha.Reset()
		p.mk.Fill(true)
		return
	}
	p.alpha.Update(p.mk.DBP(p.m))
}

func (p *gnuNobaPolicy) Reset() {}
