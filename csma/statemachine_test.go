// SPDX-License-Identifier: GPL-3.0

package csma

import (
	"testing"

	"github.com/csma-noba/wpancsma/internal/engine"
	"github.com/csma-noba/wpancsma/macif"
	"github.com/csma-noba/wpancsma/slotclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRate = slotclock.SymbolRate(62500)

// fakePHY answers every RequestCCA from a queued status list (defaulting
// to IDLE once exhausted), delivering the confirm on the next scheduler
// tick so ordering goes through the same single-threaded event queue the
// real PHY would use.
type fakePHY struct {
	sched    *engine.Scheduler
	sm       *StateMachine
	statuses []macif.CCAStatus
	idx      int
	reqCount int
	canceled int
	pending  *engine.Token
}

func (p *fakePHY) RequestCCA() {
	p.reqCount++
	status := macif.CCAIdle
	if p.idx < len(p.statuses) {
		status = p.statuses[p.idx]
		p.idx++
	}
	p.pending = p.sched.Schedule(0, func(engine.Clock) { p.sm.PlmeCCAConfirm(status) })
}

// CancelCCA mirrors a real PHY aborting its in-flight CCA: the confirm
// that would otherwise arrive is suppressed.
func (p *fakePHY) CancelCCA() {
	p.canceled++
	p.pending.Cancel()
}
func (p *fakePHY) SymbolRate() slotclock.SymbolRate { return testRate }

// fakeMAC is a fixed set of MAC facts, ample CAP time by default.
type fakeMAC struct {
	coordDest              bool
	ackReq                 bool
	txSymbols, ackSymbols  uint32
	ifsSymbols             uint32
	beaconTx, beaconRx     engine.Clock
	rxBeaconSymbols        uint32
	sfDuration, inSfDur    uint32
	finalCap, inFinalCap   uint8
}

func newFakeMAC() *fakeMAC {
	return &fakeMAC{
		txSymbols:  10,
		ackSymbols: 10,
		ifsSymbols: 2,
		sfDuration: 960 * 16, // generous CAP
		inSfDur:    960 * 16,
		finalCap:   15,
		inFinalCap: 15,
	}
}

func (m *fakeMAC) IsCoordDestination() bool             { return m.coordDest }
func (m *fakeMAC) IsTxAckRequired() bool                { return m.ackReq }
func (m *fakeMAC) TxPacketSymbols() uint32              { return m.txSymbols }
func (m *fakeMAC) AckWaitSymbols() uint32                { return m.ackSymbols }
func (m *fakeMAC) IfsSymbols() uint32                   { return m.ifsSymbols }
func (m *fakeMAC) BeaconTxTime() slotclock.Clock        { return m.beaconTx }
func (m *fakeMAC) BeaconRxTime() slotclock.Clock        { return m.beaconRx }
func (m *fakeMAC) RxBeaconSymbols() uint32              { return m.rxBeaconSymbols }
func (m *fakeMAC) SuperframeDuration() uint32           { return m.sfDuration }
func (m *fakeMAC) IncomingSuperframeDuration() uint32   { return m.inSfDur }
func (m *fakeMAC) FinalCapSlot() uint8                  { return m.finalCap }
func (m *fakeMAC) IncomingFinalCapSlot() uint8          { return m.inFinalCap }

type fakeCallbacks struct {
	states       []macif.MACState
	collisions   []int
	mkViolations []int
	transCosts   []uint32
}

func (c *fakeCallbacks) MACState(s macif.MACState)          { c.states = append(c.states, s) }
func (c *fakeCallbacks) CollisionTrace(_ int, count int)    { c.collisions = append(c.collisions, count) }
func (c *fakeCallbacks) MKViolationTrace(p int)             { c.mkViolations = append(c.mkViolations, p) }
func (c *fakeCallbacks) TransCost(symbols uint32)           { c.transCosts = append(c.transCosts, symbols) }

// fixedDrawPolicy is a deterministic test-only policy: always draws n,
// recording every busy/success/failure call.
type fixedDrawPolicy struct {
	n        uint32
	busy     int
	success  int
	failure  int
	resetCnt int
}

func (p *fixedDrawPolicy) Draw() uint32       { return p.n }
func (p *fixedDrawPolicy) OnBusyCCA(int)      { p.busy++ }
func (p *fixedDrawPolicy) OnSuccess()         { p.success++ }
func (p *fixedDrawPolicy) OnFailure()         { p.failure++ }
func (p *fixedDrawPolicy) Reset()             { p.resetCnt++ }

func newTestSM(sched *engine.Scheduler, mac *fakeMAC, cb *fakeCallbacks) (*StateMachine, *fakePHY) {
	phy := &fakePHY{sched: sched}
	sm := New(sched, phy, mac, cb, DefaultConfig(3, Standard), nil)
	phy.sm = sm
	return sm, phy
}

// TestRoundTrip_AllIdleFiresChannelIdleOnce is spec.md §8's round-trip law:
// Start() -> drive all CCA confirms to IDLE -> mac_state_callback fires
// exactly once with CHANNEL_IDLE, and the CCA-request count equals the
// drawn backoff count.
func TestRoundTrip_AllIdleFiresChannelIdleOnce(t *testing.T) {
	sched := engine.New()
	mac := newFakeMAC()
	cb := &fakeCallbacks{}
	sm, phy := newTestSM(sched, mac, cb)
	fp := &fixedDrawPolicy{n: 4}
	sm.pol = fp

	sm.Start()
	sched.Run()

	assert.Equal(t, []macif.MACState{macif.ChannelIdle}, cb.states)
	assert.Equal(t, 4, phy.reqCount)
}

// TestZeroDraw_CompletesWithoutCCA covers BEB's [0, 2^BE-1] draw range,
// which includes zero with probability 1/8 at BE=3: a drawn backoff of
// zero must reach CHANNEL_IDLE directly, issuing no CCA request at all,
// rather than underflowing the unsigned backoff counter in
// PlmeCCAConfirm's decrement and stalling forever.
func TestZeroDraw_CompletesWithoutCCA(t *testing.T) {
	sched := engine.New()
	mac := newFakeMAC()
	cb := &fakeCallbacks{}
	sm, phy := newTestSM(sched, mac, cb)
	fp := &fixedDrawPolicy{n: 0}
	sm.pol = fp

	sm.Start()
	sched.Run()

	assert.Equal(t, []macif.MACState{macif.ChannelIdle}, cb.states)
	assert.Equal(t, 0, phy.reqCount)
}

// TestDeferBoundary is spec.md §8 scenario 2: time_left_in_cap reduces to
// 15 symbols while tx_packet_symbols is 120; assert exactly one
// MAC_CSMA_DEFERRED and no CCA request issued.
func TestDeferBoundary(t *testing.T) {
	sched := engine.New()
	mac := newFakeMAC()
	mac.txSymbols = 120
	mac.ackSymbols = 0
	mac.ifsSymbols = 0
	// Anchor (beaconRx) at 0. The first slot boundary after Start lands one
	// full aUnitBackoffPeriod later (20 symbols). Size the incoming
	// superframe/CAP so capEnd sits at 35 symbols: time_left_in_cap at that
	// boundary is then exactly 15 symbols, per spec.md §8 scenario 2, while
	// the queued transaction needs 120+ symbols, so CHECK_PROCEED must defer.
	mac.inFinalCap = 6
	mac.inSfDur = 80 // (6+1)*80/16 = 35 symbols of CAP

	cb := &fakeCallbacks{}
	sm, phy := newTestSM(sched, mac, cb)
	fp := &fixedDrawPolicy{n: 1}
	sm.pol = fp

	sm.Start()
	sched.Run()

	assert.Equal(t, []macif.MACState{macif.CSMADeferred}, cb.states)
	assert.Equal(t, 0, phy.reqCount)
}

// TestCancelIdempotence is spec.md §8 scenario 6: Start(); Cancel();
// Cancel(). No panics, no scheduled events remain, mac_state_callback
// never fires.
func TestCancelIdempotence(t *testing.T) {
	sched := engine.New()
	mac := newFakeMAC()
	cb := &fakeCallbacks{}
	sm, _ := newTestSM(sched, mac, cb)

	sm.Start()
	require.NotPanics(t, func() {
		sm.Cancel()
		sm.Cancel()
	})
	// Canceled events stay in the queue until popped (engine.Scheduler.Pending
	// counts them), so drain the queue and confirm the cancellation actually
	// suppressed every one: no callback ever fires.
	sched.Run()
	assert.Empty(t, cb.states)
	assert.False(t, sm.Running())
}

// TestCancel_ClearsAllScheduledEvents is spec.md §8's invariant: after any
// Cancel, no scheduled event of that device remains in the queue, even
// mid-countdown with a CCA outstanding.
func TestCancel_ClearsAllScheduledEvents(t *testing.T) {
	sched := engine.New()
	mac := newFakeMAC()
	cb := &fakeCallbacks{}
	sm, phy := newTestSM(sched, mac, cb)
	fp := &fixedDrawPolicy{n: 5}
	sm.pol = fp

	sm.Start()
	sched.Step() // align
	sched.Step() // countdown -> requestCCA
	require.Equal(t, 1, phy.reqCount)

	sm.Cancel()
	assert.Equal(t, 1, phy.canceled)
	// Drain whatever canceled events remain physically queued; none should
	// fire a further CCA request or callback.
	reqBefore := phy.reqCount
	sched.Run()
	assert.Equal(t, reqBefore, phy.reqCount)
	assert.Empty(t, cb.states)
}

// TestSpuriousCCAConfirmDiscarded is spec.md §4.9: a confirm arriving
// while cca_pending is false is silently discarded.
func TestSpuriousCCAConfirmDiscarded(t *testing.T) {
	sched := engine.New()
	mac := newFakeMAC()
	cb := &fakeCallbacks{}
	sm, _ := newTestSM(sched, mac, cb)

	require.NotPanics(t, func() {
		sm.PlmeCCAConfirm(macif.CCAIdle)
	})
	assert.Empty(t, cb.states)
}

// TestBusyCCA_FreezesAndRedraws asserts a busy confirm triggers exactly
// one OnBusyCCA call and a redraw, without completing the attempt.
func TestBusyCCA_FreezesAndRedraws(t *testing.T) {
	sched := engine.New()
	mac := newFakeMAC()
	cb := &fakeCallbacks{}
	phy := &fakePHY{statuses: []macif.CCAStatus{macif.CCABusy}}
	sm := New(sched, phy, mac, cb, DefaultConfig(3, Standard), nil)
	phy.sched = sched
	phy.sm = sm
	fp := &fixedDrawPolicy{n: 1}
	sm.pol = fp

	sm.Start()
	sched.Step() // align
	sched.Step() // countdown -> requestCCA (busy)
	sched.Step() // confirm delivered -> freeze+redraw -> checkProceed -> armCountdown
	assert.Equal(t, 1, fp.busy)
	assert.Equal(t, 1, fp.resetCnt) // Reset called once at Start; a freeze-redraw does not call Reset again
	assert.Empty(t, cb.states)
}
