// SPDX-License-Identifier: GPL-3.0

package main

import (
	"math/rand/v2"

	"github.com/csma-noba/wpancsma/internal/engine"
	"github.com/csma-noba/wpancsma/internal/telemetry"
	"github.com/csma-noba/wpancsma/macif"
	"github.com/csma-noba/wpancsma/slotclock"
)

// deviceMAC is a fixed set of MAC facts for a single-coordinator scenario:
// every device shares one superframe, anchored at t=0, so incoming and
// outgoing references coincide. A driver modeling beacon relay or
// multi-hop topologies would give each device its own anchors instead.
type deviceMAC struct {
	priority     int
	coordDest    bool
	ackRequired  bool
	txSymbols    uint32
	ackSymbols   uint32
	ifsSymbols   uint32
	sfDuration   uint32
	finalCapSlot uint8
}

func (m *deviceMAC) IsCoordDestination() bool           { return m.coordDest }
func (m *deviceMAC) IsTxAckRequired() bool               { return m.ackRequired }
func (m *deviceMAC) TxPacketSymbols() uint32             { return m.txSymbols }
func (m *deviceMAC) AckWaitSymbols() uint32              { return m.ackSymbols }
func (m *deviceMAC) IfsSymbols() uint32                  { return m.ifsSymbols }
func (m *deviceMAC) BeaconTxTime() slotclock.Clock       { return 0 }
func (m *deviceMAC) BeaconRxTime() slotclock.Clock       { return 0 }
func (m *deviceMAC) RxBeaconSymbols() uint32             { return 0 }
func (m *deviceMAC) SuperframeDuration() uint32          { return m.sfDuration }
func (m *deviceMAC) IncomingSuperframeDuration() uint32  { return m.sfDuration }
func (m *deviceMAC) FinalCapSlot() uint8                 { return m.finalCapSlot }
func (m *deviceMAC) IncomingFinalCapSlot() uint8         { return m.finalCapSlot }

// txCostSymbols mirrors csma.StateMachine's own transaction-cost estimate,
// used here to occupy the channel for the right duration once CHANNEL_IDLE
// fires.
func (m *deviceMAC) txCostSymbols() uint32 {
	cost := m.txSymbols + m.ifsSymbols
	if m.ackRequired {
		cost += m.ackSymbols
	}
	return cost
}

// deviceCallbacks wires a device's StateMachine back into the driver: on
// CHANNEL_IDLE it occupies the shared channel and rolls a synthetic
// ACK outcome; on MAC_CSMA_DEFERRED it just counts the deferral. Trace
// signals go to the shared structured logger (SPEC_FULL.md §10).
type deviceCallbacks struct {
	sched   *engine.Scheduler
	ch      *Channel
	mac     *deviceMAC
	rng     *rand.Rand
	loss    float64
	onTx    func(success bool)
	idles   int
	defers  int
}

func (c *deviceCallbacks) MACState(state macif.MACState) {
	switch state {
	case macif.ChannelIdle:
		c.idles++
		cost := c.mac.txCostSymbols()
		dur := slotclock.SymbolsToClock(cost, c.ch.rate)
		c.ch.Occupy(dur)
		success := c.rng.Float64() >= c.loss
		c.sched.Schedule(dur, func(engine.Clock) {
			c.onTx(success)
		})
	case macif.CSMADeferred:
		c.defers++
	}
}

func (c *deviceCallbacks) CollisionTrace(priority, count int) {
	telemetry.Logf(priority, "collision_trace count=%d", count)
}

func (c *deviceCallbacks) MKViolationTrace(priority int) {
	telemetry.Logf(priority, "mk_violation_trace")
}

func (c *deviceCallbacks) TransCost(symbols uint32) {
	telemetry.Logf(c.mac.priority, "trans_cost_callback symbols=%d", symbols)
}
