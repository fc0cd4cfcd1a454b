// SPDX-License-Identifier: GPL-3.0

package main

import (
	"math/rand/v2"

	"github.com/csma-noba/wpancsma/coordinator"
	"github.com/csma-noba/wpancsma/csma"
	"github.com/csma-noba/wpancsma/cwtable"
	"github.com/csma-noba/wpancsma/internal/engine"
	"github.com/csma-noba/wpancsma/internal/telemetry"
	"github.com/csma-noba/wpancsma/slotclock"
)

// deviceRun bundles one device's wiring so the driver can report
// per-device stats after the run.
type deviceRun struct {
	priority int
	sm       *csma.StateMachine
	cb       *deviceCallbacks
	success  int
	failure  int
}

// Driver runs a Scenario to completion over a fresh engine.Scheduler,
// wiring each device's csma.StateMachine to a shared synthetic Channel
// (SPEC_FULL.md §10-§11 ambient/domain stack example). It is the example
// harness the core's own test suite never depends on.
type Driver struct {
	sched *engine.Scheduler
	ch    *Channel
	ctx   *csma.Context
	agg   *coordinator.Aggregator
	runs  []*deviceRun
}

// NewDriver builds the shared CwTable, Channel, and one StateMachine per
// device described in the scenario. For GNU-NOBA it also starts the
// coordinator's per-beacon success aggregation: GNU-NOBA is the only variant
// whose sw values also get a beacon-phase rebalance, on top of the
// adjustments its busy-CCA/result hooks make.
func NewDriver(sc *Scenario) (*Driver, error) {
	variant, err := ParseVariant(sc.Variant)
	if err != nil {
		return nil, err
	}
	sched := engine.New()
	ch := NewChannel(sched, sc.SymbolRateValue())
	cw := cwtable.New(cwtable.DefaultConfig())
	ctx := csma.NewContext(cw)

	d := &Driver{sched: sched, ch: ch, ctx: ctx}
	if variant == csma.GnuNoba {
		d.agg = coordinator.New()
		d.scheduleBeaconAggregation(cw, sc)
	}
	for i, dev := range sc.Devices {
		mac := &deviceMAC{
			priority:     dev.Priority,
			coordDest:    dev.CoordDest,
			ackRequired:  sc.AckRequired,
			txSymbols:    sc.TxPacketSymbols,
			ackSymbols:   sc.AckWaitSymbols,
			ifsSymbols:   sc.IfsSymbols,
			sfDuration:   sc.SuperframeDuration,
			finalCapSlot: sc.FinalCapSlot,
		}
		phy := &devicePHY{ch: ch}
		run := &deviceRun{priority: dev.Priority}
		cb := &deviceCallbacks{
			sched: sched,
			ch:    ch,
			mac:   mac,
			rng:   rand.New(rand.NewPCG(uint64(i)+1, uint64(dev.Priority)+7)),
			loss:  sc.LossRate,
		}
		cfg := csma.DefaultConfig(dev.Priority, variant)
		cfg.Seed = uint64(i) + 1
		sm := csma.New(sched, phy, mac, cb, cfg, ctx)
		phy.sm = sm
		priority := dev.Priority
		cb.onTx = func(success bool) {
			if success {
				run.success++
				sm.OnTxSuccess()
				if d.agg != nil {
					d.agg.RecordSuccess(priority)
				}
			} else {
				run.failure++
				sm.OnTxFailureNoAck()
			}
		}
		run.sm = sm
		run.cb = cb
		d.runs = append(d.runs, run)

		d.scheduleArrivals(sm, dev)
	}
	return d, nil
}

// scheduleBeaconAggregation arms a recurring callback at the scenario's
// superframe period, running the coordinator's beacon-phase rebalance
// (spec.md §4.8) against the shared CwTable.
func (d *Driver) scheduleBeaconAggregation(cw *cwtable.Table, sc *Scenario) {
	period := slotclock.SymbolsToClock(sc.SuperframeDuration, sc.SymbolRateValue())
	dt := cwtable.DefaultDeltaTable()
	var beacon func(engine.Clock)
	beacon = func(engine.Clock) {
		delta := d.agg.BeaconStart(cw, dt)
		telemetry.Logf(-1, "beacon_rebalance delta=%v", delta)
		d.sched.Schedule(period, beacon)
	}
	d.sched.Schedule(period, beacon)
}

func (d *Driver) scheduleArrivals(sm *csma.StateMachine, dev DeviceSpec) {
	var arrive func(engine.Clock)
	arrive = func(engine.Clock) {
		if !sm.Running() {
			sm.Start()
		}
		d.sched.Schedule(engine.Clock(dev.ArrivalInterval), arrive)
	}
	d.sched.Schedule(engine.Clock(dev.ArrivalInterval), arrive)
}

// Run drains the scheduler up to the scenario's configured duration.
func (d *Driver) Run(duration engine.Clock) {
	d.sched.RunUntil(duration)
}

// Report logs a per-device summary line.
func (d *Driver) Report() {
	for _, r := range d.runs {
		telemetry.Logf(r.priority, "idles=%d defers=%d success=%d failure=%d",
			r.cb.idles, r.cb.defers, r.success, r.failure)
	}
}
