// SPDX-License-Identifier: GPL-3.0

package main

import (
	"github.com/csma-noba/wpancsma/internal/engine"
	"github.com/csma-noba/wpancsma/macif"
	"github.com/csma-noba/wpancsma/slotclock"
)

// Channel is the synthetic shared medium every device's CCA consults: busy
// whenever any device is holding it for a transmission, idle otherwise.
// This is the cmd/wpansim driver's own PHY model, external to the core.
type Channel struct {
	sched     *engine.Scheduler
	rate      slotclock.SymbolRate
	busyUntil engine.Clock
}

// NewChannel returns a Channel at the given symbol rate, initially idle.
func NewChannel(sched *engine.Scheduler, rate slotclock.SymbolRate) *Channel {
	return &Channel{sched: sched, rate: rate}
}

// Occupy marks the channel busy from now through duration, extending any
// overlapping occupancy rather than shortening it.
func (c *Channel) Occupy(duration engine.Clock) {
	end := c.sched.Now() + duration
	if end > c.busyUntil {
		c.busyUntil = end
	}
}

func (c *Channel) status() macif.CCAStatus {
	if c.sched.Now() < c.busyUntil {
		return macif.CCABusy
	}
	return macif.CCAIdle
}

// devicePHY is one device's view of the shared Channel: it issues its own
// CCA requests against the channel's current occupancy and delivers the
// confirm on the next scheduler tick, matching how an asynchronous radio
// PHY would answer.
type devicePHY struct {
	ch      *Channel
	sm      ccaConfirmer
	pending *engine.Token
}

// ccaConfirmer is satisfied by *csma.StateMachine; kept narrow so devicePHY
// doesn't need to import csma before the state machine exists.
type ccaConfirmer interface {
	PlmeCCAConfirm(status macif.CCAStatus)
}

func (p *devicePHY) RequestCCA() {
	status := p.ch.status()
	p.pending = p.ch.sched.Schedule(0, func(engine.Clock) { p.sm.PlmeCCAConfirm(status) })
}

func (p *devicePHY) CancelCCA() {
	p.pending.Cancel()
}

func (p *devicePHY) SymbolRate() slotclock.SymbolRate { return p.ch.rate }
