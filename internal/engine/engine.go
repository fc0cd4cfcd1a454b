// SPDX-License-Identifier: GPL-3.0

// Package engine implements the single-threaded, cooperative discrete-event
// scheduler the CSMA/CA core suspends on. Every delayed resumption the core
// arms (the align-to-slot wait and each backoff-period tick ahead of a CCA
// request) is a Token returned from Scheduler.Schedule; Cancel is idempotent and safe
// to call on an already-fired token.
package engine

import "sort"

// Clock represents virtual simulation time, in nanosecond units matching
// time.Duration so existing duration arithmetic and constants apply directly.
type Clock int64

// event is a single armed callback, ordered by (at, seq) so ties resolve
// FIFO, matching the scheduler's ordering guarantee across simultaneous
// events.
type event struct {
	at       Clock
	seq      uint64
	fn       func(Clock)
	canceled bool
}

// Token is a handle to a scheduled event. Cancel may be called on a Token
// any number of times, including after the event has already fired.
type Token struct {
	ev *event
}

// Cancel marks the underlying event canceled. If the event already fired or
// was already canceled, Cancel is a no-op.
func (t *Token) Cancel() {
	if t == nil || t.ev == nil {
		return
	}
	t.ev.canceled = true
}

// Scheduler is a single-threaded, run-to-completion event queue keyed by
// (time, sequence number). It never runs two callbacks concurrently and
// never preempts a running callback, so components built on it (cwtable,
// csma) need no locks as long as every mutation happens from inside a
// scheduled callback.
type Scheduler struct {
	now     Clock
	events  []*event
	nextSeq uint64
}

// New returns a Scheduler starting at virtual time zero.
func New() *Scheduler {
	return &Scheduler{}
}

// Now returns the scheduler's current virtual time.
func (s *Scheduler) Now() Clock {
	return s.now
}

// Schedule arms fn to run after delay has elapsed from Now, and returns a
// Token that can cancel it before it fires. A negative or zero delay fires
// at the current time, in FIFO order with events already due.
func (s *Scheduler) Schedule(delay Clock, fn func(Clock)) *Token {
	if delay < 0 {
		delay = 0
	}
	ev := &event{at: s.now + delay, seq: s.nextSeq, fn: fn}
	s.nextSeq++
	i := sort.Search(len(s.events), func(i int) bool {
		return s.events[i].at > ev.at
	})
	s.events = append(s.events, nil)
	copy(s.events[i+1:], s.events[i:])
	s.events[i] = ev
	return &Token{ev: ev}
}

// Step pops and runs the earliest non-canceled event, advancing Now to its
// time. It reports false when the queue is empty.
func (s *Scheduler) Step() bool {
	for len(s.events) > 0 {
		ev := s.events[0]
		s.events = s.events[1:]
		if ev.canceled {
			continue
		}
		s.now = ev.at
		ev.fn(s.now)
		return true
	}
	return false
}

// Run drains the event queue, running every armed (non-canceled) event in
// time order until none remain.
func (s *Scheduler) Run() {
	for s.Step() {
	}
}

// RunUntil drains events with at <= deadline, leaving any later events
// armed. Useful for bounding an example harness run to a fixed duration.
func (s *Scheduler) RunUntil(deadline Clock) {
	for len(s.events) > 0 && s.events[0].at <= deadline {
		if s.events[0].canceled {
			s.events = s.events[1:]
			continue
		}
		s.Step()
	}
}

// Pending reports the number of armed (not yet canceled-and-popped) events
// still in the queue, including ones marked canceled but not yet popped.
func (s *Scheduler) Pending() int {
	return len(s.events)
}
