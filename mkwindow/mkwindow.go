// SPDX-License-Identifier: GPL-3.0

// Package mkwindow implements the sliding (m,k)-firm delivery tracker kept
// per source device by the SW-NOBA and GNU-NOBA policies (spec.md §3
// MKWindow). The window is always exactly k outcomes long; it starts
// assumed fully satisfied (filled with successes) so a freshly constructed
// device does not immediately trip an (m,k) violation before it has sent
// anything, mirroring the coordinator's sentinel-filled success history
// (spec.md §4.8).
package mkwindow

// Window is a fixed-length FIFO of transmission outcomes, newest at the
// tail.
type Window struct {
	buf []bool
	k   int
}

// New returns a Window of length k, pre-filled with successes.
func New(k int) *Window {
	buf := make([]bool, k)
	for i := range buf {
		buf[i] = true
	}
	return &Window{buf: buf, k: k}
}

// Push records the newest outcome, dropping the oldest. len(w.Outcomes())
// is always k.
func (w *Window) Push(success bool) {
	copy(w.buf, w.buf[1:])
	w.buf[w.k-1] = success
}

// Fill overwrites every slot with the given outcome, used when GNU-NOBA
// recovers from an (m,k) violation by refilling the window with successes.
func (w *Window) Fill(success bool) {
	for i := range w.buf {
		w.buf[i] = success
	}
}

// Len returns k, the fixed window length.
func (w *Window) Len() int { return w.k }

// Successes returns the number of true outcomes currently in the window.
func (w *Window) Successes() int {
	n := 0
	for _, v := range w.buf {
		if v {
			n++
		}
	}
	return n
}

// Satisfied reports whether the window currently holds at least m
// successes.
func (w *Window) Satisfied(m int) bool {
	return w.Successes() >= m
}

// Outcomes returns a copy of the window contents, oldest first.
func (w *Window) Outcomes() []bool {
	out := make([]bool, len(w.buf))
	copy(out, w.buf)
	return out
}

// DBP returns the Distance-Based Priority score GNU-NOBA uses to tune its
// Beta-distribution shape parameter: the position l of the m-th most
// recent success counted from the tail of the window, reported as
// k - l + 1. If fewer than m successes exist in the window, DBP is k + 1.
func (w *Window) DBP(m int) int {
	count := 0
	for i := len(w.buf) - 1; i >= 0; i-- {
		if w.buf[i] {
			count++
			if count == m {
				l := len(w.buf) - i
				return w.k - l + 1
			}
		}
	}
	return w.k + 1
}
