// SPDX-License-Identifier: GPL-3.0

// Package backoff samples an integer backoff count from a contention-window
// range, either by a plain uniform draw or by a Beta-mapped draw whose
// shape parameter alpha GNU-NOBA tunes from a Distance-Based Priority score
// (spec.md §4.2). The Beta draw uses gonum's distuv package directly
// instead of hand-rolling two Gamma(alpha,1)/Gamma(beta,1) samples and
// dividing X/(X+Y) — the numerically-stable-but-allocating technique
// spec.md §9 flags as a caching concern.
package backoff

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// Drawer samples an integer in [lo, hi] inclusive.
type Drawer interface {
	Draw(lo, hi uint32) uint32
}

// Uniform draws uniformly on [lo, hi] using a per-device random source, so
// concurrent devices in a host that parallelizes draws (against spec.md
// §5's single-threaded guarantee) never share mutable rand state.
type Uniform struct {
	rng *rand.Rand
}

// NewUniform returns a Uniform drawer seeded deterministically from seed,
// so scenario tests are reproducible.
func NewUniform(seed uint64) *Uniform {
	return &Uniform{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Draw implements Drawer.
func (u *Uniform) Draw(lo, hi uint32) uint32 {
	if hi <= lo {
		return lo
	}
	return lo + uint32(u.rng.IntN(int(hi-lo+1)))
}

// BetaMD is GNU-NOBA's Beta-mapped draw: a Beta(alpha, beta) variate z
// scaled onto [lo, hi] as lo + floor((hi-lo)*z). Beta is fixed at 1.1 per
// spec.md §4.2; Alpha is mutated externally by an AlphaFilter between
// draws.
type BetaMD struct {
	rng   *rand.Rand
	Alpha float64
	Beta  float64
}

// NewBetaMD returns a BetaMD drawer with the initial alpha from spec.md
// §4.7 (the filter's floor, 0.8) and beta fixed at 1.1.
func NewBetaMD(seed uint64) *BetaMD {
	return &BetaMD{
		rng:   rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		Alpha: 0.8,
		Beta:  1.1,
	}
}

// Draw implements Drawer.
func (b *BetaMD) Draw(lo, hi uint32) uint32 {
	if hi <= lo {
		return lo
	}
	dist := distuv.Beta{Alpha: b.Alpha, Beta: b.Beta, Src: b.rng}
	z := dist.Rand()
	return lo + uint32(float64(hi-lo)*z)
}

// AlphaClampLo and AlphaClampHi bound GNU-NOBA's alpha shape parameter
// (spec.md §4.7).
const (
	AlphaClampLo = 0.8
	AlphaClampHi = 1.7
	alphaStep    = 0.02
)

// AlphaFilter is GNU-NOBA's soft low-pass filter over the Distance-Based
// Priority score, moving alpha toward a DBP-derived target one step at a
// time when rising, and snapping to it immediately when falling.
type AlphaFilter struct {
	Alpha float64
}

// NewAlphaFilter returns a filter starting at the floor alpha.
func NewAlphaFilter() *AlphaFilter {
	return &AlphaFilter{Alpha: AlphaClampLo}
}

// Update moves Alpha toward the target implied by dbp:
//
//	decay = dbp^2 - dbp
//	target = 1.65 - 0.12*decay
//	if Alpha < target: Alpha = min(Alpha + 0.02, target)
//	else: Alpha = target
//
// clamped to [0.8, 1.7].
func (f *AlphaFilter) Update(dbp int) {
	decay := float64(dbp*dbp - dbp)
	target := 1.65 - 0.12*decay
	if f.Alpha < target {
		f.Alpha += alphaStep
		if f.Alpha > target {
			f.Alpha = target
		}
	} else {
		f.Alpha = target
	}
	f.clamp()
}

// Reset sets Alpha to the floor, used when an (m,k) violation fires.
func (f *AlphaFilter) Reset() {
	f.Alpha = AlphaClampLo
}

func (f *AlphaFilter) clamp() {
	if f.Alpha < AlphaClampLo {
		f.Alpha = AlphaClampLo
	}
	if f.Alpha > AlphaClampHi {
		f.Alpha = AlphaClampHi
	}
}
