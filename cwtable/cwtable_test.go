// SPDX-License-Identifier: GPL-3.0

package cwtable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_InitialInvariants(t *testing.T) {
	tb := New(DefaultConfig())
	require.Equal(t, uint32(1), tb.Lo(Priorities-1))
	for p := 0; p < Priorities; p++ {
		assert.LessOrEqualf(t, tb.Lo(p), tb.Hi(p), "priority %d", p)
		assert.LessOrEqualf(t, tb.Hi(p), tb.WL(p), "priority %d", p)
		if p < Priorities-1 {
			assert.Lessf(t, tb.Hi(p+1), tb.Lo(p), "priority %d must not overlap %d", p+1, p)
		}
	}
}

func TestSetSW_GrowsAndClips(t *testing.T) {
	tb := New(DefaultConfig())
	tb.SetSW(3, 1000)
	assert.Equal(t, tb.WL(3), tb.Hi(3), "hi must clip to wl")
	assert.LessOrEqual(t, tb.Hi(4), tb.Lo(3)-1)
}

// TestNonOverlapAfterStress is spec.md §8 scenario 1: two devices at
// priorities {7,3}; force 8 busy CCAs on priority 3 (sw grows by 2 every
// second busy CCA, so 4 growth events of +2 each). Assert lo(3) > hi(4)
// and hi(7) = 1 still.
func TestNonOverlapAfterStress(t *testing.T) {
	tb := New(DefaultConfig())
	collisions := 0
	for i := 0; i < 8; i++ {
		collisions++
		if collisions%2 == 0 {
			tb.SetSW(3, tb.SW(3)+2)
		}
	}
	assert.Greater(t, tb.Lo(3), tb.Hi(4))
	assert.Equal(t, uint32(1), tb.Hi(7))
}

func TestApplyAggregated_ShrinksOnLargePositiveDelta(t *testing.T) {
	tb := New(DefaultConfig())
	tb.SetSW(3, 20)
	widthBefore := tb.Hi(3) - tb.Lo(3)
	var delta [Priorities]float64
	delta[3] = 15 // > 10 threshold -> sw = 1
	tb.ApplyAggregated(delta, DefaultDeltaTable())
	assert.Equal(t, uint32(1), tb.SW(3))
	// Every other priority's zero δ maps to the default sw of 20, which
	// widens the higher priorities and moves lo(3) up, so hi(3) itself rises;
	// the width of priority 3's range is what shrinks.
	assert.Less(t, tb.Hi(3)-tb.Lo(3), widthBefore)
}

func TestResetDefaultWidths_NoOpOnSW(t *testing.T) {
	tb := New(DefaultConfig())
	tb.SetSW(2, 5)
	before := tb.SW(2)
	tb.ResetDefaultWidths()
	assert.Equal(t, before, tb.SW(2))
}
