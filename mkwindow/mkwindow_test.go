// SPDX-License-Identifier: GPL-3.0

package mkwindow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_StartsFullySatisfied(t *testing.T) {
	w := New(10)
	require.Equal(t, 10, w.Len())
	assert.Equal(t, 10, w.Successes())
	assert.True(t, w.Satisfied(6))
}

func TestPush_KeepsFixedLength(t *testing.T) {
	w := New(5)
	for i := 0; i < 20; i++ {
		w.Push(i%2 == 0)
		assert.Equal(t, 5, len(w.Outcomes()))
	}
}

// TestMKViolation is spec.md §8 scenario 4: priority 0, m=6, k=10, inject
// the outcome sequence "TFTFTFFFFF" (7 failures). After the sequence, the
// window should hold 3 successes and no longer satisfy m=6.
func TestMKViolation(t *testing.T) {
	w := New(10)
	seq := "TFTFTFFFFF"
	for _, c := range seq {
		w.Push(c == 'T')
	}
	assert.Equal(t, 3, w.Successes())
	assert.False(t, w.Satisfied(6))
}

func TestDBP_FewerThanMSuccessesIsKPlus1(t *testing.T) {
	w := New(10)
	w.Fill(false)
	w.Push(true)
	assert.Equal(t, 11, w.DBP(6))
}

func TestDBP_LocatesMthMostRecentSuccess(t *testing.T) {
	w := New(10)
	w.Fill(false)
	// push T, F, T so the 2nd most recent success (counting from the tail,
	// the tail itself at position 1) sits at position l = 3.
	w.Push(true)  // position 3
	w.Push(false) // position 2
	w.Push(true)  // position 1 (tail)
	dbp := w.DBP(2)
	// DBP = k - l + 1 = 10 - 3 + 1.
	assert.Equal(t, 8, dbp)
	assert.LessOrEqual(t, dbp, w.Len()+1)
}

func TestFill_RefillsWithSuccesses(t *testing.T) {
	w := New(10)
	w.Fill(false)
	require.Equal(t, 0, w.Successes())
	w.Fill(true)
	assert.Equal(t, 10, w.Successes())
}
