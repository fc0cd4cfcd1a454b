// SPDX-License-Identifier: GPL-3.0

package backoff

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUniform_StaysInRange(t *testing.T) {
	u := NewUniform(1)
	for i := 0; i < 1000; i++ {
		v := u.Draw(4, 16)
		assert.GreaterOrEqual(t, v, uint32(4))
		assert.LessOrEqual(t, v, uint32(16))
	}
}

func TestUniform_DegenerateRange(t *testing.T) {
	u := NewUniform(1)
	assert.Equal(t, uint32(5), u.Draw(5, 5))
}

func TestBetaMD_StaysInRange(t *testing.T) {
	b := NewBetaMD(7)
	for i := 0; i < 1000; i++ {
		v := b.Draw(1, 64)
		assert.GreaterOrEqual(t, v, uint32(1))
		assert.LessOrEqual(t, v, uint32(64))
	}
}

func TestAlphaFilter_ClampsAndRisesGradually(t *testing.T) {
	f := NewAlphaFilter()
	assert.Equal(t, AlphaClampLo, f.Alpha)
	// dbp=1 -> decay=0 -> target=1.65, alpha should step up by 0.02 at a time.
	f.Update(1)
	assert.InDelta(t, AlphaClampLo+alphaStep, f.Alpha, 1e-9)
}

func TestAlphaFilter_FallsImmediately(t *testing.T) {
	f := NewAlphaFilter()
	f.Alpha = 1.5
	// large dbp drives target well below 1.5, should snap down, not step.
	f.Update(5)
	assert.Less(t, f.Alpha, 1.5)
}

func TestAlphaFilter_Reset(t *testing.T) {
	f := NewAlphaFilter()
	f.Alpha = 1.6
	f.Reset()
	assert.Equal(t, AlphaClampLo, f.Alpha)
}

func TestAlphaFilter_ClampHi(t *testing.T) {
	f := NewAlphaFilter()
	f.Alpha = AlphaClampHi
	f.Update(1) // target 1.65 < 1.7, should settle, never exceed clamp
	assert.LessOrEqual(t, f.Alpha, AlphaClampHi)
}
