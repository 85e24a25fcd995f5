package nxrand

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGeneratorProducesDistinctDraws(t *testing.T) {
	g, err := New()
	assert.NoError(t, err)

	a := g.Uint64()
	b := g.Uint64()
	assert.NotEqual(t, a, b)
}

func TestTwoGeneratorsAreIndependentlySeeded(t *testing.T) {
	g1, err := New()
	assert.NoError(t, err)
	g2, err := New()
	assert.NoError(t, err)

	assert.NotEqual(t, g1.Uint64(), g2.Uint64())
}

func TestBytesFillsEntireSlice(t *testing.T) {
	g, err := New()
	assert.NoError(t, err)

	buf := make([]byte, 256)
	g.Bytes(buf)

	var allZero = true
	for _, b := range buf {
		if b != 0 {
			allZero = false
			break
		}
	}
	assert.False(t, allZero, "expected pseudo-random bytes, got all zeroes")
}

func TestPackageLevelUint64Works(t *testing.T) {
	v, err := Uint64()
	assert.NoError(t, err)
	_ = v
}
