package fec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// bitsOf converts a hard-decision float vector into plain 0/1 ints.
func bitsOf(fs []float32) []int {
	out := make([]int, len(fs))
	for i, f := range fs {
		out[i] = int(floatBit(f))
	}
	return out
}

// fvec builds a sign-bit float vector from 0/1 ints.
func fvec(bits ...int) []float32 {
	out := make([]float32, len(bits))
	for i, b := range bits {
		out[i] = bitFloat(uint8(b))
	}
	return out
}

func TestFFunction(t *testing.T) {
	tests := []struct {
		name string
		in   []float32
		want []float32
	}{
		{"both positive", []float32{2, 3}, []float32{2}},
		{"mixed signs", []float32{2, -3}, []float32{-2}},
		{"both negative", []float32{-0.5, -4}, []float32{0.5}},
		{"right smaller", []float32{5, 1, -2, 3}, []float32{-2, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			size := len(tt.in) / 2
			out := make([]float32, size)
			fFunction(tt.in, out, size)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestGFunction(t *testing.T) {
	llr := []float32{2, -1, 3, 4}
	out := make([]float32, 2)
	gFunction(llr, out, fvec(0, 1), 2)
	assert.Equal(t, []float32{5, 5}, out)

	gFunction0R(llr, out, 2)
	assert.Equal(t, []float32{5, 3}, out)
}

func TestCombine(t *testing.T) {
	b := fvec(1, 0, 1, 1)
	combine(b, 2)
	assert.Equal(t, []int{0, 1, 1, 1}, bitsOf(b))

	b = fvec(1, 0, 1, 1)
	combine0R(b, 2)
	assert.Equal(t, []int{1, 1, 1, 1}, bitsOf(b))
}

func TestHardBitEncoding(t *testing.T) {
	assert.Equal(t, uint8(0), floatBit(bitFloat(0)))
	assert.Equal(t, uint8(1), floatBit(bitFloat(1)))
	assert.Equal(t, float32(0), abs32(bitFloat(1)))
	b := bitFloat(0)
	flipBit(&b)
	assert.Equal(t, uint8(1), floatBit(b))
}

func TestPackUnpackBits(t *testing.T) {
	src := []byte{0xA5, 0x01}
	bits := make([]float32, 16)
	UnpackBits(bits, src)
	dst := make([]byte, 2)
	PackBits(dst, bits)
	assert.Equal(t, src, dst)
}

func TestBitReverse(t *testing.T) {
	assert.Equal(t, uint32(1), bitReverse(4, 3))
	assert.Equal(t, uint32(6), bitReverse(3, 3))
	assert.Equal(t, uint32(0b1101), bitReverse(0b1011, 4))
}

func TestAlignedFloats(t *testing.T) {
	for _, n := range []int{1, 7, 8, 100} {
		s := alignedFloats(n)
		assert.Len(t, s, n)
	}
}
