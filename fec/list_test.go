package fec

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListNoiselessRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(31))
	for _, listSize := range []int{2, 4, 8} {
		pc, err := New(Config{N: 64, K: 32, ListSize: listSize})
		require.NoError(t, err)

		data := randBits(rng, 32)
		codeword := make([]float32, 64)
		pc.Encode(codeword, data)

		decoded := make([]float32, 32)
		require.True(t, pc.Decode(decoded, noiselessLLRs(codeword)))
		assert.Equal(t, bitsOf(data), bitsOf(decoded), "L=%d", listSize)
	}
}

func TestListMatchesSinglePathNoiseless(t *testing.T) {
	rng := rand.New(rand.NewSource(32))
	single, err := New(Config{N: 32, K: 16, ListSize: 1})
	require.NoError(t, err)
	list, err := New(Config{N: 32, K: 16, ListSize: 4})
	require.NoError(t, err)

	for trial := 0; trial < 30; trial++ {
		data := randBits(rng, 16)
		codeword := make([]float32, 32)
		single.Encode(codeword, data)
		llr := noiselessLLRs(codeword)

		a := make([]float32, 16)
		b := make([]float32, 16)
		require.True(t, single.Decode(a, llr))
		require.True(t, list.Decode(b, llr))
		require.Equal(t, bitsOf(a), bitsOf(b), "trial %d", trial)
	}
}

func TestListErasureRecovery(t *testing.T) {
	pc, err := New(Config{N: 32, K: 16, ListSize: 4, UseCRC: true})
	require.NoError(t, err)

	payload := fvec(1, 0, 1, 1, 0, 0, 1, 0)
	data := make([]float32, 16)
	copy(data, payload)

	codeword := make([]float32, 32)
	pc.Encode(codeword, data)

	llr := noiselessLLRs(codeword)
	for _, pos := range []int{2, 13, 29} {
		llr[pos] = 0
	}

	decoded := make([]float32, 16)
	require.True(t, pc.Decode(decoded, llr))
	assert.Equal(t, bitsOf(payload), bitsOf(decoded[:8]))
}

func TestCRCRejectsCorruptBlock(t *testing.T) {
	// build a block whose checksum field is wrong by encoding the raw
	// 16 bits without CRC, then decoding with CRC enabled
	plain, err := New(Config{N: 32, K: 16, ListSize: 1})
	require.NoError(t, err)
	checked, err := New(Config{N: 32, K: 16, ListSize: 1, UseCRC: true})
	require.NoError(t, err)

	raw := make([]float32, 16)
	copy(raw, fvec(1, 0, 1, 1, 0, 0, 1, 0))
	checked.Encode(make([]float32, 32), raw) // fills raw[8:] with the true checksum
	flipBit(&raw[15])                        // corrupt one checksum bit

	codeword := make([]float32, 32)
	plain.Encode(codeword, raw)

	decoded := make([]float32, 16)
	assert.False(t, checked.Decode(decoded, noiselessLLRs(codeword)))
}

func TestCRCFastPath(t *testing.T) {
	rng := rand.New(rand.NewSource(33))
	pc, err := New(Config{N: 64, K: 32, ListSize: 8, UseCRC: true})
	require.NoError(t, err)

	data := make([]float32, 32)
	copy(data, randBits(rng, 24))
	codeword := make([]float32, 64)
	pc.Encode(codeword, data)

	decoded := make([]float32, 32)
	require.True(t, pc.Decode(decoded, noiselessLLRs(codeword)))
	st := pc.Stats()
	assert.Equal(t, 1, st.FastOK)
	assert.Zero(t, st.ListOK)
	assert.Zero(t, st.Failures)
}

func TestListSystematicRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(34))
	pc, err := New(Config{N: 64, K: 32, ListSize: 4, Systematic: true})
	require.NoError(t, err)

	data := randBits(rng, 32)
	codeword := make([]float32, 64)
	pc.Encode(codeword, data)

	decoded := make([]float32, 32)
	require.True(t, pc.Decode(decoded, noiselessLLRs(codeword)))
	assert.Equal(t, bitsOf(data), bitsOf(decoded))
}

func TestListRepeatedDecodesAreIndependent(t *testing.T) {
	// buffers are recycled between calls; a decode must not depend on
	// what the previous one left behind
	rng := rand.New(rand.NewSource(35))
	pc, err := New(Config{N: 32, K: 16, ListSize: 4})
	require.NoError(t, err)

	codeword := make([]float32, 32)
	decoded := make([]float32, 16)
	for trial := 0; trial < 20; trial++ {
		data := randBits(rng, 16)
		pc.Encode(codeword, data)
		require.True(t, pc.Decode(decoded, noiselessLLRs(codeword)))
		require.Equal(t, bitsOf(data), bitsOf(decoded), "trial %d", trial)
	}
}
