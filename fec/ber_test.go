package fec

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Observe-l/polar-ssc/internal/sim"
)

// Encode, add Gaussian noise, decode: the bit error rate must not grow
// as the operating SNR improves.
func TestBERMonotoneAcrossSNR(t *testing.T) {
	const (
		n      = 64
		k      = 32
		frames = 500
	)
	pc, err := New(Config{N: n, K: k, ListSize: 1, DesignSNR: 0})
	require.NoError(t, err)

	snrs := []float64{0, 2, 4}
	bers := make([]float64, len(snrs))

	data := make([]float32, k)
	codeword := make([]float32, n)
	llr := make([]float32, n)
	decoded := make([]float32, k)

	for si, snr := range snrs {
		rng := rand.New(rand.NewSource(int64(1000 + si)))
		ch := sim.NewAWGN(snr, float64(k)/float64(n), uint64(4000+si))
		errs := 0
		for f := 0; f < frames; f++ {
			for i := 0; i < k; i++ {
				data[i] = bitFloat(uint8(rng.Intn(2)))
			}
			pc.Encode(codeword, data)
			ch.Transmit(codeword, llr)
			pc.Decode(decoded, llr)
			for i := 0; i < k; i++ {
				if floatBit(decoded[i]) != floatBit(data[i]) {
					errs++
				}
			}
		}
		bers[si] = float64(errs) / float64(frames*k)
	}

	for i := 1; i < len(bers); i++ {
		assert.LessOrEqual(t, bers[i], bers[i-1],
			"ber %v at %v dB worse than %v at %v dB", bers[i], snrs[i], bers[i-1], snrs[i-1])
	}
	// at the high end the decoder should be nearly clean
	assert.Less(t, bers[len(bers)-1], 0.02)
}

// The list decoder may only improve on the single path.
func TestListImprovesOrMatchesFER(t *testing.T) {
	const (
		n      = 64
		k      = 32
		frames = 200
		snr    = 1.5
	)
	single, err := New(Config{N: n, K: k, ListSize: 1, UseCRC: true})
	require.NoError(t, err)
	list, err := New(Config{N: n, K: k, ListSize: 8, UseCRC: true})
	require.NoError(t, err)

	payload := k - 8
	data := make([]float32, k)
	codeword := make([]float32, n)
	llr := make([]float32, n)
	decoded := make([]float32, k)

	count := func(pc *PolarCode, seed int64) int {
		rng := rand.New(rand.NewSource(seed))
		ch := sim.NewAWGN(snr, float64(k)/float64(n), uint64(seed))
		frameErrs := 0
		for f := 0; f < frames; f++ {
			for i := 0; i < payload; i++ {
				data[i] = bitFloat(uint8(rng.Intn(2)))
			}
			pc.Encode(codeword, data)
			ch.Transmit(codeword, llr)
			pc.Decode(decoded, llr)
			for i := 0; i < payload; i++ {
				if floatBit(decoded[i]) != floatBit(data[i]) {
					frameErrs++
					break
				}
			}
		}
		return frameErrs
	}

	// identical seeds, so both decoders face the same noise
	singleErrs := count(single, 77)
	listErrs := count(list, 77)
	assert.LessOrEqual(t, listErrs, singleErrs)

	t.Logf("frame errors: single=%d list=%d", singleErrs, listErrs)
}
