package sim

import "math"

// lcg is a 64-bit linear congruential generator. A hand-rolled source
// keeps modulation noise reproducible across platforms and Go versions.
type lcg struct {
	state uint64
}

const (
	lcgMul = 6364136223846793005
	lcgInc = 1442695040888963407
)

func newLCG(seed uint64) *lcg {
	return &lcg{state: seed*lcgMul + lcgInc}
}

func (r *lcg) next() uint64 {
	r.state = r.state*lcgMul + lcgInc
	return r.state
}

// float64 returns a uniform sample in (0,1).
func (r *lcg) float64() float64 {
	return (float64(r.next()>>11) + 0.5) / (1 << 53)
}

// normPair returns two independent standard-normal samples (Box-Muller).
func (r *lcg) normPair() (float64, float64) {
	u := r.float64()
	v := r.float64()
	m := math.Sqrt(-2 * math.Log(u))
	s, c := math.Sincos(2 * math.Pi * v)
	return m * c, m * s
}

// AWGN modulates codeword bits with BPSK, adds white Gaussian noise at
// the configured Eb/N0 and emits channel LLRs. Bit 0 maps to +1, so a
// positive LLR favors bit 0.
type AWGN struct {
	sigma  float64
	scale  float64
	rng    *lcg
	spare  float64
	hasSpr bool
}

// NewAWGN builds a channel for the given Eb/N0 in dB and code rate K/N.
func NewAWGN(ebn0dB, rate float64, seed uint64) *AWGN {
	ebn0 := math.Pow(10, ebn0dB/10)
	sigma := math.Sqrt(1 / (2 * rate * ebn0))
	return &AWGN{
		sigma: sigma,
		scale: 2 / (sigma * sigma),
		rng:   newLCG(seed),
	}
}

func (c *AWGN) norm() float64 {
	if c.hasSpr {
		c.hasSpr = false
		return c.spare
	}
	a, b := c.rng.normPair()
	c.spare = b
	c.hasSpr = true
	return a
}

// Transmit sends the sign-bit-encoded codeword through the channel and
// writes one LLR per position.
func (c *AWGN) Transmit(codeword, llr []float32) {
	for i := range codeword {
		x := 1.0
		if math.Float32bits(codeword[i])>>31 == 1 {
			x = -1.0
		}
		y := x + c.sigma*c.norm()
		llr[i] = float32(c.scale * y)
	}
}
