package fec

import (
	"math/bits"
	"time"

	"github.com/pkg/errors"
)

const (
	// crcBits is the checksum width carried inside the information block
	// when CRC protection is enabled.
	crcBits = 8

	// vectorWidth is the number of float32 lanes per vector register.
	// Stage buffers are rounded up to it so width-V kernels can be
	// dropped in without resizing; below it the scalar kernels run.
	vectorWidth = 8
)

// Config selects the code and decoder parameters.
type Config struct {
	N         int     // block length, power of two
	K         int     // information bits per block (CRC included when enabled)
	ListSize  int     // decoding paths, >= 1
	DesignSNR float64 // construction SNR in dB

	UseCRC     bool // protect the block with an 8-bit checksum
	Systematic bool // systematic mapping of data onto the codeword
	EncodeOnly bool // skip decoder buffer allocation
	PlainSC    bool // disable subtree specialization, plain successive cancellation
	WideSPC    bool // also condense (Half|SPC,One) nodes into SPC near the leaves
}

// PolarCode is a polar encoder/decoder for one fixed parameter set. All
// buffers are allocated at construction; Encode and Decode do not
// allocate. A PolarCode is not safe for concurrent use; run one
// instance per goroutine.
type PolarCode struct {
	N, K, L   int
	n         int
	designSNR float64

	useCRC     bool
	systematic bool
	encodeOnly bool
	plainSC    bool
	wideSPC    bool

	fzLookup  []bool
	infoIdx   []int
	frozenIdx []int
	tree      []nodeTag

	crc *crc8

	initialLLR []float32
	simpleBits []float32
	absLLR     []float32
	spLLR      [][]float32 // single-path stage buffers

	// list decoding state
	paths     []*listPath
	spare     []*listPath
	metric    []float32
	pathCount int
	maxCand   int
	cands     []candidate
	survivors []candidate
	srcUsed   []bool
	newPaths  []*listPath
	newMetric []float32
	order     []int

	stats DecodeStats
}

// New validates the configuration, runs code construction and allocates
// all working memory.
func New(cfg Config) (*PolarCode, error) {
	if cfg.N < 2 || cfg.N&(cfg.N-1) != 0 {
		return nil, errors.Errorf("fec: block length %d is not a power of two", cfg.N)
	}
	if cfg.K < 1 || cfg.K > cfg.N {
		return nil, errors.Errorf("fec: dimension %d out of range for N=%d", cfg.K, cfg.N)
	}
	if cfg.ListSize < 1 {
		return nil, errors.Errorf("fec: list size %d must be at least 1", cfg.ListSize)
	}
	if cfg.UseCRC && cfg.K <= crcBits {
		return nil, errors.Errorf("fec: K=%d leaves no room for a %d-bit checksum", cfg.K, crcBits)
	}

	pc := &PolarCode{
		N:          cfg.N,
		K:          cfg.K,
		L:          cfg.ListSize,
		n:          bits.Len(uint(cfg.N)) - 1,
		designSNR:  cfg.DesignSNR,
		useCRC:     cfg.UseCRC,
		systematic: cfg.Systematic,
		encodeOnly: cfg.EncodeOnly,
		plainSC:    cfg.PlainSC,
		wideSPC:    cfg.WideSPC,
		crc:        newCRC8(),
	}
	pc.construct()
	if !cfg.EncodeOnly {
		pc.allocDecoder()
	}
	return pc, nil
}

func (pc *PolarCode) allocDecoder() {
	pc.maxCand = pc.L << 3
	pc.initialLLR = alignedFloats(maxInt(vectorWidth, pc.N))
	pc.simpleBits = alignedFloats(pc.N)
	pc.absLLR = alignedFloats(maxInt(vectorWidth, pc.N))

	pc.spLLR = make([][]float32, pc.n)
	for s := 0; s < pc.n; s++ {
		pc.spLLR[s] = alignedFloats(maxInt(vectorWidth, 1<<s))
	}

	pc.metric = make([]float32, 0, pc.L)
	pc.cands = make([]candidate, 0, pc.maxCand)
	pc.survivors = make([]candidate, 0, pc.L)
	pc.srcUsed = make([]bool, pc.L)
	pc.newPaths = make([]*listPath, 0, pc.L)
	pc.newMetric = make([]float32, 0, pc.L)
	pc.order = make([]int, 0, pc.L)
	pc.paths = make([]*listPath, 0, pc.L)
	pc.spare = make([]*listPath, 0, 2*pc.L)
	for i := 0; i < 2*pc.L; i++ {
		pc.spare = append(pc.spare, newListPath(pc.n, pc.N))
	}
}

// InfoIndices returns the data-carrying channel positions in natural
// order.
func (pc *PolarCode) InfoIndices() []int {
	return append([]int(nil), pc.infoIdx...)
}

// FrozenIndices returns the frozen channel positions in natural order.
func (pc *PolarCode) FrozenIndices() []int {
	return append([]int(nil), pc.frozenIdx...)
}

// Encode maps K data bits onto an N-bit codeword. Both slices carry
// bits in the sign-bit-of-float encoding; encoded must hold N entries
// and data K. When CRC protection is enabled the last crcBits entries
// of data are overwritten with the checksum of the leading bits.
func (pc *PolarCode) Encode(encoded, data []float32) {
	for i := 0; i < pc.N; i++ {
		encoded[i] = 0
	}
	if pc.useCRC {
		pc.crc.addChecksum(data, pc.K-crcBits)
	}
	for i, idx := range pc.infoIdx {
		encoded[idx] = data[i]
	}
	if pc.systematic {
		pc.subEncodeSystematic(encoded, pc.n, 0, 0)
	} else {
		pc.Transform(encoded)
	}
}

// subEncodeSystematic walks the condensed tree so that after encoding
// the codeword restricted to the data positions equals the data.
func (pc *PolarCode) subEncodeSystematic(enc []float32, stage, bitLoc, nodeID int) {
	if stage == 0 {
		return
	}
	left := 2*nodeID + 1
	right := left + 1
	sub := 1 << (stage - 1)

	if pc.tree[right] != rateOne {
		pc.subEncodeSystematic(enc, stage-1, bitLoc+sub, right)
	}
	if pc.tree[left] != rateZero {
		combine(enc[bitLoc:], sub)
		if pc.tree[left] != rateOne {
			pc.subEncodeSystematic(enc, stage-1, bitLoc, left)
		}
		combine(enc[bitLoc:], sub)
	} else {
		combine0R(enc[bitLoc:], sub)
	}
}

// Transform applies the polar transform in place over the first N
// entries. The transform is an involution: applying it twice is the
// identity.
func (pc *PolarCode) Transform(b []float32) {
	for i := pc.n - 1; i >= 0; i-- {
		bsz := 1 << (pc.n - i - 1)
		nb := 1 << i
		base := 0
		for j := 0; j < nb; j++ {
			for l := 0; l < bsz; l++ {
				b[base+l] = xorBits(b[base+l], b[base+l+bsz])
			}
			base += bsz << 1
		}
	}
}

// Decode recovers K data bits from N channel LLRs. decoded must hold K
// entries and llr N. It returns true when the block authenticates
// (always, when CRC is disabled) and false when every path fails the
// checksum; decoded then carries the maximum-likelihood guess.
func (pc *PolarCode) Decode(decoded, llr []float32) bool {
	if pc.encodeOnly {
		panic("fec: decode on an encode-only instance")
	}
	copy(pc.initialLLR[:pc.N], llr[:pc.N])

	if pc.useCRC {
		start := time.Now()
		if pc.decodeOnePath(decoded) {
			pc.stats.FastOK++
			pc.stats.FastTotal += time.Since(start)
			return true
		}
		if pc.L == 1 {
			// every path pruning would pick the ML path again, so a
			// retry cannot change the outcome
			pc.stats.Failures++
			pc.stats.FastTotal += time.Since(start)
			return false
		}
		start = time.Now()
		ok := pc.decodeMultiPath(decoded)
		pc.stats.ListTotal += time.Since(start)
		if ok {
			pc.stats.ListOK++
		} else {
			pc.stats.Failures++
		}
		return ok
	}

	if pc.L == 1 {
		start := time.Now()
		ok := pc.decodeOnePath(decoded)
		pc.stats.FastOK++
		pc.stats.FastTotal += time.Since(start)
		return ok
	}
	start := time.Now()
	ok := pc.decodeMultiPath(decoded)
	pc.stats.ListOK++
	pc.stats.ListTotal += time.Since(start)
	return ok
}

func (pc *PolarCode) decodeOnePath(decoded []float32) bool {
	pc.decodeOnePathRecursive(pc.n, pc.simpleBits, 0)

	if !pc.systematic {
		pc.Transform(pc.simpleBits)
	}
	for i, idx := range pc.infoIdx {
		decoded[i] = pc.simpleBits[idx]
	}
	if pc.useCRC {
		return pc.crc.check(decoded, pc.K)
	}
	return true
}

// decodeOnePathRecursive walks the condensed tree. On return,
// nodeBits[0..2^stage) holds the hard decisions of this subtree in
// sign-bit encoding.
func (pc *PolarCode) decodeOnePathRecursive(stage int, nodeBits []float32, nodeID int) {
	left := 2*nodeID + 1
	right := left + 1
	sub := 1 << (stage - 1)
	rightBits := nodeBits[sub:]

	llrIn := pc.initialLLR
	if stage != pc.n {
		llrIn = pc.spLLR[stage]
	}
	out := pc.spLLR[stage-1]

	if pc.tree[left] != rateZero {
		fFunction(llrIn, out, sub)
	}
	switch pc.tree[left] {
	case rateZero:
		// frozen subtree: the combine step below overwrites the left
		// half, nothing to decide here
	case rateOne:
		rate1(out, nodeBits, sub)
	case repetitionNode, rateHalf:
		repetition(out, nodeBits, sub)
	case spcNode:
		spc(out, nodeBits, sub)
	case repSPCNode:
		if sub == 8 {
			repSPC8(out, nodeBits)
		} else {
			repSPC(out, nodeBits, sub)
		}
	default:
		pc.decodeOnePathRecursive(stage-1, nodeBits, left)
	}

	switch pc.tree[right] {
	case rateOne:
		if pc.tree[left] == rateZero {
			p01(llrIn, nodeBits, sub)
		} else {
			pR1(llrIn, nodeBits, sub)
		}
		return
	case spcNode:
		if pc.tree[left] == rateZero {
			p0SPC(llrIn, nodeBits, pc.absLLR, sub)
		} else {
			pRSPC(llrIn, nodeBits, pc.absLLR, sub)
		}
		return
	}

	if pc.tree[left] != rateZero {
		gFunction(llrIn, out, nodeBits, sub)
	} else {
		gFunction0R(llrIn, out, sub)
	}
	switch pc.tree[right] {
	case rateZero:
		rate0(rightBits, sub)
	case repetitionNode, rateHalf:
		repetition(out, rightBits, sub)
	case repSPCNode:
		if sub == 8 {
			repSPC8(out, rightBits)
		} else {
			repSPC(out, rightBits, sub)
		}
	default:
		pc.decodeOnePathRecursive(stage-1, rightBits, right)
	}
	if pc.tree[left] != rateZero {
		combine(nodeBits, sub)
	} else {
		combine0R(nodeBits, sub)
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
