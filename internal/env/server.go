package env

import (
	"context"
	"errors"
	"io"
	"math"
	"math/rand"
	"sync"

	"github.com/Observe-l/polar-ssc/fec"
	"github.com/Observe-l/polar-ssc/internal/dropper"
	"github.com/Observe-l/polar-ssc/internal/sim"
)

// The message types below stay compatible with the generated gRPC
// messages so the server compiles before protoc runs.

// CodeScenario selects the code under evaluation.
type CodeScenario struct {
	N, K, ListSize int
	DesignSNR      float64
	UseCRC         bool
	Systematic     bool
}

// ChannelScenario selects the channel the codewords travel through.
type ChannelScenario struct {
	SNRdB       float64
	ErasureRate float64
	Seed        int64
}

// ExperimentConfig placeholder. Replace with pb.ExperimentConfig when
// stubs exist.
type ExperimentConfig struct {
	Code          CodeScenario
	Channel       ChannelScenario
	FramesPerStep int
}

// Observation summarizes the outcome of one evaluation step.
type Observation struct {
	Frames         int
	BitErrors      int
	FrameErrors    int
	BitErrorRate   float64
	FrameErrorRate float64
	FastShare      float64 // share of blocks since the last Configure or Reset settled without the list pass
}

type StepRequest struct{ Frames int }
type StepResponse struct {
	Obs  Observation
	Done bool
}

// EvalServer runs encode/channel/decode episodes for a remote
// controller.
type EvalServer struct {
	cfg  *ExperimentConfig
	code *fec.PolarCode
	ch   *sim.AWGN
	drop *dropper.Bernoulli
	rng  *rand.Rand

	data, codeword, llr, decoded []float32

	mu   sync.Mutex
	last Observation
}

// LastObservation returns the outcome of the most recent step.
func (s *EvalServer) LastObservation() Observation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func NewEvalServer() *EvalServer { return &EvalServer{} }

// Configure builds the code and channel for the requested scenario.
func (s *EvalServer) Configure(_ context.Context, cfg *ExperimentConfig) error {
	code, err := fec.New(fec.Config{
		N:          cfg.Code.N,
		K:          cfg.Code.K,
		ListSize:   cfg.Code.ListSize,
		DesignSNR:  cfg.Code.DesignSNR,
		UseCRC:     cfg.Code.UseCRC,
		Systematic: cfg.Code.Systematic,
	})
	if err != nil {
		return err
	}
	s.cfg = cfg
	s.code = code
	s.data = make([]float32, cfg.Code.K)
	s.codeword = make([]float32, cfg.Code.N)
	s.llr = make([]float32, cfg.Code.N)
	s.decoded = make([]float32, cfg.Code.K)
	s.resetChannel()
	return nil
}

func (s *EvalServer) resetChannel() {
	rate := float64(s.cfg.Code.K) / float64(s.cfg.Code.N)
	s.ch = sim.NewAWGN(s.cfg.Channel.SNRdB, rate, uint64(s.cfg.Channel.Seed))
	s.rng = rand.New(rand.NewSource(s.cfg.Channel.Seed))
	s.drop = dropper.New(s.cfg.Channel.ErasureRate, s.rng)
	s.code.ResetStats()
}

// Reset restarts the episode with fresh channel state.
func (s *EvalServer) Reset(_ context.Context) (*Observation, error) {
	if s.cfg == nil {
		return nil, errors.New("env: not configured")
	}
	s.resetChannel()
	return &Observation{}, nil
}

// Step transmits a batch of random blocks and reports error rates.
func (s *EvalServer) Step(_ context.Context, frames int) (*Observation, error) {
	if s.cfg == nil {
		return nil, errors.New("env: not configured")
	}
	if frames <= 0 {
		frames = s.cfg.FramesPerStep
	}
	if frames <= 0 {
		frames = 1
	}

	payload := s.cfg.Code.K
	if s.cfg.Code.UseCRC {
		payload -= 8
	}
	obs := &Observation{Frames: frames}
	for f := 0; f < frames; f++ {
		for i := 0; i < payload; i++ {
			if s.rng.Intn(2) == 1 {
				s.data[i] = float32(math.Copysign(0, -1))
			} else {
				s.data[i] = 0
			}
		}
		s.code.Encode(s.codeword, s.data)
		s.ch.Transmit(s.codeword, s.llr)
		s.drop.Erase(s.llr)
		s.code.Decode(s.decoded, s.llr)

		frameBad := false
		for i := 0; i < payload; i++ {
			if math.Signbit(float64(s.decoded[i])) != math.Signbit(float64(s.data[i])) {
				obs.BitErrors++
				frameBad = true
			}
		}
		if frameBad {
			obs.FrameErrors++
		}
	}
	obs.BitErrorRate = float64(obs.BitErrors) / float64(frames*payload)
	obs.FrameErrorRate = float64(obs.FrameErrors) / float64(frames)
	st := s.code.Stats()
	if total := st.FastOK + st.ListOK + st.Failures; total > 0 {
		obs.FastShare = float64(st.FastOK) / float64(total)
	}
	s.mu.Lock()
	s.last = *obs
	s.mu.Unlock()
	return obs, nil
}

// Rollout drives steps from a bidirectional stream, mirroring the
// generated gRPC interface.
func (s *EvalServer) Rollout(streamRecv func() (*StepRequest, error), streamSend func(*StepResponse) error) error {
	for {
		req, err := streamRecv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		obs, err := s.Step(context.Background(), req.Frames)
		if err != nil {
			return err
		}
		resp := &StepResponse{Obs: *obs}
		if err := streamSend(resp); err != nil {
			return err
		}
	}
}
