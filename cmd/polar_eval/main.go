package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	mrand "math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Observe-l/polar-ssc/fec"
	"github.com/Observe-l/polar-ssc/internal/sim"
)

type config struct {
	N int
	K int
}

type resultKey struct {
	N     int
	K     int
	L     int
	SNRdB float64
}

type agg struct {
	Frames      int
	PayloadBits int
	BitErrors   int
	FrameErrors int
	EncTotal    time.Duration
	DecTotal    time.Duration
}

type jsonRecord struct {
	N      int     `json:"N"`
	K      int     `json:"K"`
	L      int     `json:"L"`
	SNRdB  float64 `json:"snr_db"`
	Frames int     `json:"frames"`
	BER    float64 `json:"ber"`
	FER    float64 `json:"fer"`
	EncUS  int64   `json:"enc_us_total"`
	DecUS  int64   `json:"dec_us_total"`
}

func parseConfigs(s string) ([]config, error) {
	parts := strings.Split(s, ";")
	out := make([]config, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		var a, b int
		if _, err := fmt.Sscanf(p, "%d,%d", &a, &b); err != nil {
			return nil, fmt.Errorf("bad config %q: %w", p, err)
		}
		out = append(out, config{N: a, K: b})
	}
	return out, nil
}

func parseSNRs(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		var f float64
		if _, err := fmt.Sscanf(p, "%f", &f); err != nil {
			return nil, fmt.Errorf("bad snr %q: %w", p, err)
		}
		out = append(out, f)
	}
	return out, nil
}

func ensureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}

func main() {
	var (
		runs       = flag.Int("runs", 10000, "frames per (config,snr) point")
		cfgStr     = flag.String("configs", "128,64;256,128;1024,512", "semicolon-separated list of N,K pairs")
		snrStr     = flag.String("snr", "0,1,2,3,4", "comma-separated list of Eb/N0 points in dB")
		listSize   = flag.Int("list", 1, "decoding paths")
		designSNR  = flag.Float64("design-snr", 0, "construction SNR in dB")
		useCRC     = flag.Bool("crc", false, "protect blocks with CRC-8")
		systematic = flag.Bool("systematic", false, "systematic encoding")
		seed       = flag.Int64("seed", 42, "random seed")
		outPath    = flag.String("out", "docs/reports/polar_eval_report.md", "output markdown report path")
	)
	flag.Parse()

	configs, err := parseConfigs(*cfgStr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	snrs, err := parseSNRs(*snrStr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	results := make(map[resultKey]*agg)
	var mu sync.Mutex
	var g errgroup.Group

	for _, cfg := range configs {
		for _, snr := range snrs {
			cfg, snr := cfg, snr
			g.Go(func() error {
				// each point gets its own instance so points run in parallel
				code, err := fec.New(fec.Config{
					N:          cfg.N,
					K:          cfg.K,
					ListSize:   *listSize,
					DesignSNR:  *designSNR,
					UseCRC:     *useCRC,
					Systematic: *systematic,
				})
				if err != nil {
					return err
				}
				a, err := runPoint(code, cfg, snr, *runs, *seed, *useCRC)
				if err != nil {
					return err
				}
				mu.Lock()
				results[resultKey{N: cfg.N, K: cfg.K, L: *listSize, SNRdB: snr}] = a
				mu.Unlock()
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := writeReport(*outPath, results, *runs); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println("report written to", *outPath)
}

func runPoint(code *fec.PolarCode, cfg config, snr float64, runs int, seed int64, useCRC bool) (*agg, error) {
	payload := cfg.K
	if useCRC {
		payload -= 8
	}
	rng := mrand.New(mrand.NewSource(seed ^ int64(cfg.N)<<20 ^ int64(math.Float64bits(snr))))
	ch := sim.NewAWGN(snr, float64(cfg.K)/float64(cfg.N), uint64(seed)+uint64(cfg.N))

	data := make([]float32, cfg.K)
	codeword := make([]float32, cfg.N)
	llr := make([]float32, cfg.N)
	decoded := make([]float32, cfg.K)

	a := &agg{Frames: runs, PayloadBits: payload}
	for f := 0; f < runs; f++ {
		for i := 0; i < payload; i++ {
			data[i] = float32(math.Copysign(0, float64(1-2*rng.Intn(2))))
		}
		t0 := time.Now()
		code.Encode(codeword, data)
		a.EncTotal += time.Since(t0)

		ch.Transmit(codeword, llr)

		t0 = time.Now()
		code.Decode(decoded, llr)
		a.DecTotal += time.Since(t0)

		bad := false
		for i := 0; i < payload; i++ {
			if math.Signbit(float64(decoded[i])) != math.Signbit(float64(data[i])) {
				a.BitErrors++
				bad = true
			}
		}
		if bad {
			a.FrameErrors++
		}
	}
	return a, nil
}

func writeReport(outPath string, results map[resultKey]*agg, runs int) error {
	if err := ensureDir(outPath); err != nil {
		return err
	}

	keys := make([]resultKey, 0, len(results))
	for k := range results {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].N != keys[j].N {
			return keys[i].N < keys[j].N
		}
		if keys[i].K != keys[j].K {
			return keys[i].K < keys[j].K
		}
		return keys[i].SNRdB < keys[j].SNRdB
	})

	var sb strings.Builder
	sb.WriteString("# Polar decoder evaluation\n\n")
	fmt.Fprintf(&sb, "%d frames per point.\n\n", runs)
	sb.WriteString("| N | K | L | Eb/N0 (dB) | BER | FER | enc/frame | dec/frame |\n")
	sb.WriteString("|---|---|---|-----------|-----|-----|-----------|----------|\n")

	records := make([]jsonRecord, 0, len(keys))
	for _, k := range keys {
		a := results[k]
		ber := float64(a.BitErrors) / float64(a.Frames*a.PayloadBits)
		fer := float64(a.FrameErrors) / float64(a.Frames)
		fmt.Fprintf(&sb, "| %d | %d | %d | %.2f | %.3g | %.3g | %s | %s |\n",
			k.N, k.K, k.L, k.SNRdB, ber, fer,
			(a.EncTotal / time.Duration(a.Frames)).String(),
			(a.DecTotal / time.Duration(a.Frames)).String())
		records = append(records, jsonRecord{
			N: k.N, K: k.K, L: k.L, SNRdB: k.SNRdB, Frames: a.Frames,
			BER: ber, FER: fer,
			EncUS: a.EncTotal.Microseconds(), DecUS: a.DecTotal.Microseconds(),
		})
	}
	if err := os.WriteFile(outPath, []byte(sb.String()), 0o644); err != nil {
		return err
	}

	jsonPath := strings.TrimSuffix(outPath, filepath.Ext(outPath)) + ".json"
	jb, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(jsonPath, jb, 0o644)
}
