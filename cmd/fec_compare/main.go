package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"math"
	mrand "math/rand"
	"os"
	"strings"
	"time"

	"github.com/Observe-l/polar-ssc/fec"
	"github.com/Observe-l/polar-ssc/internal/dropper"
)

// Compares the polar list decoder against RaptorQ on an erasure
// channel: polar erases individual codeword bits (LLR 0), RaptorQ loses
// whole symbols.

type resultAgg struct {
	okCount  int
	trials   int
	encTotal time.Duration
	decTotal time.Duration
}

func parseFloats(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		var f float64
		if _, err := fmt.Sscanf(p, "%f", &f); err != nil {
			return nil, fmt.Errorf("bad loss %q: %w", p, err)
		}
		out = append(out, f)
	}
	return out, nil
}

func main() {
	var (
		N        = flag.Int("N", 1024, "polar block length (bits)")
		K        = flag.Int("K", 512, "polar information bits (CRC included)")
		listSize = flag.Int("list", 8, "polar decoding paths")
		rqTotal  = flag.Int("rq-total", 32, "raptorq symbols per generation")
		rqK      = flag.Int("rq-k", 26, "raptorq source symbols per generation")
		rqLen    = flag.Int("rq-len", 64, "bytes per raptorq symbol")
		pList    = flag.String("p", "0,0.01,0.03,0.05,0.10", "comma-separated loss probabilities")
		trials   = flag.Int("trials", 2000, "trials per loss point")
		seed     = flag.Int64("seed", 1337, "PRNG seed for loss generation")
		schemes  = flag.String("schemes", "polar,raptorq", "comma-separated schemes to run")
		csvPath  = flag.String("csv", "", "optional CSV output path")
	)
	flag.Parse()

	losses, err := parseFloats(*pList)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	runPolar := strings.Contains(*schemes, "polar")
	runRQ := strings.Contains(*schemes, "raptorq")

	var rows [][]string
	rows = append(rows, []string{"scheme", "p", "trials", "ok", "enc_us", "dec_us"})

	for _, p := range losses {
		if runPolar {
			a, err := polarErasureTrials(*N, *K, *listSize, p, *trials, *seed)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			rows = append(rows, formatRow("polar", p, a))
		}
		if runRQ {
			a, err := raptorqErasureTrials(*rqTotal, *rqK, *rqLen, p, *trials, *seed)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			rows = append(rows, formatRow("raptorq", p, a))
		}
	}

	for _, r := range rows {
		fmt.Println(strings.Join(r, "\t"))
	}
	if *csvPath != "" {
		f, err := os.Create(*csvPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		w := csv.NewWriter(f)
		if err := w.WriteAll(rows); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		w.Flush()
		_ = f.Close()
	}
}

func formatRow(scheme string, p float64, a *resultAgg) []string {
	return []string{
		scheme,
		fmt.Sprintf("%.4f", p),
		fmt.Sprintf("%d", a.trials),
		fmt.Sprintf("%d", a.okCount),
		fmt.Sprintf("%d", a.encTotal.Microseconds()),
		fmt.Sprintf("%d", a.decTotal.Microseconds()),
	}
}

const llrMagnitude = 16

func polarErasureTrials(N, K, L int, p float64, trials int, seed int64) (*resultAgg, error) {
	code, err := fec.New(fec.Config{N: N, K: K, ListSize: L, UseCRC: true})
	if err != nil {
		return nil, err
	}
	rng := mrand.New(mrand.NewSource(seed))
	drop := dropper.New(p, rng)

	payload := K - 8
	data := make([]float32, K)
	codeword := make([]float32, N)
	llr := make([]float32, N)
	decoded := make([]float32, K)

	a := &resultAgg{trials: trials}
	for t := 0; t < trials; t++ {
		for i := 0; i < payload; i++ {
			data[i] = float32(math.Copysign(0, float64(1-2*rng.Intn(2))))
		}
		t0 := time.Now()
		code.Encode(codeword, data)
		a.encTotal += time.Since(t0)

		for i := 0; i < N; i++ {
			if math.Signbit(float64(codeword[i])) {
				llr[i] = -llrMagnitude
			} else {
				llr[i] = llrMagnitude
			}
		}
		drop.Erase(llr)

		t0 = time.Now()
		ok := code.Decode(decoded, llr)
		a.decTotal += time.Since(t0)
		if !ok {
			continue
		}
		good := true
		for i := 0; i < payload; i++ {
			if math.Signbit(float64(decoded[i])) != math.Signbit(float64(data[i])) {
				good = false
				break
			}
		}
		if good {
			a.okCount++
		}
	}
	return a, nil
}

func raptorqErasureTrials(total, k, symLen int, p float64, trials int, seed int64) (*resultAgg, error) {
	rng := mrand.New(mrand.NewSource(seed))
	drop := dropper.New(p, rng)
	payload := make([]byte, k*symLen)

	a := &resultAgg{trials: trials}
	for t := 0; t < trials; t++ {
		rng.Read(payload)

		t0 := time.Now()
		symbols, err := fec.RaptorQEncodeBlock(payload, total, k, symLen)
		if err != nil {
			return nil, err
		}
		a.encTotal += time.Since(t0)

		recv := symbols[:0:0]
		for _, s := range symbols {
			if !drop.Drop() {
				recv = append(recv, s)
			}
		}

		t0 = time.Now()
		got, ok := fec.RaptorQDecodeBlock(recv, len(payload), symLen)
		a.decTotal += time.Since(t0)
		if ok && string(got) == string(payload) {
			a.okCount++
		}
	}
	return a, nil
}
