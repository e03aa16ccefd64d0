package fec

import (
	"github.com/pkg/errors"
	rq "github.com/xssnick/raptorq"
)

// Symbol is one erasure-channel symbol, identified by its id within a
// block. Ids below K are systematic source symbols.
type Symbol struct {
	ID   int
	Data []byte
}

// RaptorQEncodeBlock splits data into K source symbols of symLen bytes
// and generates total symbols (source first, then repair). It is the
// erasure-channel baseline the evaluation drivers compare against.
func RaptorQEncodeBlock(data []byte, total, k, symLen int) ([]Symbol, error) {
	if total <= 0 || k <= 0 || symLen <= 0 || k > total {
		return nil, errors.Errorf("fec: bad raptorq block shape total=%d k=%d symLen=%d", total, k, symLen)
	}
	if max := k * symLen; len(data) > max {
		data = data[:max]
	}
	enc, err := rq.NewRaptorQ(uint32(symLen)).CreateEncoder(data)
	if err != nil {
		return nil, errors.Wrap(err, "fec: raptorq encoder")
	}
	out := make([]Symbol, total)
	for i := 0; i < total; i++ {
		out[i] = Symbol{ID: i, Data: enc.GenSymbol(uint32(i))}
	}
	return out, nil
}

// RaptorQDecodeBlock reconstructs the original dataSize bytes from the
// received symbols. Returns ok=false when the block is unrecoverable.
func RaptorQDecodeBlock(recv []Symbol, dataSize, symLen int) ([]byte, bool) {
	if dataSize < 0 || symLen <= 0 {
		return nil, false
	}
	dec, err := rq.NewRaptorQ(uint32(symLen)).CreateDecoder(uint32(dataSize))
	if err != nil {
		return nil, false
	}
	for _, s := range recv {
		if s.ID < 0 {
			continue
		}
		// a rejected symbol is not fatal, keep feeding the rest
		_, _ = dec.AddSymbol(uint32(s.ID), s.Data)
	}
	ok, b, err := dec.Decode()
	if err != nil || !ok {
		return nil, false
	}
	return b, true
}
