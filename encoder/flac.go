package encoder

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
	"github.com/mewkiz/flac/meta"
)

// FLAC accumulates mono blocks into an in-memory FLAC stream.
type FLAC struct {
	mu      sync.Mutex
	buf     bytes.Buffer
	enc     *flac.Encoder
	samples uint64
	closed  bool
}

func NewFLAC() (*FLAC, error) {
	e := &FLAC{}
	info := &meta.StreamInfo{
		BlockSizeMin:  BlockSize,
		BlockSizeMax:  BlockSize,
		SampleRate:    SampleRate,
		NChannels:     Channels,
		BitsPerSample: BitsPerSample,
	}
	enc, err := flac.NewEncoder(&e.buf, info)
	if err != nil {
		return nil, fmt.Errorf("creating flac encoder: %w", err)
	}
	enc.EnablePredictionAnalysis(true)
	e.enc = enc
	return e, nil
}

// WriteBlock encodes at most BlockSize samples as one frame.
func (e *FLAC) WriteBlock(block []int16) error {
	if len(block) == 0 {
		return nil
	}
	if len(block) > BlockSize {
		return fmt.Errorf("block of %d samples exceeds %d", len(block), BlockSize)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return fmt.Errorf("flac encoder closed")
	}

	samples := make([]int32, len(block))
	for i, s := range block {
		samples[i] = int32(s)
	}
	f := &frame.Frame{
		Header: frame.Header{
			BlockSize:     uint16(len(block)),
			SampleRate:    SampleRate,
			Channels:      frame.ChannelsMono,
			BitsPerSample: BitsPerSample,
		},
		Subframes: []*frame.Subframe{{
			SubHeader: frame.SubHeader{Pred: frame.PredVerbatim},
			Samples:   samples,
			NSamples:  len(block),
		}},
	}
	if err := e.enc.WriteFrame(f); err != nil {
		return fmt.Errorf("writing flac frame: %w", err)
	}
	e.samples += uint64(len(block))
	return nil
}

func (e *FLAC) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	return e.enc.Close()
}

func (e *FLAC) Bytes() []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.buf.Bytes()
}

func (e *FLAC) Samples() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.samples
}

// EncodePCM joins captured chunks and returns one complete FLAC file.
func EncodePCM(chunks ...[]byte) ([]byte, error) {
	var pcm []byte
	for _, c := range chunks {
		pcm = append(pcm, c...)
	}
	enc, err := NewFLAC()
	if err != nil {
		return nil, err
	}
	samples := Samples(pcm)
	for i := 0; i < len(samples); i += BlockSize {
		end := min(i+BlockSize, len(samples))
		if err := enc.WriteBlock(samples[i:end]); err != nil {
			return nil, err
		}
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("finalizing flac: %w", err)
	}
	return bytes.Clone(enc.Bytes()), nil
}
