package speech

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/devansharma-72/sensory-support-hub/encoder"
)

type transcribeFunc func(ctx context.Context, flac []byte) (string, []string, error)

// batchSession encodes PCM to FLAC while recording and uploads once on Close.
type batchSession struct {
	ctx        context.Context
	transcribe transcribeFunc
	enc        *encoder.FLAC
	updates    chan string
	blocks     chan []int16
	encodeDone chan struct{}
	encodeErr  error
	encodeTime time.Duration

	mu      sync.Mutex
	pending []int16
	sealed  bool
}

func newBatchSession(ctx context.Context, transcribe transcribeFunc) (*batchSession, error) {
	enc, err := encoder.NewFLAC()
	if err != nil {
		return nil, err
	}
	bs := &batchSession{
		ctx:        ctx,
		transcribe: transcribe,
		enc:        enc,
		updates:    make(chan string),
		blocks:     make(chan []int16, 64),
		encodeDone: make(chan struct{}),
	}
	go func() {
		defer close(bs.encodeDone)
		for block := range bs.blocks {
			start := time.Now()
			if err := bs.enc.WriteBlock(block); err != nil && bs.encodeErr == nil {
				bs.encodeErr = err
			}
			bs.encodeTime += time.Since(start)
		}
	}()
	return bs, nil
}

func (bs *batchSession) Feed(pcm []byte) {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	if bs.sealed {
		return
	}
	bs.pending = append(bs.pending, encoder.Samples(pcm)...)
	for len(bs.pending) >= encoder.BlockSize {
		block := make([]int16, encoder.BlockSize)
		copy(block, bs.pending)
		bs.pending = bs.pending[encoder.BlockSize:]
		bs.blocks <- block
	}
}

// Updates never carries values; batch transcripts arrive only from Close.
func (bs *batchSession) Updates() <-chan string {
	return bs.updates
}

func (bs *batchSession) Close() (Result, error) {
	bs.mu.Lock()
	bs.sealed = true
	if len(bs.pending) > 0 {
		bs.blocks <- bs.pending
		bs.pending = nil
	}
	bs.mu.Unlock()

	close(bs.blocks)
	<-bs.encodeDone
	close(bs.updates)

	if bs.encodeErr != nil {
		return Result{}, bs.encodeErr
	}
	if err := bs.enc.Close(); err != nil {
		return Result{}, fmt.Errorf("finalizing flac: %w", err)
	}
	if bs.enc.Samples() == 0 {
		return Result{}, nil
	}

	data := bs.enc.Bytes()
	text, lines, err := bs.transcribe(bs.ctx, data)
	if err != nil {
		return Result{}, err
	}
	text = strings.TrimSpace(text)

	rawKB := float64(bs.enc.Samples()*2) / 1024
	metrics := append([]string{
		fmt.Sprintf("audio:      %.1fs | %.1f KB -> %.1f KB flac",
			float64(bs.enc.Samples())/encoder.SampleRate, rawKB, float64(len(data))/1024),
		fmt.Sprintf("encode:     %dms", bs.encodeTime.Milliseconds()),
	}, lines...)

	return Result{Text: text, HasText: text != "", Metrics: metrics}, nil
}
