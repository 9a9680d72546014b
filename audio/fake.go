package audio

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/devansharma-72/sensory-support-hub/encoder"
)

const (
	WAVHeaderSize = 44

	fakeFrameSize     = 1024
	fakeBytesPerFrame = 2
)

// FakeContext replays fixed PCM instead of a microphone. Used by tests and
// by --fake-audio.
type FakeContext struct {
	PCM      []byte
	Realtime bool
	// StartErr makes every capture fail to start, like a denied microphone.
	StartErr error
}

func NewFakeContextFromWAV(path string, realtime bool) (*FakeContext, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fake audio: %w", err)
	}
	if len(data) > WAVHeaderSize {
		data = data[WAVHeaderSize:]
	}
	return &FakeContext{PCM: data, Realtime: realtime}, nil
}

func (f *FakeContext) Devices() ([]DeviceInfo, error) {
	return []DeviceInfo{{ID: "fake", Name: "fake"}}, nil
}

func (f *FakeContext) Close() {}

func (f *FakeContext) NewCapture(_ *DeviceInfo, _ CaptureConfig) (CaptureDevice, error) {
	return &FakeCapture{pcm: f.PCM, realtime: f.Realtime, startErr: f.StartErr}, nil
}

type FakeCapture struct {
	pcm      []byte
	realtime bool
	startErr error

	mu     sync.Mutex
	cb     DataCallback
	stop   chan struct{}
	done   chan struct{}
	closed bool
}

func (f *FakeCapture) SetCallback(cb DataCallback) {
	f.mu.Lock()
	f.cb = cb
	f.mu.Unlock()
}

func (f *FakeCapture) ClearCallback() {
	f.mu.Lock()
	f.cb = nil
	f.mu.Unlock()
}

func (f *FakeCapture) DeviceName() string { return "fake" }

// Closed reports whether Close was called.
func (f *FakeCapture) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *FakeCapture) Start() error {
	if f.startErr != nil {
		return f.startErr
	}
	f.mu.Lock()
	if f.stop != nil {
		f.mu.Unlock()
		return nil
	}
	f.stop = make(chan struct{})
	f.done = make(chan struct{})
	stop, done := f.stop, f.done
	f.mu.Unlock()

	interval := time.Duration(fakeFrameSize) * time.Second / encoder.SampleRate
	chunkBytes := fakeFrameSize * fakeBytesPerFrame
	go func() {
		defer close(done)
		for pos := 0; pos < len(f.pcm); {
			select {
			case <-stop:
				return
			default:
			}
			end := min(pos+chunkBytes, len(f.pcm))
			chunk := append([]byte(nil), f.pcm[pos:end]...)
			f.mu.Lock()
			cb := f.cb
			f.mu.Unlock()
			if cb != nil {
				cb(chunk, uint32(len(chunk)/fakeBytesPerFrame))
			}
			pos = end
			if f.realtime {
				select {
				case <-stop:
					return
				case <-time.After(interval):
				}
			}
		}
	}()
	return nil
}

// Drained waits until all PCM was delivered or the capture stopped.
func (f *FakeCapture) Drained() {
	f.mu.Lock()
	done := f.done
	f.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (f *FakeCapture) Stop() {
	f.mu.Lock()
	stop, done := f.stop, f.done
	f.stop, f.done = nil, nil
	f.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-done
}

func (f *FakeCapture) Close() {
	f.Stop()
	f.mu.Lock()
	f.cb = nil
	f.closed = true
	f.mu.Unlock()
}
