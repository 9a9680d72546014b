//go:build !linux

package beep

import (
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
)

var (
	malgoCtx *malgo.AllocatedContext
	device   *malgo.Device

	// read from the device callback
	playing atomic.Pointer[[]byte]
	playPos atomic.Uint32
	playMu  sync.Mutex
)

func initDevice() error {
	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.Playback.Format = malgo.FormatS16
	config.Playback.Channels = 1
	config.SampleRate = sampleRate

	var err error
	device, err = malgo.InitDevice(malgoCtx.Context, config, malgo.DeviceCallbacks{Data: dataCallback})
	return err
}

func initPlayer() {
	var err error
	malgoCtx, err = malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return
	}
	if err := initDevice(); err != nil {
		malgoCtx.Uninit()
		malgoCtx = nil
	}
}

func dataCallback(out, _ []byte, frameCount uint32) {
	clear(out)
	samples := playing.Load()
	if samples == nil {
		return
	}
	pos := playPos.Load()
	remaining := uint32(len(*samples)) - pos
	if remaining == 0 {
		playing.Store(nil)
		return
	}
	n := min(frameCount*2, remaining)
	copy(out[:n], (*samples)[pos:pos+n])
	playPos.Store(pos + n)
}

func playSamples(samples []int16) {
	if malgoCtx == nil || len(samples) == 0 {
		return
	}
	buf := toBytes(samples)

	playMu.Lock()
	defer playMu.Unlock()
	if device == nil {
		return
	}
	device.Stop()
	playPos.Store(0)
	playing.Store(&buf)

	if err := device.Start(); err != nil {
		// device can go stale after sleep/wake; rebuild once
		device.Uninit()
		if err := initDevice(); err != nil {
			device = nil
			playing.Store(nil)
			return
		}
		if err := device.Start(); err != nil {
			playing.Store(nil)
		}
	}
}
