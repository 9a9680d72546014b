package capture

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/devansharma-72/sensory-support-hub/audio"
	"github.com/devansharma-72/sensory-support-hub/encoder"
)

// Track is a live capture handle owned by the session between acquisition
// and release.
type Track interface {
	SetCallback(cb audio.DataCallback)
	ClearCallback()
	Start() error
	Stop()
	Close()
}

type Source interface {
	Acquire(ctx context.Context) (Track, error)
}

// DeviceSource opens a microphone through an audio context. A nil Device
// means the system default.
type DeviceSource struct {
	Context audio.Context
	Device  *audio.DeviceInfo
}

func (d DeviceSource) Acquire(ctx context.Context) (Track, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dev, err := d.Context.NewCapture(d.Device, audio.CaptureConfig{
		SampleRate: encoder.SampleRate,
		Channels:   encoder.Channels,
	})
	if err != nil {
		return nil, err
	}
	return dev, nil
}

type Downloader interface {
	// Download stores data under name and returns where it went.
	Download(name string, data []byte) (string, error)
}

// DirDownloader writes files into a directory, creating it when needed.
type DirDownloader struct {
	Dir string
}

func (d DirDownloader) Download(name string, data []byte) (string, error) {
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}
	path := filepath.Join(d.Dir, filepath.Base(name))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write recording: %w", err)
	}
	return path, nil
}
