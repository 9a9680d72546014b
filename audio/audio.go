// Package audio captures 16 kHz mono PCM from the microphone.
package audio

import (
	"errors"
	"fmt"
	"strings"
)

var ErrNoDevice = errors.New("no capture devices found")

var btKeywords = []string{
	"airpods", "bose", "wh-1000", "wf-1000", "jabra",
	"galaxy buds", "pixel buds", "jbl ", "bluetooth", " bt ",
}

// IsBluetooth guesses from the device name whether the mic is a headset
// running in low-bandwidth mode.
func IsBluetooth(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range btKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// DataCallback receives little-endian S16 samples. data is only valid for the
// duration of the call.
type DataCallback func(data []byte, frameCount uint32)

type CaptureConfig struct {
	SampleRate uint32
	Channels   uint32
}

type DeviceInfo struct {
	ID   string // opaque platform-specific identifier
	Name string
}

type Context interface {
	Devices() ([]DeviceInfo, error)
	NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error)
	Close()
}

type CaptureDevice interface {
	Start() error
	Stop()
	Close()
	SetCallback(cb DataCallback)
	ClearCallback()
	DeviceName() string
}

// FindDevice matches name case-insensitively against device names. An empty
// name selects the system default (nil).
func FindDevice(ctx Context, name string) (*DeviceInfo, error) {
	if name == "" {
		return nil, nil
	}
	devices, err := ctx.Devices()
	if err != nil {
		return nil, fmt.Errorf("enumerating devices: %w", err)
	}
	for i := range devices {
		if strings.EqualFold(devices[i].Name, name) || devices[i].ID == name {
			return &devices[i], nil
		}
	}
	return nil, fmt.Errorf("capture device %q not found", name)
}
