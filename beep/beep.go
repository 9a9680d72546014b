// Package beep synthesizes and plays the short cue sounds.
package beep

import (
	"math"
	"sync"
	"sync/atomic"
)

var disabled atomic.Bool

// Disable silences every cue for the rest of the process.
func Disable() { disabled.Store(true) }

const (
	sampleRate = 44100

	// Recording started: high pitch, short
	startFreq   = 1200
	startVolume = 0.5
	startDecay  = 60

	// Recording stopped: medium pitch
	endFreq   = 900
	endVolume = 0.5
	endDecay  = 40

	// Timer transition: two rising bell tones
	chimeLow    = 660
	chimeHigh   = 880
	chimeVolume = 0.45
	chimeDecay  = 6

	// Error: low pitch double-beep
	errorFreq   = 350
	errorVolume = 0.6
	errorDecay  = 30
)

// Tone renders a decaying sine as mono 16-bit samples.
func Tone(freq, duration, volume, decay float64) []int16 {
	n := int(sampleRate * duration)
	samples := make([]int16, n)
	for i := range samples {
		t := float64(i) / sampleRate
		envelope := math.Exp(-t * decay)
		samples[i] = int16(math.Sin(2*math.Pi*freq*t) * 32767 * volume * envelope)
	}
	return samples
}

// Sequence joins tones with gap seconds of silence between them.
func Sequence(gap float64, tones ...[]int16) []int16 {
	silence := make([]int16, int(sampleRate*gap))
	var out []int16
	for i, t := range tones {
		if i > 0 {
			out = append(out, silence...)
		}
		out = append(out, t...)
	}
	return out
}

var (
	soundOnce    sync.Once
	startSamples []int16
	endSamples   []int16
	chimeSamples []int16
	errorSamples []int16
)

func initSound() {
	startSamples = Tone(startFreq, 0.2, startVolume, startDecay)
	endSamples = Tone(endFreq, 0.2, endVolume, endDecay)
	chimeSamples = Sequence(0.05, Tone(chimeLow, 0.35, chimeVolume, chimeDecay), Tone(chimeHigh, 0.6, chimeVolume, chimeDecay))
	errorTone := Tone(errorFreq, 0.08, errorVolume, errorDecay)
	errorSamples = Sequence(0.05, errorTone, errorTone)
	initPlayer()
}

func Init() { soundOnce.Do(initSound) }

func play(samples func() []int16) {
	if disabled.Load() {
		return
	}
	soundOnce.Do(initSound)
	playSamples(samples())
}

func PlayStart() { play(func() []int16 { return startSamples }) }
func PlayEnd()   { play(func() []int16 { return endSamples }) }
func PlayChime() { play(func() []int16 { return chimeSamples }) }
func PlayError() { play(func() []int16 { return errorSamples }) }

// Chime plays the timer transition bell.
type Chime struct{}

func (Chime) Play() { PlayChime() }

func toBytes(samples []int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		buf[i*2] = byte(s)
		buf[i*2+1] = byte(s >> 8)
	}
	return buf
}
