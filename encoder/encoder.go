// Package encoder turns captured 16-bit PCM into a playable FLAC file.
package encoder

import "encoding/binary"

const (
	SampleRate    = 16000
	Channels      = 1
	BitsPerSample = 16
	BlockSize     = 4096

	BytesPerSecond = SampleRate * Channels * BitsPerSample / 8
)

// Samples decodes little-endian 16-bit PCM. A trailing odd byte is dropped.
func Samples(pcm []byte) []int16 {
	out := make([]int16, len(pcm)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}
	return out
}

// Duration reports the length of a PCM buffer in seconds.
func Duration(pcmBytes int) float64 {
	return float64(pcmBytes) / BytesPerSecond
}
