// Package speech turns live microphone PCM into text. The backend is chosen
// once at startup by Detect; without credentials the Unsupported recognizer
// lets recording continue with no transcript.
package speech

import (
	"context"
	"errors"
	"os"
)

var ErrUnsupported = errors.New("speech recognition unsupported")

type SessionConfig struct {
	Language   string
	SampleRate int
}

type Result struct {
	Text    string
	HasText bool
	// Metrics holds pre-formatted diagnostic lines.
	Metrics []string
}

type Session interface {
	Feed(pcm []byte)
	// Updates carries the full transcript so far; each value replaces the
	// previous one. Closed by Close.
	Updates() <-chan string
	Close() (Result, error)
}

type Recognizer interface {
	Name() string
	Supported() bool
	NewSession(ctx context.Context, cfg SessionConfig) (Session, error)
}

// Detect picks a recognizer from the environment: DEEPGRAM_API_KEY streams,
// GROQ_API_KEY transcribes on close, neither yields Unsupported.
func Detect(getenv func(string) string) Recognizer {
	if getenv == nil {
		getenv = os.Getenv
	}
	if key := getenv("DEEPGRAM_API_KEY"); key != "" {
		return NewDeepgram(key)
	}
	if key := getenv("GROQ_API_KEY"); key != "" {
		return NewGroq(key)
	}
	return Unsupported{}
}

type Unsupported struct{}

func (Unsupported) Name() string    { return "none" }
func (Unsupported) Supported() bool { return false }

func (Unsupported) NewSession(context.Context, SessionConfig) (Session, error) {
	return nil, ErrUnsupported
}
