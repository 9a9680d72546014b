package speech

import (
	"context"
	"strings"
	"sync"
)

// Fake emits a scripted transcript word by word as audio arrives. Each Feed
// call reveals one more word.
type Fake struct {
	Text string
	Err  error
}

func (f *Fake) Name() string    { return "fake" }
func (f *Fake) Supported() bool { return true }

func (f *Fake) NewSession(context.Context, SessionConfig) (Session, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	return &fakeSession{words: strings.Fields(f.Text), updates: make(chan string, 64)}, nil
}

type fakeSession struct {
	mu      sync.Mutex
	words   []string
	shown   int
	closed  bool
	updates chan string
}

func (s *fakeSession) Feed([]byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.shown >= len(s.words) {
		return
	}
	s.shown++
	select {
	case s.updates <- strings.Join(s.words[:s.shown], " "):
	default:
	}
}

func (s *fakeSession) Updates() <-chan string { return s.updates }

func (s *fakeSession) Close() (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.updates)
	}
	text := strings.Join(s.words, " ")
	return Result{Text: text, HasText: text != ""}, nil
}
