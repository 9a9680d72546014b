package speech

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/devansharma-72/sensory-support-hub/encoder"
	"github.com/devansharma-72/sensory-support-hub/log"
)

const (
	streamChunkMs      = 200
	streamChunkBytes   = encoder.BytesPerSecond * streamChunkMs / 1000
	streamFinalizeIdle = 200 * time.Millisecond
	streamFinalizeMax  = 1000 * time.Millisecond
)

// streamDrainMax bounds how long Close waits for the receiver after the
// socket is closed.
var streamDrainMax = 2 * time.Second

type rawStream interface {
	Send(pcm []byte) error
	CloseSend() error
	Recv() (streamUpdate, error)
	Close() error
}

type streamUpdate struct {
	Transcript   string
	IsFinal      bool
	FromFinalize bool
}

type streamStats struct {
	ConnectDur   time.Duration
	SentChunks   int
	SentBytes    int
	RecvFinal    int
	RecvInterim  int
	FinalizeWait time.Duration
}

type streamSession struct {
	ws        rawStream
	audioCh   chan []byte
	updates   chan string
	startedAt time.Time

	connected     chan struct{} // closed once dial returns
	sendDone      chan struct{}
	recvDone      chan struct{}
	finalized     chan struct{}
	finalizedOnce sync.Once

	feedMu  sync.Mutex
	feedBuf []byte
	sealed  bool

	mu        sync.Mutex
	committed string
	interim   string
	err       error
	closing   bool

	// recvExited and handoff decide who closes updates: Close when the
	// receiver is gone, the receiver itself when Close gave up waiting.
	recvExited bool
	handoff    bool
	stats      streamStats
}

func newStreamSession(dial func() (rawStream, error)) *streamSession {
	ss := &streamSession{
		audioCh:   make(chan []byte, 128),
		updates:   make(chan string, 16),
		startedAt: time.Now(),
		connected: make(chan struct{}),
		sendDone:  make(chan struct{}),
		recvDone:  make(chan struct{}),
		finalized: make(chan struct{}),
	}

	go func() {
		start := time.Now()
		ws, err := dial()
		ss.mu.Lock()
		ss.stats.ConnectDur = time.Since(start)
		if err != nil {
			ss.err = err
		}
		ss.mu.Unlock()

		if err != nil {
			close(ss.sendDone)
			close(ss.recvDone)
			close(ss.connected)
			return
		}
		ss.ws = ws
		close(ss.connected)
		go ss.runSender()
		go ss.runReceiver()
	}()

	return ss
}

func (s *streamSession) Feed(pcm []byte) {
	s.feedMu.Lock()
	defer s.feedMu.Unlock()
	if s.sealed {
		return
	}
	s.feedBuf = append(s.feedBuf, pcm...)
	for len(s.feedBuf) >= streamChunkBytes {
		chunk := make([]byte, streamChunkBytes)
		copy(chunk, s.feedBuf)
		s.feedBuf = s.feedBuf[streamChunkBytes:]
		select {
		case s.audioCh <- chunk:
		case <-s.sendDone:
			s.feedBuf = nil
			return
		}
	}
}

func (s *streamSession) Updates() <-chan string {
	return s.updates
}

func (s *streamSession) Close() (Result, error) {
	// Seal the feed side; no more sends on audioCh after this.
	s.feedMu.Lock()
	s.sealed = true
	tail := s.feedBuf
	s.feedBuf = nil
	s.feedMu.Unlock()

	<-s.connected

	s.mu.Lock()
	dialErr := s.err
	s.mu.Unlock()
	if dialErr != nil && s.ws == nil {
		close(s.audioCh)
		close(s.updates)
		return Result{}, dialErr
	}

	if len(tail) > 0 {
		select {
		case s.audioCh <- tail:
		case <-s.sendDone:
		}
	}
	close(s.audioCh)
	finalizeStart := time.Now()
	<-s.sendDone

	select {
	case <-s.finalized:
		time.Sleep(streamFinalizeIdle)
	case <-s.recvDone:
	case <-time.After(streamFinalizeMax):
	}

	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()
	s.ws.Close()
	select {
	case <-s.recvDone:
	case <-time.After(streamDrainMax):
		log.Warn("stream receiver drain timeout")
	}

	s.mu.Lock()
	text := strings.TrimSpace(s.committed)
	s.stats.FinalizeWait = time.Since(finalizeStart)
	stats := s.stats
	sessionErr := s.err
	s.mu.Unlock()

	// The consumer must see the final text even if an earlier send was dropped.
	if text != "" {
		select {
		case s.updates <- text:
		default:
		}
	}
	s.mu.Lock()
	if s.recvExited {
		close(s.updates)
	} else {
		s.handoff = true
	}
	s.mu.Unlock()

	return Result{
		Text:    text,
		HasText: text != "",
		Metrics: s.formatMetrics(stats),
	}, sessionErr
}

func (s *streamSession) runSender() {
	defer close(s.sendDone)
	for chunk := range s.audioCh {
		if err := s.ws.Send(chunk); err != nil {
			s.setErr(err)
			go func() {
				for range s.audioCh {
				}
			}()
			return
		}
		s.mu.Lock()
		s.stats.SentChunks++
		s.stats.SentBytes += len(chunk)
		s.mu.Unlock()
	}
	if err := s.ws.CloseSend(); err != nil {
		s.setErr(err)
	}
}

func (s *streamSession) runReceiver() {
	defer close(s.recvDone)
	defer func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.recvExited = true
		if s.handoff {
			close(s.updates)
		}
	}()
	for {
		update, err := s.ws.Recv()
		if err != nil {
			s.mu.Lock()
			closing := s.closing
			s.mu.Unlock()
			if !closing {
				s.setErr(err)
			}
			return
		}
		if update.FromFinalize {
			s.finalizedOnce.Do(func() { close(s.finalized) })
		}

		s.mu.Lock()
		if update.IsFinal || update.FromFinalize {
			s.stats.RecvFinal++
			if update.Transcript != "" {
				s.committed = joinText(s.committed, update.Transcript)
			}
			s.interim = ""
		} else {
			s.stats.RecvInterim++
			s.interim = update.Transcript
		}
		full := joinText(s.committed, s.interim)
		s.mu.Unlock()

		if full == "" {
			continue
		}
		select {
		case s.updates <- full:
		default:
		}
	}
}

func joinText(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}
	return a + " " + b
}

func (s *streamSession) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

func (s *streamSession) formatMetrics(stats streamStats) []string {
	return []string{
		fmt.Sprintf("audio:      %.1fs | %.1f KB PCM sent", encoder.Duration(stats.SentBytes), float64(stats.SentBytes)/1024),
		fmt.Sprintf("stream:     deepgram | PCM16 %dHz mono | %dms chunks", encoder.SampleRate, streamChunkMs),
		fmt.Sprintf("connect:    %dms", stats.ConnectDur.Milliseconds()),
		fmt.Sprintf("recv:       %d final, %d interim", stats.RecvFinal, stats.RecvInterim),
		fmt.Sprintf("finalize:   %dms", stats.FinalizeWait.Milliseconds()),
		fmt.Sprintf("total:      %dms", time.Since(s.startedAt).Milliseconds()),
	}
}
