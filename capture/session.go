// Package capture runs one practice recording: microphone in, live
// transcript alongside, then save or submit for analysis.
package capture

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/devansharma-72/sensory-support-hub/analysis"
	"github.com/devansharma-72/sensory-support-hub/encoder"
	"github.com/devansharma-72/sensory-support-hub/log"
	"github.com/devansharma-72/sensory-support-hub/notice"
	"github.com/devansharma-72/sensory-support-hub/scenario"
	"github.com/devansharma-72/sensory-support-hub/speech"
)

var (
	ErrPermission       = errors.New("capture device unavailable")
	ErrNothingToSave    = errors.New("no recording to save")
	ErrNothingToAnalyze = errors.New("no recording to analyze")
	ErrNoTranscript     = errors.New("no transcript to analyze")
	ErrNoScenario       = errors.New("no scenario selected")
	ErrStale            = errors.New("result discarded after session change")
	ErrClosed           = errors.New("session closed")
)

type State int

const (
	Idle State = iota
	Recording
	Stopped
	Analyzing
	Analyzed
)

func (s State) String() string {
	switch s {
	case Recording:
		return "recording"
	case Stopped:
		return "stopped"
	case Analyzing:
		return "analyzing"
	case Analyzed:
		return "analyzed"
	default:
		return "idle"
	}
}

// Finished is a finalized, playable recording.
type Finished struct {
	Media    analysis.Media
	Duration float64
	Chunks   int
}

type Options struct {
	Source     Source
	Recognizer speech.Recognizer
	Analyzer   analysis.Analyzer
	Downloader Downloader
	Sink       notice.Sink
	Language   string
	// OnChange is called after any visible change, outside the session lock.
	OnChange func()
	Now      func() time.Time
}

type Snapshot struct {
	Scenario   *scenario.Scenario
	State      State
	Transcript string
	Chunks     int
	Recorded   *Finished
	Result     *analysis.Result
	Elapsed    time.Duration
}

type Session struct {
	opts Options

	// opMu serializes lifecycle operations; mu guards the fields below and is
	// also taken by device callbacks and transcript updates.
	opMu sync.Mutex

	mu                  sync.Mutex
	scenario            *scenario.Scenario
	state               State
	chunks              [][]byte
	pcmBytes            int
	transcript          string
	recorded            *Finished
	result              *analysis.Result
	track               Track
	speech              speech.Session
	updatesDone         chan struct{}
	startedAt           time.Time
	generation          uint64
	unsupportedNotified bool
	closed              bool
}

func NewSession(opts Options) *Session {
	if opts.Sink == nil {
		opts.Sink = notice.Discard
	}
	if opts.Recognizer == nil {
		opts.Recognizer = speech.Unsupported{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Session{opts: opts}
}

func (s *Session) changed() {
	if s.opts.OnChange != nil {
		s.opts.OnChange()
	}
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		Scenario:   s.scenario,
		State:      s.state,
		Transcript: s.transcript,
		Chunks:     len(s.chunks),
		Recorded:   s.recorded,
		Result:     s.result,
	}
	if s.state == Recording {
		snap.Elapsed = s.opts.Now().Sub(s.startedAt)
	}
	return snap
}

// SelectScenario stops any running recording, then clears the buffer,
// transcript and analysis.
func (s *Session) SelectScenario(sc scenario.Scenario) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.stopLocked()

	s.mu.Lock()
	s.generation++
	s.scenario = &sc
	s.resetLocked()
	s.state = Idle
	s.mu.Unlock()
	s.changed()
}

func (s *Session) resetLocked() {
	s.chunks = nil
	s.pcmBytes = 0
	s.transcript = ""
	s.recorded = nil
	s.result = nil
}

func (s *Session) StartRecording(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	switch {
	case s.closed:
		s.mu.Unlock()
		return ErrClosed
	case s.scenario == nil:
		s.mu.Unlock()
		return ErrNoScenario
	case s.state == Recording:
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	track, err := s.acquire(ctx)
	if err != nil {
		s.permissionDenied(err)
		return fmt.Errorf("%w: %v", ErrPermission, err)
	}

	s.mu.Lock()
	prev := saved{s.chunks, s.pcmBytes, s.transcript, s.recorded, s.result, s.state}
	s.generation++
	s.resetLocked()
	s.track = track
	s.state = Recording
	s.startedAt = s.opts.Now()
	s.mu.Unlock()

	if err := track.Start(); err != nil {
		s.mu.Lock()
		s.track = nil
		s.chunks, s.pcmBytes, s.transcript, s.recorded, s.result, s.state =
			prev.chunks, prev.pcmBytes, prev.transcript, prev.recorded, prev.result, prev.state
		if s.state == Analyzing {
			// the in-flight result was invalidated above
			s.state = Stopped
		}
		s.mu.Unlock()
		track.ClearCallback()
		track.Close()
		s.permissionDenied(err)
		return fmt.Errorf("%w: %v", ErrPermission, err)
	}

	if sess := s.openSpeech(ctx); sess != nil {
		done := make(chan struct{})
		s.mu.Lock()
		s.speech = sess
		s.updatesDone = done
		s.mu.Unlock()
		go s.followTranscript(sess, done)
	}

	s.opts.Sink.Notify(notice.Notice{Title: "Recording started"})
	s.changed()
	return nil
}

type saved struct {
	chunks     [][]byte
	pcmBytes   int
	transcript string
	recorded   *Finished
	result     *analysis.Result
	state      State
}

func (s *Session) permissionDenied(err error) {
	log.Warnf("capture device: %v", err)
	s.opts.Sink.Notify(notice.Notice{
		Title:       "Permission Error",
		Description: "Please allow microphone access to use this feature.",
		Level:       notice.Error,
	})
}

func (s *Session) acquire(ctx context.Context) (Track, error) {
	if s.opts.Source == nil {
		return nil, errors.New("no capture source")
	}
	track, err := s.opts.Source.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	track.SetCallback(func(data []byte, _ uint32) { s.onAudio(track, data) })
	return track, nil
}

func (s *Session) openSpeech(ctx context.Context) speech.Session {
	rec := s.opts.Recognizer
	var err error
	var sess speech.Session
	if rec.Supported() {
		sess, err = rec.NewSession(ctx, speech.SessionConfig{Language: s.opts.Language, SampleRate: encoder.SampleRate})
		if err == nil {
			return sess
		}
	} else {
		err = speech.ErrUnsupported
	}

	s.mu.Lock()
	first := !s.unsupportedNotified
	s.unsupportedNotified = true
	s.mu.Unlock()
	if first {
		desc := "Recording continues without a live transcript."
		if !errors.Is(err, speech.ErrUnsupported) {
			log.Warnf("speech session (%s): %v", rec.Name(), err)
			desc = "Speech recognition could not start. " + desc
		}
		s.opts.Sink.Notify(notice.Notice{Title: "Speech recognition unsupported", Description: desc})
	}
	return nil
}

func (s *Session) onAudio(track Track, data []byte) {
	chunk := append([]byte(nil), data...)
	s.mu.Lock()
	if s.track != track || s.state != Recording {
		s.mu.Unlock()
		return
	}
	s.chunks = append(s.chunks, chunk)
	s.pcmBytes += len(chunk)
	sess := s.speech
	s.mu.Unlock()
	if sess != nil {
		sess.Feed(chunk)
	}
}

func (s *Session) followTranscript(sess speech.Session, done chan struct{}) {
	defer close(done)
	for text := range sess.Updates() {
		s.mu.Lock()
		if s.speech == sess {
			s.transcript = text
		}
		s.mu.Unlock()
		s.changed()
	}
}

// StopRecording is a no-op unless recording.
func (s *Session) StopRecording() error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	if !s.stopLocked() {
		return nil
	}
	s.changed()
	return nil
}

// stopLocked requires opMu. It reports whether a recording was stopped.
func (s *Session) stopLocked() bool {
	s.mu.Lock()
	if s.state != Recording {
		s.mu.Unlock()
		return false
	}
	track, sess, done := s.track, s.speech, s.updatesDone
	s.track, s.updatesDone = nil, nil
	s.state = Stopped
	elapsed := s.opts.Now().Sub(s.startedAt)
	s.mu.Unlock()

	track.ClearCallback()
	track.Stop()
	track.Close()

	if sess != nil {
		res, err := sess.Close()
		<-done
		if err != nil {
			log.Warnf("speech session close: %v", err)
		}
		s.mu.Lock()
		s.speech = nil
		if err == nil && res.Text != "" {
			s.transcript = res.Text
		}
		s.mu.Unlock()
	}

	s.mu.Lock()
	chunks := s.chunks
	raw := s.pcmBytes
	text := s.transcript
	var name string
	if s.scenario != nil {
		name = s.scenario.ID
	}
	s.mu.Unlock()

	var recorded *Finished
	var encodedKB float64
	if raw > 0 {
		data, err := encoder.EncodePCM(chunks...)
		if err != nil {
			log.Errorf("finalize recording: %v", err)
		} else {
			recorded = &Finished{
				Media:    analysis.Media{Name: "recording.flac", ContentType: "audio/flac", Data: data},
				Duration: encoder.Duration(raw),
				Chunks:   len(chunks),
			}
			encodedKB = float64(len(data)) / 1024
		}
	}

	s.mu.Lock()
	s.recorded = recorded
	s.mu.Unlock()

	log.Recording(log.RecordingMetrics{
		Scenario:   name,
		DurationS:  elapsed.Seconds(),
		Chunks:     len(chunks),
		RawKB:      float64(raw) / 1024,
		EncodedKB:  encodedKB,
		Recognizer: s.opts.Recognizer.Name(),
		HasText:    text != "",
	})
	if text != "" {
		log.PracticeText(name, text)
	}
	s.opts.Sink.Notify(notice.Notice{Title: "Recording stopped"})
	return true
}

// SaveRecording hands the finalized recording to the downloader once and
// returns where it was stored.
func (s *Session) SaveRecording() (string, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	rec := s.recorded
	s.mu.Unlock()
	if rec == nil || len(rec.Media.Data) == 0 {
		s.opts.Sink.Notify(notice.Notice{
			Title:       "No recording to save",
			Description: "Please record a response first.",
			Level:       notice.Error,
		})
		return "", ErrNothingToSave
	}
	if s.opts.Downloader == nil {
		return "", errors.New("no downloader configured")
	}

	name := fmt.Sprintf("scenario-talk-%d.flac", s.opts.Now().UnixMilli())
	path, err := s.opts.Downloader.Download(name, rec.Media.Data)
	if err != nil {
		s.opts.Sink.Notify(notice.Notice{Title: "Save failed", Description: err.Error(), Level: notice.Error})
		return "", err
	}
	s.opts.Sink.Notify(notice.Notice{Title: "Recording saved", Description: path})
	return path, nil
}

// AnalyzeRecording submits the recording and transcript. A failure returns
// the session to Stopped so the user can try again.
func (s *Session) AnalyzeRecording(ctx context.Context) (analysis.Result, error) {
	s.opMu.Lock()
	s.mu.Lock()
	rec, transcript, gen := s.recorded, strings.TrimSpace(s.transcript), s.generation
	var name string
	if s.scenario != nil {
		name = s.scenario.ID
	}
	s.mu.Unlock()

	switch {
	case rec == nil:
		s.opMu.Unlock()
		s.opts.Sink.Notify(notice.Notice{
			Title:       "No recording to analyze",
			Description: "Please record a response first.",
			Level:       notice.Error,
		})
		return analysis.Result{}, ErrNothingToAnalyze
	case transcript == "":
		s.opMu.Unlock()
		s.opts.Sink.Notify(notice.Notice{
			Title:       "No transcript",
			Description: "Speak during the recording so there is something to analyze.",
			Level:       notice.Error,
		})
		return analysis.Result{}, ErrNoTranscript
	case s.opts.Analyzer == nil:
		s.opMu.Unlock()
		return analysis.Result{}, errors.New("no analyzer configured")
	}

	s.mu.Lock()
	s.state = Analyzing
	s.result = nil
	s.mu.Unlock()
	s.opMu.Unlock()
	s.changed()

	start := time.Now()
	res, err := s.opts.Analyzer.Analyze(ctx, rec.Media, transcript)
	log.AnalysisDone(name, res.EyeContact, time.Since(start), err)

	s.mu.Lock()
	if s.generation != gen || s.closed {
		s.mu.Unlock()
		return analysis.Result{}, ErrStale
	}
	if err != nil {
		s.state = Stopped
		s.result = nil
		s.mu.Unlock()
		s.opts.Sink.Notify(notice.Notice{
			Title:       "Analysis failed",
			Description: "The analysis service could not process the recording. Try again.",
			Level:       notice.Error,
		})
		s.changed()
		return analysis.Result{}, err
	}
	stored := res
	s.result = &stored
	s.state = Analyzed
	s.mu.Unlock()

	s.opts.Sink.Notify(notice.Notice{Title: "Analysis complete"})
	s.changed()
	return res, nil
}

// Close stops any recording and discards analyses still in flight. Safe to
// call more than once.
func (s *Session) Close() {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	s.stopLocked()

	s.mu.Lock()
	s.closed = true
	s.generation++
	s.mu.Unlock()
}
