package timer

import (
	"sync"
	"time"

	"github.com/devansharma-72/sensory-support-hub/log"
	"github.com/devansharma-72/sensory-support-hub/notice"
)

type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

type realClock struct{}

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

func (realClock) Now() time.Time { return time.Now() }
func (realClock) NewTicker(d time.Duration) Ticker {
	return realTicker{t: time.NewTicker(d)}
}

// SystemClock ticks with time.Ticker.
var SystemClock Clock = realClock{}

// Chime plays the transition sound.
type Chime interface {
	Play()
}

type EventType int

const (
	EventTick EventType = iota
	EventModeChange
	EventStateChange
)

type Event struct {
	Type       EventType
	State      State
	Transition Transition // set for EventModeChange
	At         time.Time
}

type Options struct {
	Clock Clock
	Sink  notice.Sink
	Chime Chime
	Sound bool
}

// Timer drives a Machine with a one-second tick. The tick goroutine only
// exists while the countdown is active.
type Timer struct {
	mu      sync.Mutex
	machine *Machine
	clock   Clock
	sink    notice.Sink
	chime   Chime
	sound   bool
	events  []chan Event
	run     *run
	wg      sync.WaitGroup
	closed  bool
}

type run struct {
	ticker Ticker
	stop   chan struct{}
}

func New(settings Settings, opts Options) *Timer {
	if opts.Clock == nil {
		opts.Clock = SystemClock
	}
	if opts.Sink == nil {
		opts.Sink = notice.Discard
	}
	return &Timer{
		machine: NewMachine(settings),
		clock:   opts.Clock,
		sink:    opts.Sink,
		chime:   opts.Chime,
		sound:   opts.Sound,
	}
}

// Subscribe registers an observer. Slow observers miss events rather than
// stalling the tick. Channels are closed by Close.
func (t *Timer) Subscribe(buffer int) <-chan Event {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Event, buffer)
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		close(ch)
		return ch
	}
	t.events = append(t.events, ch)
	return ch
}

func (t *Timer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.machine.State()
}

func (t *Timer) Settings() Settings {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.machine.Settings()
}

func (t *Timer) Progress() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.machine.Progress()
}

func (t *Timer) Sound() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sound
}

func (t *Timer) SetSound(enabled bool) {
	t.mu.Lock()
	t.sound = enabled
	t.mu.Unlock()
}

func (t *Timer) SetMode(mode Mode) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.machine.SetMode(mode); err != nil {
		return err
	}
	t.emitLocked(EventStateChange, Transition{})
	return nil
}

// Toggle starts or pauses the countdown and reports whether it is now active.
func (t *Timer) Toggle() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return false
	}
	active := t.machine.Toggle()
	if active {
		t.startLocked()
	} else {
		t.releaseLocked()
	}
	t.emitLocked(EventStateChange, Transition{})
	return active
}

func (t *Timer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.releaseLocked()
	t.machine.Reset()
	t.emitLocked(EventStateChange, Transition{})
}

func (t *Timer) UpdateSetting(f Field, value int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.machine.UpdateSetting(f, value); err != nil {
		return err
	}
	t.emitLocked(EventStateChange, Transition{})
	return nil
}

// Close stops the countdown, closes observer channels and waits for the tick
// goroutine. Safe to call more than once.
func (t *Timer) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	t.releaseLocked()
	events := t.events
	t.events = nil
	t.mu.Unlock()

	t.wg.Wait()
	for _, ch := range events {
		close(ch)
	}
}

func (t *Timer) startLocked() {
	if t.run != nil {
		return
	}
	r := &run{ticker: t.clock.NewTicker(time.Second), stop: make(chan struct{})}
	t.run = r
	t.wg.Add(1)
	go t.loop(r)
}

func (t *Timer) releaseLocked() {
	if t.run == nil {
		return
	}
	close(t.run.stop)
	t.run = nil
}

func (t *Timer) loop(r *run) {
	defer t.wg.Done()
	defer r.ticker.Stop()
	for {
		select {
		case <-r.stop:
			return
		case <-r.ticker.C():
			if !t.tick(r) {
				return
			}
		}
	}
}

// tick reports whether the loop should keep running.
func (t *Timer) tick(r *run) bool {
	t.mu.Lock()
	if t.run != r {
		t.mu.Unlock()
		return false
	}
	tr, changed := t.machine.Tick()
	if !changed {
		t.emitLocked(EventTick, Transition{})
		t.mu.Unlock()
		return true
	}
	t.run = nil
	t.emitLocked(EventModeChange, tr)
	sound := t.sound
	t.mu.Unlock()

	log.TimerTransition(string(tr.From), string(tr.To), tr.Cycle)
	if sound && t.chime != nil {
		t.chime.Play()
	}
	t.sink.Notify(transitionNotice(tr.To))
	return false
}

func (t *Timer) emitLocked(typ EventType, tr Transition) {
	ev := Event{Type: typ, State: t.machine.State(), Transition: tr, At: t.clock.Now()}
	for _, ch := range t.events {
		select {
		case ch <- ev:
		default:
		}
	}
}

func transitionNotice(to Mode) notice.Notice {
	switch to {
	case ModeShortBreak:
		return notice.Notice{Title: "Break time!", Description: "Take a short break. You've earned it!"}
	case ModeLongBreak:
		return notice.Notice{Title: "Long break time!", Description: "Completed a full Pomodoro cycle. Take a longer break!"}
	default:
		return notice.Notice{Title: "Focus time!", Description: "Time to get back to work!"}
	}
}
