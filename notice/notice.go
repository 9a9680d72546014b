package notice

import "sync"

type Level int

const (
	Info Level = iota
	Error
)

// Notice is a transient user-visible message scoped to the action that raised it.
type Notice struct {
	Title       string
	Description string
	Level       Level
}

type Sink interface {
	Notify(n Notice)
}

type SinkFunc func(n Notice)

func (f SinkFunc) Notify(n Notice) { f(n) }

// Discard drops every notice.
var Discard Sink = SinkFunc(func(Notice) {})

// Recorder keeps notices in arrival order. Safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *Recorder) Notify(n Notice) {
	r.mu.Lock()
	r.notices = append(r.notices, n)
	r.mu.Unlock()
}

func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notice(nil), r.notices...)
}

func (r *Recorder) Count(level Level) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, x := range r.notices {
		if x.Level == level {
			n++
		}
	}
	return n
}
