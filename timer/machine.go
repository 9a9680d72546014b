package timer

import (
	"errors"
	"fmt"
)

var ErrActive = errors.New("timer is running")

type Mode string

const (
	ModeFocus      Mode = "focus"
	ModeShortBreak Mode = "short_break"
	ModeLongBreak  Mode = "long_break"
)

func (m Mode) Label() string {
	switch m {
	case ModeShortBreak:
		return "Short Break"
	case ModeLongBreak:
		return "Long Break"
	default:
		return "Focus"
	}
}

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeFocus, ModeShortBreak, ModeLongBreak:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

// State is a snapshot of the countdown.
type State struct {
	Mode     Mode
	TimeLeft int // seconds
	Total    int // seconds, captured at the last mode reset
	Active   bool
	Cycle    int
}

// Transition describes an automatic mode change at the end of a countdown.
type Transition struct {
	From  Mode
	To    Mode
	Cycle int
}

// Machine is the countdown arithmetic without any scheduling. Not safe for
// concurrent use; Timer serializes access.
type Machine struct {
	settings Settings
	state    State
}

func NewMachine(settings Settings) *Machine {
	m := &Machine{settings: settings}
	m.state.Cycle = 1
	m.load(ModeFocus)
	return m
}

func (m *Machine) State() State       { return m.state }
func (m *Machine) Settings() Settings { return m.settings }

func (m *Machine) load(mode Mode) {
	m.state.Mode = mode
	m.state.Total = m.settings.Seconds(mode)
	m.state.TimeLeft = m.state.Total
}

// SetMode switches mode manually. Only allowed while inactive.
func (m *Machine) SetMode(mode Mode) error {
	if m.state.Active {
		return ErrActive
	}
	m.load(mode)
	return nil
}

func (m *Machine) Toggle() bool {
	m.state.Active = !m.state.Active
	return m.state.Active
}

func (m *Machine) Reset() {
	m.state.Active = false
	m.load(m.state.Mode)
}

// UpdateSetting changes one setting. The running countdown keeps its length
// until the next mode reset.
func (m *Machine) UpdateSetting(f Field, value int) error {
	s, err := m.settings.With(f, value)
	if err != nil {
		return err
	}
	m.settings = s
	return nil
}

// Tick advances an active countdown by one second. When it reaches zero the
// machine moves to the next mode, halts, and reports the transition.
func (m *Machine) Tick() (Transition, bool) {
	if !m.state.Active {
		return Transition{}, false
	}
	if m.state.TimeLeft > 1 {
		m.state.TimeLeft--
		return Transition{}, false
	}
	m.state.TimeLeft = 0
	return m.advance(), true
}

func (m *Machine) advance() Transition {
	from := m.state.Mode
	var to Mode
	switch from {
	case ModeFocus:
		if m.state.Cycle < m.settings.Cycles {
			to = ModeShortBreak
		} else {
			to = ModeLongBreak
			m.state.Cycle = 1
		}
	case ModeShortBreak:
		to = ModeFocus
		m.state.Cycle++
	default:
		to = ModeFocus
	}
	m.state.Active = false
	m.load(to)
	return Transition{From: from, To: to, Cycle: m.state.Cycle}
}

// Progress is the elapsed share of the current countdown in percent.
func (m *Machine) Progress() float64 {
	return progress(m.state.Total, m.state.TimeLeft)
}

func progress(total, left int) float64 {
	if total <= 0 {
		return 100
	}
	p := float64(total-left) / float64(total) * 100
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// FormatClock renders seconds as MM:SS.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
