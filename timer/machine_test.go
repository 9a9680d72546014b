package timer

import (
	"errors"
	"testing"
)

func runToZero(t *testing.T, m *Machine) Transition {
	t.Helper()
	if !m.State().Active {
		m.Toggle()
	}
	for i := 0; i < 60*60+1; i++ {
		if tr, ok := m.Tick(); ok {
			return tr
		}
	}
	t.Fatal("countdown never reached zero")
	return Transition{}
}

func TestAutomaticTransitions(t *testing.T) {
	settings := []Settings{
		DefaultSettings(),
		{Focus: 5, ShortBreak: 1, LongBreak: 5, Cycles: 1},
		{Focus: 60, ShortBreak: 15, LongBreak: 30, Cycles: 10},
		{Focus: 10, ShortBreak: 3, LongBreak: 20, Cycles: 2},
	}
	for _, s := range settings {
		m := NewMachine(s)
		// Walk two full cycles and check every hop against the table.
		for step := 0; step < 4*s.Cycles+2; step++ {
			before := m.State()
			tr := runToZero(t, m)
			after := m.State()

			var want Mode
			switch before.Mode {
			case ModeFocus:
				if before.Cycle < s.Cycles {
					want = ModeShortBreak
				} else {
					want = ModeLongBreak
				}
			default:
				want = ModeFocus
			}
			if tr.From != before.Mode || tr.To != want || after.Mode != want {
				t.Fatalf("%+v: %s -> %s, want %s", s, before.Mode, after.Mode, want)
			}
			if after.TimeLeft != s.Seconds(want) {
				t.Fatalf("%+v: time left %d after entering %s, want %d", s, after.TimeLeft, want, s.Seconds(want))
			}
			if after.Active {
				t.Fatalf("%+v: countdown still active after transition", s)
			}
		}
	}
}

func TestCycleCounter(t *testing.T) {
	for cycles := 1; cycles <= 10; cycles++ {
		m := NewMachine(Settings{Focus: 5, ShortBreak: 1, LongBreak: 5, Cycles: cycles})
		longBreaks := 0
		for longBreaks < 2 {
			if c := m.State().Cycle; c > cycles || c < 1 {
				t.Fatalf("cycles=%d: cycle %d out of range", cycles, c)
			}
			tr := runToZero(t, m)
			if tr.To == ModeLongBreak {
				longBreaks++
				if m.State().Cycle != 1 {
					t.Fatalf("cycles=%d: cycle %d after long break, want 1", cycles, m.State().Cycle)
				}
			}
		}
	}
}

func TestProgress(t *testing.T) {
	m := NewMachine(Settings{Focus: 5, ShortBreak: 1, LongBreak: 5, Cycles: 4})
	if p := m.Progress(); p != 0 {
		t.Fatalf("progress at start = %v, want 0", p)
	}
	m.Toggle()
	last := 0.0
	for i := 0; i < 5*60-1; i++ {
		m.Tick()
		p := m.Progress()
		if p < last {
			t.Fatalf("progress went from %v to %v", last, p)
		}
		last = p
	}
	if m.State().TimeLeft != 1 {
		t.Fatalf("time left = %d, want 1", m.State().TimeLeft)
	}
	// A settings change mid-countdown must not push progress out of range.
	if err := m.UpdateSetting(FieldFocus, 60); err != nil {
		t.Fatal(err)
	}
	if p := m.Progress(); p < last || p > 100 {
		t.Fatalf("progress after settings change = %v", p)
	}
	if got := progress(300, 0); got != 100 {
		t.Fatalf("progress at zero = %v, want 100", got)
	}
}

func TestReset(t *testing.T) {
	cases := []struct {
		name  string
		setup func(m *Machine)
	}{
		{"fresh", func(m *Machine) {}},
		{"running", func(m *Machine) { m.Toggle(); m.Tick(); m.Tick() }},
		{"paused", func(m *Machine) { m.Toggle(); m.Tick(); m.Toggle() }},
		{"short break", func(m *Machine) { m.SetMode(ModeShortBreak); m.Toggle(); m.Tick() }},
		{"after settings change", func(m *Machine) { m.Toggle(); m.Tick(); m.UpdateSetting(FieldFocus, 40) }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := NewMachine(DefaultSettings())
			tc.setup(m)
			m.Reset()
			st := m.State()
			if st.Active {
				t.Error("still active after reset")
			}
			if want := m.Settings().Seconds(st.Mode); st.TimeLeft != want || st.Total != want {
				t.Errorf("time left %d total %d, want %d", st.TimeLeft, st.Total, want)
			}
		})
	}
}

func TestSetModeWhileActive(t *testing.T) {
	m := NewMachine(DefaultSettings())
	m.Toggle()
	if err := m.SetMode(ModeLongBreak); !errors.Is(err, ErrActive) {
		t.Fatalf("err = %v, want ErrActive", err)
	}
	m.Toggle()
	if err := m.SetMode(ModeLongBreak); err != nil {
		t.Fatal(err)
	}
	if st := m.State(); st.TimeLeft != 15*60 {
		t.Fatalf("time left = %d", st.TimeLeft)
	}
}

func TestUpdateSettingBounds(t *testing.T) {
	cases := []struct {
		field Field
		value int
		ok    bool
	}{
		{FieldFocus, 5, true},
		{FieldFocus, 60, true},
		{FieldFocus, 4, false},
		{FieldFocus, 61, false},
		{FieldShortBreak, 1, true},
		{FieldShortBreak, 0, false},
		{FieldShortBreak, 16, false},
		{FieldLongBreak, 30, true},
		{FieldLongBreak, 31, false},
		{FieldCycles, 1, true},
		{FieldCycles, 10, true},
		{FieldCycles, 11, false},
	}
	for _, tc := range cases {
		m := NewMachine(DefaultSettings())
		err := m.UpdateSetting(tc.field, tc.value)
		if tc.ok && err != nil {
			t.Errorf("%s=%d: %v", tc.field, tc.value, err)
		}
		if !tc.ok && !errors.Is(err, ErrOutOfRange) {
			t.Errorf("%s=%d: err = %v, want ErrOutOfRange", tc.field, tc.value, err)
		}
	}
}

func TestUpdateSettingKeepsCountdown(t *testing.T) {
	m := NewMachine(DefaultSettings())
	m.Toggle()
	m.Tick()
	if err := m.UpdateSetting(FieldFocus, 10); err != nil {
		t.Fatal(err)
	}
	if st := m.State(); st.TimeLeft != 25*60-1 {
		t.Fatalf("time left = %d, want %d", st.TimeLeft, 25*60-1)
	}
	m.Reset()
	if st := m.State(); st.TimeLeft != 10*60 {
		t.Fatalf("time left after reset = %d, want %d", st.TimeLeft, 10*60)
	}
}

func TestFormatClock(t *testing.T) {
	for in, want := range map[int]string{0: "00:00", 59: "00:59", 1500: "25:00", 3599: "59:59", -3: "00:00"} {
		if got := FormatClock(in); got != want {
			t.Errorf("FormatClock(%d) = %q, want %q", in, got, want)
		}
	}
}
