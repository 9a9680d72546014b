package timer

import (
	"errors"
	"fmt"
)

var ErrOutOfRange = errors.New("setting out of range")

// Field names one editable timer setting.
type Field string

const (
	FieldFocus      Field = "focus"
	FieldShortBreak Field = "short_break"
	FieldLongBreak  Field = "long_break"
	FieldCycles     Field = "cycles"
)

// Settings holds durations in minutes and the number of focus cycles
// before a long break.
type Settings struct {
	Focus      int
	ShortBreak int
	LongBreak  int
	Cycles     int
}

type bounds struct{ min, max int }

var limits = map[Field]bounds{
	FieldFocus:      {5, 60},
	FieldShortBreak: {1, 15},
	FieldLongBreak:  {5, 30},
	FieldCycles:     {1, 10},
}

func DefaultSettings() Settings {
	return Settings{Focus: 25, ShortBreak: 5, LongBreak: 15, Cycles: 4}
}

// Limits reports the inclusive bounds for a field.
func Limits(f Field) (min, max int, ok bool) {
	b, ok := limits[f]
	return b.min, b.max, ok
}

func (s Settings) Get(f Field) int {
	switch f {
	case FieldFocus:
		return s.Focus
	case FieldShortBreak:
		return s.ShortBreak
	case FieldLongBreak:
		return s.LongBreak
	case FieldCycles:
		return s.Cycles
	}
	return 0
}

// With returns a copy of s with one field replaced. The value must lie within
// the field's bounds.
func (s Settings) With(f Field, value int) (Settings, error) {
	b, ok := limits[f]
	if !ok {
		return s, fmt.Errorf("unknown setting %q", f)
	}
	if value < b.min || value > b.max {
		return s, fmt.Errorf("%s=%d (want %d-%d): %w", f, value, b.min, b.max, ErrOutOfRange)
	}
	switch f {
	case FieldFocus:
		s.Focus = value
	case FieldShortBreak:
		s.ShortBreak = value
	case FieldLongBreak:
		s.LongBreak = value
	case FieldCycles:
		s.Cycles = value
	}
	return s, nil
}

func (s Settings) Validate() error {
	for _, f := range []Field{FieldFocus, FieldShortBreak, FieldLongBreak, FieldCycles} {
		if _, err := s.With(f, s.Get(f)); err != nil {
			return err
		}
	}
	return nil
}

// Seconds returns the full countdown length for a mode.
func (s Settings) Seconds(m Mode) int {
	switch m {
	case ModeShortBreak:
		return s.ShortBreak * 60
	case ModeLongBreak:
		return s.LongBreak * 60
	default:
		return s.Focus * 60
	}
}
