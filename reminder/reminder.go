// Package reminder keeps the user's personal reminders and works out when
// each one comes due next.
package reminder

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"

	DefaultCategory = "General"

	// EmptyMessage is shown in place of an empty list.
	EmptyMessage = "No reminders set. Create your first reminder to get started!"
)

var (
	ErrMissingFields = errors.New("please fill in all required fields (title, date and time)")
	ErrNotFound      = errors.New("reminder not found")
)

type Repeat string

const (
	Never   Repeat = "Never"
	Daily   Repeat = "Daily"
	Weekly  Repeat = "Weekly"
	Monthly Repeat = "Monthly"
)

type Priority string

const (
	Low    Priority = "Low"
	Medium Priority = "Medium"
	High   Priority = "High"
)

// ParseRepeat is case-insensitive. An empty string means Never.
func ParseRepeat(s string) (Repeat, error) {
	if strings.TrimSpace(s) == "" {
		return Never, nil
	}
	for _, r := range []Repeat{Never, Daily, Weekly, Monthly} {
		if strings.EqualFold(s, string(r)) {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown repeat %q (use never, daily, weekly or monthly)", s)
}

// ParsePriority is case-insensitive. An empty string means Low.
func ParsePriority(s string) (Priority, error) {
	if strings.TrimSpace(s) == "" {
		return Low, nil
	}
	for _, p := range []Priority{Low, Medium, High} {
		if strings.EqualFold(s, string(p)) {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown priority %q (use low, medium or high)", s)
}

type Reminder struct {
	ID          int64    `yaml:"id"`
	Title       string   `yaml:"title"`
	Description string   `yaml:"description,omitempty"`
	Date        string   `yaml:"date"` // YYYY-MM-DD
	Time        string   `yaml:"time"` // HH:MM, 24h
	Category    string   `yaml:"category"`
	Repeat      Repeat   `yaml:"repeat"`
	Priority    Priority `yaml:"priority"`
}

// normalize checks the required fields and fills in defaults.
func (r Reminder) normalize() (Reminder, error) {
	r.Title = strings.TrimSpace(r.Title)
	r.Description = strings.TrimSpace(r.Description)
	r.Date = strings.TrimSpace(r.Date)
	r.Time = strings.TrimSpace(r.Time)
	if r.Title == "" || r.Date == "" || r.Time == "" {
		return r, ErrMissingFields
	}
	if _, err := time.Parse(DateLayout, r.Date); err != nil {
		return r, fmt.Errorf("date %q: want YYYY-MM-DD", r.Date)
	}
	if _, err := time.Parse(TimeLayout, r.Time); err != nil {
		return r, fmt.Errorf("time %q: want HH:MM", r.Time)
	}
	if r.Category = strings.TrimSpace(r.Category); r.Category == "" {
		r.Category = DefaultCategory
	}
	var err error
	if r.Repeat, err = ParseRepeat(string(r.Repeat)); err != nil {
		return r, err
	}
	if r.Priority, err = ParsePriority(string(r.Priority)); err != nil {
		return r, err
	}
	return r, nil
}

// At is the first occurrence in loc.
func (r Reminder) At(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout+" "+TimeLayout, r.Date+" "+r.Time, loc)
}

// Next returns the first occurrence strictly after t. A one-off reminder
// whose time has passed has none.
func (r Reminder) Next(t time.Time) (time.Time, bool) {
	at, err := r.At(t.Location())
	if err != nil {
		return time.Time{}, false
	}
	if at.After(t) {
		return at, true
	}

	switch r.Repeat {
	case Daily, Weekly:
		days := 1
		if r.Repeat == Weekly {
			days = 7
		}
		// Jump close, then step; AddDate keeps the wall clock across DST.
		n := int(t.Sub(at).Hours()/24) / days
		for {
			next := at.AddDate(0, 0, n*days)
			if next.After(t) {
				return next, true
			}
			n++
		}
	case Monthly:
		n := max((t.Year()-at.Year())*12+int(t.Month()-at.Month())-1, 0)
		for {
			next := at.AddDate(0, n, 0)
			if next.After(t) {
				return next, true
			}
			n++
		}
	}
	return time.Time{}, false
}
