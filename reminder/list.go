package reminder

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/devansharma-72/sensory-support-hub/log"
	"github.com/devansharma-72/sensory-support-hub/notice"
	"github.com/devansharma-72/sensory-support-hub/settings"
	"github.com/devansharma-72/sensory-support-hub/timer"
	"gopkg.in/yaml.v3"
)

// List holds reminders in the order they were added and writes every change
// through to its settings store under settings.KeyReminders.
type List struct {
	mu    sync.Mutex
	store settings.Store
	items []Reminder
	now   func() time.Time
}

// Load reads the saved reminders from store.
func Load(store settings.Store) (*List, error) {
	l := &List{store: store, now: time.Now}
	raw, ok, err := store.Get(settings.KeyReminders)
	if err != nil {
		return nil, err
	}
	if ok && raw != "" {
		if err := yaml.Unmarshal([]byte(raw), &l.items); err != nil {
			return nil, fmt.Errorf("parse reminders: %w", err)
		}
	}
	return l, nil
}

// Add validates r, fills in defaults and appends it. Title, date and time are
// required.
func (l *List) Add(r Reminder) (Reminder, error) {
	r, err := r.normalize()
	if err != nil {
		return Reminder{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	r.ID = l.now().UnixMilli()
	for _, x := range l.items {
		if x.ID >= r.ID {
			r.ID = x.ID + 1
		}
	}
	items := append(slices.Clone(l.items), r)
	if err := l.saveLocked(items); err != nil {
		return Reminder{}, err
	}
	return r, nil
}

func (l *List) Remove(id int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := slices.IndexFunc(l.items, func(r Reminder) bool { return r.ID == id })
	if i < 0 {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return l.saveLocked(slices.Delete(slices.Clone(l.items), i, i+1))
}

func (l *List) All() []Reminder {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.items)
}

func (l *List) saveLocked(items []Reminder) error {
	raw, err := yaml.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode reminders: %w", err)
	}
	if err := l.store.Set(settings.KeyReminders, string(raw)); err != nil {
		return fmt.Errorf("save reminders: %w", err)
	}
	l.items = items
	return nil
}

// Occurrence is one upcoming firing of a reminder.
type Occurrence struct {
	Reminder
	When time.Time
}

// Upcoming lists the next occurrence of every reminder after t, soonest
// first. Past one-off reminders are left out.
func (l *List) Upcoming(t time.Time) []Occurrence {
	var out []Occurrence
	for _, r := range l.All() {
		if when, ok := r.Next(t); ok {
			out = append(out, Occurrence{Reminder: r, When: when})
		}
	}
	slices.SortStableFunc(out, func(a, b Occurrence) int { return a.When.Compare(b.When) })
	return out
}

// Due lists occurrences in (from, to], soonest first.
func (l *List) Due(from, to time.Time) []Occurrence {
	var out []Occurrence
	for _, o := range l.Upcoming(from) {
		if o.When.After(to) {
			break
		}
		out = append(out, o)
	}
	return out
}

type WatchOptions struct {
	Clock timer.Clock
	Tick  time.Duration
	Sink  notice.Sink
	Chime timer.Chime
}

// Watch raises a notice for every reminder that comes due until ctx is done.
func (l *List) Watch(ctx context.Context, opts WatchOptions) error {
	if opts.Clock == nil {
		opts.Clock = timer.SystemClock
	}
	if opts.Tick <= 0 {
		opts.Tick = time.Second
	}
	if opts.Sink == nil {
		opts.Sink = notice.Discard
	}

	last := opts.Clock.Now()
	ticker := opts.Clock.NewTicker(opts.Tick)
	defer ticker.Stop()
	for {
		var now time.Time
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now = <-ticker.C():
		}
		for _, o := range l.Due(last, now) {
			log.Infof("reminder due: %s (%d)", o.Title, o.ID)
			if opts.Chime != nil {
				opts.Chime.Play()
			}
			opts.Sink.Notify(dueNotice(o))
		}
		last = now
	}
}

func dueNotice(o Occurrence) notice.Notice {
	desc := fmt.Sprintf("%s · %s priority", o.Category, o.Priority)
	if o.Description != "" {
		desc = o.Description + " (" + desc + ")"
	}
	return notice.Notice{Title: "Reminder: " + o.Title, Description: desc}
}
