package reminder

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/devansharma-72/sensory-support-hub/notice"
	"github.com/devansharma-72/sensory-support-hub/settings"
	"github.com/devansharma-72/sensory-support-hub/timer"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"
)

func newTestList(t *testing.T, store settings.Store) *List {
	t.Helper()
	l, err := Load(store)
	if err != nil {
		t.Fatal(err)
	}
	l.now = func() time.Time { return time.UnixMilli(1772355600000) }
	return l
}

func TestAddValidation(t *testing.T) {
	base := Reminder{Title: "Take medication", Date: "2026-03-01", Time: "17:00"}
	with := func(f func(*Reminder)) Reminder {
		r := base
		f(&r)
		return r
	}

	tests := []struct {
		name    string
		in      Reminder
		wantErr string
		want    Reminder
	}{
		{"missing title", with(func(r *Reminder) { r.Title = "  " }), "required fields", Reminder{}},
		{"missing date", with(func(r *Reminder) { r.Date = "" }), "required fields", Reminder{}},
		{"missing time", with(func(r *Reminder) { r.Time = "" }), "required fields", Reminder{}},
		{"bad date", with(func(r *Reminder) { r.Date = "01/03/2026" }), "want YYYY-MM-DD", Reminder{}},
		{"bad time", with(func(r *Reminder) { r.Time = "5pm" }), "want HH:MM", Reminder{}},
		{"bad repeat", with(func(r *Reminder) { r.Repeat = "Hourly" }), "unknown repeat", Reminder{}},
		{"bad priority", with(func(r *Reminder) { r.Priority = "Urgent" }), "unknown priority", Reminder{}},
		{"defaults", base, "", Reminder{
			Title: "Take medication", Date: "2026-03-01", Time: "17:00",
			Category: DefaultCategory, Repeat: Never, Priority: Low,
		}},
		{"explicit values", with(func(r *Reminder) {
			r.Category = "Health"
			r.Repeat = "daily"
			r.Priority = "HIGH"
			r.Description = " with food "
		}), "", Reminder{
			Title: "Take medication", Description: "with food", Date: "2026-03-01", Time: "17:00",
			Category: "Health", Repeat: Daily, Priority: High,
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newTestList(t, settings.NewMemoryStore())
			got, err := l.Add(tt.in)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("err = %v, want %q", err, tt.wantErr)
				}
				if n := len(l.All()); n != 0 {
					t.Fatalf("invalid reminder stored (%d items)", n)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			tt.want.ID = got.ID
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("reminder mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMissingFieldsError(t *testing.T) {
	l := newTestList(t, settings.NewMemoryStore())
	if _, err := l.Add(Reminder{Title: "x"}); !errors.Is(err, ErrMissingFields) {
		t.Fatalf("err = %v", err)
	}
}

func TestAddAppendsAndPersists(t *testing.T) {
	store := settings.NewMemoryStore()
	l := newTestList(t, store)
	if got := l.All(); len(got) != 0 {
		t.Fatalf("new list has %d items", len(got))
	}

	a, err := l.Add(Reminder{Title: "Team meeting", Date: "2026-03-02", Time: "10:00", Category: "Work"})
	if err != nil {
		t.Fatal(err)
	}
	b, err := l.Add(Reminder{Title: "Therapy session", Date: "2026-03-01", Time: "15:00", Priority: "high"})
	if err != nil {
		t.Fatal(err)
	}
	if b.ID <= a.ID {
		t.Fatalf("ids not increasing: %d then %d", a.ID, b.ID)
	}

	reloaded, err := Load(store)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]Reminder{a, b}, reloaded.All()); diff != "" {
		t.Errorf("reloaded mismatch (-want +got):\n%s", diff)
	}

	if err := reloaded.Remove(a.ID); err != nil {
		t.Fatal(err)
	}
	if err := reloaded.Remove(a.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second remove err = %v", err)
	}
	again, _ := Load(store)
	if diff := cmp.Diff([]Reminder{b}, again.All()); diff != "" {
		t.Errorf("after remove (-want +got):\n%s", diff)
	}
}

func at(s string) time.Time {
	t, err := time.ParseInLocation("2006-01-02 15:04", s, time.UTC)
	if err != nil {
		panic(err)
	}
	return t
}

func TestNext(t *testing.T) {
	tests := []struct {
		repeat Repeat
		after  string
		want   string // empty means none
	}{
		{Never, "2026-02-28 10:00", "2026-03-01 09:00"},
		{Never, "2026-03-01 09:00", ""},
		{Daily, "2026-03-05 08:59", "2026-03-05 09:00"},
		{Daily, "2026-03-05 09:00", "2026-03-06 09:00"},
		{Weekly, "2026-03-09 12:00", "2026-03-15 09:00"},
		{Monthly, "2026-04-15 00:00", "2026-05-01 09:00"},
		{Monthly, "2026-05-01 09:30", "2026-06-01 09:00"},
	}
	for _, tt := range tests {
		r := Reminder{Date: "2026-03-01", Time: "09:00", Repeat: tt.repeat}
		got, ok := r.Next(at(tt.after))
		if tt.want == "" {
			if ok {
				t.Errorf("%s after %s: got %v, want none", tt.repeat, tt.after, got)
			}
			continue
		}
		if !ok || !got.Equal(at(tt.want)) {
			t.Errorf("%s after %s: got %v %v, want %s", tt.repeat, tt.after, got, ok, tt.want)
		}
	}
}

func TestUpcomingAndDue(t *testing.T) {
	l := newTestList(t, settings.NewMemoryStore())
	for _, r := range []Reminder{
		{Title: "Lunch", Date: "2026-03-01", Time: "12:30"},
		{Title: "Stretch", Date: "2026-02-01", Time: "09:00", Repeat: Daily},
		{Title: "Old", Date: "2026-01-01", Time: "08:00"},
	} {
		if _, err := l.Add(r); err != nil {
			t.Fatal(err)
		}
	}

	var titles []string
	for _, o := range l.Upcoming(at("2026-03-01 08:00")) {
		titles = append(titles, o.Title)
	}
	if diff := cmp.Diff([]string{"Stretch", "Lunch"}, titles); diff != "" {
		t.Errorf("upcoming (-want +got):\n%s", diff)
	}

	due := l.Due(at("2026-03-01 08:00"), at("2026-03-01 10:00"))
	if len(due) != 1 || due[0].Title != "Stretch" {
		t.Errorf("due = %+v", due)
	}
}

type fakeTicker struct{ c chan time.Time }

func (f *fakeTicker) C() <-chan time.Time { return f.c }
func (f *fakeTicker) Stop()               {}

type fakeClock struct {
	start   time.Time
	ticker  *fakeTicker
	created chan struct{}
}

func newFakeClock(start string) *fakeClock {
	return &fakeClock{
		start:   at(start),
		ticker:  &fakeTicker{c: make(chan time.Time)},
		created: make(chan struct{}),
	}
}

func (c *fakeClock) Now() time.Time { return c.start }

func (c *fakeClock) NewTicker(time.Duration) timer.Ticker {
	close(c.created)
	return c.ticker
}

// tick delivers one tick stamped s.
func (c *fakeClock) tick(s string) { c.ticker.c <- at(s) }

type countChime struct{ n atomic.Int32 }

func (c *countChime) Play() { c.n.Add(1) }

func TestWatchNotifiesWhenDue(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := newTestList(t, settings.NewMemoryStore())
	if _, err := l.Add(Reminder{Title: "Stretch", Date: "2026-03-01", Time: "09:00", Repeat: Daily, Category: "Health"}); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Add(Reminder{Title: "Call mom", Date: "2026-03-01", Time: "10:00", Description: "ask about Sunday"}); err != nil {
		t.Fatal(err)
	}

	clock := newFakeClock("2026-03-01 08:58")
	notices := make(chan notice.Notice, 8)
	chime := &countChime{}
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		errc <- l.Watch(ctx, WatchOptions{
			Clock: clock,
			Sink:  notice.SinkFunc(func(n notice.Notice) { notices <- n }),
			Chime: chime,
		})
	}()
	<-clock.created

	clock.tick("2026-03-01 09:00")
	if n := <-notices; n.Title != "Reminder: Stretch" || !strings.Contains(n.Description, "Health") {
		t.Fatalf("first notice = %+v", n)
	}
	clock.tick("2026-03-01 09:30")
	clock.tick("2026-03-01 10:05")
	if n := <-notices; n.Title != "Reminder: Call mom" || !strings.HasPrefix(n.Description, "ask about Sunday") {
		t.Fatalf("second notice = %+v", n)
	}

	cancel()
	if err := <-errc; !errors.Is(err, context.Canceled) {
		t.Fatalf("watch err = %v", err)
	}
	if len(notices) != 0 {
		t.Fatalf("unexpected extra notice %+v", <-notices)
	}
	if got := chime.n.Load(); got != 2 {
		t.Errorf("chimes = %d, want 2", got)
	}
}
