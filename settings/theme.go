package settings

import (
	"strconv"
	"sync"
)

// Theme is the dark-mode preference. It is created once at startup and handed
// to whatever renders.
type Theme struct {
	mu    sync.Mutex
	store Store
	dark  bool
}

// LoadTheme reads the stored preference. A missing or unreadable value means
// light mode.
func LoadTheme(store Store) (*Theme, error) {
	t := &Theme{store: store}
	v, ok, err := store.Get(KeyDarkMode)
	if err != nil {
		return t, err
	}
	if ok {
		t.dark, _ = strconv.ParseBool(v)
	}
	return t, nil
}

func (t *Theme) Dark() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dark
}

func (t *Theme) SetDark(dark bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.store.Set(KeyDarkMode, strconv.FormatBool(dark)); err != nil {
		return err
	}
	t.dark = dark
	return nil
}

// Toggle flips and persists the preference, returning the new value.
func (t *Theme) Toggle() (bool, error) {
	t.mu.Lock()
	next := !t.dark
	t.mu.Unlock()
	return next, t.SetDark(next)
}
