package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/devansharma-72/sensory-support-hub/beep"
	"github.com/devansharma-72/sensory-support-hub/config"
	"github.com/devansharma-72/sensory-support-hub/log"
	"github.com/devansharma-72/sensory-support-hub/notice"
	"github.com/devansharma-72/sensory-support-hub/settings"
	"github.com/devansharma-72/sensory-support-hub/timer"
)

const toastTTL = 4 * time.Second

var settingFields = []struct {
	field timer.Field
	label string
	unit  string
}{
	{timer.FieldFocus, "Focus", "min"},
	{timer.FieldShortBreak, "Short break", "min"},
	{timer.FieldLongBreak, "Long break", "min"},
	{timer.FieldCycles, "Cycles before long break", ""},
}

type timerEventMsg timer.Event
type toastExpiredMsg struct{ id int }

type focusModel struct {
	timer  *timer.Timer
	events <-chan timer.Event
	theme  *settings.Theme
	pal    palette
	bar    progress.Model

	state    timer.State
	editing  bool
	cursor   int
	hint     string
	toast    *notice.Notice
	toastID  int
	width    int
	quitting bool
}

func newFocusModel(t *timer.Timer, theme *settings.Theme) focusModel {
	m := focusModel{
		timer:  t,
		events: t.Subscribe(16),
		theme:  theme,
		pal:    newPalette(theme.Dark()),
		bar:    progress.New(progress.WithoutPercentage()),
		state:  t.State(),
	}
	m.bar.Width = 40
	return m
}

func waitTimerEvent(ch <-chan timer.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return timerEventMsg(ev)
	}
}

func (m focusModel) Init() tea.Cmd {
	return waitTimerEvent(m.events)
}

func (m focusModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = min(60, max(20, msg.Width-8))

	case timerEventMsg:
		m.state = msg.State
		return m, waitTimerEvent(m.events)

	case noticeMsg:
		n := notice.Notice(msg)
		m.toast = &n
		m.toastID++
		id := m.toastID
		return m, tea.Tick(toastTTL, func(time.Time) tea.Msg { return toastExpiredMsg{id} })

	case toastExpiredMsg:
		if msg.id == m.toastID {
			m.toast = nil
		}

	case tea.KeyMsg:
		m.hint = ""
		if m.editing {
			return m.updateEditing(msg)
		}
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		case " ", "enter":
			m.timer.Toggle()
		case "r":
			m.timer.Reset()
		case "1":
			m.setMode(timer.ModeFocus)
		case "2":
			m.setMode(timer.ModeShortBreak)
		case "3":
			m.setMode(timer.ModeLongBreak)
		case "s":
			m.timer.SetSound(!m.timer.Sound())
		case "e":
			m.editing = true
		case "t":
			if dark, err := m.theme.Toggle(); err != nil {
				log.Warnf("saving theme: %v", err)
			} else {
				m.pal = newPalette(dark)
			}
		}
		m.state = m.timer.State()
	}
	return m, nil
}

func (m *focusModel) setMode(mode timer.Mode) {
	if err := m.timer.SetMode(mode); errors.Is(err, timer.ErrActive) {
		m.hint = "Pause the timer to switch modes"
	}
}

func (m focusModel) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	f := settingFields[m.cursor].field
	cur := m.timer.Settings().Get(f)
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc", "e", "enter":
		m.editing = false
	case "up", "k":
		m.cursor = (m.cursor + len(settingFields) - 1) % len(settingFields)
	case "down", "j":
		m.cursor = (m.cursor + 1) % len(settingFields)
	case "left", "h", "-":
		m.adjust(f, cur-1)
	case "right", "l", "+", "=":
		m.adjust(f, cur+1)
	}
	m.state = m.timer.State()
	return m, nil
}

func (m *focusModel) adjust(f timer.Field, v int) {
	if err := m.timer.UpdateSetting(f, v); errors.Is(err, timer.ErrOutOfRange) {
		lo, hi, _ := timer.Limits(f)
		m.hint = fmt.Sprintf("Allowed range is %d to %d", lo, hi)
	}
}

func (m focusModel) modeColor() string {
	switch m.state.Mode {
	case timer.ModeShortBreak:
		return m.pal.short
	case timer.ModeLongBreak:
		return m.pal.long
	}
	return m.pal.focus
}

func (m focusModel) View() string {
	if m.quitting {
		return ""
	}
	p := m.pal
	var b strings.Builder

	// mode tabs
	var tabs []string
	for _, mode := range []timer.Mode{timer.ModeFocus, timer.ModeShortBreak, timer.ModeLongBreak} {
		label := " " + mode.Label() + " "
		if mode == m.state.Mode {
			tabs = append(tabs, lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("231")).Background(lipgloss.Color(m.modeColor())).Render(label))
		} else {
			tabs = append(tabs, p.muted.Render(label))
		}
	}
	b.WriteString(p.title.Render("Focus Timer") + "\n\n")
	b.WriteString(strings.Join(tabs, " ") + "\n\n")

	clock := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(m.modeColor())).Render(timer.FormatClock(m.state.TimeLeft))
	status := p.muted.Render("paused")
	if m.state.Active {
		status = p.good.Render("running")
	}
	b.WriteString("  " + clock + "  " + status + "\n\n")

	m.bar.FullColor = m.modeColor()
	b.WriteString("  " + m.bar.ViewAs(m.timer.Progress()/100) + "\n\n")

	s := m.timer.Settings()
	b.WriteString(p.text.Render(fmt.Sprintf("  Cycle %d of %d", m.state.Cycle, s.Cycles)))
	sound := "off"
	if m.timer.Sound() {
		sound = "on"
	}
	b.WriteString(p.muted.Render("   sound " + sound) + "\n")

	if m.editing {
		b.WriteString("\n")
		var rows []string
		for i, sf := range settingFields {
			lo, hi, _ := timer.Limits(sf.field)
			val := fmt.Sprintf("%d %s", s.Get(sf.field), sf.unit)
			row := fmt.Sprintf("%-26s %-8s %s", sf.label, strings.TrimSpace(val), p.muted.Render(fmt.Sprintf("(%d-%d)", lo, hi)))
			if i == m.cursor {
				row = p.selected.Render("> ") + row
			} else {
				row = "  " + row
			}
			rows = append(rows, row)
		}
		b.WriteString(p.panel.Render(strings.Join(rows, "\n")) + "\n")
	}

	if m.toast != nil {
		b.WriteString("\n  " + p.notice(*m.toast) + "\n")
	}
	if m.hint != "" {
		b.WriteString("\n  " + p.warn.Render(m.hint) + "\n")
	}

	b.WriteString("\n")
	if m.editing {
		b.WriteString(p.helpLine("↑/↓", "select", "←/→", "adjust", "esc", "done"))
	} else {
		b.WriteString(p.helpLine("space", "start/pause", "r", "reset", "1/2/3", "mode", "e", "settings", "s", "sound", "t", "theme", "q", "quit"))
	}
	return b.String() + "\n"
}

// newFocusTimer builds the timer for the focus screen. mode, when set, is
// one of focus, short_break or long_break.
func newFocusTimer(a *app, mode string, start bool) (*timer.Timer, error) {
	t := timer.New(a.cfg.Timer, timer.Options{
		Sink:  tuiSink,
		Chime: beep.Chime{},
		Sound: a.cfg.SoundEnabled && !a.noSound,
	})
	if mode != "" {
		md, err := timer.ParseMode(mode)
		if err != nil {
			t.Close()
			return nil, fmt.Errorf("%w (use focus, short_break or long_break)", err)
		}
		if err := t.SetMode(md); err != nil {
			t.Close()
			return nil, err
		}
	}
	if start {
		t.Toggle()
	}
	return t, nil
}

// saveFocusSettings persists what the user changed on the focus screen.
func saveFocusSettings(a *app, t *timer.Timer, soundAtStart bool) {
	ts, sound := t.Settings(), t.Sound()
	if ts == a.cfg.Timer && sound == soundAtStart {
		return
	}
	a.persist("focus settings", func(c *config.Config) {
		c.Timer = ts
		if sound != soundAtStart {
			c.SoundEnabled = sound
		}
	})
	a.cfg.Timer = ts
}

func newFocusCmd(a *app) *cobra.Command {
	var start bool
	var mode string
	cmd := &cobra.Command{
		Use:   "focus",
		Short: "Run the focus timer",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := runContext(cmd)
			defer stop()

			t, err := newFocusTimer(a, mode, start)
			if err != nil {
				return err
			}
			defer t.Close()
			soundAtStart := t.Sound()
			go beep.Init()

			p := tea.NewProgram(newFocusModel(t, a.theme), tea.WithContext(ctx))
			setProgram(p)
			defer setProgram(nil)
			_, err = p.Run()
			saveFocusSettings(a, t, soundAtStart)
			if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
				return nil
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&start, "start", false, "start the countdown immediately")
	cmd.Flags().StringVar(&mode, "mode", "", "start in focus, short_break or long_break mode")
	return cmd
}
