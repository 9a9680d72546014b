package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/devansharma-72/sensory-support-hub/analysis"
	"github.com/devansharma-72/sensory-support-hub/beep"
	"github.com/devansharma-72/sensory-support-hub/capture"
	"github.com/devansharma-72/sensory-support-hub/clipboard"
	"github.com/devansharma-72/sensory-support-hub/log"
	"github.com/devansharma-72/sensory-support-hub/notice"
	"github.com/devansharma-72/sensory-support-hub/scenario"
	"github.com/devansharma-72/sensory-support-hub/settings"
	"github.com/devansharma-72/sensory-support-hub/speech"
)

type sessionChangedMsg struct{}
type recordTickMsg struct{}
type opDoneMsg struct {
	op  string
	err error
}

// practiceTabs are the difficulty tabs, in display order.
var practiceTabs = []scenario.Difficulty{scenario.Easy, scenario.Medium, scenario.Hard}

type practiceModel struct {
	ctx     context.Context
	session *capture.Session
	theme   *settings.Theme
	pal     palette
	spin    spinner.Model
	notes   textinput.Model

	tab          int
	scenarios    []scenario.Scenario
	cursor       int
	snap         capture.Snapshot
	analyzing    bool // set on request, the snapshot catches up later
	editingNotes bool
	device       string
	backend      string
	copied       bool
	toast        *notice.Notice
	toastID      int
	width        int
	quitting     bool
}

func newPracticeModel(ctx context.Context, s *capture.Session, theme *settings.Theme, device, backend string) practiceModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	notes := textinput.New()
	notes.Placeholder = "Add your own notes about this practice session..."
	notes.CharLimit = 500
	notes.Prompt = "✎ "
	return practiceModel{
		ctx:       ctx,
		session:   s,
		theme:     theme,
		pal:       newPalette(theme.Dark()),
		spin:      sp,
		notes:     notes,
		scenarios: scenario.ByDifficulty(practiceTabs[0]),
		snap:      s.Snapshot(),
		device:    device,
		backend:   backend,
	}
}

// showTab switches the scenario list to tab i, wrapping around.
func (m practiceModel) showTab(i int) practiceModel {
	m.tab = (i + len(practiceTabs)) % len(practiceTabs)
	m.scenarios = scenario.ByDifficulty(practiceTabs[m.tab])
	m.cursor = 0
	return m
}

// showScenario moves the tab and cursor onto sc.
func (m practiceModel) showScenario(sc scenario.Scenario) practiceModel {
	for i, d := range practiceTabs {
		if d == sc.Difficulty {
			m = m.showTab(i)
		}
	}
	for i := range m.scenarios {
		if m.scenarios[i].ID == sc.ID {
			m.cursor = i
		}
	}
	return m
}

func recordTick() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(time.Time) tea.Msg { return recordTickMsg{} })
}

func (m practiceModel) Init() tea.Cmd {
	return m.spin.Tick
}

// run performs a blocking session operation off the update loop.
func (m practiceModel) run(op string, fn func() error) tea.Cmd {
	return func() tea.Msg { return opDoneMsg{op: op, err: fn()} }
}

func (m practiceModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case sessionChangedMsg:
		prev := m.snap.State
		m.snap = m.session.Snapshot()
		if m.snap.State != capture.Analyzed {
			m.copied = false
		}
		if m.snap.Result == nil {
			m.notes.Reset()
			m.notes.Blur()
			m.editingNotes = false
		}
		if m.snap.State == capture.Recording && prev != capture.Recording {
			return m, recordTick()
		}

	case recordTickMsg:
		m.snap = m.session.Snapshot()
		if m.snap.State == capture.Recording {
			return m, recordTick()
		}

	case opDoneMsg:
		if msg.op == "analyze" {
			m.analyzing = false
		}
		if msg.err != nil && !errors.Is(msg.err, capture.ErrStale) {
			log.Warnf("%s: %v", msg.op, msg.err)
		}
		m.snap = m.session.Snapshot()

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
		if m.editingNotes {
			return m.updateNotes(msg)
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m practiceModel) updateNotes(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case "enter", "esc":
		m.notes.Blur()
		m.editingNotes = false
		return m, nil
	}
	var cmd tea.Cmd
	m.notes, cmd = m.notes.Update(msg)
	return m, cmd
}

func (m practiceModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		m.quitting = true
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.scenarios)-1 {
			m.cursor++
		}
	case "tab", "right", "l":
		return m.showTab(m.tab + 1), nil
	case "shift+tab", "left", "h":
		return m.showTab(m.tab - 1), nil
	case "enter":
		if len(m.scenarios) == 0 {
			return m, nil
		}
		sc := m.scenarios[m.cursor]
		return m, m.run("select", func() error {
			m.session.SelectScenario(sc)
			return nil
		})
	case "r", " ":
		if m.snap.Scenario == nil || m.analyzing || m.snap.State == capture.Analyzing {
			return m, nil
		}
		if m.snap.State == capture.Recording {
			return m, m.run("stop", func() error {
				err := m.session.StopRecording()
				if err == nil {
					beep.PlayEnd()
				}
				return err
			})
		}
		ctx := m.ctx
		return m, m.run("record", func() error {
			err := m.session.StartRecording(ctx)
			if err == nil {
				beep.PlayStart()
			}
			return err
		})
	case "s":
		if m.snap.State == capture.Recording {
			return m, nil
		}
		return m, m.run("save", func() error {
			_, err := m.session.SaveRecording()
			return err
		})
	case "a":
		// one analysis at a time
		if m.analyzing || m.snap.State == capture.Analyzing || m.snap.State == capture.Recording {
			return m, nil
		}
		m.analyzing = true
		ctx := m.ctx
		return m, m.run("analyze", func() error {
			_, err := m.session.AnalyzeRecording(ctx)
			return err
		})
	case "c":
		if m.snap.Result == nil || m.snap.Scenario == nil {
			return m, nil
		}
		r := m.snap.Result
		text := clipboard.Feedback(m.snap.Scenario.Title, r.EyeContact, r.Transcript, r.Feedback, m.notes.Value())
		if err := clipboard.Copy(text); err != nil {
			tuiSink.Notify(notice.Notice{Title: "Copy failed", Description: err.Error(), Level: notice.Error})
		} else {
			m.copied = true
		}
	case "n":
		if m.snap.Result == nil {
			return m, nil
		}
		m.editingNotes = true
		return m, m.notes.Focus()
	case "t":
		if dark, err := m.theme.Toggle(); err == nil {
			m.pal = newPalette(dark)
		}
	}
	return m, nil
}

func (m practiceModel) View() string {
	if m.quitting {
		return ""
	}
	p := m.pal
	var b strings.Builder
	b.WriteString(p.title.Render("Scenario Talks") + "  " + p.muted.Render("mic: "+m.device) + "\n\n")

	var tabs []string
	for i, d := range practiceTabs {
		label := strings.ToUpper(string(d[:1])) + string(d[1:])
		if i == m.tab {
			tabs = append(tabs, p.selected.Render("["+label+"]"))
		} else {
			tabs = append(tabs, p.muted.Render(" "+label+" "))
		}
	}
	b.WriteString("  " + strings.Join(tabs, " ") + "\n")

	var list []string
	for i, sc := range m.scenarios {
		marker := "  "
		style := p.text
		if i == m.cursor {
			marker = p.selected.Render("> ")
		}
		if m.snap.Scenario != nil && m.snap.Scenario.ID == sc.ID {
			style = p.selected
		}
		list = append(list, marker+style.Render(sc.Title))
	}
	b.WriteString(p.panel.Render(strings.Join(list, "\n")) + "\n\n")

	if sc := m.snap.Scenario; sc != nil {
		width := max(40, min(m.width-4, 90))
		for _, line := range wrapText(sc.Description, width) {
			b.WriteString("  " + p.text.Render(line) + "\n")
		}
		b.WriteString("\n  " + m.statusLine() + "\n")

		if t := strings.TrimSpace(m.snap.Transcript); t != "" {
			b.WriteString("\n  " + p.muted.Render("Transcript") + "\n")
			for _, line := range wrapText(t, width) {
				b.WriteString("  " + p.accent.Render(line) + "\n")
			}
		}
		if r := m.snap.Result; r != nil {
			b.WriteString("\n" + m.resultView(*r, width))
		}
	} else {
		b.WriteString("  " + p.muted.Render("Pick a scenario and press enter") + "\n")
	}

	if m.toast != nil {
		b.WriteString("\n  " + p.notice(*m.toast) + "\n")
	}
	b.WriteString("\n" + m.helpView() + "\n")
	return b.String()
}

func (m practiceModel) statusLine() string {
	p := m.pal
	switch m.snap.State {
	case capture.Recording:
		return p.rec.Render(fmt.Sprintf("● REC %.1fs", m.snap.Elapsed.Seconds()))
	case capture.Analyzing:
		return m.spin.View() + p.text.Render(" Analyzing with "+m.backend)
	case capture.Stopped:
		if rec := m.snap.Recorded; rec != nil {
			return p.good.Render(fmt.Sprintf("■ Recorded %.1fs", rec.Duration))
		}
	case capture.Analyzed:
		return p.good.Render("✓ Analysis ready")
	}
	return p.muted.Render("○ Ready to record")
}

func (m practiceModel) resultView(r analysis.Result, width int) string {
	p := m.pal
	var b strings.Builder
	b.WriteString("  " + p.title.Render("Feedback") + "  " + p.text.Render(fmt.Sprintf("eye contact %.2f%%", r.EyeContact)))
	if m.copied {
		b.WriteString(" " + p.good.Render("[✓ copied]"))
	}
	b.WriteString("\n")
	for _, line := range wrapText(r.Feedback, width) {
		b.WriteString("  " + p.text.Render(line) + "\n")
	}
	if m.editingNotes || m.notes.Value() != "" {
		b.WriteString("\n  " + m.notes.View() + "\n")
	} else {
		b.WriteString("\n  " + p.muted.Render("press n to add your own notes") + "\n")
	}
	return b.String()
}

func (m practiceModel) helpView() string {
	p := m.pal
	if m.editingNotes {
		return p.helpLine("enter", "done", "ctrl+c", "quit")
	}
	switch m.snap.State {
	case capture.Recording:
		return p.helpLine("r", "stop", "q", "quit")
	case capture.Analyzing:
		return p.helpLine("q", "quit")
	case capture.Stopped:
		return p.helpLine("r", "record again", "s", "save", "a", "analyze", "↑/↓ enter", "scenario", "q", "quit")
	case capture.Analyzed:
		return p.helpLine("c", "copy", "n", "notes", "s", "save", "a", "re-analyze", "r", "record again", "q", "quit")
	}
	return p.helpLine("←/→", "difficulty", "↑/↓ enter", "scenario", "r", "record", "t", "theme", "q", "quit")
}

func newPracticeCmd(a *app) *cobra.Command {
	var setup bool
	var pick string
	cmd := &cobra.Command{
		Use:   "practice",
		Short: "Practice a conversation scenario and get feedback",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := runContext(cmd)
			defer stop()

			actx, dev, err := a.openAudio(setup)
			if err != nil {
				return err
			}
			defer actx.Close()
			deviceName := "default"
			if dev != nil {
				deviceName = dev.Name
			}

			recognizer := speech.Detect(nil)
			session := capture.NewSession(capture.Options{
				Source:     capture.DeviceSource{Context: actx, Device: dev},
				Recognizer: recognizer,
				Analyzer:   analysis.NewClient(a.cfg.BackendURL),
				Downloader: capture.DirDownloader{Dir: a.cfg.DownloadDir},
				Sink:       tuiSink,
				Language:   a.cfg.Language,
				OnChange:   func() { tuiSend(sessionChangedMsg{}) },
			})
			defer session.Close()
			go beep.Init()

			m := newPracticeModel(ctx, session, a.theme, deviceName, a.cfg.BackendURL)
			if pick != "" {
				sc, ok := scenario.Find(pick)
				if !ok {
					return fmt.Errorf("unknown scenario %q (see `sensory scenarios`)", pick)
				}
				session.SelectScenario(sc)
				m.snap = session.Snapshot()
				m = m.showScenario(sc)
			}

			p := tea.NewProgram(m, tea.WithContext(ctx))
			setProgram(p)
			defer setProgram(nil)
			_, err = p.Run()
			if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
				return nil
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&setup, "setup", false, "pick the microphone interactively")
	cmd.Flags().StringVar(&a.device, "device", "", "use the named microphone")
	cmd.Flags().StringVar(&a.fakeAudio, "fake-audio", "", "replay a 16 kHz mono WAV file instead of the microphone")
	cmd.Flags().StringVar(&pick, "scenario", "", "start with this scenario (id or title)")
	return cmd
}
