package main

import (
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/devansharma-72/sensory-support-hub/beep"
	"github.com/devansharma-72/sensory-support-hub/notice"
)

// palette holds the styles for one theme. Mode colors feed the progress
// bar gradient.
type palette struct {
	title    lipgloss.Style
	text     lipgloss.Style
	muted    lipgloss.Style
	help     lipgloss.Style
	key      lipgloss.Style
	accent   lipgloss.Style
	good     lipgloss.Style
	warn     lipgloss.Style
	bad      lipgloss.Style
	rec      lipgloss.Style
	panel    lipgloss.Style
	selected lipgloss.Style
	focus    string
	short    string
	long     string
}

func newPalette(dark bool) palette {
	fg, muted, help, border := "236", "244", "246", "250"
	if dark {
		fg, muted, help, border = "252", "245", "239", "238"
	}
	return palette{
		title:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99")),
		text:     lipgloss.NewStyle().Foreground(lipgloss.Color(fg)),
		muted:    lipgloss.NewStyle().Foreground(lipgloss.Color(muted)),
		help:     lipgloss.NewStyle().Foreground(lipgloss.Color(help)),
		key:      lipgloss.NewStyle().Foreground(lipgloss.Color(help)).Bold(true),
		accent:   lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		good:     lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		warn:     lipgloss.NewStyle().Foreground(lipgloss.Color("208")),
		bad:      lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		rec:      lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		panel:    lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color(border)).Padding(0, 1),
		focus:    "#7C3AED",
		short:    "#10B981",
		long:     "#3B82F6",
		selected: lipgloss.NewStyle().Foreground(lipgloss.Color("99")).Bold(true),
	}
}

// helpLine renders "key action" pairs.
func (p palette) helpLine(pairs ...string) string {
	var parts []string
	for i := 0; i+1 < len(pairs); i += 2 {
		parts = append(parts, p.key.Render(pairs[i])+p.help.Render(" "+pairs[i+1]))
	}
	return strings.Join(parts, p.help.Render("  "))
}

func (p palette) notice(n notice.Notice) string {
	style := p.good
	if n.Level == notice.Error {
		style = p.bad
	}
	s := style.Render(n.Title)
	if n.Description != "" {
		s += " " + p.muted.Render(n.Description)
	}
	return s
}

type noticeMsg notice.Notice

var (
	tuiProgram *tea.Program
	tuiMu      sync.Mutex
)

func setProgram(p *tea.Program) {
	tuiMu.Lock()
	tuiProgram = p
	tuiMu.Unlock()
}

// tuiSend delivers msg to the running program, if any. Safe from any
// goroutine.
func tuiSend(msg tea.Msg) {
	tuiMu.Lock()
	p := tuiProgram
	tuiMu.Unlock()
	if p != nil {
		go p.Send(msg)
	}
}

// tuiSink turns notices into toasts.
var tuiSink = notice.SinkFunc(func(n notice.Notice) {
	if n.Level == notice.Error {
		go beep.PlayError()
	}
	tuiSend(noticeMsg(n))
})

// wrapText breaks s into lines of at most width runes on word boundaries.
func wrapText(s string, width int) []string {
	var lines []string
	for _, para := range strings.Split(s, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		line := words[0]
		for _, w := range words[1:] {
			if len([]rune(line))+1+len([]rune(w)) > width {
				lines = append(lines, line)
				line = w
				continue
			}
			line += " " + w
		}
		lines = append(lines, line)
	}
	return lines
}
