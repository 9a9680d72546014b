package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/devansharma-72/sensory-support-hub/assistant"
	"github.com/devansharma-72/sensory-support-hub/log"
	"github.com/devansharma-72/sensory-support-hub/settings"
)

type replyMsg struct{}

type askModel struct {
	ctx     context.Context
	chat    *assistant.Chat
	input   textinput.Model
	spin    spinner.Model
	pal     palette
	waiting bool
	width   int
}

func newAskModel(ctx context.Context, chat *assistant.Chat, dark bool) askModel {
	ti := textinput.New()
	ti.Placeholder = "Type your message..."
	ti.CharLimit = 500
	ti.Prompt = "> "
	ti.Focus()
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return askModel{ctx: ctx, chat: chat, input: ti, spin: sp, pal: newPalette(dark), width: 80}
}

func (m askModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spin.Tick)
}

func (m askModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = max(20, msg.Width-4)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case replyMsg:
		m.waiting = false
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			if m.waiting {
				return m, nil
			}
			text := m.input.Value()
			if strings.TrimSpace(text) == "" {
				return m, nil
			}
			m.input.Reset()
			m.waiting = true
			chat, ctx := m.chat, m.ctx
			return m, func() tea.Msg {
				chat.Send(ctx, text)
				return replyMsg{}
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m askModel) View() string {
	p := m.pal
	var b strings.Builder
	b.WriteString(p.title.Render("Assistant") + "\n\n")
	width := max(20, m.width-6)
	for _, msg := range m.chat.Messages() {
		who, style := "You", p.text
		if msg.Role == assistant.RoleAssistant {
			who, style = "Assistant", p.accent
		}
		b.WriteString(p.muted.Render(who) + "\n")
		for _, line := range wrapText(msg.Content, width) {
			b.WriteString("  " + style.Render(line) + "\n")
		}
		b.WriteString("\n")
	}
	if m.waiting {
		b.WriteString(m.spin.View() + p.muted.Render(" thinking...") + "\n\n")
	}
	b.WriteString(m.input.View() + "\n\n")
	b.WriteString(p.helpLine("enter", "send", "esc", "quit"))
	return b.String() + "\n"
}

func newAskCmd(a *app) *cobra.Command {
	var offline bool
	cmd := &cobra.Command{
		Use:   "ask [message]",
		Short: "Chat with the assistant",
		Long:  "Chat with the assistant. With a message argument, print one reply and exit.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := runContext(cmd)
			defer stop()

			userID, err := settings.UserID(a.store)
			if err != nil {
				log.Warnf("user id: %v", err)
			}
			var responder assistant.Responder = assistant.NewHTTPResponder(a.cfg.BackendURL)
			if offline {
				responder = assistant.Canned{}
			}
			chat := assistant.NewChat(responder, userID)

			if len(args) > 0 {
				reply, ok := chat.Send(ctx, strings.Join(args, " "))
				if !ok {
					return errors.New("empty message")
				}
				fmt.Fprintln(cmd.OutOrStdout(), reply.Content)
				return nil
			}

			p := tea.NewProgram(newAskModel(ctx, chat, a.theme.Dark()), tea.WithContext(ctx))
			_, err = p.Run()
			if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
				return nil
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "answer with built-in replies instead of the backend")
	return cmd
}
