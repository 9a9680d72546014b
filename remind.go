package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/devansharma-72/sensory-support-hub/beep"
	"github.com/devansharma-72/sensory-support-hub/notice"
	"github.com/devansharma-72/sensory-support-hub/reminder"
	"github.com/devansharma-72/sensory-support-hub/timer"
)

func newRemindCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remind",
		Short: "Set reminders for tasks, routines and self-care",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return listReminders(a, cmd.OutOrStdout())
		},
	}
	cmd.AddCommand(
		newRemindAddCmd(a),
		&cobra.Command{
			Use:   "list",
			Short: "Show every reminder",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return listReminders(a, cmd.OutOrStdout())
			},
		},
		&cobra.Command{
			Use:   "remove ID",
			Short: "Delete a reminder",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid reminder id %q", args[0])
				}
				l, err := reminder.Load(a.store)
				if err != nil {
					return err
				}
				if err := l.Remove(id); err != nil {
					return err
				}
				cmd.Printf("Removed reminder %d\n", id)
				return nil
			},
		},
		newRemindWatchCmd(a),
	)
	return cmd
}

func newRemindAddCmd(a *app) *cobra.Command {
	var r reminder.Reminder
	var repeat, priority string
	cmd := &cobra.Command{
		Use:   "add TITLE",
		Short: "Create a reminder",
		Example: `  sensory remind add "Take medication" --date 2026-03-01 --time 17:00 --repeat daily --priority high
  sensory remind add "Team meeting" --date 2026-03-02 --time 10:00 --category Work`,
		RunE: func(cmd *cobra.Command, args []string) error {
			r.Title = strings.Join(args, " ")
			var err error
			if r.Repeat, err = reminder.ParseRepeat(repeat); err != nil {
				return err
			}
			if r.Priority, err = reminder.ParsePriority(priority); err != nil {
				return err
			}
			l, err := reminder.Load(a.store)
			if err != nil {
				return err
			}
			added, err := l.Add(r)
			if err != nil {
				return err
			}
			cmd.Printf("Added reminder %d: %s on %s at %s\n", added.ID, added.Title, added.Date, added.Time)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&r.Date, "date", "", "date as YYYY-MM-DD (required)")
	f.StringVar(&r.Time, "time", "", "time as HH:MM, 24-hour (required)")
	f.StringVar(&r.Description, "description", "", "additional details")
	f.StringVar(&r.Category, "category", "", "category such as Work, Health or Personal (default General)")
	f.StringVar(&repeat, "repeat", "never", "never, daily, weekly or monthly")
	f.StringVar(&priority, "priority", "low", "low, medium or high")
	return cmd
}

func listReminders(a *app, out io.Writer) error {
	l, err := reminder.Load(a.store)
	if err != nil {
		return err
	}
	all := l.All()
	if len(all) == 0 {
		fmt.Fprintln(out, reminder.EmptyMessage)
		return nil
	}
	now := time.Now()
	for _, r := range all {
		fmt.Fprintf(out, "%d  %s %s  %s  [%s, %s priority, repeat %s]\n",
			r.ID, r.Date, r.Time, r.Title, r.Category, r.Priority, strings.ToLower(string(r.Repeat)))
		if r.Description != "" {
			fmt.Fprintf(out, "    %s\n", r.Description)
		}
		if next, ok := r.Next(now); ok {
			fmt.Fprintf(out, "    next: %s\n", next.Format("Mon Jan 2 2006 at 15:04"))
		}
	}
	return nil
}

func newRemindWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stay open and announce reminders as they come due",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := runContext(cmd)
			defer stop()

			l, err := reminder.Load(a.store)
			if err != nil {
				return err
			}
			var chime timer.Chime
			if a.cfg.SoundEnabled && !a.noSound {
				chime = beep.Chime{}
				go beep.Init()
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Watching %d reminder(s). Press Ctrl+C to stop.\n", len(l.All()))
			err = l.Watch(ctx, reminder.WatchOptions{
				Chime: chime,
				Sink: notice.SinkFunc(func(n notice.Notice) {
					fmt.Fprintf(out, "%s  %s\n    %s\n", time.Now().Format("15:04"), n.Title, n.Description)
				}),
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}
