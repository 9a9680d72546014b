package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/devansharma-72/sensory-support-hub/audio"
	"github.com/devansharma-72/sensory-support-hub/beep"
	"github.com/devansharma-72/sensory-support-hub/config"
	"github.com/devansharma-72/sensory-support-hub/doctor"
	"github.com/devansharma-72/sensory-support-hub/log"
	"github.com/devansharma-72/sensory-support-hub/scenario"
	"github.com/devansharma-72/sensory-support-hub/settings"
	"github.com/devansharma-72/sensory-support-hub/shutdown"
	"github.com/devansharma-72/sensory-support-hub/speech"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// app is what every subcommand gets after the persistent flags are parsed.
type app struct {
	logPath    string
	configPath string
	fakeAudio  string
	device     string
	noSound    bool

	cfg   config.Config
	store settings.Store
	theme *settings.Theme
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "sensory",
		Short:         "Focus timer, conversation practice and assistant for neurodivergent users",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			log.SessionEnd(cmd.Name())
			log.Close()
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&a.logPath, "logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	pf.StringVar(&a.configPath, "config", "", "config file (default: user config dir)")
	pf.BoolVar(&a.noSound, "no-sound", false, "disable every cue sound")

	root.AddCommand(
		newFocusCmd(a),
		newPracticeCmd(a),
		newAskCmd(a),
		newServeCmd(a),
		newScenariosCmd(),
		newRemindCmd(a),
		newThemeCmd(a),
		newDoctorCmd(a),
		newVersionCmd(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	dir, err := log.ResolveDir(a.logPath)
	if err != nil {
		return fmt.Errorf("resolve log directory: %w", err)
	}
	log.SetDir(dir)
	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	initCrashLog()
	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}

	a.cfg, err = config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.configPath == "" {
		a.configPath, _ = config.DefaultPath()
	}
	if a.noSound || !a.cfg.SoundEnabled {
		beep.Disable()
	}

	statePath, err := settings.DefaultPath()
	if err != nil {
		log.Warnf("state store unavailable, using memory: %v", err)
		a.store = settings.NewMemoryStore()
	} else {
		a.store = settings.NewFileStore(statePath)
	}
	a.theme, err = settings.LoadTheme(a.store)
	if err != nil {
		log.Warnf("loading theme: %v", err)
	}

	log.SessionStart(cmd.Name(), a.cfg.BackendURL, speech.Detect(nil).Name())
	return nil
}

// initCrashLog routes fatal runtime output to crash_log.txt next to the
// other logs.
func initCrashLog() {
	path := filepath.Join(log.Dir(), "crash_log.txt")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	fmt.Fprintf(f, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
	debug.SetCrashOutput(f, debug.CrashOptions{})
}

// openAudio returns the capture backend and the device to record from,
// honouring --fake-audio, --device, --setup and the config file in that order.
// persist writes one change to the config file and only logs a failure.
func (a *app) persist(what string, fn func(*config.Config)) {
	if err := config.Update(a.configPath, fn); err != nil {
		log.Warnf("saving %s: %v", what, err)
	}
}

func (a *app) openAudio(setup bool) (audio.Context, *audio.DeviceInfo, error) {
	if a.fakeAudio != "" {
		ctx, err := audio.NewFakeContextFromWAV(a.fakeAudio, true)
		return ctx, nil, err
	}
	ctx, err := audio.NewContext()
	if err != nil {
		return nil, nil, fmt.Errorf("initializing audio: %w", err)
	}
	if setup && a.device == "" {
		dev, err := audio.SelectDevice(ctx)
		if err != nil {
			ctx.Close()
			return nil, nil, err
		}
		if dev != nil {
			a.persist("microphone", func(c *config.Config) { c.Device = dev.Name })
			a.cfg.Device = dev.Name
		}
		return ctx, dev, nil
	}
	name := a.device
	if name == "" {
		name = a.cfg.Device
	}
	dev, err := audio.FindDevice(ctx, name)
	if err != nil {
		ctx.Close()
		return nil, nil, err
	}
	return ctx, dev, nil
}

func newScenariosCmd() *cobra.Command {
	var difficulty string
	cmd := &cobra.Command{
		Use:   "scenarios",
		Short: "List the conversation practice scenarios",
		RunE: func(cmd *cobra.Command, _ []string) error {
			list := scenario.All()
			if difficulty != "" {
				list = scenario.ByDifficulty(scenario.Difficulty(strings.ToLower(difficulty)))
				if len(list) == 0 {
					return fmt.Errorf("unknown difficulty %q (use easy, medium or hard)", difficulty)
				}
			}
			out := cmd.OutOrStdout()
			for _, sc := range list {
				fmt.Fprintf(out, "%-4s %-28s %-7s %s\n", sc.ID, sc.Title, sc.Difficulty, sc.Description)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&difficulty, "difficulty", "", "only show easy, medium or hard scenarios")
	return cmd
}

func newThemeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:       "theme [dark|light|toggle]",
		Short:     "Show or change the color theme",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"dark", "light", "toggle"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if len(args) == 1 {
				switch args[0] {
				case "dark":
					err = a.theme.SetDark(true)
				case "light":
					err = a.theme.SetDark(false)
				case "toggle":
					_, err = a.theme.Toggle()
				default:
					return fmt.Errorf("unknown theme %q", args[0])
				}
			}
			if err != nil {
				return fmt.Errorf("saving theme: %w", err)
			}
			name := "light"
			if a.theme.Dark() {
				name = "dark"
			}
			fmt.Fprintln(cmd.OutOrStdout(), name)
			return nil
		},
	}
	return cmd
}

func newDoctorCmd(a *app) *cobra.Command {
	var record time.Duration
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run system diagnostics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := runContext(cmd)
			defer stop()
			opts := doctor.Options{
				Out:        cmd.OutOrStdout(),
				Config:     a.cfg,
				ConfigPath: a.configPath,
				Recognizer: speech.Detect(nil),
				Record:     record,
			}
			if a.fakeAudio != "" {
				opts.NewAudio = func() (audio.Context, error) { return audio.NewFakeContextFromWAV(a.fakeAudio, false) }
			}
			if code := doctor.Run(ctx, opts); code != 0 {
				return errChecksFailed
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&record, "record", 0, "also record and transcribe for this long (e.g. 3s)")
	cmd.Flags().StringVar(&a.fakeAudio, "fake-audio", "", "use a WAV file instead of the microphone")
	return cmd
}

var errChecksFailed = errors.New("some checks failed")

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "sensory %s\n", version)
		},
	}
}

// runContext wraps the command context with termination signals.
func runContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return shutdown.Context(parent)
}
