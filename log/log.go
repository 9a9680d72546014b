package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const AppName = "sensory-support-hub"

var (
	diagLog      zerolog.Logger
	diagFile     *os.File
	practiceFile *os.File
	logMu        sync.Mutex
	logReady     bool
	pid          int
	dir          string
)

type RecordingMetrics struct {
	Scenario   string
	DurationS  float64
	Chunks     int
	RawKB      float64
	EncodedKB  float64
	Recognizer string
	HasText    bool
}

func ResolveDir(flagPath string) (string, error) {
	// Priority 1: --logpath flag
	if flagPath != "" {
		return absFromWd(flagPath)
	}

	// Priority 2: SENSORY_LOG_PATH environment variable
	if envPath := os.Getenv("SENSORY_LOG_PATH"); envPath != "" {
		return absFromWd(envPath)
	}

	// Priority 3: Default OS-specific location
	return getDefaultDir()
}

func absFromWd(p string) (string, error) {
	if filepath.IsAbs(p) {
		return p, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, p), nil
}

func SetDir(d string) {
	dir = d
}

func Dir() string {
	return dir
}

func EnsureDir() error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

func Init() error {
	logMu.Lock()
	defer logMu.Unlock()

	if err := EnsureDir(); err != nil {
		return err
	}

	pid = os.Getpid()

	var err error

	diagPath := filepath.Join(dir, "diagnostics_log.txt")
	diagFile, err = os.OpenFile(diagPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	practicePath := filepath.Join(dir, "practice_log.txt")
	practiceFile, err = os.OpenFile(practicePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		diagFile.Close()
		return err
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        diagFile,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
	diagLog = zerolog.New(consoleWriter).With().Timestamp().Int("pid", pid).Logger()

	logReady = true
	return nil
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	if diagFile != nil {
		diagFile.Close()
		diagFile = nil
	}
	if practiceFile != nil {
		practiceFile.Close()
		practiceFile = nil
	}
	logReady = false
}

// logger returns a copy of the diagnostics logger and whether Init has run.
// Reads go through logMu so a concurrent Close is never observed half done.
func logger() (zerolog.Logger, bool) {
	logMu.Lock()
	defer logMu.Unlock()
	return diagLog, logReady
}

func Info(msg string) {
	if l, ok := logger(); ok {
		l.Info().Msg(msg)
	}
}

func Infof(format string, args ...any) {
	if l, ok := logger(); ok {
		l.Info().Msg(fmt.Sprintf(format, args...))
	}
}

func Error(msg string) {
	if l, ok := logger(); ok {
		l.Error().Msg(msg)
	}
}

func Errorf(format string, args ...any) {
	if l, ok := logger(); ok {
		l.Error().Msg(fmt.Sprintf(format, args...))
	}
}

func Warn(msg string) {
	if l, ok := logger(); ok {
		l.Warn().Msg(msg)
	}
}

func Warnf(format string, args ...any) {
	if l, ok := logger(); ok {
		l.Warn().Msg(fmt.Sprintf(format, args...))
	}
}

func SessionStart(command, backend, recognizer string) {
	l, ok := logger()
	if !ok {
		return
	}
	l.Info().
		Str("command", command).
		Str("backend", backend).
		Str("recognizer", recognizer).
		Msg("session_start")
}

func SessionEnd(command string) {
	l, ok := logger()
	if !ok {
		return
	}
	l.Info().Str("command", command).Msg("session_end")
}

func TimerTransition(from, to string, cycle int) {
	l, ok := logger()
	if !ok {
		return
	}
	l.Info().
		Str("from", from).
		Str("to", to).
		Int("cycle", cycle).
		Msg("timer_transition")
}

func Recording(m RecordingMetrics) {
	l, ok := logger()
	if !ok {
		return
	}
	l.Info().
		Str("scenario", m.Scenario).
		Str("recognizer", m.Recognizer).
		Float64("audio_s", m.DurationS).
		Int("chunks", m.Chunks).
		Float64("raw_kb", m.RawKB).
		Float64("encoded_kb", m.EncodedKB).
		Bool("has_text", m.HasText).
		Msg("recording")
}

func AnalysisDone(scenario string, eyeContact float64, elapsed time.Duration, err error) {
	l, ok := logger()
	if !ok {
		return
	}
	ev := l.Info()
	if err != nil {
		ev = l.Error().Err(err)
	}
	ev.Str("scenario", scenario).
		Float64("eye_contact", eyeContact).
		Int64("elapsed_ms", elapsed.Milliseconds()).
		Msg("analysis")
}

func Request(id, method, path string, status int, elapsed time.Duration) {
	l, ok := logger()
	if !ok {
		return
	}
	ev := l.Info()
	if status >= 500 {
		ev = l.Error()
	}
	ev.Str("request_id", id).
		Str("method", method).
		Str("path", path).
		Int("status", status).
		Int64("elapsed_ms", elapsed.Milliseconds()).
		Msg("http_request")
}

// PracticeText appends a finished practice transcript to practice_log.txt.
func PracticeText(scenario, text string) {
	logMu.Lock()
	defer logMu.Unlock()
	if !logReady {
		return
	}
	line := fmt.Sprintf("%s\t[%d]\t%s\t%s\n", time.Now().Format("2006-01-02 15:04:05"), pid, scenario, text)
	practiceFile.WriteString(line)
}
