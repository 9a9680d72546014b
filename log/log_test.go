package log

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func setupLogDir(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	SetDir(tmp)
	t.Cleanup(func() { Close(); SetDir("") })
	return tmp
}

func TestResolveDirFlag(t *testing.T) {
	got, err := ResolveDir("/tmp/mylog")
	if err != nil {
		t.Fatal(err)
	}
	if got != "/tmp/mylog" {
		t.Errorf("got %q, want /tmp/mylog", got)
	}
}

func TestResolveDirFlagRelative(t *testing.T) {
	got, err := ResolveDir("logs")
	if err != nil {
		t.Fatal(err)
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(wd, "logs")
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestResolveDirEnv(t *testing.T) {
	t.Setenv("SENSORY_LOG_PATH", "/tmp/sensory-env-log")
	got, err := ResolveDir("")
	if err != nil {
		t.Fatal(err)
	}
	if got != "/tmp/sensory-env-log" {
		t.Errorf("got %q, want /tmp/sensory-env-log", got)
	}
}

func TestResolveDirDefault(t *testing.T) {
	t.Setenv("SENSORY_LOG_PATH", "")
	got, err := ResolveDir("")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, AppName) {
		t.Errorf("default dir %q does not mention %q", got, AppName)
	}
}

func TestInitCreatesFiles(t *testing.T) {
	tmp := setupLogDir(t)

	if err := Init(); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"diagnostics_log.txt", "practice_log.txt"} {
		path := filepath.Join(tmp, name)
		if _, err := os.Stat(path); err != nil {
			t.Errorf("%s not created: %v", name, err)
		}
	}
}

func TestPracticeText(t *testing.T) {
	tmp := setupLogDir(t)

	if err := Init(); err != nil {
		t.Fatal(err)
	}

	PracticeText("sc1", "hello world")

	data, err := os.ReadFile(filepath.Join(tmp, "practice_log.txt"))
	if err != nil {
		t.Fatal(err)
	}
	line := string(data)
	if !strings.Contains(line, "sc1\thello world") {
		t.Errorf("practice_log.txt missing entry, got: %q", line)
	}
}

func TestStructuredEvents(t *testing.T) {
	tmp := setupLogDir(t)

	if err := Init(); err != nil {
		t.Fatal(err)
	}

	TimerTransition("focus", "short_break", 2)
	AnalysisDone("sc3", 0, 40*time.Millisecond, errors.New("boom"))
	Request("abc", "POST", "/api/assistant", 400, time.Millisecond)
	Close()

	data, err := os.ReadFile(filepath.Join(tmp, "diagnostics_log.txt"))
	if err != nil {
		t.Fatal(err)
	}
	diag := string(data)
	for _, want := range []string{"timer_transition", "to=short_break", "analysis", "error=boom", "http_request", "status=400"} {
		if !strings.Contains(diag, want) {
			t.Errorf("diagnostics missing %q:\n%s", want, diag)
		}
	}
}

func TestLoggingBeforeInitIsNoop(t *testing.T) {
	setupLogDir(t)
	Info("ignored")
	PracticeText("sc1", "ignored")
}

func TestCloseIdempotent(t *testing.T) {
	setupLogDir(t)

	if err := Init(); err != nil {
		t.Fatal(err)
	}
	Close()
	Close() // should not panic
}

func TestLogConcurrentWithClose(t *testing.T) {
	setupLogDir(t)

	if err := Init(); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				Infof("worker %d", i)
				SessionEnd("focus")
				PracticeText("sc1", "text")
			}
		}()
	}
	Close()
	wg.Wait()

	Info("after close")
}
