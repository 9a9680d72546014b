package doctor

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/devansharma-72/sensory-support-hub/audio"
	"github.com/devansharma-72/sensory-support-hub/config"
	"github.com/devansharma-72/sensory-support-hub/speech"
)

func healthServer(status int, body string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/health" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
}

func fakeAudio(pcm []byte) func() (audio.Context, error) {
	return func() (audio.Context, error) { return &audio.FakeContext{PCM: pcm}, nil }
}

func TestRunAllPass(t *testing.T) {
	srv := healthServer(http.StatusOK, `{"status":"ok"}`)
	defer srv.Close()

	cfg := config.Default()
	cfg.BackendURL = srv.URL
	var out bytes.Buffer
	code := Run(context.Background(), Options{
		Out:        &out,
		Config:     cfg,
		Recognizer: &speech.Fake{Text: "testing one two"},
		NewAudio:   fakeAudio(make([]byte, 8192)),
		Record:     50 * time.Millisecond,
		Clipboard:  func() bool { return true },
	})
	if code != 0 {
		t.Fatalf("exit code = %d\n%s", code, out.String())
	}
	for _, want := range []string{"device: fake", "transcribed: testing one two", "recognizer: fake", "eye contact is not measured", "All checks passed!"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestRunReportsFailures(t *testing.T) {
	srv := healthServer(http.StatusInternalServerError, `{"error":"boom"}`)
	defer srv.Close()

	cfg := config.Default()
	cfg.BackendURL = srv.URL
	var out bytes.Buffer
	code := Run(context.Background(), Options{
		Out:       &out,
		Config:    cfg,
		NewAudio:  func() (audio.Context, error) { return nil, errors.New("no pulse server") },
		Clipboard: func() bool { return false },
	})
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	got := out.String()
	for _, want := range []string{"cannot connect to audio: no pulse server", "backend returned HTTP 500", "3 check(s) failed"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestRunInvalidTimerConfig(t *testing.T) {
	srv := healthServer(http.StatusOK, `{"status":"ok"}`)
	defer srv.Close()

	cfg := config.Default()
	cfg.BackendURL = srv.URL
	cfg.Timer.Focus = 90
	var out bytes.Buffer
	if code := Run(context.Background(), Options{
		Out:       &out,
		Config:    cfg,
		NewAudio:  fakeAudio(nil),
		Clipboard: func() bool { return true },
	}); code != 1 {
		t.Fatalf("exit code = %d, want 1\n%s", code, out.String())
	}
}
