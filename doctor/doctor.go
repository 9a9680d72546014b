// Package doctor runs the system diagnostics behind `sensory doctor`.
package doctor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/devansharma-72/sensory-support-hub/audio"
	"github.com/devansharma-72/sensory-support-hub/clipboard"
	"github.com/devansharma-72/sensory-support-hub/config"
	"github.com/devansharma-72/sensory-support-hub/encoder"
	"github.com/devansharma-72/sensory-support-hub/log"
	"github.com/devansharma-72/sensory-support-hub/speech"
	"github.com/devansharma-72/sensory-support-hub/traced"
)

type Options struct {
	Out        io.Writer
	Config     config.Config
	ConfigPath string
	Recognizer speech.Recognizer
	// NewAudio opens the capture backend. Defaults to audio.NewContext.
	NewAudio func() (audio.Context, error)
	// Record is how long to capture for the microphone check; zero skips it.
	Record time.Duration
	// Clipboard overrides clipboard.Available.
	Clipboard func() bool
}

type check struct {
	name string
	run  func(ctx context.Context, o *Options) error
}

var checks = []check{
	{"Configuration", checkConfig},
	{"Microphone", checkMicrophone},
	{"Speech recognition", checkSpeech},
	{"Analysis backend", checkBackend},
	{"Gemini API key", checkGemini},
	{"Clipboard", checkClipboard},
}

// Run executes every check and returns an exit code (0 all pass, 1 any fail).
func Run(ctx context.Context, opts Options) int {
	if opts.NewAudio == nil {
		opts.NewAudio = audio.NewContext
	}
	if opts.Recognizer == nil {
		opts.Recognizer = speech.Unsupported{}
	}
	if opts.Clipboard == nil {
		opts.Clipboard = clipboard.Available
	}
	out := opts.Out

	fmt.Fprintln(out, "sensory doctor - system diagnostics")
	fmt.Fprintln(out, "===================================")

	failed := 0
	for i, c := range checks {
		fmt.Fprintln(out)
		fmt.Fprintf(out, "[%d/%d] %s\n", i+1, len(checks), c.name)
		if err := c.run(ctx, &opts); err != nil {
			failed++
			fmt.Fprintf(out, "  FAIL: %v\n", err)
			log.Warnf("doctor: %s: %v", c.name, err)
			continue
		}
		fmt.Fprintln(out, "  PASS")
	}

	fmt.Fprintln(out)
	if failed == 0 {
		fmt.Fprintln(out, "All checks passed!")
		return 0
	}
	fmt.Fprintf(out, "%d check(s) failed. See details above.\n", failed)
	return 1
}

func checkConfig(_ context.Context, o *Options) error {
	fmt.Fprintf(o.Out, "  config file: %s\n", o.ConfigPath)
	fmt.Fprintf(o.Out, "  log dir:     %s\n", log.Dir())
	fmt.Fprintf(o.Out, "  downloads:   %s\n", o.Config.DownloadDir)
	return o.Config.Timer.Validate()
}

func checkMicrophone(ctx context.Context, o *Options) error {
	actx, err := o.NewAudio()
	if err != nil {
		return fmt.Errorf("cannot connect to audio: %w", err)
	}
	defer actx.Close()

	devices, err := actx.Devices()
	if err != nil {
		return fmt.Errorf("cannot list devices: %w", err)
	}
	if len(devices) == 0 {
		return audio.ErrNoDevice
	}
	for _, d := range devices {
		note := ""
		if audio.IsBluetooth(d.Name) {
			note = " (bluetooth, low quality)"
		}
		fmt.Fprintf(o.Out, "  device: %s%s\n", d.Name, note)
	}
	if o.Record <= 0 {
		return nil
	}

	device, err := audio.FindDevice(actx, o.Config.Device)
	if err != nil {
		return err
	}
	pcm, err := record(ctx, actx, device, o.Record)
	if err != nil {
		return fmt.Errorf("recording: %w", err)
	}
	if len(pcm) == 0 {
		return fmt.Errorf("no audio captured")
	}
	fmt.Fprintf(o.Out, "  recorded %.1fs (%.1f KB)\n", encoder.Duration(len(pcm)), float64(len(pcm))/1024)

	if !o.Recognizer.Supported() {
		return nil
	}
	text, err := transcribe(ctx, o.Recognizer, o.Config.Language, pcm)
	if err != nil {
		return fmt.Errorf("transcription: %w", err)
	}
	if text == "" {
		text = "(no speech detected)"
	}
	fmt.Fprintf(o.Out, "  transcribed: %s\n", text)
	return nil
}

func record(ctx context.Context, actx audio.Context, device *audio.DeviceInfo, d time.Duration) ([]byte, error) {
	capture, err := actx.NewCapture(device, audio.CaptureConfig{
		SampleRate: encoder.SampleRate,
		Channels:   encoder.Channels,
	})
	if err != nil {
		return nil, err
	}
	defer capture.Close()

	var mu sync.Mutex
	var pcm []byte
	capture.SetCallback(func(data []byte, _ uint32) {
		mu.Lock()
		pcm = append(pcm, data...)
		mu.Unlock()
	})
	if err := capture.Start(); err != nil {
		return nil, err
	}

	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
	capture.ClearCallback()
	capture.Stop()

	mu.Lock()
	defer mu.Unlock()
	return pcm, ctx.Err()
}

func transcribe(ctx context.Context, r speech.Recognizer, lang string, pcm []byte) (string, error) {
	sess, err := r.NewSession(ctx, speech.SessionConfig{Language: lang, SampleRate: encoder.SampleRate})
	if err != nil {
		return "", err
	}
	go func() {
		for range sess.Updates() {
		}
	}()
	for len(pcm) > 0 {
		n := min(len(pcm), encoder.BlockSize*2)
		sess.Feed(pcm[:n])
		pcm = pcm[n:]
	}
	res, err := sess.Close()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(res.Text), nil
}

func checkSpeech(_ context.Context, o *Options) error {
	fmt.Fprintf(o.Out, "  recognizer: %s\n", o.Recognizer.Name())
	if !o.Recognizer.Supported() {
		fmt.Fprintln(o.Out, "  set DEEPGRAM_API_KEY or GROQ_API_KEY for live transcripts")
	}
	return nil
}

func checkBackend(ctx context.Context, o *Options) error {
	url := strings.TrimRight(o.Config.BackendURL, "/") + "/api/health"
	fmt.Fprintf(o.Out, "  GET %s\n", url)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := traced.NewClient(10 * time.Second).Do(req)
	if err != nil {
		return fmt.Errorf("backend unreachable: %w", err)
	}
	fmt.Fprintf(o.Out, "  %s\n", resp.Metrics)
	if !resp.OK() {
		return fmt.Errorf("backend returned HTTP %d", resp.StatusCode)
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(resp.Body, &body); err != nil || body.Status != "ok" {
		return fmt.Errorf("unexpected health response %q", strings.TrimSpace(string(resp.Body)))
	}
	fmt.Fprintln(o.Out, "  note: eye contact is not measured; analysis reports it as 0%")
	return nil
}

// checkGemini only matters where `sensory serve` runs, so a missing key is a
// warning.
func checkGemini(_ context.Context, o *Options) error {
	if o.Config.GeminiAPIKey == "" {
		fmt.Fprintln(o.Out, "  GEMINI_API_KEY not set; serve will answer with the fallback text")
		return nil
	}
	fmt.Fprintf(o.Out, "  key present, model %s\n", o.Config.GeminiModel)
	return nil
}

func checkClipboard(_ context.Context, o *Options) error {
	if !o.Clipboard() {
		return clipboard.ErrUnavailable
	}
	return nil
}
