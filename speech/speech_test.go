package speech

import (
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/devansharma-72/sensory-support-hub/encoder"
	"github.com/devansharma-72/sensory-support-hub/traced"
	"go.uber.org/goleak"
)

func TestDetect(t *testing.T) {
	env := func(m map[string]string) func(string) string {
		return func(k string) string { return m[k] }
	}
	cases := []struct {
		vars      map[string]string
		name      string
		supported bool
	}{
		{map[string]string{"DEEPGRAM_API_KEY": "dg", "GROQ_API_KEY": "gq"}, "deepgram", true},
		{map[string]string{"GROQ_API_KEY": "gq"}, "groq", true},
		{map[string]string{}, "none", false},
	}
	for _, tc := range cases {
		r := Detect(env(tc.vars))
		if r.Name() != tc.name || r.Supported() != tc.supported {
			t.Errorf("Detect(%v) = %s supported=%v", tc.vars, r.Name(), r.Supported())
		}
	}
}

func TestUnsupportedSession(t *testing.T) {
	_, err := Unsupported{}.NewSession(context.Background(), SessionConfig{})
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("err = %v, want ErrUnsupported", err)
	}
}

func TestDeepgramStreamURL(t *testing.T) {
	u, err := NewDeepgram("k").streamURL(SessionConfig{Language: "en"})
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"encoding=linear16", "sample_rate=16000", "interim_results=true", "language=en", "model=nova-3"} {
		if !strings.Contains(u, want) {
			t.Errorf("url %q missing %q", u, want)
		}
	}
}

func TestParseDeepgram(t *testing.T) {
	u, err := parseDeepgram([]byte(`{"type":"Results","is_final":false,"speech_final":true,"channel":{"alternatives":[{"transcript":" hi there "}]}}`))
	if err != nil {
		t.Fatal(err)
	}
	if u.Transcript != "hi there" || !u.IsFinal || u.FromFinalize {
		t.Fatalf("update = %+v", u)
	}
	if _, err := parseDeepgram([]byte("{")); err == nil {
		t.Fatal("expected parse error")
	}
}

type fakeRaw struct {
	in       chan streamUpdate
	finalize string
	closed   chan struct{}
	once     sync.Once

	mu   sync.Mutex
	sent int
}

func newFakeRaw(finalize string) *fakeRaw {
	return &fakeRaw{in: make(chan streamUpdate), finalize: finalize, closed: make(chan struct{})}
}

func (f *fakeRaw) Send(pcm []byte) error {
	f.mu.Lock()
	f.sent += len(pcm)
	f.mu.Unlock()
	return nil
}

func (f *fakeRaw) CloseSend() error {
	go func() {
		select {
		case f.in <- streamUpdate{Transcript: f.finalize, IsFinal: true, FromFinalize: true}:
		case <-f.closed:
		}
	}()
	return nil
}

func (f *fakeRaw) Recv() (streamUpdate, error) {
	select {
	case u := <-f.in:
		return u, nil
	case <-f.closed:
		return streamUpdate{}, io.EOF
	}
}

func (f *fakeRaw) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func next(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("no transcript update")
		return ""
	}
}

func TestStreamSessionReplacesTranscript(t *testing.T) {
	defer goleak.VerifyNone(t)

	raw := newFakeRaw("how are you")
	s := newStreamSession(func() (rawStream, error) { return raw, nil })
	s.Feed(make([]byte, streamChunkBytes+100))

	steps := []struct {
		u    streamUpdate
		want string
	}{
		{streamUpdate{Transcript: "hel"}, "hel"},
		{streamUpdate{Transcript: "hello"}, "hello"},
		{streamUpdate{Transcript: "hello there", IsFinal: true}, "hello there"},
		{streamUpdate{Transcript: "how"}, "hello there how"},
	}
	for _, st := range steps {
		raw.in <- st.u
		if got := next(t, s.Updates()); got != st.want {
			t.Fatalf("update = %q, want %q", got, st.want)
		}
	}

	res, err := s.Close()
	if err != nil {
		t.Fatal(err)
	}
	if res.Text != "hello there how are you" || !res.HasText {
		t.Fatalf("result = %+v", res)
	}
	var last string
	for u := range s.Updates() {
		last = u
	}
	if last != "" && last != res.Text {
		t.Fatalf("last update %q differs from final %q", last, res.Text)
	}
	raw.mu.Lock()
	defer raw.mu.Unlock()
	if raw.sent != streamChunkBytes+100 {
		t.Fatalf("sent %d bytes, want %d", raw.sent, streamChunkBytes+100)
	}
}

func TestStreamSessionDialError(t *testing.T) {
	defer goleak.VerifyNone(t)

	boom := errors.New("dial failed")
	s := newStreamSession(func() (rawStream, error) { return nil, boom })
	s.Feed(make([]byte, streamChunkBytes*3))
	if _, err := s.Close(); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if _, ok := <-s.Updates(); ok {
		t.Fatal("updates still open")
	}
}

type stuckRaw struct {
	release chan struct{}
	n       int
}

func (r *stuckRaw) Send([]byte) error { return nil }
func (r *stuckRaw) CloseSend() error  { return nil }
func (r *stuckRaw) Close() error      { return nil }

// Recv ignores Close and only returns once released.
func (r *stuckRaw) Recv() (streamUpdate, error) {
	<-r.release
	r.n++
	if r.n == 1 {
		return streamUpdate{Transcript: "late", IsFinal: true}, nil
	}
	return streamUpdate{}, io.EOF
}

func TestStreamSessionCloseWithStuckReceiver(t *testing.T) {
	defer goleak.VerifyNone(t)

	saved := streamDrainMax
	streamDrainMax = 10 * time.Millisecond
	defer func() { streamDrainMax = saved }()

	raw := &stuckRaw{release: make(chan struct{})}
	s := newStreamSession(func() (rawStream, error) { return raw, nil })
	if _, err := s.Close(); err != nil {
		t.Fatal(err)
	}

	// The receiver wakes after Close returned; its late send must not hit
	// a closed channel and it must close updates on its way out.
	close(raw.release)
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-s.Updates():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("updates never closed")
		}
	}
}

func TestGroqBatchSession(t *testing.T) {
	var gotFile []byte
	var gotLang, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			return
		}
		gotAuth = r.Header.Get("Authorization")
		_, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil {
			http.Error(w, err.Error(), 400)
			return
		}
		mr := multipart.NewReader(r.Body, params["boundary"])
		for {
			p, err := mr.NextPart()
			if err != nil {
				break
			}
			data, _ := io.ReadAll(p)
			switch p.FormName() {
			case "file":
				gotFile = data
			case "language":
				gotLang = string(data)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text":" nice to meet you "}`))
	}))
	defer srv.Close()

	g := &Groq{apiKey: "key", apiURL: srv.URL, model: "m", client: traced.NewClient(time.Second)}
	s, err := g.NewSession(context.Background(), SessionConfig{Language: "en"})
	if err != nil {
		t.Fatal(err)
	}
	s.Feed(make([]byte, encoder.BlockSize*2+300))
	s.Feed(make([]byte, 501))
	res, err := s.Close()
	if err != nil {
		t.Fatal(err)
	}
	if res.Text != "nice to meet you" || !res.HasText {
		t.Fatalf("result = %+v", res)
	}
	if gotAuth != "Bearer key" || gotLang != "en" {
		t.Fatalf("auth=%q lang=%q", gotAuth, gotLang)
	}
	if len(gotFile) < 4 || string(gotFile[:4]) != "fLaC" {
		t.Fatal("upload is not FLAC")
	}
}

func TestGroqErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			return
		}
		http.Error(w, "quota", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	g := &Groq{apiKey: "key", apiURL: srv.URL, client: traced.NewClient(time.Second)}
	s, _ := g.NewSession(context.Background(), SessionConfig{})
	s.Feed(make([]byte, 2000))
	if _, err := s.Close(); err == nil || !strings.Contains(err.Error(), "429") {
		t.Fatalf("err = %v", err)
	}
}

func TestFakeRecognizer(t *testing.T) {
	f := &Fake{Text: "one two three"}
	s, err := f.NewSession(context.Background(), SessionConfig{})
	if err != nil {
		t.Fatal(err)
	}
	s.Feed(nil)
	s.Feed(nil)
	if got := next(t, s.Updates()); got != "one" {
		t.Fatalf("first = %q", got)
	}
	if got := next(t, s.Updates()); got != "one two" {
		t.Fatalf("second = %q", got)
	}
	res, _ := s.Close()
	if res.Text != "one two three" {
		t.Fatalf("final = %q", res.Text)
	}
}
