package speech

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/devansharma-72/sensory-support-hub/encoder"
	"nhooyr.io/websocket"
)

const deepgramStreamURL = "wss://api.deepgram.com/v1/listen"

// Deepgram streams PCM over a websocket and reports interim results.
type Deepgram struct {
	apiKey   string
	endpoint string
	model    string
}

func NewDeepgram(apiKey string) *Deepgram {
	return &Deepgram{apiKey: apiKey, endpoint: deepgramStreamURL, model: "nova-3"}
}

func (d *Deepgram) Name() string    { return "deepgram" }
func (d *Deepgram) Supported() bool { return true }

func (d *Deepgram) NewSession(ctx context.Context, cfg SessionConfig) (Session, error) {
	return newStreamSession(func() (rawStream, error) {
		return d.dial(ctx, cfg)
	}), nil
}

func (d *Deepgram) streamURL(cfg SessionConfig) (string, error) {
	endpoint, err := url.Parse(d.endpoint)
	if err != nil {
		return "", err
	}
	rate := cfg.SampleRate
	if rate == 0 {
		rate = encoder.SampleRate
	}
	q := endpoint.Query()
	q.Set("model", d.model)
	q.Set("encoding", "linear16")
	q.Set("sample_rate", strconv.Itoa(rate))
	q.Set("channels", strconv.Itoa(encoder.Channels))
	q.Set("interim_results", "true")
	q.Set("smart_format", "true")
	if cfg.Language != "" {
		q.Set("language", cfg.Language)
	}
	endpoint.RawQuery = q.Encode()
	return endpoint.String(), nil
}

type deepgramMessage struct {
	Type         string `json:"type"`
	IsFinal      bool   `json:"is_final"`
	SpeechFinal  bool   `json:"speech_final"`
	FromFinalize bool   `json:"from_finalize"`
	Channel      struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"channel"`
}

type deepgramStream struct {
	conn   *websocket.Conn
	ctx    context.Context
	cancel context.CancelFunc
}

func (d *Deepgram) dial(ctx context.Context, cfg SessionConfig) (rawStream, error) {
	u, err := d.streamURL(cfg)
	if err != nil {
		return nil, err
	}
	headers := http.Header{}
	headers.Set("Authorization", "Token "+d.apiKey)

	streamCtx, cancel := context.WithCancel(ctx)
	conn, _, err := websocket.Dial(streamCtx, u, &websocket.DialOptions{HTTPHeader: headers})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("deepgram dial: %w", err)
	}
	return &deepgramStream{conn: conn, ctx: streamCtx, cancel: cancel}, nil
}

func (s *deepgramStream) Send(pcm []byte) error {
	return s.conn.Write(s.ctx, websocket.MessageBinary, pcm)
}

func (s *deepgramStream) CloseSend() error {
	return s.conn.Write(s.ctx, websocket.MessageText, []byte(`{"type":"Finalize"}`))
}

func (s *deepgramStream) Recv() (streamUpdate, error) {
	_, data, err := s.conn.Read(s.ctx)
	if err != nil {
		return streamUpdate{}, err
	}
	return parseDeepgram(data)
}

func parseDeepgram(data []byte) (streamUpdate, error) {
	var msg deepgramMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return streamUpdate{}, fmt.Errorf("deepgram message: %w", err)
	}
	transcript := ""
	if len(msg.Channel.Alternatives) > 0 {
		transcript = msg.Channel.Alternatives[0].Transcript
	}
	return streamUpdate{
		Transcript:   strings.TrimSpace(transcript),
		IsFinal:      msg.IsFinal || msg.SpeechFinal,
		FromFinalize: msg.FromFinalize,
	}, nil
}

func (s *deepgramStream) Close() error {
	s.cancel()
	return s.conn.Close(websocket.StatusNormalClosure, "")
}
