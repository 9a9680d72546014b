package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/devansharma-72/sensory-support-hub/traced"
)

const groqAPIURL = "https://api.groq.com/openai/v1/audio/transcriptions"

// Groq uploads the whole recording as FLAC when the session closes.
type Groq struct {
	apiKey string
	apiURL string
	model  string
	client *traced.Client
}

func NewGroq(apiKey string) *Groq {
	return &Groq{
		apiKey: apiKey,
		apiURL: groqAPIURL,
		model:  "whisper-large-v3-turbo",
		client: traced.NewClient(2 * time.Minute),
	}
}

func (g *Groq) Name() string    { return "groq" }
func (g *Groq) Supported() bool { return true }

func (g *Groq) NewSession(ctx context.Context, cfg SessionConfig) (Session, error) {
	go g.client.Warm(g.apiURL)
	lang := cfg.Language
	return newBatchSession(ctx, func(ctx context.Context, flac []byte) (string, []string, error) {
		return g.transcribe(ctx, flac, lang)
	})
}

type groqResponse struct {
	Text string `json:"text"`
}

func (g *Groq) transcribe(ctx context.Context, audio []byte, lang string) (string, []string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "audio.flac")
	if err != nil {
		return "", nil, err
	}
	if _, err := part.Write(audio); err != nil {
		return "", nil, err
	}
	writer.WriteField("model", g.model)
	writer.WriteField("response_format", "json")
	if lang != "" {
		writer.WriteField("language", lang)
	}
	if err := writer.Close(); err != nil {
		return "", nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.apiURL, &body)
	if err != nil {
		return "", nil, err
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := g.client.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("groq request: %w", err)
	}
	if !resp.OK() {
		return "", nil, fmt.Errorf("groq API error %d: %s", resp.StatusCode, resp.Body)
	}

	var gr groqResponse
	if err := json.Unmarshal(resp.Body, &gr); err != nil {
		return "", nil, fmt.Errorf("groq response parse error: %w", err)
	}
	remaining := traced.FirstHeader(resp.Header, "x-ratelimit-remaining-requests")
	limit := traced.FirstHeader(resp.Header, "x-ratelimit-limit-requests")
	return gr.Text, []string{
		"network:    " + resp.Metrics.String(),
		"ratelimit:  " + remaining + "/" + limit,
	}, nil
}
