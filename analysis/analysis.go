// Package analysis submits a finished recording to the backend for feedback.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/devansharma-72/sensory-support-hub/traced"
)

const Path = "/api/analyze-video"

// Result mirrors the backend response body.
type Result struct {
	EyeContact float64 `json:"eyeContact"`
	Transcript string  `json:"transcript"`
	Feedback   string  `json:"feedback"`
}

// Media is a finalized recording.
type Media struct {
	Name        string
	ContentType string
	Data        []byte
}

type Analyzer interface {
	Analyze(ctx context.Context, media Media, transcript string) (Result, error)
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("analysis failed: HTTP %d: %s", e.Code, strings.TrimSpace(e.Body))
}

type Client struct {
	baseURL string
	http    *traced.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    traced.NewClient(3 * time.Minute),
	}
}

func (c *Client) Analyze(ctx context.Context, media Media, transcript string) (Result, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="video"; filename=%q`, media.Name))
	ct := media.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h.Set("Content-Type", ct)
	part, err := w.CreatePart(h)
	if err != nil {
		return Result{}, err
	}
	if _, err := part.Write(media.Data); err != nil {
		return Result{}, err
	}
	if err := w.WriteField("transcript", transcript); err != nil {
		return Result{}, err
	}
	if err := w.Close(); err != nil {
		return Result{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+Path, &body)
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("analysis request: %w", err)
	}
	if !resp.OK() {
		return Result{}, &StatusError{Code: resp.StatusCode, Body: string(resp.Body)}
	}

	var res Result
	if err := json.Unmarshal(resp.Body, &res); err != nil {
		return Result{}, fmt.Errorf("analysis response: %w", err)
	}
	return res, nil
}
