// Package assistant answers chat messages for the assistant widget.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/devansharma-72/sensory-support-hub/traced"
)

const Path = "/api/assistant"

type Responder interface {
	Respond(ctx context.Context, userID, message string) (string, error)
}

type HTTPResponder struct {
	baseURL string
	http    *traced.Client
}

func NewHTTPResponder(baseURL string) *HTTPResponder {
	return &HTTPResponder{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    traced.NewClient(time.Minute),
	}
}

type request struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

type reply struct {
	Response string `json:"response"`
	Error    string `json:"error"`
}

func (h *HTTPResponder) Respond(ctx context.Context, userID, message string) (string, error) {
	body, err := json.Marshal(request{UserID: userID, Message: message})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+Path, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("assistant request: %w", err)
	}
	var r reply
	if err := json.Unmarshal(resp.Body, &r); err != nil && resp.OK() {
		return "", fmt.Errorf("assistant response: %w", err)
	}
	if !resp.OK() {
		if r.Error != "" {
			return "", fmt.Errorf("assistant: HTTP %d: %s", resp.StatusCode, r.Error)
		}
		return "", fmt.Errorf("assistant: HTTP %d", resp.StatusCode)
	}
	if strings.TrimSpace(r.Response) == "" {
		return "", errors.New("assistant: empty response")
	}
	return r.Response, nil
}

const (
	anxietyReply   = "Feeling anxious is common. Try taking deep breaths - inhale for 4 counts, hold for 4, exhale for 6. Would you like more calming techniques?"
	overwhelmReply = "When you're feeling overwhelmed, try the 5-4-3-2-1 grounding technique: acknowledge 5 things you can see, 4 things you can touch, 3 things you can hear, 2 things you can smell, and 1 thing you can taste."
)

var cannedLines = []string{
	"I understand that can be challenging. Would you like some strategies to help?",
	"That's a good question. Based on common practices, you might want to consider...",
	"I hear you. Many people with sensory sensitivities find that...",
	"Let me help you with that. Have you tried...",
	"Great job on recognizing that pattern. Would you like to explore this further?",
}

// Canned answers offline with keyword replies and otherwise a random line.
type Canned struct {
	// Pick chooses an index in [0,n). Defaults to math/rand.
	Pick func(n int) int
}

func (c Canned) Respond(_ context.Context, _ string, message string) (string, error) {
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "anxious"), strings.Contains(lower, "anxiety"):
		return anxietyReply, nil
	case strings.Contains(lower, "overwhelm"):
		return overwhelmReply, nil
	}
	pick := c.Pick
	if pick == nil {
		pick = rand.IntN
	}
	return cannedLines[pick(len(cannedLines))], nil
}
