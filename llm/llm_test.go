package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"google.golang.org/genai"
)

func TestClean(t *testing.T) {
	cases := []struct{ in, want string }{
		{"plain", "plain"},
		{"**Tip:** breathe", "\nTip:\n breathe"},
		{"* one\n* two", "  one\n  two"},
		{"***x***", "\n x\n "},
	}
	for _, tc := range cases {
		if got := Clean(tc.in); got != tc.want {
			t.Errorf("Clean(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestRespondFallback(t *testing.T) {
	ctx := context.Background()
	if got := Respond(ctx, Static{Err: errors.New("quota")}, "hi"); got != Fallback {
		t.Fatalf("Respond on error = %q", got)
	}
	if got := Respond(ctx, nil, "hi"); got != Fallback {
		t.Fatalf("Respond without generator = %q", got)
	}
	if got := Respond(ctx, Static{Text: "ok"}, "hi"); got != "ok" {
		t.Fatalf("Respond = %q", got)
	}
}

func TestPrompts(t *testing.T) {
	p := AssistantPrompt("I feel anxious")
	if !strings.HasPrefix(p, "You are Jarvis, specializing in helping neurodivergent individuals.") ||
		!strings.Contains(p, "Current user message: I feel anxious") {
		t.Fatalf("assistant prompt:\n%s", p)
	}
	f := FeedbackPrompt(0, "hello")
	if !strings.Contains(f, "Eye Contact: 0%") || !strings.Contains(f, "Transcript: hello") ||
		!strings.Contains(f, "4. Areas for improvement") {
		t.Fatalf("feedback prompt:\n%s", f)
	}
	if f := FeedbackPrompt(62.5, ""); !strings.Contains(f, "Eye Contact: 62.5%") {
		t.Fatalf("feedback prompt:\n%s", f)
	}
}

func TestGenerationConfig(t *testing.T) {
	c := generationConfig()
	if *c.Temperature != 0.5 || *c.TopP != 1 || *c.TopK != 32 || c.MaxOutputTokens != 512 {
		t.Fatalf("config = %+v", c)
	}
	if len(c.SafetySettings) != 4 {
		t.Fatalf("%d safety settings", len(c.SafetySettings))
	}
	for _, s := range c.SafetySettings {
		if s.Threshold != genai.HarmBlockThresholdBlockNone {
			t.Fatalf("threshold = %v", s.Threshold)
		}
	}
}

func TestNewGeminiRequiresKey(t *testing.T) {
	if _, err := NewGemini(context.Background(), "", ""); !errors.Is(err, ErrNoAPIKey) {
		t.Fatalf("err = %v", err)
	}
}
