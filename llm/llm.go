// Package llm generates assistant replies and practice feedback.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/devansharma-72/sensory-support-hub/log"
)

// Fallback is returned to users whenever generation fails.
const Fallback = "I'm sorry, I couldn't generate a response at this time."

var ErrNoAPIKey = errors.New("GEMINI_API_KEY is not set")

type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Respond never fails: generation errors are logged and replaced by Fallback.
func Respond(ctx context.Context, gen Generator, prompt string) string {
	if gen == nil {
		return Fallback
	}
	text, err := gen.Generate(ctx, prompt)
	if err != nil {
		log.Errorf("generating response: %v", err)
		return Fallback
	}
	return text
}

// Clean turns markdown emphasis into plain text: "**" becomes a newline and
// any remaining "*" a space.
func Clean(s string) string {
	s = strings.ReplaceAll(s, "**", "\n")
	return strings.ReplaceAll(s, "*", " ")
}

func AssistantPrompt(message string) string {
	return fmt.Sprintf(`You are Jarvis, specializing in helping neurodivergent individuals.
Current user message: %s

Response Guidelines:
1. Use clear, concrete language with minimal metaphors
2. Maintain positive, non-judgmental tone
3. Keep responses under 100 words and in brief`, message)
}

func FeedbackPrompt(eyeContact float64, transcript string) string {
	return fmt.Sprintf(`Analyze this speech interaction:
Eye Contact: %s%%
Transcript: %s

Provide feedback on:
1. Communication effectiveness
2. Eye contact patterns
3. Speech clarity
4. Areas for improvement`, strconv.FormatFloat(eyeContact, 'f', -1, 64), transcript)
}

// Static always answers with the same text. Used when no API key is present
// and in tests.
type Static struct {
	Text string
	Err  error
}

func (s Static) Generate(context.Context, string) (string, error) {
	return s.Text, s.Err
}
