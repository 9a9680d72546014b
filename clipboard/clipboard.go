// Package clipboard copies practice feedback to the system clipboard.
package clipboard

import (
	"errors"
	"strconv"
	"strings"

	cb "github.com/atotto/clipboard"
)

var ErrUnavailable = errors.New("no clipboard utility found (install xclip, xsel or wl-clipboard)")

// Available reports whether a clipboard backend exists on this system.
func Available() bool { return !cb.Unsupported }

func Copy(text string) error {
	if cb.Unsupported {
		return ErrUnavailable
	}
	return cb.WriteAll(text)
}

// Feedback formats an analysis, plus any notes the user added, for pasting
// elsewhere.
func Feedback(scenario string, eyeContact float64, transcript, feedback, notes string) string {
	var b strings.Builder
	b.WriteString("Scenario: " + scenario + "\n")
	b.WriteString("Eye contact: " + strconv.FormatFloat(eyeContact, 'f', -1, 64) + "%\n")
	if t := strings.TrimSpace(transcript); t != "" {
		b.WriteString("\nTranscript:\n" + t + "\n")
	}
	b.WriteString("\nFeedback:\n" + strings.TrimSpace(feedback) + "\n")
	if n := strings.TrimSpace(notes); n != "" {
		b.WriteString("\nNotes:\n" + n + "\n")
	}
	return b.String()
}
