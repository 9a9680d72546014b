package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"

	"github.com/devansharma-72/sensory-support-hub/analysis"
	"github.com/devansharma-72/sensory-support-hub/llm"
	"github.com/devansharma-72/sensory-support-hub/log"
)

// EyeTracker measures the share of frames where the speaker looks at the
// camera, as a percentage.
type EyeTracker interface {
	EyeContact(ctx context.Context, path string) (float64, error)
}

// NoFaceTracker reports 0, the value for a recording with no face frames.
type NoFaceTracker struct{}

func (NoFaceTracker) EyeContact(context.Context, string) (float64, error) { return 0, nil }

func (s *Server) handleAnalyzeVideo(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(32 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		log.Errorf("analyze: parse form: %v", err)
		writeError(w, http.StatusInternalServerError, "Analysis failed")
		return
	}
	file, header, err := r.FormFile("video")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Video file is required")
		return
	}
	defer file.Close()
	transcript := r.FormValue("transcript")

	res, err := s.analyze(r.Context(), file, header.Filename, transcript)
	if err != nil {
		log.Errorf("analyze: %v", err)
		writeError(w, http.StatusInternalServerError, "Analysis failed")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) analyze(ctx context.Context, src io.Reader, name, transcript string) (analysis.Result, error) {
	ext := filepath.Ext(name)
	if ext == "" {
		ext = ".webm"
	}
	tmp, err := os.CreateTemp("", "analysis-*"+ext)
	if err != nil {
		return analysis.Result{}, fmt.Errorf("spool upload: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		return analysis.Result{}, fmt.Errorf("spool upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return analysis.Result{}, fmt.Errorf("spool upload: %w", err)
	}

	eye, err := s.eyes.EyeContact(ctx, tmp.Name())
	if err != nil {
		return analysis.Result{}, fmt.Errorf("eye contact: %w", err)
	}
	eye = math.Round(eye*100) / 100

	feedback := llm.Respond(ctx, s.gen, llm.FeedbackPrompt(eye, transcript))
	return analysis.Result{
		EyeContact: eye,
		Transcript: transcript,
		Feedback:   llm.Clean(feedback),
	}, nil
}
