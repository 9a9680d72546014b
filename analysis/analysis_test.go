package analysis

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestAnalyzeSuccess(t *testing.T) {
	var gotVideo []byte
	var gotName, gotTranscript, gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != Path {
			http.NotFound(w, r)
			return
		}
		f, hdr, err := r.FormFile("video")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		gotVideo, _ = io.ReadAll(f)
		gotName = hdr.Filename
		gotType = hdr.Header.Get("Content-Type")
		gotTranscript = r.FormValue("transcript")
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"eyeContact":80,"transcript":"hi","feedback":"good"}`)
	}))
	defer srv.Close()

	media := Media{Name: "recording.flac", ContentType: "audio/flac", Data: []byte("fLaC-data")}
	got, err := NewClient(srv.URL+"/").Analyze(context.Background(), media, "hi")
	if err != nil {
		t.Fatal(err)
	}
	want := Result{EyeContact: 80, Transcript: "hi", Feedback: "good"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}
	if string(gotVideo) != "fLaC-data" || gotName != "recording.flac" || gotType != "audio/flac" || gotTranscript != "hi" {
		t.Fatalf("upload: video=%q name=%q type=%q transcript=%q", gotVideo, gotName, gotType, gotTranscript)
	}
}

func TestAnalyzeServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"error":"Analysis failed"}`)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Analyze(context.Background(), Media{Name: "a.flac", Data: []byte{1}}, "x")
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusInternalServerError {
		t.Fatalf("err = %v, want StatusError 500", err)
	}
}

func TestAnalyzeBadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "not json")
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL).Analyze(context.Background(), Media{Data: []byte{1}}, ""); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestAnalyzeUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	if _, err := NewClient(url).Analyze(context.Background(), Media{Data: []byte{1}}, ""); err == nil {
		t.Fatal("expected network error")
	}
}
