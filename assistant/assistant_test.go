package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCannedKeywords(t *testing.T) {
	c := Canned{Pick: func(n int) int { return n - 1 }}
	tests := []struct {
		in   string
		want string
	}{
		{"I feel ANXIOUS today", anxietyReply},
		{"my anxiety is high", anxietyReply},
		{"Everything is overwhelming", overwhelmReply},
		{"anxious and overwhelmed", anxietyReply},
		{"what should I eat", cannedLines[len(cannedLines)-1]},
	}
	for _, tt := range tests {
		got, err := c.Respond(context.Background(), "u", tt.in)
		if err != nil {
			t.Fatal(err)
		}
		if got != tt.want {
			t.Errorf("Respond(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCannedRandomLineInRange(t *testing.T) {
	var c Canned
	for i := 0; i < 50; i++ {
		got, _ := c.Respond(context.Background(), "u", "hello")
		found := false
		for _, l := range cannedLines {
			if l == got {
				found = true
			}
		}
		if !found {
			t.Fatalf("unexpected line %q", got)
		}
	}
}

func TestHTTPResponder(t *testing.T) {
	var got request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != Path || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"user_id":"abc","response":"Try a short walk.","timestamp":"x"}`))
	}))
	defer srv.Close()

	text, err := NewHTTPResponder(srv.URL+"/").Respond(context.Background(), "abc", "I can't focus")
	if err != nil {
		t.Fatal(err)
	}
	if text != "Try a short walk." {
		t.Errorf("text = %q", text)
	}
	if diff := cmp.Diff(request{UserID: "abc", Message: "I can't focus"}, got); diff != "" {
		t.Errorf("request mismatch (-want +got):\n%s", diff)
	}
}

func TestHTTPResponderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"user_id and message cannot be empty"}`))
	}))
	defer srv.Close()

	_, err := NewHTTPResponder(srv.URL).Respond(context.Background(), "abc", "x")
	if err == nil || !strings.Contains(err.Error(), "cannot be empty") {
		t.Fatalf("err = %v", err)
	}
}

type failing struct{}

func (failing) Respond(context.Context, string, string) (string, error) {
	return "", errors.New("offline")
}

func TestChat(t *testing.T) {
	c := NewChat(Canned{}, "u")
	if _, ok := c.Send(context.Background(), "   "); ok {
		t.Error("blank input was sent")
	}
	reply, ok := c.Send(context.Background(), "so much anxiety")
	if !ok || reply.Content != anxietyReply {
		t.Fatalf("reply = %+v, %v", reply, ok)
	}
	want := []Message{
		{RoleAssistant, Greeting},
		{RoleUser, "so much anxiety"},
		{RoleAssistant, anxietyReply},
	}
	if diff := cmp.Diff(want, c.Messages()); diff != "" {
		t.Errorf("messages mismatch (-want +got):\n%s", diff)
	}
}

func TestChatResponderError(t *testing.T) {
	c := NewChat(failing{}, "u")
	reply, ok := c.Send(context.Background(), "hello")
	if !ok || reply.Content != Apology {
		t.Fatalf("reply = %+v", reply)
	}
	if n := len(c.Messages()); n != 3 {
		t.Errorf("messages = %d, want 3", n)
	}
}
