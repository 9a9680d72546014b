package server

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/devansharma-72/sensory-support-hub/llm"
	"github.com/devansharma-72/sensory-support-hub/log"
)

const timestampLayout = "2006-01-02T15:04:05.000000-07:00"

type assistantReply struct {
	UserID    json.RawMessage `json:"user_id"`
	Response  string          `json:"response"`
	Timestamp string          `json:"timestamp"`
}

func (s *Server) handleAssistant(w http.ResponseWriter, r *http.Request) {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mt != "application/json" {
		writeError(w, http.StatusBadRequest, "Request must be JSON")
		return
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "No data received")
		return
	}
	var data map[string]json.RawMessage
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &data); err != nil {
			log.Warnf("assistant: bad json: %v", err)
			writeError(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "No data received")
		return
	}

	rawID, hasID := data["user_id"]
	rawMsg, hasMsg := data["message"]
	if !hasID || !hasMsg {
		writeError(w, http.StatusBadRequest, "Missing required fields: user_id and message")
		return
	}
	var message string
	if err := json.Unmarshal(rawMsg, &message); err != nil {
		writeError(w, http.StatusBadRequest, "message must be a string")
		return
	}
	message = strings.TrimSpace(message)
	if !truthy(rawID) || message == "" {
		writeError(w, http.StatusBadRequest, "user_id and message cannot be empty")
		return
	}

	text := llm.Respond(r.Context(), s.gen, llm.AssistantPrompt(message))
	writeJSON(w, http.StatusOK, assistantReply{
		UserID:    rawID,
		Response:  llm.Clean(text),
		Timestamp: s.now().UTC().Format(timestampLayout),
	})
}

// truthy treats null, false, 0, "" and empty containers as missing.
func truthy(raw json.RawMessage) bool {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case float64:
		return x != 0
	case string:
		return x != ""
	case []any:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	}
	return true
}
