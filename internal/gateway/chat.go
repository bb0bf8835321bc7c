package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/thierryishimwe250/quintet/pkg/provider/llm"
)

// chatRequest is the POST /api/chat body.
type chatRequest struct {
	Message string        `json:"message"`
	History []llm.Message `json:"history"`
}

// chatChunk is one NDJSON line of the chat response stream.
type chatChunk struct {
	Text         string `json:"text,omitempty"`
	FinishReason string `json:"finishReason,omitempty"`
	Error        string `json:"error,omitempty"`
}

// handleChat streams a chat completion as NDJSON. Each line carries an
// incremental text fragment; the final line carries the finish reason.
func (g *Gateway) handleChat(w http.ResponseWriter, r *http.Request) {
	if g.opts.Chat == nil {
		writeError(w, http.StatusServiceUnavailable, "chat mode is not configured")
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	messages := append(append([]llm.Message(nil), req.History...), llm.Message{
		Role:    "user",
		Content: req.Message,
	})

	ctx := r.Context()
	stream, err := g.opts.Chat.StreamCompletion(ctx, llm.CompletionRequest{
		Messages:     messages,
		SystemPrompt: g.opts.ChatSystemPrompt,
	})
	if err != nil {
		g.metrics.RecordModeRequest(ctx, "chat", "error")
		writeError(w, http.StatusBadGateway, "chat backend unavailable")
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	enc := json.NewEncoder(w)
	flusher, _ := w.(http.Flusher)

	status := "ok"
	for chunk := range stream {
		line := chatChunk{Text: chunk.Text, FinishReason: chunk.FinishReason}
		if chunk.FinishReason == "error" {
			line = chatChunk{Error: chunk.Text}
			status = "error"
		}
		if err := enc.Encode(line); err != nil {
			status = "error"
			break
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
	g.metrics.RecordModeRequest(ctx, "chat", status)
}
