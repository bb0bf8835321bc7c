// Package gateway exposes the five assistant modes over HTTP:
//
//   - POST /api/chat   — streamed text chat (NDJSON)
//   - POST /api/image  — image generation
//   - POST /api/search — search-grounded answers with typed sources
//   - POST /api/video  — video generation (NDJSON status stream)
//   - GET  /live       — realtime voice conversation over websocket
//   - GET  /api/transcripts — full-text search over persisted transcripts
//
// plus /healthz, /readyz, and Prometheus /metrics. The live endpoint bridges
// a browser client to a voice controller: inbound binary frames carry raw
// float32 microphone samples, outbound binary frames carry scheduled s16le
// playback audio, and JSON text frames carry status and transcript updates.
package gateway

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/thierryishimwe250/quintet/internal/health"
	"github.com/thierryishimwe250/quintet/internal/observe"
	"github.com/thierryishimwe250/quintet/internal/voice"
	"github.com/thierryishimwe250/quintet/pkg/provider/live"
	"github.com/thierryishimwe250/quintet/pkg/provider/llm"
	"github.com/thierryishimwe250/quintet/pkg/provider/media"
)

// VideoWaiter is a started video generation that can be waited on.
// Satisfied by [*media.VideoJob].
type VideoWaiter interface {
	Wait(ctx context.Context) (*media.Video, error)
}

// Media is the subset of the media client the gateway uses.
type Media interface {
	GenerateImage(ctx context.Context, prompt string) (*media.Image, error)
	Search(ctx context.Context, prompt string) (*media.SearchResult, error)
	GenerateVideo(ctx context.Context, prompt string) (VideoWaiter, error)
}

// WrapMedia adapts a concrete [*media.Client] to the [Media] interface.
func WrapMedia(c *media.Client) Media {
	return mediaAdapter{c}
}

type mediaAdapter struct {
	c *media.Client
}

func (a mediaAdapter) GenerateImage(ctx context.Context, prompt string) (*media.Image, error) {
	return a.c.GenerateImage(ctx, prompt)
}

func (a mediaAdapter) Search(ctx context.Context, prompt string) (*media.SearchResult, error) {
	return a.c.Search(ctx, prompt)
}

func (a mediaAdapter) GenerateVideo(ctx context.Context, prompt string) (VideoWaiter, error) {
	return a.c.GenerateVideo(ctx, prompt)
}

// Options configures a [Gateway]. Chat, Media and Live may each be nil, in
// which case the corresponding endpoints respond 503.
type Options struct {
	// Chat serves the text chat mode.
	Chat llm.Provider

	// ChatSystemPrompt is injected ahead of every chat conversation.
	ChatSystemPrompt string

	// Media serves the image, search and video modes.
	Media Media

	// Live opens realtime voice sessions.
	Live live.Provider

	// Voice is the session configuration for live conversations.
	Voice live.SessionConfig

	// Store persists live transcripts. Nil disables persistence.
	Store voice.Store

	// Transcripts answers full-text queries over persisted transcripts.
	// Satisfied by [*postgres.Store]. Nil disables the search endpoint.
	Transcripts TranscriptSearcher

	// RecordDir, when set, writes a WAV recording of each live session's
	// playback audio into this directory.
	RecordDir string

	// Metrics receives gateway instrumentation. Nil means
	// [observe.DefaultMetrics].
	Metrics *observe.Metrics

	// Ready lists readiness checks served on /readyz.
	Ready []health.Checker
}

// Gateway is the HTTP surface of the assistant. Safe for concurrent use.
type Gateway struct {
	opts    Options
	metrics *observe.Metrics
}

// New creates a Gateway from opts.
func New(opts Options) *Gateway {
	m := opts.Metrics
	if m == nil {
		m = observe.DefaultMetrics()
	}
	return &Gateway{opts: opts, metrics: m}
}

// Handler returns the gateway's routed handler wrapped in the observability
// middleware.
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat", g.handleChat)
	mux.HandleFunc("POST /api/image", g.handleImage)
	mux.HandleFunc("POST /api/search", g.handleSearch)
	mux.HandleFunc("POST /api/video", g.handleVideo)
	mux.HandleFunc("GET /api/transcripts", g.handleTranscripts)
	mux.HandleFunc("GET /live", g.handleLive)
	mux.Handle("GET /metrics", promhttp.Handler())
	health.New(g.opts.Ready...).Register(mux)

	return observe.Middleware(g.metrics)(mux)
}

// errorBody is the JSON error response shape used by all endpoints.
type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		observe.Logger(context.Background()).Warn("gateway: encode response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// decodePrompt reads a {"prompt": "..."} request body. Responds with 400 and
// returns false when the body is malformed or the prompt is empty.
func decodePrompt(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req struct {
		Prompt string `json:"prompt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return "", false
	}
	if req.Prompt == "" {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return "", false
	}
	return req.Prompt, true
}

// newSessionID returns a random 16-hex-digit session identifier.
func newSessionID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "session-unknown"
	}
	return hex.EncodeToString(b[:])
}
