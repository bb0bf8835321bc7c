package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/thierryishimwe250/quintet/pkg/provider/media"
)

// imageResponse is the POST /api/image reply. Data is base64-encoded by the
// JSON encoder.
type imageResponse struct {
	MIMEType string `json:"mimeType"`
	Data     []byte `json:"data"`
}

// handleImage generates a single image for the prompt.
func (g *Gateway) handleImage(w http.ResponseWriter, r *http.Request) {
	if g.opts.Media == nil {
		writeError(w, http.StatusServiceUnavailable, "image mode is not configured")
		return
	}
	prompt, ok := decodePrompt(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	img, err := g.opts.Media.GenerateImage(ctx, prompt)
	if err != nil {
		g.metrics.RecordModeRequest(ctx, "image", "error")
		if errors.Is(err, media.ErrNoImage) {
			writeError(w, http.StatusUnprocessableEntity, "the model did not produce an image")
			return
		}
		writeError(w, http.StatusBadGateway, "image generation failed")
		return
	}

	g.metrics.RecordModeRequest(ctx, "image", "ok")
	writeJSON(w, http.StatusOK, imageResponse{MIMEType: img.MIMEType, Data: img.Data})
}

// handleSearch answers the prompt with search grounding and returns the
// answer text with its typed source list.
func (g *Gateway) handleSearch(w http.ResponseWriter, r *http.Request) {
	if g.opts.Media == nil {
		writeError(w, http.StatusServiceUnavailable, "search mode is not configured")
		return
	}
	prompt, ok := decodePrompt(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	result, err := g.opts.Media.Search(ctx, prompt)
	if err != nil {
		g.metrics.RecordModeRequest(ctx, "search", "error")
		writeError(w, http.StatusBadGateway, "search failed")
		return
	}

	g.metrics.RecordModeRequest(ctx, "search", "ok")
	writeJSON(w, http.StatusOK, result)
}

// videoEvent is one NDJSON line of the video status stream. The stream never
// invents completion percentages; the API does not provide progress.
type videoEvent struct {
	Status   string `json:"status,omitempty"`
	URI      string `json:"uri,omitempty"`
	MIMEType string `json:"mimeType,omitempty"`
	Error    string `json:"error,omitempty"`
}

// handleVideo starts a video generation and streams status lines until the
// operation finishes or the client goes away. Closing the request aborts the
// wait; the poll loop never outlives the connection.
func (g *Gateway) handleVideo(w http.ResponseWriter, r *http.Request) {
	if g.opts.Media == nil {
		writeError(w, http.StatusServiceUnavailable, "video mode is not configured")
		return
	}
	prompt, ok := decodePrompt(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	start := time.Now()

	job, err := g.opts.Media.GenerateVideo(ctx, prompt)
	if err != nil {
		g.metrics.RecordModeRequest(ctx, "video", "error")
		writeError(w, http.StatusBadGateway, "video generation failed to start")
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	enc := json.NewEncoder(w)
	flusher, _ := w.(http.Flusher)

	emit := func(ev videoEvent) {
		_ = enc.Encode(ev)
		if flusher != nil {
			flusher.Flush()
		}
	}

	emit(videoEvent{Status: "processing"})

	video, err := job.Wait(ctx)
	g.metrics.VideoWaitDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		g.metrics.RecordModeRequest(ctx, "video", "error")
		emit(videoEvent{Error: "video generation failed"})
		return
	}

	g.metrics.RecordModeRequest(ctx, "video", "ok")
	emit(videoEvent{Status: "done", URI: video.URI, MIMEType: video.MIMEType})
}
