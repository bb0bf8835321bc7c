package gateway

import (
	"context"
	"net/http"
	"strconv"

	"github.com/thierryishimwe250/quintet/internal/observe"
	"github.com/thierryishimwe250/quintet/internal/store/postgres"
)

// TranscriptSearcher answers full-text queries over persisted transcript
// entries.
type TranscriptSearcher interface {
	Search(ctx context.Context, query string, opts postgres.SearchOpts) ([]postgres.StoredEntry, error)
}

const defaultSearchLimit = 100

// handleTranscripts serves GET /api/transcripts. Query parameters: q
// (required), session, role, limit.
func (g *Gateway) handleTranscripts(w http.ResponseWriter, r *http.Request) {
	if g.opts.Transcripts == nil {
		writeError(w, http.StatusServiceUnavailable, "transcript storage is not configured")
		g.metrics.RecordModeRequest(r.Context(), "transcripts", "unconfigured")
		return
	}

	q := r.URL.Query()
	query := q.Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		g.metrics.RecordModeRequest(r.Context(), "transcripts", "bad_request")
		return
	}

	opts := postgres.SearchOpts{
		SessionID: q.Get("session"),
		Role:      q.Get("role"),
		Limit:     defaultSearchLimit,
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			g.metrics.RecordModeRequest(r.Context(), "transcripts", "bad_request")
			return
		}
		opts.Limit = n
	}

	entries, err := g.opts.Transcripts.Search(r.Context(), query, opts)
	if err != nil {
		observe.Logger(r.Context()).Warn("gateway: transcript search", "err", err)
		writeError(w, http.StatusInternalServerError, "transcript search failed")
		g.metrics.RecordModeRequest(r.Context(), "transcripts", "error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
	g.metrics.RecordModeRequest(r.Context(), "transcripts", "ok")
}
