package media_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/thierryishimwe250/quintet/pkg/provider/media"
)

// fakeAPI is a minimal stand-in for the Gemini REST API. Each request is
// answered with the next queued JSON body; request bodies are recorded for
// inspection.
type fakeAPI struct {
	mu        sync.Mutex
	responses []string
	requests  []string
	paths     []string
}

func (f *fakeAPI) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.requests = append(f.requests, string(body))
		f.paths = append(f.paths, r.URL.Path)
		var resp string
		if len(f.responses) > 0 {
			resp = f.responses[0]
			f.responses = f.responses[1:]
		} else {
			resp = `{}`
		}
		f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, resp)
	})
}

func (f *fakeAPI) lastRequest(t *testing.T) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		t.Fatal("no requests recorded")
	}
	return f.requests[len(f.requests)-1]
}

func newTestClient(t *testing.T, api *fakeAPI, opts ...media.Option) *media.Client {
	t.Helper()
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)

	opts = append(opts, media.WithBaseURL(srv.URL))
	c, err := media.New(context.Background(), "test-key", opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNew_RequiresAPIKey(t *testing.T) {
	if _, err := media.New(context.Background(), ""); err == nil {
		t.Fatal("New succeeded without an API key")
	}
}

func TestGenerateImage_ReturnsInlineImage(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G'}
	api := &fakeAPI{responses: []string{`{
		"candidates": [{
			"content": {"role": "model", "parts": [
				{"text": "Here you go."},
				{"inlineData": {"mimeType": "image/png", "data": "` + base64.StdEncoding.EncodeToString(png) + `"}}
			]}
		}]
	}`}}
	c := newTestClient(t, api)

	img, err := c.GenerateImage(context.Background(), "a lighthouse at dusk")
	if err != nil {
		t.Fatalf("GenerateImage: %v", err)
	}
	if img.MIMEType != "image/png" {
		t.Errorf("MIMEType = %q, want image/png", img.MIMEType)
	}
	if string(img.Data) != string(png) {
		t.Errorf("Data = %v, want %v", img.Data, png)
	}

	req := api.lastRequest(t)
	if !strings.Contains(req, "a lighthouse at dusk") {
		t.Errorf("request does not carry the prompt: %s", req)
	}
	if !strings.Contains(req, `"1:1"`) {
		t.Errorf("request does not carry the square aspect ratio: %s", req)
	}
}

func TestGenerateImage_NoImagePart(t *testing.T) {
	api := &fakeAPI{responses: []string{`{
		"candidates": [{"content": {"role": "model", "parts": [{"text": "cannot draw that"}]}}]
	}`}}
	c := newTestClient(t, api)

	_, err := c.GenerateImage(context.Background(), "nothing")
	if err != media.ErrNoImage {
		t.Fatalf("err = %v, want ErrNoImage", err)
	}
}

func TestSearch_ReturnsTextAndTypedSources(t *testing.T) {
	api := &fakeAPI{responses: []string{`{
		"candidates": [{
			"content": {"role": "model", "parts": [{"text": "The summit is 8849 m."}]},
			"groundingMetadata": {"groundingChunks": [
				{"web": {"uri": "https://example.org/everest", "title": "Everest"}},
				{"web": {"uri": "", "title": "dropped: no uri"}},
				{"retrievedContext": {"uri": "ignored"}}
			]}
		}]
	}`}}
	c := newTestClient(t, api)

	res, err := c.Search(context.Background(), "how tall is everest")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.Text != "The summit is 8849 m." {
		t.Errorf("Text = %q", res.Text)
	}
	if len(res.Sources) != 1 {
		t.Fatalf("Sources = %+v, want exactly one web source", res.Sources)
	}
	if res.Sources[0].URI != "https://example.org/everest" || res.Sources[0].Title != "Everest" {
		t.Errorf("source = %+v", res.Sources[0])
	}

	// The request must enable the search tool.
	var req struct {
		Tools []map[string]json.RawMessage `json:"tools"`
	}
	if err := json.Unmarshal([]byte(api.lastRequest(t)), &req); err != nil {
		t.Fatalf("unmarshal request: %v", err)
	}
	if len(req.Tools) != 1 {
		t.Fatalf("tools = %+v, want one", req.Tools)
	}
	if _, ok := req.Tools[0]["googleSearch"]; !ok {
		t.Errorf("googleSearch tool missing from request: %+v", req.Tools[0])
	}
}

func TestSearch_NoGrounding(t *testing.T) {
	api := &fakeAPI{responses: []string{`{
		"candidates": [{"content": {"role": "model", "parts": [{"text": "From memory."}]}}]
	}`}}
	c := newTestClient(t, api)

	res, err := c.Search(context.Background(), "something")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res.Sources) != 0 {
		t.Errorf("Sources = %+v, want none", res.Sources)
	}
}

func TestVideoJob_WaitHonoursCancellation(t *testing.T) {
	api := &fakeAPI{responses: []string{`{"name": "operations/op-1", "done": false}`}}
	// A poll interval far longer than the test: Wait must exit on ctx, not
	// on the timer.
	c := newTestClient(t, api, media.WithPollInterval(time.Hour))

	job, err := c.GenerateVideo(context.Background(), "a storm over the sea")
	if err != nil {
		t.Fatalf("GenerateVideo: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := job.Wait(ctx)
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		if err == nil || ctx.Err() == nil {
			t.Fatalf("Wait returned %v, want context cancellation", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return after cancellation")
	}
}
