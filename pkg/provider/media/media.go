// Package media wraps the Gemini API's non-realtime generation surfaces:
// image generation, search-grounded answers, and video generation.
//
// All operations go through a single [Client] backed by the official
// google.golang.org/genai SDK. Video generation is a long-running operation;
// [VideoJob.Wait] polls at a fixed interval and honours context cancellation
// so an abandoned request never leaks a poll loop.
package media

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/genai"
)

const (
	defaultImageModel  = "gemini-2.5-flash-image"
	defaultSearchModel = "gemini-3-flash-preview"
	defaultVideoModel  = "veo-3.1-fast-generate-preview"

	// Video operations take minutes; the API recommends polling no more
	// often than every few seconds.
	defaultPollInterval = 8 * time.Second
)

// ErrNoImage is returned when the model reply contains no image part.
var ErrNoImage = errors.New("media: response contains no image")

// ErrNoVideo is returned when a finished video operation carries no video.
var ErrNoVideo = errors.New("media: operation finished without a video")

// WebSource is one grounding source behind a search-grounded answer.
type WebSource struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

// SearchResult is a search-grounded answer with its typed source list.
type SearchResult struct {
	Text    string      `json:"text"`
	Sources []WebSource `json:"sources"`
}

// Image is a generated image.
type Image struct {
	Data     []byte
	MIMEType string
}

// Video is a finished generated video. URI points at the API's download
// endpoint; the caller appends its API key when fetching.
type Video struct {
	URI      string
	MIMEType string
}

// Option configures a [Client].
type Option func(*Client)

// WithImageModel overrides the image generation model.
func WithImageModel(model string) Option {
	return func(c *Client) { c.imageModel = model }
}

// WithSearchModel overrides the model used for search-grounded answers.
func WithSearchModel(model string) Option {
	return func(c *Client) { c.searchModel = model }
}

// WithVideoModel overrides the video generation model.
func WithVideoModel(model string) Option {
	return func(c *Client) { c.videoModel = model }
}

// WithPollInterval overrides the fixed video poll interval. Used in tests.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) { c.pollInterval = d }
}

// WithBaseURL points the client at an alternative API endpoint. Used in
// tests against a local fake.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// Client talks to the Gemini generation endpoints. Safe for concurrent use.
type Client struct {
	ai *genai.Client

	imageModel   string
	searchModel  string
	videoModel   string
	pollInterval time.Duration
	baseURL      string
}

// New creates a Client authenticated with apiKey.
func New(ctx context.Context, apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("media: api key must not be empty")
	}

	c := &Client{
		imageModel:   defaultImageModel,
		searchModel:  defaultSearchModel,
		videoModel:   defaultVideoModel,
		pollInterval: defaultPollInterval,
	}
	for _, o := range opts {
		o(c)
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if c.baseURL != "" {
		cfg.HTTPOptions.BaseURL = c.baseURL
	}

	ai, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("media: create client: %w", err)
	}
	c.ai = ai
	return c, nil
}

// GenerateImage produces a single square image for prompt. Returns
// [ErrNoImage] when the model replies without an image part.
func (c *Client) GenerateImage(ctx context.Context, prompt string) (*Image, error) {
	resp, err := c.ai.Models.GenerateContent(ctx, c.imageModel, genai.Text(prompt), &genai.GenerateContentConfig{
		ImageConfig: &genai.ImageConfig{AspectRatio: "1:1"},
	})
	if err != nil {
		return nil, fmt.Errorf("media: generate image: %w", err)
	}

	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return &Image{
					Data:     part.InlineData.Data,
					MIMEType: part.InlineData.MIMEType,
				}, nil
			}
		}
	}
	return nil, ErrNoImage
}

// Search answers prompt with Google Search grounding enabled and returns the
// answer text together with the typed list of web sources it was grounded on.
// Sources may be empty when the model answered without searching.
func (c *Client) Search(ctx context.Context, prompt string) (*SearchResult, error) {
	resp, err := c.ai.Models.GenerateContent(ctx, c.searchModel, genai.Text(prompt), &genai.GenerateContentConfig{
		Tools: []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
	})
	if err != nil {
		return nil, fmt.Errorf("media: search: %w", err)
	}

	result := &SearchResult{Text: resp.Text()}
	for _, cand := range resp.Candidates {
		if cand.GroundingMetadata == nil {
			continue
		}
		for _, chunk := range cand.GroundingMetadata.GroundingChunks {
			if chunk.Web == nil || chunk.Web.URI == "" {
				continue
			}
			result.Sources = append(result.Sources, WebSource{
				URI:   chunk.Web.URI,
				Title: chunk.Web.Title,
			})
		}
	}
	return result, nil
}

// VideoJob is a started long-running video generation operation.
type VideoJob struct {
	client *Client
	op     *genai.GenerateVideosOperation
}

// GenerateVideo starts a video generation operation for prompt. The returned
// job must be waited on with [VideoJob.Wait].
func (c *Client) GenerateVideo(ctx context.Context, prompt string) (*VideoJob, error) {
	op, err := c.ai.Models.GenerateVideos(ctx, c.videoModel, prompt, nil, &genai.GenerateVideosConfig{
		NumberOfVideos: 1,
		Resolution:     "720p",
		AspectRatio:    "16:9",
	})
	if err != nil {
		return nil, fmt.Errorf("media: generate video: %w", err)
	}
	return &VideoJob{client: c, op: op}, nil
}

// Wait polls the operation at the client's fixed interval until it finishes
// or ctx is cancelled. No completion percentage is reported because the API
// does not provide one.
func (j *VideoJob) Wait(ctx context.Context) (*Video, error) {
	for !j.op.Done {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("media: wait video: %w", ctx.Err())
		case <-time.After(j.client.pollInterval):
		}

		op, err := j.client.ai.Operations.GetVideosOperation(ctx, j.op, nil)
		if err != nil {
			return nil, fmt.Errorf("media: poll video: %w", err)
		}
		j.op = op
	}

	if j.op.Response == nil || len(j.op.Response.GeneratedVideos) == 0 {
		return nil, ErrNoVideo
	}
	v := j.op.Response.GeneratedVideos[0].Video
	if v == nil || v.URI == "" {
		return nil, ErrNoVideo
	}
	return &Video{URI: v.URI, MIMEType: v.MIMEType}, nil
}
