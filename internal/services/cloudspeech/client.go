package cloudspeech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"screenreview/internal/services"
	"screenreview/internal/transcribe"
)

const defaultHTTPTimeout = 120 * time.Second

// Config captures the runtime settings for the transcription endpoint.
type Config struct {
	BaseURL        string
	Model          string
	APIKey         string
	TimeoutSeconds int
}

// Client posts audio files to the transcriptions endpoint.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a cloud transcription client.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			Model:          strings.TrimSpace(cfg.Model),
			APIKey:         strings.TrimSpace(cfg.APIKey),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = "https://api.openai.com/v1"
	}
	return client
}

// Name identifies this provider in transcripts and logs.
func (c *Client) Name() string { return "cloud" }

// Model returns the configured model name for cost tracking.
func (c *Client) Model() string { return c.cfg.Model }

// transcriptionResponse is the verbose_json payload of the endpoint.
type transcriptionResponse struct {
	Text     string `json:"text"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

// Transcribe uploads the audio file and returns timestamped segments.
// Endpoints that omit segment timing still yield the full text as a single
// untimed segment.
func (c *Client) Transcribe(ctx context.Context, audioPath, language string) (transcribe.Result, error) {
	var result transcribe.Result
	if c.cfg.APIKey == "" {
		return result, services.Wrap(services.ErrProviderUnavailable, "transcribe", "cloud", "api key not configured", nil)
	}

	audio, err := os.Open(audioPath)
	if err != nil {
		return result, services.Wrap(services.ErrExternalTool, "transcribe", "cloud", "open audio file", err)
	}
	defer audio.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err == nil {
		_, err = io.Copy(part, audio)
	}
	if err == nil {
		err = writer.WriteField("model", c.cfg.Model)
	}
	if err == nil {
		err = writer.WriteField("response_format", "verbose_json")
	}
	if err == nil && language != "" {
		err = writer.WriteField("language", language)
	}
	if err == nil {
		err = writer.Close()
	}
	if err != nil {
		return result, services.Wrap(services.ErrExternalTool, "transcribe", "cloud", "build request body", err)
	}

	endpoint := c.cfg.BaseURL + "/audio/transcriptions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return result, services.Wrap(services.ErrExternalTool, "transcribe", "cloud", "build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		return result, services.Wrap(services.ErrProviderTimeout, "transcribe", "cloud", "transcription request failed", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return result, services.Wrap(services.ErrExternalTool, "transcribe", "cloud", "read response", err)
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return result, services.Wrap(services.ErrProviderUnavailable, "transcribe", "cloud",
			fmt.Sprintf("authentication rejected (http %d)", resp.StatusCode), nil)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return result, services.Wrap(services.ErrExternalTool, "transcribe", "cloud",
			fmt.Sprintf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(payload))), nil)
	}

	var parsed transcriptionResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return result, services.Wrap(services.ErrExternalTool, "transcribe", "cloud", "parse response", err)
	}
	for _, seg := range parsed.Segments {
		result.Segments = append(result.Segments, transcribe.Segment{
			Start: seg.Start,
			End:   seg.End,
			Text:  strings.TrimSpace(seg.Text),
		})
	}
	result.Text = strings.TrimSpace(parsed.Text)
	if result.Text == "" {
		result.Text = transcribe.FullText(result.Segments)
	}
	if len(result.Segments) == 0 && result.Text != "" {
		result.Segments = []transcribe.Segment{{Text: result.Text}}
	}
	return result, nil
}
