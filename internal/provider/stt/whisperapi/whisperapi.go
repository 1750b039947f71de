// Package whisperapi provides an STT provider backed by the OpenAI Whisper
// transcription endpoint. It implements the stt.Provider interface.
package whisperapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

const (
	transcriptionEndpoint = "https://api.openai.com/v1/audio/transcriptions"
	defaultModel          = "whisper-1"
)

// Option is a functional option for configuring the Provider.
type Option func(*Provider)

// WithModel sets the transcription model (e.g., "whisper-1").
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithLanguage sets an ISO-639-1 language hint (e.g., "en"). Empty lets the
// model auto-detect.
func WithLanguage(language string) Option {
	return func(p *Provider) {
		p.language = language
	}
}

// WithHTTPClient replaces the default HTTP client (useful for timeouts).
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = c
	}
}

// Provider implements stt.Provider backed by the OpenAI transcription API.
type Provider struct {
	apiKey     string
	model      string
	language   string
	httpClient *http.Client
}

// New creates a new Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("whisperapi: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:     apiKey,
		model:      defaultModel,
		httpClient: &http.Client{},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// transcriptionResponse is the JSON document returned by the endpoint.
type transcriptionResponse struct {
	Text string `json:"text"`
}

// Transcribe uploads the recording as multipart form data and returns the
// recognized text.
func (p *Provider) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if len(audio) == 0 {
		return "", errors.New("whisperapi: audio must not be empty")
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", fileName(mimeType))
	if err != nil {
		return "", fmt.Errorf("whisperapi: create form file: %w", err)
	}
	if _, err := fw.Write(audio); err != nil {
		return "", fmt.Errorf("whisperapi: write audio: %w", err)
	}
	if err := mw.WriteField("model", p.model); err != nil {
		return "", fmt.Errorf("whisperapi: write model field: %w", err)
	}
	if p.language != "" {
		if err := mw.WriteField("language", p.language); err != nil {
			return "", fmt.Errorf("whisperapi: write language field: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("whisperapi: close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, transcriptionEndpoint, &body)
	if err != nil {
		return "", fmt.Errorf("whisperapi: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("whisperapi: transcription request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("whisperapi: transcription failed: status %d: %s", resp.StatusCode, raw)
	}

	var tr transcriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("whisperapi: decode response: %w", err)
	}
	return tr.Text, nil
}

// Name implements stt.Provider.
func (p *Provider) Name() string {
	return "whisper-api"
}

// fileName picks a filename extension the endpoint recognizes for the given
// MIME type; the content itself is what matters.
func fileName(mimeType string) string {
	switch mimeType {
	case "audio/webm":
		return "audio.webm"
	case "audio/wav", "audio/x-wav":
		return "audio.wav"
	case "audio/ogg":
		return "audio.ogg"
	case "audio/mp4":
		return "audio.mp4"
	default:
		return "audio.mp3"
	}
}
