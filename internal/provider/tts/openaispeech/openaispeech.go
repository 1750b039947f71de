// Package openaispeech provides a TTS provider backed by the OpenAI speech
// synthesis endpoint. It implements the tts.Provider interface and is used as
// the secondary tier behind ElevenLabs.
package openaispeech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

const (
	speechEndpoint = "https://api.openai.com/v1/audio/speech"
	defaultModel   = "gpt-4o-mini-tts"
	defaultVoice   = "alloy"
)

// Option is a functional option for configuring the Provider.
type Option func(*Provider)

// WithModel sets the speech model (e.g., "gpt-4o-mini-tts", "tts-1").
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithVoice sets the voice name (e.g., "alloy", "nova").
func WithVoice(voice string) Option {
	return func(p *Provider) {
		p.voice = voice
	}
}

// WithHTTPClient replaces the default HTTP client (useful for timeouts).
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = c
	}
}

// Provider implements tts.Provider backed by the OpenAI speech API.
type Provider struct {
	apiKey     string
	model      string
	voice      string
	httpClient *http.Client
}

// New creates a new Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("openaispeech: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:     apiKey,
		model:      defaultModel,
		voice:      defaultVoice,
		httpClient: &http.Client{},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// speechRequest is the JSON payload for the speech endpoint.
type speechRequest struct {
	Model          string `json:"model"`
	Input          string `json:"input"`
	Voice          string `json:"voice"`
	ResponseFormat string `json:"response_format"`
}

// Synthesize performs one blocking synthesis call and returns MP3 bytes.
func (p *Provider) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if text == "" {
		return nil, errors.New("openaispeech: text must not be empty")
	}

	payload, err := json.Marshal(speechRequest{
		Model:          p.model,
		Input:          text,
		Voice:          p.voice,
		ResponseFormat: "mp3",
	})
	if err != nil {
		return nil, fmt.Errorf("openaispeech: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, speechEndpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("openaispeech: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openaispeech: speech request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("openaispeech: synthesis failed: status %d: %s", resp.StatusCode, body)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("openaispeech: read audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, errors.New("openaispeech: empty audio response")
	}
	return audio, nil
}

// Name implements tts.Provider.
func (p *Provider) Name() string {
	return "openai-speech"
}
