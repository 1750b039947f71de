// Package mock provides a test double for the stt.Provider interface.
package mock

import (
	"context"
	"sync"

	"github.com/certivox/certivox-backend/internal/provider/stt"
)

// TranscribeCall records a single invocation of Transcribe.
type TranscribeCall struct {
	// Ctx is the context passed to Transcribe.
	Ctx context.Context
	// Audio is a copy of the bytes passed to Transcribe.
	Audio []byte
	// MimeType is the MIME type passed to Transcribe.
	MimeType string
}

// Provider is a mock implementation of stt.Provider.
type Provider struct {
	mu sync.Mutex

	// Transcript is returned by Transcribe on success.
	Transcript string

	// Err, if non-nil, is returned as the error from Transcribe.
	Err error

	// Errs, if non-empty, is consumed one entry per call before falling back
	// to Err/Transcript. A nil entry means that call succeeds. This makes
	// fail-once-then-succeed retry tests straightforward.
	Errs []error

	// Calls records every invocation of Transcribe in order.
	Calls []TranscribeCall
}

// Compile-time interface assertion.
var _ stt.Provider = (*Provider)(nil)

// Transcribe implements stt.Provider.
func (p *Provider) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	p.mu.Lock()
	cp := make([]byte, len(audio))
	copy(cp, audio)
	p.Calls = append(p.Calls, TranscribeCall{Ctx: ctx, Audio: cp, MimeType: mimeType})

	var err error
	if len(p.Errs) > 0 {
		err = p.Errs[0]
		p.Errs = p.Errs[1:]
	} else {
		err = p.Err
	}
	transcript := p.Transcript
	p.mu.Unlock()

	if err != nil {
		return "", err
	}
	return transcript, nil
}

// Name implements stt.Provider.
func (p *Provider) Name() string {
	return "mock"
}

// CallCount returns how many times Transcribe has been invoked.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}
