// Package tts defines the Provider interface for text-to-speech backends.
//
// Certification questions are short, so providers work request/response: pass
// the full question text, get the encoded audio back. Streaming synthesis is
// deliberately out of scope. Implementations must be safe for concurrent use.
package tts

import "context"

// Provider is the abstraction over any TTS backend.
type Provider interface {
	// Synthesize converts text into encoded audio bytes (MP3 unless the
	// implementation documents otherwise). Implementations must honour ctx
	// cancellation and deadlines.
	Synthesize(ctx context.Context, text string) ([]byte, error)

	// Name identifies the backend in logs.
	Name() string
}
