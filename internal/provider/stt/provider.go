// Package stt defines the Provider interface for speech-to-text backends.
//
// Trainee answers arrive as complete recordings, so providers work
// request/response against pre-recorded audio rather than streaming.
// Implementations must be safe for concurrent use.
package stt

import "context"

// Provider is the abstraction over any STT backend.
type Provider interface {
	// Transcribe converts a complete audio recording into text. mimeType
	// describes the encoding of audio (e.g., "audio/webm", "audio/mpeg");
	// implementations may ignore it if the backend sniffs the format.
	// Implementations must honour ctx cancellation and deadlines.
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)

	// Name identifies the backend in logs.
	Name() string
}
