// Package llm defines the Provider interface for generative text backends.
//
// The certification engine uses an LLM for two request/response tasks:
// generating follow-up questions that target a trainee's weakest competency,
// and grading a transcript against a question's rubric. Both callers expect a
// single JSON document back and parse it themselves; providers only move text.
//
// Implementations must be safe for concurrent use.
package llm

import "context"

// Message is a single turn of conversation history passed to the model.
type Message struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the text content of the message.
	Content string
}

// Request describes one completion call.
type Request struct {
	// SystemPrompt, when non-empty, is prepended as a system message.
	SystemPrompt string

	// Messages is the ordered conversation history.
	Messages []Message

	// Temperature controls sampling randomness. Zero means provider default.
	Temperature float64

	// MaxTokens caps the completion length. Zero means provider default.
	MaxTokens int
}

// Provider is the abstraction over any LLM backend.
type Provider interface {
	// Complete performs a single blocking completion and returns the
	// assistant's text content. Implementations must honour ctx cancellation
	// and deadlines; a timed-out call is indistinguishable from any other
	// provider error to the caller.
	Complete(ctx context.Context, req Request) (string, error)

	// Name identifies the backend in logs.
	Name() string
}
