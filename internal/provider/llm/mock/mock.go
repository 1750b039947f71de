// Package mock provides a test double for the llm.Provider interface.
//
// Use Provider in unit tests to feed controlled completions without a live
// backend. Set Err to inject a provider failure.
package mock

import (
	"context"
	"sync"

	"github.com/certivox/certivox-backend/internal/provider/llm"
)

// CompleteCall records a single invocation of Complete.
type CompleteCall struct {
	// Ctx is the context passed to Complete.
	Ctx context.Context
	// Req is the Request passed to Complete.
	Req llm.Request
}

// Provider is a mock implementation of llm.Provider.
type Provider struct {
	mu sync.Mutex

	// Content is returned by Complete on success.
	Content string

	// Err, if non-nil, is returned as the error from Complete.
	Err error

	// CompleteFn, if non-nil, overrides Content/Err entirely.
	CompleteFn func(ctx context.Context, req llm.Request) (string, error)

	// Calls records every invocation of Complete in order.
	Calls []CompleteCall
}

// Compile-time interface assertion.
var _ llm.Provider = (*Provider)(nil)

// Complete implements llm.Provider.
func (p *Provider) Complete(ctx context.Context, req llm.Request) (string, error) {
	p.mu.Lock()
	p.Calls = append(p.Calls, CompleteCall{Ctx: ctx, Req: req})
	fn := p.CompleteFn
	content, err := p.Content, p.Err
	p.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	if err != nil {
		return "", err
	}
	return content, nil
}

// Name implements llm.Provider.
func (p *Provider) Name() string {
	return "mock"
}

// CallCount returns how many times Complete has been invoked.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}
