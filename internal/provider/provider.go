// Package provider abstracts the AI services that can produce an organize
// plan. Each implementation performs one request/response exchange and
// normalizes provider-specific truncation and error signaling into the
// shared contract below.
package provider

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// ErrTruncated is returned when the provider stopped generating because
// the output-token budget ran out. A truncated structured response cannot
// be safely repaired, so callers surface it as a hard failure and ask the
// user to retry.
var ErrTruncated = errors.New("response was truncated, retry")

// ErrNotConfigured is returned when no API key is available for a provider.
var ErrNotConfigured = errors.New("provider is not configured")

// Provider performs one prompt exchange against an AI service.
type Provider interface {
	// Name returns the stable identifier of the service ("google",
	// "openai", "anthropic", "openrouter").
	Name() string

	// Call sends a system and user prompt and returns the raw response
	// text. maxOutputTokens <= 0 means the provider default.
	Call(ctx context.Context, apiKey, systemPrompt, userPrompt string, maxOutputTokens int) (string, error)
}

// Registry resolves provider identifiers to implementations. It is built
// once at startup and injected; there is no package-level registry.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry creates a Registry over the given providers.
func NewRegistry(providers ...Provider) *Registry {
	m := make(map[string]Provider, len(providers))
	for _, p := range providers {
		m[p.Name()] = p
	}
	return &Registry{providers: m}
}

// Get returns the provider with the given identifier.
func (r *Registry) Get(id string) (Provider, error) {
	p, ok := r.providers[id]
	if !ok {
		return nil, fmt.Errorf("unknown AI provider %q (available: %v)", id, r.Names())
	}
	return p, nil
}

// Names returns the sorted identifiers of all registered providers.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
