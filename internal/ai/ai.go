// Package ai defines the capability boundary for remote reasoning and
// embedding providers. Implementations live in subpackages; nothing
// unstructured from a provider escapes past this boundary.
package ai

import (
	"context"
	"errors"
)

// ErrUnavailable is the single outcome every adapter failure collapses into:
// missing credentials, network errors, non-2xx responses, and malformed
// provider output all look the same to callers. Adapters make exactly one
// attempt; retries are a caller policy decision.
var ErrUnavailable = errors.New("ai provider unavailable")

// Completer runs a single prompt against a remote reasoning provider and
// returns its raw textual response.
type Completer interface {
	Complete(ctx context.Context, prompt, system string) (string, error)
}

// Embedder produces a fixed-length vector for the given text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}
