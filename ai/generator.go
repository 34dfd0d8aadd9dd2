package ai

import (
	"context"
	"errors"
)

// TextGenerator produces a completion for a system/user prompt pair. The case
// analysis handler depends on this interface so the model backend can be
// swapped or faked in tests.
type TextGenerator interface {
	GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// ErrNotConfigured is returned when no model backend has been configured.
var ErrNotConfigured = errors.New("text generation is not configured")

// Unavailable is the TextGenerator used when no API key is present. Every
// call fails so the analysis endpoint degrades to a 502 instead of panicking.
type Unavailable struct{}

// GenerateText always returns ErrNotConfigured.
func (Unavailable) GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return "", ErrNotConfigured
}
