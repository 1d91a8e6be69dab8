// Package narrative produces generated prose for the game. A Generator is
// the raw text service; a Narrator builds bounded, grounded prompts for it
// and degrades to "no text" on any failure.
package narrative

import (
	"context"
	"errors"
)

var (
	// ErrUnavailable means no generation service is configured.
	ErrUnavailable = errors.New("narrative generator unavailable")
	// ErrEmptyResponse means the service answered without usable text.
	ErrEmptyResponse = errors.New("narrative generator returned no text")
)

// Generator turns a context string and a prompt into prose.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, system, prompt string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, system, prompt string) (string, error) {
	return f(ctx, system, prompt)
}

// Offline is the generator used when no API key is configured.
type Offline struct{}

func (Offline) Generate(context.Context, string, string) (string, error) {
	return "", ErrUnavailable
}
