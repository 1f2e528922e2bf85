package runner

import (
	"context"

	"github.com/wyrdbound/grimoire/pkg/domain"
)

// IOHandler is the strategy for talking to the player. It decides how
// display output and interaction requests are rendered, allowing the same
// runner loop to serve a terminal (TextHandler) or a programmatic
// frontend speaking NDJSON (JSONHandler).
type IOHandler interface {
	// Message presents display text.
	Message(text string) error

	// Event presents a structured flow event.
	Event(name string, data map[string]any) error

	// PromptInput collects a free-form answer. The returned string is raw;
	// type coercion happens in the step executor.
	PromptInput(ctx context.Context, req domain.InputRequest) (string, error)

	// PromptChoice collects a selection and returns the option index.
	PromptChoice(ctx context.Context, req domain.ChoiceRequest) (int, error)
}

// ContentRenderer transforms display text before output. The TUI package
// provides a markdown-to-ANSI renderer; the zero value (nil) passes text
// through.
type ContentRenderer func(string) (string, error)
