package ports

import (
	"context"

	"github.com/wyrdbound/grimoire/pkg/domain"
)

// Interaction collects user decisions for player_input and player_choice
// steps. Frontends (terminal runner, HTTP, MCP) implement it; a flow that
// reaches an input step without one fails with domain.ErrNoInteraction.
type Interaction interface {
	// PromptInput asks the user for a free-form value. The returned value is
	// raw; the step executor coerces it to the declared type.
	PromptInput(ctx context.Context, req domain.InputRequest) (any, error)

	// PromptChoice asks the user to pick one of req.Options and returns the
	// index of the chosen option.
	PromptChoice(ctx context.Context, req domain.ChoiceRequest) (int, error)
}

// EventSink receives user-facing output produced while a flow runs:
// display_message and display_value actions, and structured flow events.
// Implementations must be safe for calls from the goroutine running the flow.
type EventSink interface {
	// Message delivers display text for the user.
	Message(text string)

	// Event delivers a structured event emitted by a flow (log_event).
	Event(name string, data map[string]any)
}
