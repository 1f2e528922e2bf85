// Package prompt provides the default PromptExecutor: a deterministic
// static responder for offline runs and tests. Real LLM providers implement
// ports.PromptExecutor behind the same contract.
package prompt

import (
	"context"
	"fmt"
	"strings"

	"github.com/wyrdbound/grimoire/pkg/domain"
)

// Static implements ports.PromptExecutor with canned responses. The zero
// value answers every prompt with a short placeholder.
type Static struct {
	// Response, when set, is returned for every prompt.
	Response string

	// Responses maps a prompt substring to a response; the first match (in
	// unspecified order) wins over Response.
	Responses map[string]string

	calls []domain.PromptRequest
}

// NewStatic creates an executor that always answers with response.
func NewStatic(response string) *Static {
	return &Static{Response: response}
}

// Execute records the request and returns the configured response. Empty
// prompts fail, matching the contract real providers are held to.
func (s *Static) Execute(ctx context.Context, req domain.PromptRequest) (domain.PromptResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.PromptResult{}, err
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return domain.PromptResult{}, fmt.Errorf("empty prompt")
	}
	s.calls = append(s.calls, req)

	response := s.Response
	for needle, canned := range s.Responses {
		if strings.Contains(req.Prompt, needle) {
			response = canned
			break
		}
	}
	if response == "" {
		response = fmt.Sprintf("[static response to %d-character prompt]", len(req.Prompt))
	}

	return domain.PromptResult{
		Response:   response,
		Model:      "static",
		Provider:   "static",
		TokensUsed: len(strings.Fields(req.Prompt)),
		Metadata:   map[string]any{"variables": len(req.Variables)},
	}, nil
}

// Calls returns every request seen so far, for test assertions.
func (s *Static) Calls() []domain.PromptRequest { return s.calls }
