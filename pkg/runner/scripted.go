package runner

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/wyrdbound/grimoire/pkg/domain"
)

// answerQueue hands out scripted answers in order. One queue serves one
// run; steps may execute on other goroutines, hence the lock.
type answerQueue struct {
	mu      sync.Mutex
	answers []any
}

func (q *answerQueue) next() (any, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.answers) == 0 {
		return nil, false
	}
	v := q.answers[0]
	q.answers = q.answers[1:]
	return v, true
}

type answersKey struct{}

// WithAnswers attaches a scripted answer list to the context for one run.
// Scripted consumes the answers in order.
func WithAnswers(ctx context.Context, answers []any) context.Context {
	return context.WithValue(ctx, answersKey{}, &answerQueue{answers: answers})
}

func nextAnswer(ctx context.Context) (any, bool) {
	q, ok := ctx.Value(answersKey{}).(*answerQueue)
	if !ok {
		return nil, false
	}
	return q.next()
}

// Scripted answers input and choice steps from an answer list carried on
// the run context (see WithAnswers). Non-interactive hosts such as the HTTP
// API and the MCP server use it: each request brings its own answers, so a
// single engine can serve concurrent runs. Running dry fails the step; a
// session keeps its last checkpoint, so the caller can supply more answers
// and continue.
type Scripted struct{}

// PromptInput pops the next answer, falling back to the declared default.
func (Scripted) PromptInput(ctx context.Context, req domain.InputRequest) (any, error) {
	v, ok := nextAnswer(ctx)
	if !ok {
		if req.Default != "" {
			return req.Default, nil
		}
		return nil, errAwaitingInput(req.StepID)
	}
	if s, isStr := v.(string); isStr {
		clean, err := SanitizeInput(s)
		if err != nil {
			return nil, fmt.Errorf("step '%s': %w", req.StepID, err)
		}
		return clean, nil
	}
	return v, nil
}

// PromptChoice pops the next answer and resolves it against the options:
// numbers select by 0-based index, strings match an option id or label.
func (Scripted) PromptChoice(ctx context.Context, req domain.ChoiceRequest) (int, error) {
	v, ok := nextAnswer(ctx)
	if !ok {
		return 0, errAwaitingInput(req.StepID)
	}
	switch ans := v.(type) {
	case float64:
		// JSON numbers decode as float64.
		return checkChoiceIndex(req, int(ans))
	case int:
		return checkChoiceIndex(req, ans)
	case string:
		for i, opt := range req.Options {
			if strings.EqualFold(ans, opt.ID) || strings.EqualFold(ans, opt.Label) {
				return i, nil
			}
		}
		return 0, fmt.Errorf("step '%s': answer %q matches no option", req.StepID, ans)
	default:
		return 0, fmt.Errorf("step '%s': unsupported choice answer of type %T", req.StepID, v)
	}
}

func checkChoiceIndex(req domain.ChoiceRequest, idx int) (int, error) {
	if idx < 0 || idx >= len(req.Options) {
		return 0, fmt.Errorf("step '%s': choice index %d out of range (%d options)", req.StepID, idx, len(req.Options))
	}
	return idx, nil
}

func errAwaitingInput(stepID string) error {
	return fmt.Errorf("step '%s' is waiting for player input; provide answers to continue", stepID)
}
