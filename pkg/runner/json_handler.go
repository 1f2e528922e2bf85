package runner

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/wyrdbound/grimoire/pkg/domain"
)

// JSONHandler implements IOHandler as NDJSON: every outgoing message is
// one JSON object per line, and answers are read one line at a time.
// Programmatic frontends (editors, bots, test harnesses) speak this.
type JSONHandler struct {
	Reader  *bufio.Reader
	Writer  io.Writer
	Encoder *json.Encoder
}

// jsonAnswer is the accepted response shape. Plain JSON strings and bare
// numbers are also tolerated.
type jsonAnswer struct {
	Value string `json:"value"`
	Index *int   `json:"index,omitempty"`
}

// NewJSONHandler creates a handler. Nil reader/writer default to
// stdin/stdout.
func NewJSONHandler(r io.Reader, w io.Writer) *JSONHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	return &JSONHandler{
		Reader:  bufio.NewReader(r),
		Writer:  w,
		Encoder: json.NewEncoder(w),
	}
}

func (h *JSONHandler) emit(payload map[string]any) error {
	return h.Encoder.Encode(payload)
}

// Message emits {"type":"message","text":...}.
func (h *JSONHandler) Message(text string) error {
	return h.emit(map[string]any{"type": "message", "text": text})
}

// Event emits {"type":"event","name":...,"data":...}.
func (h *JSONHandler) Event(name string, data map[string]any) error {
	return h.emit(map[string]any{"type": "event", "name": name, "data": data})
}

// PromptInput emits an input_request and reads one answer line.
func (h *JSONHandler) PromptInput(ctx context.Context, req domain.InputRequest) (string, error) {
	if err := h.emit(map[string]any{"type": "input_request", "request": req}); err != nil {
		return "", err
	}
	answer, err := h.readAnswer(ctx)
	if err != nil {
		return "", err
	}
	return answer.Value, nil
}

// PromptChoice emits a choice_request and reads one answer line. The
// answer may carry an explicit index or a value matching an option.
func (h *JSONHandler) PromptChoice(ctx context.Context, req domain.ChoiceRequest) (int, error) {
	if err := h.emit(map[string]any{"type": "choice_request", "request": req}); err != nil {
		return 0, err
	}
	answer, err := h.readAnswer(ctx)
	if err != nil {
		return 0, err
	}

	if answer.Index != nil {
		if *answer.Index < 0 || *answer.Index >= len(req.Options) {
			return 0, fmt.Errorf("choice index %d out of range (%d options)", *answer.Index, len(req.Options))
		}
		return *answer.Index, nil
	}
	if idx, ok := matchChoice(answer.Value, req.Options); ok {
		return idx, nil
	}
	return 0, fmt.Errorf("answer %q matches no option", answer.Value)
}

// readAnswer reads one line and decodes it leniently: an object with
// value/index, a JSON string, or raw text.
func (h *JSONHandler) readAnswer(ctx context.Context) (jsonAnswer, error) {
	if err := ctx.Err(); err != nil {
		return jsonAnswer{}, err
	}

	text, err := h.Reader.ReadString('\n')
	if err != nil && text == "" {
		return jsonAnswer{}, err
	}
	text = strings.TrimSpace(text)

	var answer jsonAnswer
	if err := json.Unmarshal([]byte(text), &answer); err == nil && (answer.Value != "" || answer.Index != nil) {
		return answer, nil
	}
	var val string
	if err := json.Unmarshal([]byte(text), &val); err == nil {
		return jsonAnswer{Value: val}, nil
	}
	// Raw text, including bare numbers, which matchChoice reads 1-based
	// like the text handler.
	return jsonAnswer{Value: text}, nil
}
