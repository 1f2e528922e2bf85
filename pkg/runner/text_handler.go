package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"

	"github.com/wyrdbound/grimoire/pkg/domain"
)

// TextHandler implements IOHandler over plain text streams. Reads run on
// a pump goroutine so prompts honor context cancellation even though
// blocking file reads cannot be interrupted directly.
type TextHandler struct {
	source      io.Reader
	interactive bool
	Reader      *bufio.Reader
	Writer      io.Writer
	Renderer    ContentRenderer

	inputChan chan inputResult
	startOnce sync.Once
}

type inputResult struct {
	text string
	err  error
}

// TextHandlerOption configures a TextHandler.
type TextHandlerOption func(*TextHandler)

// WithTextHandlerRenderer sets the content renderer (markdown to ANSI).
func WithTextHandlerRenderer(renderer ContentRenderer) TextHandlerOption {
	return func(h *TextHandler) {
		h.Renderer = renderer
	}
}

// NewTextHandler creates a handler. Nil reader/writer default to
// stdin/stdout.
func NewTextHandler(r io.Reader, w io.Writer, opts ...TextHandlerOption) *TextHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	h := &TextHandler{
		source:      r,
		Writer:      w,
		interactive: isTerminal(r),
	}
	h.Reader = bufio.NewReader(h.source)

	for _, opt := range opts {
		opt(h)
	}
	return h
}

// isTerminal reports whether the reader is an interactive terminal.
// Piped input skips decorative prompts.
func isTerminal(r io.Reader) bool {
	if f, ok := r.(*os.File); ok {
		return term.IsTerminal(int(f.Fd()))
	}
	return false
}

func (h *TextHandler) initPump() {
	h.startOnce.Do(func() {
		h.inputChan = make(chan inputResult)
		go h.pump()
	})
}

func (h *TextHandler) pump() {
	for {
		text, err := h.Reader.ReadString('\n')
		if text != "" {
			h.inputChan <- inputResult{text: text}
		}
		if err != nil {
			if err == io.EOF {
				close(h.inputChan)
				return
			}
			h.inputChan <- inputResult{err: err}
			// Backoff so a persistently failing reader cannot spin.
			time.Sleep(50 * time.Millisecond)
		}
	}
}

// Message renders display text, through the renderer when set.
func (h *TextHandler) Message(text string) error {
	output := text
	if h.Renderer != nil {
		if rendered, err := h.Renderer(text); err == nil {
			output = rendered
		}
	}
	_, err := fmt.Fprintln(h.Writer, strings.TrimRight(output, "\n"))
	return err
}

// Event prints structured events in a compact single-line form.
func (h *TextHandler) Event(name string, data map[string]any) error {
	if len(data) == 0 {
		_, err := fmt.Fprintf(h.Writer, "[%s]\n", name)
		return err
	}
	_, err := fmt.Fprintf(h.Writer, "[%s] %v\n", name, data)
	return err
}

// PromptInput shows the prompt and reads one sanitized line.
func (h *TextHandler) PromptInput(ctx context.Context, req domain.InputRequest) (string, error) {
	if req.Prompt != "" {
		if err := h.Message(req.Prompt); err != nil {
			return "", err
		}
	}
	marker := "> "
	if req.Default != "" {
		marker = fmt.Sprintf("[%s] > ", req.Default)
	}
	return h.readLine(ctx, marker)
}

// PromptChoice lists the options and reads a selection, retrying on
// invalid answers. Both the option number and its id/label are accepted.
func (h *TextHandler) PromptChoice(ctx context.Context, req domain.ChoiceRequest) (int, error) {
	if req.Prompt != "" {
		if err := h.Message(req.Prompt); err != nil {
			return 0, err
		}
	}
	for i, opt := range req.Options {
		label := opt.Label
		if label == "" {
			label = opt.ID
		}
		if _, err := fmt.Fprintf(h.Writer, "  %d) %s\n", i+1, label); err != nil {
			return 0, err
		}
	}

	for {
		answer, err := h.readLine(ctx, "> ")
		if err != nil {
			return 0, err
		}
		if idx, ok := matchChoice(answer, req.Options); ok {
			return idx, nil
		}
		fmt.Fprintf(h.Writer, "Please pick 1-%d.\n", len(req.Options))
	}
}

func matchChoice(answer string, options []domain.Choice) (int, bool) {
	if n, err := strconv.Atoi(answer); err == nil {
		if n >= 1 && n <= len(options) {
			return n - 1, true
		}
		return 0, false
	}
	for i, opt := range options {
		if strings.EqualFold(answer, opt.ID) || strings.EqualFold(answer, opt.Label) {
			return i, true
		}
	}
	return 0, false
}

// readLine prints the marker (interactive terminals only) and waits for
// a line or cancellation.
func (h *TextHandler) readLine(ctx context.Context, marker string) (string, error) {
	h.initPump()

	for {
		if h.interactive {
			fmt.Fprint(h.Writer, marker)
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case res, ok := <-h.inputChan:
			if !ok {
				return "", io.EOF
			}
			if res.err != nil {
				return "", res.err
			}
			clean, err := SanitizeInput(strings.TrimSpace(res.text))
			if err != nil {
				fmt.Fprintf(h.Writer, "Error: %v. Please try again.\n", err)
				continue
			}
			return clean, nil
		}
	}
}
