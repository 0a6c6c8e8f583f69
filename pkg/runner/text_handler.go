package runner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/ashwinibhardwaj/sqlassist/pkg/domain"
)

// TextHandler implements the interactive terminal interface.
type TextHandler struct {
	Reader   *bufio.Reader
	Writer   io.Writer
	Renderer ContentRenderer
	Prompt   string
	ShowSQL  bool

	inputChan chan inputResult
	startOnce sync.Once
}

type inputResult struct {
	text string
	err  error
}

// TextHandlerOption defines configuration for TextHandler.
type TextHandlerOption func(*TextHandler)

// WithTextHandlerRenderer configures the answer renderer.
func WithTextHandlerRenderer(renderer ContentRenderer) TextHandlerOption {
	return func(h *TextHandler) {
		h.Renderer = renderer
	}
}

// WithShowSQL prints the executed SQL above each answer.
func WithShowSQL(show bool) TextHandlerOption {
	return func(h *TextHandler) {
		h.ShowSQL = show
	}
}

// NewTextHandler creates a handler for standard text IO.
func NewTextHandler(r io.Reader, w io.Writer, opts ...TextHandlerOption) *TextHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	h := &TextHandler{
		Reader: bufio.NewReader(r),
		Writer: w,
		Prompt: "> ",
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// pump reads lines in the background so Input can honour ctx cancellation.
func (h *TextHandler) pump() {
	defer close(h.inputChan)
	for {
		text, err := h.Reader.ReadString('\n')
		if text != "" {
			h.inputChan <- inputResult{text: text}
		}
		if err != nil {
			h.inputChan <- inputResult{err: err}
			return
		}
	}
}

func (h *TextHandler) Input(ctx context.Context) (string, error) {
	h.startOnce.Do(func() {
		h.inputChan = make(chan inputResult, 1)
		go h.pump()
	})

	if h.Prompt != "" {
		fmt.Fprint(h.Writer, h.Prompt)
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res, ok := <-h.inputChan:
		if !ok {
			return "", io.EOF
		}
		return strings.TrimRight(res.text, "\r\n"), res.err
	}
}

func (h *TextHandler) Output(ctx context.Context, state domain.WorkflowState, err error) error {
	if h.ShowSQL && state.GeneratedSQL != "" {
		fmt.Fprintf(h.Writer, "SQL: %s\n", state.GeneratedSQL)
		if state.RetryCount > 0 {
			fmt.Fprintf(h.Writer, "(repaired %d time(s))\n", state.RetryCount)
		}
	}

	if err != nil {
		msg := err.Error()
		if errors.Is(err, domain.ErrRetryBudgetExhausted) && state.Error != "" {
			msg = fmt.Sprintf("%s (last error: %s)", msg, state.Error)
		}
		_, werr := fmt.Fprintf(h.Writer, "Error: %s\n", msg)
		return werr
	}

	output := state.Answer
	if h.Renderer != nil {
		if rendered, rerr := h.Renderer(output); rerr == nil {
			output = rendered
		}
	}
	_, werr := fmt.Fprintln(h.Writer, strings.TrimSpace(output))
	return werr
}
