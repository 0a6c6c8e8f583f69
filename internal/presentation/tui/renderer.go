package tui

import (
	"os"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

// NewRenderer returns a markdown renderer for answers. When stdout is not a
// terminal, or glamour cannot be initialized, answers pass through unchanged.
func NewRenderer() func(string) (string, error) {
	plain := func(s string) (string, error) { return s, nil }
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return plain
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return plain
	}
	return r.Render
}
