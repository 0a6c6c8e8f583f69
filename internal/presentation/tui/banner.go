package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the sqlassist banner and the active dataset to w.
func PrintBanner(w io.Writer, dataset string) {
	p := termenv.ColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{"             _                _     _   ", "#38bdf8"},
		{"  ___  __ _ | | __ _  ___ ___(_)___| |_ ", "#22d3ee"},
		{" (_-< / _` || |/ _` |(_-<(_-<| (_-<|  _|", "#2dd4bf"},
		{" /__/ \\__, ||_|\\__,_|/__//__/|_/__/ \\__|", "#34d399"},
		{"         |_|                            ", "#4ade80"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	if dataset != "" {
		fmt.Fprintln(w, termenv.String("  dataset: "+dataset).Faint())
		fmt.Fprintln(w, termenv.String("  type a question, or 'exit' to quit").Faint())
	}
	fmt.Fprintln(w)
}
