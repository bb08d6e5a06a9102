package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the triage ASCII banner to w.
func PrintBanner(w io.Writer) {
	p := termenv.ColorProfile()
	lines := []struct {
		text, color string
	}{
		{"  _       _", "#34d399"},
		{" | |_ _ _(_)__ _ __ _ ___", "#2dd4bf"},
		{" |  _| '_| / _` / _` / -_)", "#22d3ee"},
		{"  \\__|_| |_\\__,_\\__, \\___|", "#38bdf8"},
		{"                |___/", "#60a5fa"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
