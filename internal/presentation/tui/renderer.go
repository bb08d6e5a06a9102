package tui

import (
	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"

	"github.com/aretw0/triage/pkg/audit"
)

// NewRenderer returns a function that renders markdown using glamour.
// Width 0 keeps glamour's default word wrap.
func NewRenderer(width int) (func(string) (string, error), error) {
	opts := []glamour.TermRendererOption{
		glamour.WithAutoStyle(),
	}
	if width > 0 {
		opts = append(opts, glamour.WithWordWrap(width))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return nil, err
	}
	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}, nil
}

// Headline returns the bundle's consensus label colored by outcome: green for
// an actionable plan, amber for a deterministic no-treatment or referral
// ending, red for every other interruption.
func Headline(b *audit.Bundle) termenv.Style {
	p := termenv.ColorProfile()
	color := "#f87171"
	switch {
	case b.Actionable():
		color = "#34d399"
	case b.Path == audit.PathDeterministicNoRx:
		color = "#fbbf24"
	}
	return termenv.String(b.Consensus).Foreground(p.Color(color)).Bold()
}
