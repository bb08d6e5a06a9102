package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/aretw0/triage"
	"github.com/aretw0/triage/internal/presentation/tui"
	"github.com/aretw0/triage/pkg/audit"
)

// Output formats.
const (
	FormatAuto     = "auto"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
	FormatPretty   = "pretty"
)

// Printer writes results in the selected format. Auto renders for terminals
// and emits JSON otherwise.
type Printer struct {
	w      io.Writer
	format string
}

// NewPrinter resolves format against w.
func NewPrinter(w io.Writer, format string) (*Printer, error) {
	switch format {
	case "", FormatAuto:
		format = FormatJSON
		if IsTerminal(w) {
			format = FormatPretty
		}
	case FormatJSON, FormatMarkdown, FormatPretty:
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
	return &Printer{w: w, format: format}, nil
}

// Format returns the resolved format.
func (p *Printer) Format() string { return p.format }

// Bundle writes an audit bundle.
func (p *Printer) Bundle(b *audit.Bundle) error {
	if p.format == FormatJSON {
		return p.json(b)
	}
	if p.format == FormatPretty {
		fmt.Fprintln(p.w, tui.Headline(b))
	}
	return p.markdown(tui.BundleMarkdown(b))
}

// Plan writes an engine-only plan.
func (p *Printer) Plan(plan triage.Plan) error {
	if p.format == FormatJSON {
		return p.json(plan)
	}
	return p.markdown(tui.PlanMarkdown(plan))
}

// JSON writes v as indented JSON regardless of format.
func (p *Printer) JSON(v any) error {
	return p.json(v)
}

func (p *Printer) json(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (p *Printer) markdown(md string) error {
	if p.format == FormatMarkdown {
		_, err := io.WriteString(p.w, md)
		return err
	}
	render, err := tui.NewRenderer(TerminalWidth(p.w))
	if err != nil {
		return err
	}
	out, err := render(md)
	if err != nil {
		return err
	}
	_, err = io.WriteString(p.w, out)
	return err
}
