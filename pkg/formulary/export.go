package formulary

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Document renders the table as an override document: YAML frontmatter
// followed by the notes as the body. LoadDir reads it back.
func (t *Table) Document() ([]byte, error) {
	f := tableFile{
		Locale:         t.Locale,
		SelectionOrder: t.SelectionOrder,
		Sources:        t.Sources,
		Interactions:   t.interactions,
	}
	if t.thresholdSet {
		f.ComplicatedBelowEGFR = t.ComplicatedBelowEGFR
	}
	for _, a := range t.agents {
		f.Agents = append(f.Agents, t.entries[a])
	}

	var front bytes.Buffer
	enc := yaml.NewEncoder(&front)
	enc.SetIndent(2)
	if err := enc.Encode(frontmatter(f)); err != nil {
		return nil, fmt.Errorf("locale %s: %w", t.Locale, err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}

	var doc bytes.Buffer
	doc.WriteString("---\n")
	doc.Write(front.Bytes())
	doc.WriteString("---\n")
	if t.Notes != "" {
		doc.WriteString("\n" + t.Notes + "\n")
	}
	return doc.Bytes(), nil
}

// frontmatter drops the notes, which travel as the document body.
type frontmatterFile struct {
	Locale               string        `yaml:"locale"`
	ComplicatedBelowEGFR float64       `yaml:"complicated_below_egfr,omitempty"`
	SelectionOrder       []string      `yaml:"selection_order,omitempty"`
	Sources              []string      `yaml:"sources,omitempty"`
	Agents               []Entry       `yaml:"agents,omitempty"`
	Interactions         []Interaction `yaml:"interactions,omitempty"`
}

func frontmatter(f tableFile) frontmatterFile {
	return frontmatterFile{
		Locale:               f.Locale,
		ComplicatedBelowEGFR: f.ComplicatedBelowEGFR,
		SelectionOrder:       f.SelectionOrder,
		Sources:              f.Sources,
		Agents:               f.Agents,
		Interactions:         f.Interactions,
	}
}
