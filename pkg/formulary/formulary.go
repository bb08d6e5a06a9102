package formulary

import (
	_ "embed"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/aretw0/triage/pkg/domain"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultTables []byte

// DefaultComplicatedBelowEGFR applies when a table does not set its own threshold.
const DefaultComplicatedBelowEGFR = 30

// ClassFluoroquinolone is never eligible for first-line selection.
const ClassFluoroquinolone = "fluoroquinolone"

var (
	// ErrLocaleNotFound is returned when no table exists for a locale.
	ErrLocaleNotFound = errors.New("formulary locale not found")

	// ErrEntryNotFound is returned when a regimen names an agent missing from the table.
	ErrEntryNotFound = errors.New("formulary entry not found")
)

// Entry is the canonical dosing and contraindication record for one agent.
type Entry struct {
	Agent                    string   `yaml:"agent" mapstructure:"agent" json:"agent"`
	Class                    string   `yaml:"class" mapstructure:"class" json:"class"`
	Dose                     string   `yaml:"dose" mapstructure:"dose" json:"dose"`
	Frequency                string   `yaml:"frequency" mapstructure:"frequency" json:"frequency"`
	Duration                 string   `yaml:"duration" mapstructure:"duration" json:"duration"`
	Route                    string   `yaml:"route" mapstructure:"route" json:"route,omitempty"`
	AllergyClasses           []string `yaml:"allergy_classes" mapstructure:"allergy_classes" json:"allergy_classes,omitempty"`
	MinEGFR                  float64  `yaml:"min_egfr" mapstructure:"min_egfr" json:"min_egfr,omitempty"`
	MinAge                   int      `yaml:"min_age" mapstructure:"min_age" json:"min_age,omitempty"`
	PregnancyContraindicated bool     `yaml:"pregnancy_contraindicated" mapstructure:"pregnancy_contraindicated" json:"pregnancy_contraindicated,omitempty"`
	FirstLine                bool     `yaml:"first_line" mapstructure:"first_line" json:"first_line"`
	Monitoring               []string `yaml:"monitoring" mapstructure:"monitoring" json:"monitoring,omitempty"`
}

// Regimen returns the canonical regimen for the entry.
func (e Entry) Regimen() *domain.ProposedRegimen {
	return &domain.ProposedRegimen{
		Agent:     e.Agent,
		Dose:      e.Dose,
		Frequency: e.Frequency,
		Duration:  e.Duration,
	}
}

// Interaction is one agent x medication-class entry of the interaction table.
type Interaction struct {
	Agent      string          `yaml:"agent" mapstructure:"agent" json:"agent"`
	Class      string          `yaml:"class" mapstructure:"class" json:"class"`
	Severity   domain.Severity `yaml:"severity" mapstructure:"severity" json:"severity"`
	Annotation string          `yaml:"annotation" mapstructure:"annotation" json:"annotation,omitempty"`
}

// Tag is the stable identifier used in rationale trails and review flags.
func (i Interaction) Tag() string {
	return "interaction." + i.Agent + "." + i.Class
}

// Table is the formulary of one locale.
type Table struct {
	Locale               string
	ComplicatedBelowEGFR float64
	SelectionOrder       []string
	Sources              []string
	Notes                string

	agents       []string
	entries      map[string]Entry
	interactions []Interaction
	thresholdSet bool
}

type tableFile struct {
	Locale               string        `yaml:"locale"`
	ComplicatedBelowEGFR float64       `yaml:"complicated_below_egfr"`
	SelectionOrder       []string      `yaml:"selection_order"`
	Sources              []string      `yaml:"sources"`
	Notes                string        `yaml:"notes"`
	Agents               []Entry       `yaml:"agents"`
	Interactions         []Interaction `yaml:"interactions"`
}

type setFile struct {
	DefaultLocale string      `yaml:"default_locale"`
	Tables        []tableFile `yaml:"tables"`
}

func newTable(f tableFile) (*Table, error) {
	t := &Table{
		Locale:               strings.ToUpper(f.Locale),
		ComplicatedBelowEGFR: f.ComplicatedBelowEGFR,
		SelectionOrder:       slices.Clone(f.SelectionOrder),
		Sources:              slices.Clone(f.Sources),
		Notes:                f.Notes,
		entries:              make(map[string]Entry, len(f.Agents)),
		interactions:         slices.Clone(f.Interactions),
		thresholdSet:         f.ComplicatedBelowEGFR != 0,
	}
	if !t.thresholdSet {
		t.ComplicatedBelowEGFR = DefaultComplicatedBelowEGFR
	}
	for _, e := range f.Agents {
		if err := t.put(e); err != nil {
			return nil, err
		}
	}
	return t, t.check()
}

func (t *Table) put(e Entry) error {
	if e.Agent == "" || e.Dose == "" || e.Frequency == "" || e.Duration == "" {
		return fmt.Errorf("locale %s: agent %q: agent, dose, frequency and duration are required", t.Locale, e.Agent)
	}
	if _, ok := t.entries[e.Agent]; !ok {
		t.agents = append(t.agents, e.Agent)
	}
	e.AllergyClasses = slices.Clone(e.AllergyClasses)
	e.Monitoring = slices.Clone(e.Monitoring)
	t.entries[e.Agent] = e
	return nil
}

func (t *Table) check() error {
	if t.Locale == "" {
		return errors.New("table without locale")
	}
	for _, a := range t.SelectionOrder {
		if _, ok := t.entries[a]; !ok {
			return fmt.Errorf("locale %s: selection order names %q: %w", t.Locale, a, ErrEntryNotFound)
		}
	}
	for _, i := range t.interactions {
		if i.Severity != domain.SeverityModerate && i.Severity != domain.SeverityHigh {
			return fmt.Errorf("locale %s: interaction %s: severity must be moderate or high", t.Locale, i.Tag())
		}
	}
	return nil
}

// Lookup returns the entry for agent.
func (t *Table) Lookup(agent string) (Entry, bool) {
	e, ok := t.entries[agent]
	return e, ok
}

// Agents returns agent identifiers in definition order.
func (t *Table) Agents() []string {
	return slices.Clone(t.agents)
}

// IsCanonical reports whether r exactly matches its table entry.
func (t *Table) IsCanonical(r *domain.ProposedRegimen) bool {
	if r == nil {
		return false
	}
	e, ok := t.entries[r.Agent]
	return ok && e.Regimen().Equal(r)
}

// InteractionsFor returns table interactions between agent and any of the
// medication classes, in table order.
func (t *Table) InteractionsFor(agent string, classes []string) []Interaction {
	var out []Interaction
	for _, i := range t.interactions {
		if i.Agent == agent && slices.Contains(classes, i.Class) {
			out = append(out, i)
		}
	}
	return out
}

// Interactions returns a copy of the interaction table.
func (t *Table) Interactions() []Interaction {
	return slices.Clone(t.interactions)
}

// merge returns a copy of t with o's entries, interactions and settings layered on top.
func (t *Table) merge(o *Table) (*Table, error) {
	f := tableFile{
		Locale:               t.Locale,
		ComplicatedBelowEGFR: t.ComplicatedBelowEGFR,
		SelectionOrder:       t.SelectionOrder,
		Sources:              append(slices.Clone(t.Sources), o.Sources...),
		Notes:                t.Notes,
		Interactions:         append(slices.Clone(t.interactions), o.interactions...),
	}
	if o.thresholdSet {
		f.ComplicatedBelowEGFR = o.ComplicatedBelowEGFR
	}
	if len(o.SelectionOrder) > 0 {
		f.SelectionOrder = o.SelectionOrder
	}
	if o.Notes != "" {
		f.Notes = o.Notes
	}
	for _, a := range t.agents {
		if e, ok := o.entries[a]; ok {
			f.Agents = append(f.Agents, e)
			continue
		}
		f.Agents = append(f.Agents, t.entries[a])
	}
	for _, a := range o.agents {
		if _, ok := t.entries[a]; !ok {
			f.Agents = append(f.Agents, o.entries[a])
		}
	}
	return newTable(f)
}

// Set is an immutable collection of locale tables.
type Set struct {
	defaultLocale string
	tables        map[string]*Table
}

// Parse decodes a YAML set document.
func Parse(data []byte) (*Set, error) {
	var f setFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse formulary: %w", err)
	}
	s := &Set{
		defaultLocale: strings.ToUpper(f.DefaultLocale),
		tables:        make(map[string]*Table, len(f.Tables)),
	}
	for _, tf := range f.Tables {
		t, err := newTable(tf)
		if err != nil {
			return nil, err
		}
		s.tables[t.Locale] = t
	}
	if _, ok := s.tables[s.defaultLocale]; !ok {
		return nil, fmt.Errorf("default locale %q: %w", f.DefaultLocale, ErrLocaleNotFound)
	}
	return s, nil
}

var loadDefault = sync.OnceValues(func() (*Set, error) {
	return Parse(defaultTables)
})

// Default returns the embedded tables.
func Default() (*Set, error) {
	return loadDefault()
}

// DefaultLocale is the locale used when a patient does not name one.
func (s *Set) DefaultLocale() string {
	return s.defaultLocale
}

// Table returns the table for locale. An empty locale selects the default.
func (s *Set) Table(locale string) (*Table, error) {
	if locale == "" {
		locale = s.defaultLocale
	}
	t, ok := s.tables[strings.ToUpper(locale)]
	if !ok {
		return nil, fmt.Errorf("%q: %w", locale, ErrLocaleNotFound)
	}
	return t, nil
}

// Locales lists the available locales, sorted.
func (s *Set) Locales() []string {
	out := make([]string, 0, len(s.tables))
	for l := range s.tables {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// WithOverrides returns a new set where each override is merged into the
// table of the same locale, or added when the locale is new.
func (s *Set) WithOverrides(overrides ...*Table) (*Set, error) {
	n := &Set{defaultLocale: s.defaultLocale, tables: make(map[string]*Table, len(s.tables))}
	for l, t := range s.tables {
		n.tables[l] = t
	}
	for _, o := range overrides {
		base, ok := n.tables[o.Locale]
		if !ok {
			n.tables[o.Locale] = o
			continue
		}
		merged, err := base.merge(o)
		if err != nil {
			return nil, err
		}
		n.tables[o.Locale] = merged
	}
	return n, nil
}

// WithDefaultLocale returns a new set whose default is locale.
func (s *Set) WithDefaultLocale(locale string) (*Set, error) {
	locale = strings.ToUpper(locale)
	if _, ok := s.tables[locale]; !ok {
		return nil, fmt.Errorf("default locale %q: %w", locale, ErrLocaleNotFound)
	}
	return &Set{defaultLocale: locale, tables: s.tables}, nil
}
