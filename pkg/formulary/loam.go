package formulary

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"github.com/aretw0/loam"
	"github.com/mitchellh/mapstructure"
)

// TableMetadata is the frontmatter of one override document. Agents and
// interactions are decoded loosely so numeric values survive whichever
// representation the document adapter produces.
type TableMetadata struct {
	Locale               string           `json:"locale" mapstructure:"locale"`
	ComplicatedBelowEGFR any              `json:"complicated_below_egfr" mapstructure:"complicated_below_egfr"`
	SelectionOrder       []string         `json:"selection_order" mapstructure:"selection_order"`
	Sources              []string         `json:"sources" mapstructure:"sources"`
	Agents               []map[string]any `json:"agents" mapstructure:"agents"`
	Interactions         []map[string]any `json:"interactions" mapstructure:"interactions"`
}

// LoadDir reads every document of a loam repository at dir as a table
// override. The document body becomes the table notes.
func LoadDir(ctx context.Context, dir string) ([]*Table, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	repo, err := loam.Init(abs, loam.WithReadOnly(true))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	typed := loam.NewTypedRepository[TableMetadata](repo)

	docs, err := typed.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })

	tables := make([]*Table, 0, len(docs))
	for _, doc := range docs {
		t, err := decodeTable(doc.ID, doc.Data, doc.Content)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, nil
}

func decodeTable(id string, meta TableMetadata, content string) (*Table, error) {
	f := tableFile{
		Locale:         meta.Locale,
		SelectionOrder: meta.SelectionOrder,
		Sources:        meta.Sources,
		Notes:          strings.TrimSpace(content),
	}
	if f.Locale == "" {
		f.Locale = strings.TrimSuffix(filepath.Base(id), filepath.Ext(id))
	}
	if meta.ComplicatedBelowEGFR != nil {
		if err := decodeLoose(meta.ComplicatedBelowEGFR, &f.ComplicatedBelowEGFR); err != nil {
			return nil, fmt.Errorf("%s: complicated_below_egfr: %w", id, err)
		}
	}
	if err := decodeLoose(meta.Agents, &f.Agents); err != nil {
		return nil, fmt.Errorf("%s: agents: %w", id, err)
	}
	if err := decodeLoose(meta.Interactions, &f.Interactions); err != nil {
		return nil, fmt.Errorf("%s: interactions: %w", id, err)
	}
	t, err := newTable(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", id, err)
	}
	return t, nil
}

// decodeLoose decodes generic frontmatter values, accepting json.Number and
// numeric strings for numeric fields.
func decodeLoose(input, output any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           output,
		WeaklyTypedInput: true,
		DecodeHook:       jsonNumberHook,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

func jsonNumberHook(from, to reflect.Type, data any) (any, error) {
	n, ok := data.(json.Number)
	if !ok {
		return data, nil
	}
	switch to.Kind() {
	case reflect.Float32, reflect.Float64:
		return n.Float64()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return n.Int64()
	}
	return n.String(), nil
}
