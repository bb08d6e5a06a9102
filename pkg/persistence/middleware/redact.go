package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/aretw0/triage/pkg/ports"
)

// Mask replaces redacted values.
const Mask = "***"

type redactionMiddleware struct {
	next     ports.AuditStore
	patterns []*regexp.Regexp
}

// NewRedactionMiddleware creates a middleware that masks the values of JSON
// object keys matching any pattern before the bundle is stored. It is meant
// for export stores; the masked copy cannot be restored.
func NewRedactionMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.AuditStore) ports.AuditStore {
		return &redactionMiddleware{next: next, patterns: patterns}
	}
}

func (m *redactionMiddleware) Save(ctx context.Context, id string, data []byte) error {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to decode bundle for redaction: %w", err)
	}
	masked, err := json.Marshal(mask(doc, m.patterns))
	if err != nil {
		return fmt.Errorf("failed to encode redacted bundle: %w", err)
	}
	return m.next.Save(ctx, id, masked)
}

func (m *redactionMiddleware) Load(ctx context.Context, id string) ([]byte, error) {
	return m.next.Load(ctx, id)
}

func (m *redactionMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func mask(v any, patterns []*regexp.Regexp) any {
	switch t := v.(type) {
	case map[string]any:
		for k, sub := range t {
			if matchAny(k, patterns) {
				t[k] = Mask
				continue
			}
			t[k] = mask(sub, patterns)
		}
	case []any:
		for i, sub := range t {
			t[i] = mask(sub, patterns)
		}
	}
	return v
}

func matchAny(key string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(key) {
			return true
		}
	}
	return false
}
