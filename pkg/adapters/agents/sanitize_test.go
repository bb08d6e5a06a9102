package agents_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/triage/pkg/adapters/agents"
	"github.com/aretw0/triage/pkg/domain"
)

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{"Plain", "take with food", "take with food", nil},
		{"Keeps Whitespace Controls", "line1\nline2\tx\r", "line1\nline2\tx\r", nil},
		{"Strips ANSI Escape", "\x1b[31mred\x1b[0m", "[31mred[0m", nil},
		{"Strips NUL And BEL", "a\x00b\x07c", "abc", nil},
		{"Invalid UTF-8", "bad\xff", "", agents.ErrInvalidUTF8},
		{"Exact Limit", strings.Repeat("a", agents.MaxTextSize), strings.Repeat("a", agents.MaxTextSize), nil},
		{"Over Limit", strings.Repeat("a", agents.MaxTextSize+1), "", agents.ErrTextTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := agents.SanitizeText(tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecode_SanitizesNestedStrings(t *testing.T) {
	var s domain.DoctorSummary
	err := agents.Decode(map[string]any{
		"summary": "refer\x1b[2J today",
		"actions": []any{"call\x07 patient"},
	}, &s)
	require.NoError(t, err)
	assert.Equal(t, "refer[2J today", s.Summary)
	assert.Equal(t, []string{"call patient"}, s.Actions)
}

func TestDecode_RejectsOversizedText(t *testing.T) {
	var r domain.ReasoningResult
	err := agents.Decode(map[string]any{
		"confidence": 0.9,
		"narrative":  strings.Repeat("x", agents.MaxTextSize+1),
	}, &r)
	assert.ErrorContains(t, err, agents.ErrTextTooLarge.Error())
}
