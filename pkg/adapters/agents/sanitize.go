package agents

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxTextSize bounds any single string field of an agent output.
const MaxTextSize = 16 << 10

var (
	ErrTextTooLarge = errors.New("agent text exceeds maximum allowed size")
	ErrInvalidUTF8  = errors.New("agent text contains invalid UTF-8 sequences")
)

// SanitizeText enforces the size limit, validates UTF-8 and strips control
// characters other than newline, tab and carriage return. Agent text ends up
// in terminals and logs, where escape sequences would be interpreted.
func SanitizeText(s string) (string, error) {
	if len(s) > MaxTextSize {
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrTextTooLarge, len(s), MaxTextSize)
	}
	if !utf8.ValidString(s) {
		return "", ErrInvalidUTF8
	}

	clean := true
	for _, r := range s {
		if unicode.IsControl(r) && !isSafeControl(r) {
			clean = false
			break
		}
	}
	if clean {
		return s, nil
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if !unicode.IsControl(r) || isSafeControl(r) {
			b.WriteRune(r)
		}
	}
	return b.String(), nil
}

func isSafeControl(r rune) bool {
	return r == '\n' || r == '\t' || r == '\r'
}

// sanitizeStrings is a decode hook applying SanitizeText to string values.
func sanitizeStrings(from, to reflect.Type, data any) (any, error) {
	s, ok := data.(string)
	if !ok {
		return data, nil
	}
	return SanitizeText(s)
}
