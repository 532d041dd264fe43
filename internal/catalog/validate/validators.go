package validate

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// NotEmpty requires a non-blank string value for the field.
func NotEmpty(_ context.Context, key string, data map[string]any, errs Errors, _ *Context) error {
	v, _ := data[key].(string)
	if strings.TrimSpace(v) == "" {
		errs.Add(key, "missing value")
	}
	return nil
}

// MaxLength caps the field's string length.
func MaxLength(limit int) FieldValidator {
	return func(_ context.Context, key string, data map[string]any, errs Errors, _ *Context) error {
		if v, ok := data[key].(string); ok && len(v) > limit {
			errs.Add(key, fmt.Sprintf("length exceeds %d characters", limit))
		}
		return nil
	}
}

// MungeName rewrites the field into a url-safe dataset name: decomposed
// unicode stripped to ASCII, lowercased, runs of other characters collapsed
// to single hyphens.
func MungeName(_ context.Context, key string, data map[string]any, errs Errors, _ *Context) error {
	v, ok := data[key].(string)
	if !ok || v == "" {
		return nil
	}
	decomposed := norm.NFKD.String(v)
	var b strings.Builder
	lastHyphen := true
	for _, r := range decomposed {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_':
			b.WriteRune(r)
			lastHyphen = false
		case r >= 'A' && r <= 'Z':
			b.WriteRune(unicode.ToLower(r))
			lastHyphen = false
		case unicode.Is(unicode.Mn, r):
			// Combining marks left over from decomposition are dropped, so
			// accented letters fold to their ASCII base.
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	munged := strings.Trim(b.String(), "-")
	if munged == "" {
		errs.Add(key, "name must contain alphanumeric characters")
		return nil
	}
	data[key] = munged
	return nil
}
