package domain

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxReasoningSize bounds the reasoning text kept with an action.
const MaxReasoningSize = 4096

// maxTokenSize bounds player ids and action types.
const maxTokenSize = 128

// SanitizeAction validates the text fields of an externally submitted
// action. Oversized or malformed ids and types are rejected; control
// characters are stripped from the reasoning.
func SanitizeAction(a PlayerAction) (PlayerAction, error) {
	fields := [...]struct{ name, value string }{
		{"player_id", a.PlayerID},
		{"action_type", a.Type},
	}
	for _, f := range fields {
		field, v := f.name, f.value
		if v == "" {
			return a, InvalidAction("%s is required", field)
		}
		if len(v) > maxTokenSize {
			return a, InvalidAction("%s exceeds %d bytes", field, maxTokenSize)
		}
		if !utf8.ValidString(v) || strings.IndexFunc(v, unicode.IsControl) >= 0 {
			return a, InvalidAction("%s contains invalid characters", field)
		}
	}

	if len(a.Reasoning) > MaxReasoningSize {
		return a, InvalidAction("reasoning exceeds %d bytes", MaxReasoningSize)
	}
	if !utf8.ValidString(a.Reasoning) {
		return a, InvalidAction("reasoning contains invalid UTF-8 sequences")
	}
	a.Reasoning = stripControl(a.Reasoning)
	if a.Confidence != nil {
		c := clamp01(*a.Confidence)
		a.Confidence = &c
	}
	return a, nil
}

// stripControl removes control characters except newline, tab and carriage
// return.
func stripControl(s string) string {
	if strings.IndexFunc(s, unsafeControl) < 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if !unsafeControl(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func unsafeControl(r rune) bool {
	return unicode.IsControl(r) && r != '\n' && r != '\t' && r != '\r'
}
