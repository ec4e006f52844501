package services

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/docvault-labs/docvault-core/internal/core/domain"
)

// DefaultMaxQueryLength bounds sanitised query length in runes.
const DefaultMaxQueryLength = 500

// sqlMeta matches characters that only appear in injection attempts,
// never in natural-language queries aimed at the router.
var sqlMeta = regexp.MustCompile("[;`]|--|/\\*")

// sqlKeywords are only dangerous in combination with metacharacters;
// "select a category" alone is a legitimate query.
var sqlKeywords = regexp.MustCompile(`(?i)\b(select|insert|update|delete|drop|union|exec|alter|create)\b`)

// promptInjection matches attempts to impersonate system role text or
// override the analysis engine's instructions. These are hard rejects.
var promptInjection = []string{
	"ignore previous instructions",
	"ignore all previous",
	"disregard all prior",
	"disregard previous",
	"system prompt",
	"you are now",
	"<|im_start|>",
	"<|system|>",
	"[inst]",
	"### system",
	"system:",
	"assistant:",
}

// generativeSuspect marks inputs that pass validation but should not
// reach free-text generative analysis: role-play framing and template
// syntax are the usual smuggling vehicles.
var generativeSuspect = []string{
	"act as",
	"pretend to be",
	"roleplay",
	"{{",
	"}}",
	"```",
}

// Guard validates and normalises raw query strings before they reach
// any execution path. It never logs; the router records both success
// and rejection outcomes so each query is logged exactly once.
type Guard struct {
	maxLength int
}

// NewGuard creates an input guard. maxLength <= 0 selects the default.
func NewGuard(maxLength int) *Guard {
	if maxLength <= 0 {
		maxLength = DefaultMaxQueryLength
	}
	return &Guard{maxLength: maxLength}
}

// Sanitize validates rawQuery and returns its normalised form. The
// returned query is trimmed, whitespace collapsed and length bounded,
// so sanitising an already-sanitised query is a no-op.
func (g *Guard) Sanitize(rawQuery string) (domain.SafeQuery, error) {
	if strings.TrimSpace(rawQuery) == "" {
		return domain.SafeQuery{}, &domain.SecurityViolation{Reason: "empty query"}
	}

	for _, r := range rawQuery {
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			return domain.SafeQuery{}, &domain.SecurityViolation{Reason: "control characters in query"}
		}
	}

	normalized := normalizeWhitespace(rawQuery)
	if len([]rune(normalized)) > g.maxLength {
		return domain.SafeQuery{}, &domain.SecurityViolation{Reason: "query too long"}
	}

	// SQL metacharacters combined with SQL keywords suggest injection
	// into downstream templated SQL. Either alone is harmless.
	if sqlMeta.MatchString(normalized) && sqlKeywords.MatchString(normalized) {
		return domain.SafeQuery{}, &domain.SecurityViolation{Reason: "query resembles SQL injection"}
	}

	lower := strings.ToLower(normalized)
	for _, marker := range promptInjection {
		if strings.Contains(lower, marker) {
			return domain.SafeQuery{}, &domain.SecurityViolation{Reason: "query resembles prompt injection"}
		}
	}

	allowGenerative := true
	for _, marker := range generativeSuspect {
		if strings.Contains(lower, marker) {
			allowGenerative = false
			break
		}
	}

	return domain.SafeQuery{
		Query:           normalized,
		AllowGenerative: allowGenerative,
	}, nil
}

// normalizeWhitespace trims the string and collapses internal runs of
// whitespace (including newlines and tabs) to single spaces.
func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
