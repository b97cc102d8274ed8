// Package track classifies free-text module names into the evaluation track.
//
// Module names vary in suffix and casing ("Innovation Challenge",
// "innovation challenge 2025", "Startup Innovation Challenge (Teams)"), so
// membership is a predicate rather than string equality.
package track

import (
	"fmt"
	"regexp"
	"strings"
)

// Matcher decides whether a module belongs to the evaluation track.
type Matcher interface {
	Match(module string) bool
	// Pattern returns a case-insensitive SQL LIKE pattern equivalent to the
	// predicate where one exists, or "" when the store cannot pre-filter.
	Pattern() string
}

// PhraseMatcher matches modules containing a phrase, ignoring case and
// collapsing runs of whitespace.
type PhraseMatcher struct {
	phrase string
}

// NewPhraseMatcher creates a containment matcher.
func NewPhraseMatcher(phrase string) *PhraseMatcher {
	return &PhraseMatcher{phrase: normalize(phrase)}
}

func (m *PhraseMatcher) Match(module string) bool {
	if m.phrase == "" {
		return false
	}
	return strings.Contains(normalize(module), m.phrase)
}

func (m *PhraseMatcher) Pattern() string {
	if m.phrase == "" {
		return ""
	}
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(m.phrase)
	return "%" + strings.ReplaceAll(escaped, " ", "%") + "%"
}

// RegexMatcher matches modules against a regular expression. The
// expression is compiled case-insensitively.
type RegexMatcher struct {
	re *regexp.Regexp
}

// NewRegexMatcher compiles pattern.
func NewRegexMatcher(pattern string) (*RegexMatcher, error) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid track pattern: %w", err)
	}
	return &RegexMatcher{re: re}, nil
}

func (m *RegexMatcher) Match(module string) bool {
	return m.re.MatchString(strings.TrimSpace(module))
}

func (m *RegexMatcher) Pattern() string {
	return ""
}

// New builds a matcher from configuration. mode is "phrase" or "regex".
func New(mode, phrase, pattern string) (Matcher, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "phrase":
		if strings.TrimSpace(phrase) == "" {
			return nil, fmt.Errorf("track phrase is required")
		}
		return NewPhraseMatcher(phrase), nil
	case "regex":
		return NewRegexMatcher(pattern)
	default:
		return nil, fmt.Errorf("unknown track match mode %q", mode)
	}
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
