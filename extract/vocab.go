package extract

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Vocabulary holds the fixed keyword tables the extractors match against.
// These are configuration, not logic: extending a list never requires
// touching the extractor code.
type Vocabulary struct {
	Amenities  []string `yaml:"amenities"`
	Conditions []string `yaml:"conditions"`
	Localities []string `yaml:"localities"`
}

// DefaultVocabulary returns the built-in keyword tables, used when no
// vocab file is configured.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Amenities: []string{
			"gym", "pool", "garden", "parking", "lift", "security",
			"playground", "clubhouse", "swimming pool", "balcony",
			"washroom", "kitchen",
		},
		Conditions: []string{
			"furnished", "semi furnished", "unfurnished", "warmshell", "ready",
		},
		Localities: []string{
			"charai", "thane", "pachpakhadi", "park woods", "garden enclave",
			"makhmali talao", "hiranandani", "ghodbunder",
		},
	}
}

// alternation builds a case-insensitive capture group from vocabulary terms,
// preserving configured order.
func alternation(terms []string) string {
	quoted := make([]string, 0, len(terms))
	for _, t := range terms {
		if t = strings.TrimSpace(t); t != "" {
			quoted = append(quoted, regexp.QuoteMeta(t))
		}
	}
	return "(" + strings.Join(quoted, "|") + ")"
}

// capitalize upper-cases the first rune only ("swimming pool" -> "Swimming pool")
func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}
