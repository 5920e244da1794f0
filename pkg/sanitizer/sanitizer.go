package sanitizer

import (
	"strings"
	"unicode"
)

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

func TrimAndNormalize(s string) string {
	s = strings.TrimSpace(s)

	if s == "" {
		return ""
	}

	var result strings.Builder
	var lastWasSpace bool

	for _, r := range s {
		if unicode.IsSpace(r) {
			if !lastWasSpace {
				result.WriteRune(' ')
				lastWasSpace = true
			}
		} else {
			result.WriteRune(r)
			lastWasSpace = false
		}
	}

	return result.String()
}

func SanitizeText(input string) string {
	return TrimAndNormalize(input)
}

func SanitizeEmail(input string) string {
	p := Pipeline{
		strings.TrimSpace,
		strings.ToLower,
	}
	return p.Apply(input)
}

func SanitizeIdentifier(input string) string {
	return strings.TrimSpace(input)
}

// SanitizeOptional applies strategy to a nullable field. A value that is
// blank after sanitizing becomes nil.
func SanitizeOptional(input *string, strategy Strategy) *string {
	if input == nil {
		return nil
	}
	s := strategy(*input)
	if s == "" {
		return nil
	}
	return &s
}
