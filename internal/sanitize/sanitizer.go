package sanitize

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Sanitizer strips model chatter from accumulated output: wrapping quotes,
// result-announcement preambles, and trailing explanation sections. Apply is
// pure and idempotent.
type Sanitizer struct {
	preambles []*regexp.Regexp
	trailers  []*regexp.Regexp
	loopLimit int
}

var quoteCutset = "\"'`“”‘’«»"

var defaultPreambles = []string{
	`(?i)^here('s| is| are)\b.*:?\s*$`,
	`(?i)^(sure|certainly|of course|okay|ok)[,.!]?\s*$`,
	`(?i)^(sure|certainly|of course)[,.!]\s.*:\s*$`,
	`(?i)^(the|your) (corrected|fixed|polished|revised|rewritten|improved|edited) (text|version|passage|document)\b.*$`,
	`(?i)^i('ve| have) (corrected|fixed|polished|revised|rewritten)\b.*:\s*$`,
	`(?i)^below is\b.*:?\s*$`,
}

var defaultTrailers = []string{
	`(?i)^(changes|corrections|edits|improvements)( i)?( have)? made\b.*$`,
	`(?i)^(explanation|notes?|summary of changes|key changes|what i changed)\s*:.*$`,
	`(?i)^i (made|fixed|changed|corrected)\b.*following\b.*$`,
	`(?i)^let me know if\b.*$`,
	`(?i)^hope (this|that) helps\b.*$`,
	`^-{3,}\s*$`,
}

// New builds a sanitizer with the built-in patterns.
func New() *Sanitizer {
	s, err := build(defaultPreambles, defaultTrailers)
	if err != nil {
		// Built-in patterns are compile-time constants; a failure here is a bug.
		panic(err)
	}
	return s
}

// NewFromFile extends the built-in patterns with user rules from path. Each
// non-comment line is "preamble: <regexp>" or "trailer: <regexp>". A missing
// file yields the built-in sanitizer.
func NewFromFile(path string) (*Sanitizer, error) {
	preambles := append([]string(nil), defaultPreambles...)
	trailers := append([]string(nil), defaultTrailers...)

	if strings.TrimSpace(path) != "" {
		contents, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read sanitizer rules %q: %w", path, err)
		}
		if err == nil {
			extraPre, extraTrail, parseErr := parseRules(string(contents))
			if parseErr != nil {
				return nil, fmt.Errorf("failed to parse sanitizer rules %q: %w", path, parseErr)
			}
			preambles = append(preambles, extraPre...)
			trailers = append(trailers, extraTrail...)
		}
	}

	return build(preambles, trailers)
}

func build(preambles, trailers []string) (*Sanitizer, error) {
	s := &Sanitizer{loopLimit: 10}
	for _, pattern := range preambles {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid preamble pattern %q: %w", pattern, err)
		}
		s.preambles = append(s.preambles, re)
	}
	for _, pattern := range trailers {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid trailer pattern %q: %w", pattern, err)
		}
		s.trailers = append(s.trailers, re)
	}
	return s, nil
}

func parseRules(contents string) (preambles []string, trailers []string, err error) {
	for index, raw := range strings.Split(contents, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		switch {
		case strings.HasPrefix(line, "preamble:"):
			preambles = append(preambles, strings.TrimSpace(strings.TrimPrefix(line, "preamble:")))
		case strings.HasPrefix(line, "trailer:"):
			trailers = append(trailers, strings.TrimSpace(strings.TrimPrefix(line, "trailer:")))
		default:
			return nil, nil, fmt.Errorf("line %d: unsupported rule format", index+1)
		}
	}
	return preambles, trailers, nil
}

// Apply cleans raw model output. Passes run until no pass changes the text,
// which makes Apply(Apply(x)) == Apply(x) by construction.
func (s *Sanitizer) Apply(text string) string {
	result := text
	for i := 0; i < s.loopLimit; i++ {
		next := s.pass(result)
		if next == result {
			return result
		}
		result = next
	}
	return result
}

func (s *Sanitizer) pass(text string) string {
	text = strings.TrimSpace(text)
	text = s.dropPreambles(text)
	text = s.truncateAtTrailer(text)
	text = strings.Trim(text, quoteCutset)
	return strings.TrimSpace(text)
}

func (s *Sanitizer) dropPreambles(text string) string {
	lines := strings.Split(text, "\n")
	start := 0
	for start < len(lines) {
		line := strings.TrimSpace(lines[start])
		if line == "" {
			start++
			continue
		}
		if !s.matchesAny(s.preambles, line) {
			break
		}
		start++
	}
	if start == 0 {
		return text
	}
	if start >= len(lines) {
		// Everything matched; treat the whole text as preamble-free rather
		// than erase the output.
		return text
	}
	return strings.Join(lines[start:], "\n")
}

func (s *Sanitizer) truncateAtTrailer(text string) string {
	lines := strings.Split(text, "\n")
	for index, raw := range lines {
		if index == 0 {
			continue
		}
		if s.matchesAny(s.trailers, strings.TrimSpace(raw)) {
			return strings.Join(lines[:index], "\n")
		}
	}
	return text
}

func (s *Sanitizer) matchesAny(patterns []*regexp.Regexp, line string) bool {
	for _, re := range patterns {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}
