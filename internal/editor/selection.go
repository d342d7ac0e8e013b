package editor

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// Boundary markers inserted into rich content before conversion. Chosen from a
// Unicode private use area so they cannot occur in ordinary documents.
const (
	MarkerStart = "FPS"
	MarkerEnd   = "FPE"
)

// ErrMarkerCollision indicates a boundary marker matched pre-existing document
// text, so offsets cannot be trusted. Callers fall back to the last known
// selection.
var ErrMarkerCollision = errors.New("selection marker collides with document text")

// ResolveRange clamps plain-view selection offsets against the buffer,
// swapping reversed bounds.
func ResolveRange(buffer string, start, end int) Range {
	return clampRange(Range{Start: start, End: end}, utf8.RuneCountInString(buffer))
}

// ResolveRichRange resolves a selection made on a rich surface. The caller
// inserts the two boundary markers into the rich content at the selection
// edges; convert turns rich content into the plain representation. The range
// is located by marker offsets in the converted text, and the de-marked plain
// text is returned alongside it.
func ResolveRichRange(marked string, convert func(string) (string, error)) (Range, string, error) {
	if strings.Count(marked, MarkerStart) != 1 || strings.Count(marked, MarkerEnd) != 1 {
		return Range{}, "", ErrMarkerCollision
	}

	plain, err := convert(marked)
	if err != nil {
		return Range{}, "", err
	}
	if strings.Count(plain, MarkerStart) != 1 || strings.Count(plain, MarkerEnd) != 1 {
		return Range{}, "", ErrMarkerCollision
	}

	startByte := strings.Index(plain, MarkerStart)
	endByte := strings.Index(plain, MarkerEnd)

	clean := strings.Replace(plain, MarkerStart, "", 1)
	clean = strings.Replace(clean, MarkerEnd, "", 1)

	start := utf8.RuneCountInString(plain[:startByte])
	end := utf8.RuneCountInString(plain[:endByte])
	if endByte > startByte {
		end -= utf8.RuneCountInString(MarkerStart)
	} else {
		start -= utf8.RuneCountInString(MarkerEnd)
	}

	return clampRange(Range{Start: start, End: end}, utf8.RuneCountInString(clean)), clean, nil
}
