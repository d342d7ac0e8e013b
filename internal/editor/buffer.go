package editor

import "unicode/utf8"

// Range is a selection span in rune offsets, 0 <= Start <= End <= length.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of runes covered by the range.
func (r Range) Len() int { return r.End - r.Start }

// IsFullDocument reports whether the range spans the whole buffer.
func (r Range) IsFullDocument(buffer string) bool {
	return r.Start == 0 && r.End == utf8.RuneCountInString(buffer)
}

// FullRange covers the entire buffer.
func FullRange(buffer string) Range {
	return Range{Start: 0, End: utf8.RuneCountInString(buffer)}
}

// Replace rebuilds the buffer from an immutable snapshot, a frozen range, and
// replacement text. The live buffer is always recomputed this way and never
// derived from its own previous value.
func Replace(snapshot string, r Range, text string) string {
	runes := []rune(snapshot)
	r = clampRange(r, len(runes))
	return string(runes[:r.Start]) + text + string(runes[r.End:])
}

// Insert places text at a frozen cursor position in the snapshot.
func Insert(snapshot string, pos int, text string) string {
	return Replace(snapshot, Range{Start: pos, End: pos}, text)
}

func clampRange(r Range, length int) Range {
	if r.Start > r.End {
		r.Start, r.End = r.End, r.Start
	}
	if r.Start < 0 {
		r.Start = 0
	}
	if r.End < 0 {
		r.End = 0
	}
	if r.Start > length {
		r.Start = length
	}
	if r.End > length {
		r.End = length
	}
	return r
}
