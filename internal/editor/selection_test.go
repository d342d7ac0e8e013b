package editor

import (
	"errors"
	"strings"
	"testing"
)

func TestResolveRangeClampsAndSwaps(t *testing.T) {
	t.Parallel()

	if got := ResolveRange("hello", 4, 2); got != (Range{Start: 2, End: 4}) {
		t.Fatalf("expected swapped range, got %+v", got)
	}
	if got := ResolveRange("hello", -3, 99); got != (Range{Start: 0, End: 5}) {
		t.Fatalf("expected clamped range, got %+v", got)
	}
	if got := ResolveRange("héllo", 0, 10); got.End != 5 {
		t.Fatalf("expected rune-based clamp, got %+v", got)
	}
}

func identityConvert(s string) (string, error) { return s, nil }

func TestResolveRichRangeLocatesMarkers(t *testing.T) {
	t.Parallel()

	marked := "abc" + MarkerStart + "def" + MarkerEnd + "ghi"
	rng, clean, err := ResolveRichRange(marked, identityConvert)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if clean != "abcdefghi" {
		t.Fatalf("unexpected plain text: %q", clean)
	}
	if rng != (Range{Start: 3, End: 6}) {
		t.Fatalf("unexpected range: %+v", rng)
	}
	if got := string([]rune(clean)[rng.Start:rng.End]); got != "def" {
		t.Fatalf("range selects %q", got)
	}
}

func TestResolveRichRangeReversedMarkers(t *testing.T) {
	t.Parallel()

	marked := "abc" + MarkerEnd + "def" + MarkerStart + "ghi"
	rng, _, err := ResolveRichRange(marked, identityConvert)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rng != (Range{Start: 3, End: 6}) {
		t.Fatalf("unexpected range: %+v", rng)
	}
}

func TestResolveRichRangeMarkerCollision(t *testing.T) {
	t.Parallel()

	marked := MarkerStart + "text" + MarkerStart + "more" + MarkerEnd
	_, _, err := ResolveRichRange(marked, identityConvert)
	if !errors.Is(err, ErrMarkerCollision) {
		t.Fatalf("expected marker collision, got %v", err)
	}

	// A converter that drops a marker also invalidates resolution.
	dropEnd := func(s string) (string, error) {
		return strings.Replace(s, MarkerEnd, "", 1), nil
	}
	_, _, err = ResolveRichRange("a"+MarkerStart+"b"+MarkerEnd, dropEnd)
	if !errors.Is(err, ErrMarkerCollision) {
		t.Fatalf("expected marker collision after conversion, got %v", err)
	}
}

func TestResolveRichRangeConverterError(t *testing.T) {
	t.Parallel()

	boom := errors.New("bad markdown")
	_, _, err := ResolveRichRange("a"+MarkerStart+"b"+MarkerEnd, func(string) (string, error) {
		return "", boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected converter error, got %v", err)
	}
}
