package richtext

import (
	"strings"
	"testing"

	"flowpaste/internal/editor"
)

func TestToPlainStripsInlineFormatting(t *testing.T) {
	t.Parallel()

	c := NewConverter()
	plain, err := c.ToPlain("Some **bold** and *italic* text.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plain != "Some bold and italic text." {
		t.Fatalf("unexpected plain text: %q", plain)
	}
}

func TestToPlainSeparatesBlocks(t *testing.T) {
	t.Parallel()

	c := NewConverter()
	plain, err := c.ToPlain("# Title\n\nFirst paragraph.\n\nSecond paragraph.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"Title", "First paragraph.", "Second paragraph."} {
		if !strings.Contains(plain, want) {
			t.Fatalf("missing %q in %q", want, plain)
		}
	}
	if strings.Contains(plain, "#") {
		t.Fatalf("heading marker leaked into plain text: %q", plain)
	}
}

func TestToPlainPreservesMarkers(t *testing.T) {
	t.Parallel()

	c := NewConverter()
	marked := "A **bo" + editor.MarkerStart + "ld** claus" + editor.MarkerEnd + "e here."
	rng, clean, err := editor.ResolveRichRange(marked, c.ToPlain)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if clean != "A bold clause here." {
		t.Fatalf("unexpected plain text: %q", clean)
	}
	if got := string([]rune(clean)[rng.Start:rng.End]); got != "ld claus" {
		t.Fatalf("range selects %q", got)
	}
}

func TestToPlainKeepsCodeBlockContent(t *testing.T) {
	t.Parallel()

	c := NewConverter()
	plain, err := c.ToPlain("before\n\n```\ncode line\n```\n\nafter")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(plain, "code line") {
		t.Fatalf("code content dropped: %q", plain)
	}
}
