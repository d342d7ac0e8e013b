package sanitize

import (
	"os"
	"path/filepath"
	"testing"
)

func TestApplyStripsWrappingQuotes(t *testing.T) {
	t.Parallel()

	s := New()
	if got := s.Apply(`"This is the text."`); got != "This is the text." {
		t.Fatalf("unexpected output: %q", got)
	}
	if got := s.Apply("“Smart quoted.”"); got != "Smart quoted." {
		t.Fatalf("unexpected output: %q", got)
	}
}

func TestApplyDropsPreambleLines(t *testing.T) {
	t.Parallel()

	s := New()
	raw := "Here is the corrected text:\n\nThe quick brown fox."
	if got := s.Apply(raw); got != "The quick brown fox." {
		t.Fatalf("unexpected output: %q", got)
	}

	raw = "Sure!\nCertainly,\nActual content here."
	if got := s.Apply(raw); got != "Actual content here." {
		t.Fatalf("unexpected output: %q", got)
	}
}

func TestApplyTruncatesExplanationSection(t *testing.T) {
	t.Parallel()

	s := New()
	raw := "The corrected sentence.\n\nChanges made:\n- fixed a typo\n- adjusted tense"
	if got := s.Apply(raw); got != "The corrected sentence." {
		t.Fatalf("unexpected output: %q", got)
	}
}

func TestApplyCombinedChatter(t *testing.T) {
	t.Parallel()

	s := New()
	raw := "Here's the polished version:\n\"A bright cold day in April.\"\nExplanation: tightened wording."
	if got := s.Apply(raw); got != "A bright cold day in April." {
		t.Fatalf("unexpected output: %q", got)
	}
}

func TestApplyIdempotent(t *testing.T) {
	t.Parallel()

	s := New()
	inputs := []string{
		"plain text with no banned patterns",
		`"quoted"`,
		"Here is the result:\ncontent\nNote: details follow",
		"",
		"   \n \n ",
		"Sure!\nSure!\nSure!",
	}
	for _, input := range inputs {
		once := s.Apply(input)
		twice := s.Apply(once)
		if once != twice {
			t.Fatalf("not idempotent for %q: %q != %q", input, once, twice)
		}
	}
}

func TestApplyKeepsSubstantiveFirstLine(t *testing.T) {
	t.Parallel()

	s := New()
	raw := "Notes from the meeting.\nMore body text."
	if got := s.Apply(raw); got != raw {
		t.Fatalf("substantive text modified: %q", got)
	}
}

func TestNewFromFileExtendsPatterns(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "chatter.rules")
	rules := "# extra chatter\npreamble: ^as requested\\b.*$\ntrailer: ^word count:.*$\n"
	if err := os.WriteFile(path, []byte(rules), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	s, err := NewFromFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	raw := "as requested, rewritten below\nBody text.\nword count: 3"
	if got := s.Apply(raw); got != "Body text." {
		t.Fatalf("unexpected output: %q", got)
	}
}

func TestNewFromFileMissingFileUsesBuiltins(t *testing.T) {
	t.Parallel()

	s, err := NewFromFile(filepath.Join(t.TempDir(), "absent.rules"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := s.Apply(`"x"`); got != "x" {
		t.Fatalf("unexpected output: %q", got)
	}
}

func TestNewFromFileRejectsBadRules(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.rules")
	if err := os.WriteFile(path, []byte("not a rule line\n"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if _, err := NewFromFile(path); err == nil {
		t.Fatalf("expected parse error")
	}

	path2 := filepath.Join(t.TempDir(), "badre.rules")
	if err := os.WriteFile(path2, []byte("preamble: [unclosed\n"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if _, err := NewFromFile(path2); err == nil {
		t.Fatalf("expected regexp compile error")
	}
}
