package usecase

import (
	"context"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"

	"flowpaste/internal/domain"
	"flowpaste/internal/editor"
	"flowpaste/internal/ports"
)

type actionFinalizer struct {
	sanitizer ports.Sanitizer
	clipboard ports.Clipboard
}

func newActionFinalizer(sanitizer ports.Sanitizer, clipboard ports.Clipboard) actionFinalizer {
	return actionFinalizer{sanitizer: sanitizer, clipboard: clipboard}
}

// Finalize sanitizes the accumulated stream text and builds the committed
// buffer from the frozen snapshot and range. The clipboard write is best
// effort; its failure is returned separately and never fails the commit.
func (f actionFinalizer) Finalize(ctx context.Context, session *actionSession) (domain.ActionResult, error, error) {
	clean := f.sanitizer.Apply(session.accumulatedText())
	if clean == "" {
		return domain.ActionResult{}, nil, domain.NewError(domain.ErrKindEmptyResult, "model produced no usable text", nil)
	}

	buffer := editor.Replace(session.snapshot, session.rng, clean)
	caret := session.rng.Start + utf8.RuneCountInString(clean)

	result := domain.ActionResult{
		SessionID:      session.id,
		Kind:           session.kind,
		Buffer:         buffer,
		Inserted:       clean,
		SelectionStart: caret,
		SelectionEnd:   caret,
		Diff:           diffSegments(selectedText(session.snapshot, session.rng), clean),
		Copied:         true,
	}

	var copyErr error
	if f.clipboard != nil {
		if copyErr = f.clipboard.SetText(ctx, clean); copyErr != nil {
			result.Copied = false
		}
	}

	return result, copyErr, nil
}

// diffSegments relates the replaced text to the inserted text for UI
// highlighting of what the model changed.
func diffSegments(before, after string) []domain.DiffSegment {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(before, after, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	segments := make([]domain.DiffSegment, 0, len(diffs))
	for _, d := range diffs {
		var op domain.DiffOp
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			op = domain.DiffOpInsert
		case diffmatchpatch.DiffDelete:
			op = domain.DiffOpDelete
		default:
			op = domain.DiffOpEqual
		}
		segments = append(segments, domain.DiffSegment{Op: op, Text: d.Text})
	}
	return segments
}
