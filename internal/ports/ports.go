package ports

import (
	"context"

	"flowpaste/internal/domain"
)

// GenerationRequest describes one streaming text-generation call.
type GenerationRequest struct {
	SystemPrompt string
	UserPrompt   string
}

// GenerationStream is an active streaming response from a text-generation service.
type GenerationStream interface {
	Deltas() <-chan domain.TextDelta
	Wait() error
	Close() error
}

// TextGenerator starts streaming text-generation requests.
type TextGenerator interface {
	StartStream(ctx context.Context, req GenerationRequest) (GenerationStream, error)
}

// DictationStream is an active voice-transcription session fed with audio
// chunks pushed from the UI.
type DictationStream interface {
	SendAudio(chunk []byte) error
	CloseSend() error
	Transcripts() <-chan domain.TranscriptEvent
	Wait() error
	Close() error
}

// TranscriptionProvider starts streaming dictation sessions.
type TranscriptionProvider interface {
	StartDictation(ctx context.Context) (DictationStream, error)
}

// RichConverter turns rich (markdown) content into the plain representation
// selection offsets are defined on.
type RichConverter interface {
	ToPlain(rich string) (string, error)
}

// Sanitizer strips model chatter from accumulated output before commit.
type Sanitizer interface {
	Apply(text string) string
}

// Clipboard writes text into the system clipboard.
type Clipboard interface {
	SetText(ctx context.Context, text string) error
}

// EventSink surfaces action state, previews, and errors to the UI.
type EventSink interface {
	ActionStateChanged(state domain.ActionState, reason domain.ActionReason)
	BufferPreview(sessionID string, buffer string)
	ActionCommitted(result domain.ActionResult)
	DictationPartial(text string)
	ActionError(kind domain.ErrKind, detail string, retryable bool)
}
