package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"flowpaste/internal/domain"
	"flowpaste/internal/editor"
	"flowpaste/internal/ports"
	"flowpaste/internal/request"
)

var ErrNoTranscript = errors.New("no speech captured")

// StartDictation freezes the cursor position and opens a live transcription
// stream. Audio chunks are pushed from the UI via PushAudio; the final
// transcript is inserted as plain text at the frozen cursor, bypassing the
// sanitizer and the generation engine.
func (c *ActionController) StartDictation(ctx context.Context) (domain.StartResult, error) {
	c.mu.Lock()
	if c.current != nil {
		active := c.current
		c.mu.Unlock()
		c.cancelSession(active)
		c.events.ActionStateChanged(domain.ActionStateCancelled, domain.ActionReasonSupersededPrevious)
		return domain.StartResult{SessionID: active.id, State: domain.ActionStateCancelled}, nil
	}
	c.mu.Unlock()

	sessionCtx, abort := context.WithCancel(ctx)
	stream, err := c.transcription.StartDictation(sessionCtx)
	if err != nil {
		abort()
		c.events.ActionError(domain.KindOf(err), err.Error(), domain.Retryable(err))
		c.events.ActionStateChanged(domain.ActionStateFailed, domain.ActionReasonFailed)
		return domain.StartResult{}, err
	}

	c.mu.Lock()
	if c.current != nil {
		c.mu.Unlock()
		abort()
		_ = stream.Close()
		return domain.StartResult{}, ErrActionInFlight
	}
	cursor := c.selection.Start
	snapshot := c.snapshots.Begin(c.buffer)
	session := &actionSession{
		id:              uuid.NewString(),
		kind:            domain.ActionKindDictation,
		snapshot:        snapshot,
		rng:             editor.Range{Start: cursor, End: cursor},
		cancel:          request.NewCancelFlag(),
		abort:           abort,
		state:           domain.ActionStateStreaming,
		stream:          stream,
		aggregator:      newDictationAggregator(),
		transcriptsDone: make(chan struct{}),
		done:            make(chan struct{}),
	}
	c.current = session
	c.mu.Unlock()

	go c.consumeTranscripts(session)

	c.events.ActionStateChanged(domain.ActionStateStreaming, domain.ActionReasonDictationStarted)
	return domain.StartResult{SessionID: session.id, State: domain.ActionStateStreaming}, nil
}

// PushAudio forwards one audio chunk from the UI into the active dictation
// stream.
func (c *ActionController) PushAudio(chunk []byte) error {
	session, err := c.currentDictation()
	if err != nil {
		return err
	}
	return session.stream.SendAudio(chunk)
}

// StopDictation ends capture and inserts the final transcript at the frozen
// cursor.
func (c *ActionController) StopDictation(ctx context.Context) (domain.ActionResult, error) {
	session, err := c.currentDictation()
	if err != nil {
		return domain.ActionResult{}, err
	}

	session.setState(domain.ActionStateFinalizing)
	c.events.ActionStateChanged(domain.ActionStateFinalizing, domain.ActionReasonFinalizing)

	if c.cfg.DictationGrace > 0 {
		timer := time.NewTimer(c.cfg.DictationGrace)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
		}
	}

	_ = session.stream.CloseSend()
	streamErr := waitForDictation(session.stream, 4*time.Second)
	<-session.transcriptsDone

	text := session.aggregator.Raw()
	if text == "" && streamErr != nil {
		c.fail(session, streamErr)
		return domain.ActionResult{}, streamErr
	}
	if text == "" {
		c.revertSession(session)
		session.setState(domain.ActionStateCancelled)
		c.events.ActionStateChanged(domain.ActionStateCancelled, domain.ActionReasonDictationEmpty)
		return domain.ActionResult{}, ErrNoTranscript
	}

	buffer := editor.Replace(session.snapshot, session.rng, text)
	caret := session.rng.Start + len([]rune(text))
	result := domain.ActionResult{
		SessionID:      session.id,
		Kind:           domain.ActionKindDictation,
		Buffer:         buffer,
		Inserted:       text,
		SelectionStart: caret,
		SelectionEnd:   caret,
	}

	c.mu.Lock()
	if c.current != session || session.cancel.Cancelled() {
		c.mu.Unlock()
		return domain.ActionResult{}, domain.ErrCancelled
	}
	c.buffer = buffer
	c.selection = editor.Range{Start: caret, End: caret}
	c.current = nil
	c.mu.Unlock()

	session.setState(domain.ActionStateCommitted)
	c.events.ActionCommitted(result)
	c.events.ActionStateChanged(domain.ActionStateCommitted, domain.ActionReasonDictationInserted)
	return result, nil
}

// AbortDictation discards the capture and reverts the buffer.
func (c *ActionController) AbortDictation() error {
	session, err := c.currentDictation()
	if err != nil {
		return err
	}

	c.cancelSession(session)
	c.events.ActionStateChanged(domain.ActionStateCancelled, domain.ActionReasonDictationDiscarded)
	return nil
}

func (c *ActionController) currentDictation() (*actionSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil || c.current.kind != domain.ActionKindDictation {
		return nil, ErrNoActiveSession
	}
	return c.current, nil
}

// cancelSession performs kind-aware teardown. Generation sessions revert in
// their own run goroutine once the flag is observed; dictation sessions are
// torn down here.
func (c *ActionController) cancelSession(session *actionSession) {
	session.cancel.Set()
	session.abort()

	if session.kind != domain.ActionKindDictation {
		return
	}
	_ = session.stream.Close()
	<-session.transcriptsDone
	c.revertSession(session)
	session.setState(domain.ActionStateCancelled)
}

func (c *ActionController) revertSession(session *actionSession) {
	c.mu.Lock()
	if c.current == session {
		c.buffer = session.snapshot
		c.current = nil
		c.snapshots.Discard()
	}
	c.mu.Unlock()
}

func (c *ActionController) consumeTranscripts(session *actionSession) {
	defer close(session.transcriptsDone)

	for event := range session.stream.Transcripts() {
		if session.cancel.Cancelled() {
			continue
		}
		session.aggregator.Add(event)

		preview := session.aggregator.Raw()
		if preview == "" {
			continue
		}
		c.events.DictationPartial(preview)
		c.applyPreview(session, editor.Replace(session.snapshot, session.rng, preview))
	}
}

func waitForDictation(stream ports.DictationStream, timeout time.Duration) error {
	done := make(chan error, 1)
	go func() {
		done <- stream.Wait()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		_ = stream.Close()
		return <-done
	}
}

// dictationAggregator joins finalized utterances and keeps the latest spoken
// fragment so short recordings that never finalize still produce text.
type dictationAggregator struct {
	mu         sync.Mutex
	finals     []string
	lastSpoken string
}

func newDictationAggregator() *dictationAggregator {
	return &dictationAggregator{}
}

func (a *dictationAggregator) Add(event domain.TranscriptEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	text := strings.TrimSpace(event.Text)
	if text == "" {
		return
	}
	a.lastSpoken = text
	if event.Final {
		a.finals = append(a.finals, text)
	}
}

func (a *dictationAggregator) Raw() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	joined := strings.TrimSpace(strings.Join(a.finals, " "))
	if joined == "" {
		return a.lastSpoken
	}
	if a.lastSpoken == "" || strings.HasSuffix(joined, a.lastSpoken) {
		return joined
	}
	if len(a.lastSpoken) > len(joined) {
		return strings.TrimSpace(joined + " " + a.lastSpoken)
	}
	return joined
}
