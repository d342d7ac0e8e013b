package usecase

import (
	"context"
	"errors"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"flowpaste/internal/domain"
	"flowpaste/internal/editor"
	"flowpaste/internal/ports"
	"flowpaste/internal/request"
)

var (
	ErrNoActiveSession = errors.New("no active action session")
	ErrActionInFlight  = errors.New("another action is in flight")
)

// Config controls action behavior.
type Config struct {
	Runner             request.Runner
	LongInputThreshold int
	FixSystemPrompt    string
	PolishSystemPrompt string
	DictationGrace     time.Duration
}

// StartRequest describes one Fix/Polish invocation. Selection offsets are
// rune offsets into the plain buffer; RichContent, when set, carries the rich
// surface's content with boundary markers already inserted.
type StartRequest struct {
	Start         int
	End           int
	WholeDocument bool
	RichContent   string
	Confirmed     bool
}

// ActionController owns the authoritative buffer and runs the streaming
// replacement engine. Only one action session holds write intent at a time.
type ActionController struct {
	generator     ports.TextGenerator
	transcription ports.TranscriptionProvider
	rich          ports.RichConverter
	events        ports.EventSink
	finalizer     actionFinalizer
	cfg           Config

	mu        sync.Mutex
	buffer    string
	selection editor.Range
	snapshots editor.SnapshotKeeper
	current   *actionSession
}

func NewActionController(
	generator ports.TextGenerator,
	transcription ports.TranscriptionProvider,
	rich ports.RichConverter,
	sanitizer ports.Sanitizer,
	clipboard ports.Clipboard,
	events ports.EventSink,
	cfg Config,
) *ActionController {
	if cfg.LongInputThreshold <= 0 {
		cfg.LongInputThreshold = 8000
	}
	return &ActionController{
		generator:     generator,
		transcription: transcription,
		rich:          rich,
		events:        events,
		finalizer:     newActionFinalizer(sanitizer, clipboard),
		cfg:           cfg,
	}
}

// StartFix begins an in-place correction of the selection or whole document.
func (c *ActionController) StartFix(ctx context.Context, req StartRequest) (domain.StartResult, error) {
	return c.startGeneration(ctx, domain.ActionKindFix, req)
}

// StartPolish begins a rewrite of the selection or whole document.
func (c *ActionController) StartPolish(ctx context.Context, req StartRequest) (domain.StartResult, error) {
	return c.startGeneration(ctx, domain.ActionKindPolish, req)
}

func (c *ActionController) startGeneration(ctx context.Context, kind domain.ActionKind, req StartRequest) (domain.StartResult, error) {
	c.mu.Lock()

	// A new action while one is in flight is a cancellation request for the
	// current session, never a concurrent session.
	if c.current != nil {
		active := c.current
		c.mu.Unlock()
		c.cancelSession(active)
		c.events.ActionStateChanged(domain.ActionStateCancelled, domain.ActionReasonSupersededPrevious)
		return domain.StartResult{SessionID: active.id, State: domain.ActionStateCancelled}, nil
	}

	rng, fullDoc := c.freezeRangeLocked(req)

	if fullDoc && !req.Confirmed && utf8.RuneCountInString(c.buffer) > c.cfg.LongInputThreshold {
		c.mu.Unlock()
		c.events.ActionStateChanged(domain.ActionStateIdle, domain.ActionReasonConfirmLongInput)
		return domain.StartResult{State: domain.ActionStateIdle, NeedsConfirmation: true}, nil
	}

	snapshot := c.snapshots.Begin(c.buffer)
	sessionCtx, abort := context.WithCancel(ctx)
	session := &actionSession{
		id:       uuid.NewString(),
		kind:     kind,
		snapshot: snapshot,
		rng:      rng,
		cancel:   request.NewCancelFlag(),
		abort:    abort,
		state:    domain.ActionStateRequesting,
		done:     make(chan struct{}),
	}
	c.current = session
	c.mu.Unlock()

	reason := domain.ActionReasonFixStarted
	if kind == domain.ActionKindPolish {
		reason = domain.ActionReasonPolishStarted
	}
	c.events.ActionStateChanged(domain.ActionStateRequesting, reason)

	go c.run(sessionCtx, session, ports.GenerationRequest{
		SystemPrompt: c.systemPrompt(kind),
		UserPrompt:   selectedText(snapshot, rng),
	})

	return domain.StartResult{SessionID: session.id, State: domain.ActionStateRequesting}, nil
}

// freezeRangeLocked resolves the selection once, at invocation time. Rich
// surfaces resolve through marker conversion; a marker collision falls back
// to the last known selection instead of corrupting text.
func (c *ActionController) freezeRangeLocked(req StartRequest) (editor.Range, bool) {
	if req.WholeDocument {
		return editor.FullRange(c.buffer), true
	}

	if req.RichContent != "" && c.rich != nil {
		rng, plain, err := editor.ResolveRichRange(req.RichContent, c.rich.ToPlain)
		if err == nil {
			// The converted rich content is the authoritative plain text.
			c.buffer = plain
			c.selection = rng
			return rng, false
		}
		return editor.ResolveRange(c.buffer, c.selection.Start, c.selection.End), false
	}

	rng := editor.ResolveRange(c.buffer, req.Start, req.End)
	c.selection = rng
	if rng.Len() == 0 {
		return editor.FullRange(c.buffer), true
	}
	return rng, false
}

func (c *ActionController) systemPrompt(kind domain.ActionKind) string {
	if kind == domain.ActionKindPolish {
		return c.cfg.PolishSystemPrompt
	}
	return c.cfg.FixSystemPrompt
}

func selectedText(snapshot string, rng editor.Range) string {
	runes := []rune(snapshot)
	return string(runes[rng.Start:rng.End])
}

func (c *ActionController) run(ctx context.Context, session *actionSession, genReq ports.GenerationRequest) {
	defer close(session.done)

	err := c.cfg.Runner.Do(ctx, session.cancel, func(attemptCtx context.Context) error {
		return c.streamOnce(attemptCtx, session, genReq)
	})
	if err != nil {
		c.fail(session, err)
		return
	}
	c.finalize(ctx, session)
}

// streamOnce runs one streaming attempt. A retried attempt starts over: the
// accumulated text is reset so the reconstruction invariant holds against a
// fresh stream.
func (c *ActionController) streamOnce(ctx context.Context, session *actionSession, genReq ports.GenerationRequest) error {
	stream, err := c.generator.StartStream(ctx, genReq)
	if err != nil {
		return err
	}
	defer func() { _ = stream.Close() }()

	session.resetAccumulated()

	for delta := range stream.Deltas() {
		if session.cancel.Cancelled() {
			return domain.ErrCancelled
		}
		if delta.Done {
			break
		}
		if delta.Text == "" {
			continue
		}

		if session.getState() != domain.ActionStateStreaming {
			session.setState(domain.ActionStateStreaming)
			c.events.ActionStateChanged(domain.ActionStateStreaming, domain.ActionReasonStreaming)
		}

		accumulated := session.appendText(delta.Text)
		// The live buffer is always rebuilt from the frozen snapshot and
		// range, never from its own previous value.
		live := editor.Replace(session.snapshot, session.rng, accumulated)
		if !c.applyPreview(session, live) {
			return domain.ErrCancelled
		}
	}

	return stream.Wait()
}

func (c *ActionController) applyPreview(session *actionSession, live string) bool {
	c.mu.Lock()
	if c.current != session || session.cancel.Cancelled() {
		c.mu.Unlock()
		return false
	}
	c.buffer = live
	c.mu.Unlock()

	c.events.BufferPreview(session.id, live)
	return true
}

func (c *ActionController) finalize(ctx context.Context, session *actionSession) {
	session.setState(domain.ActionStateFinalizing)
	c.events.ActionStateChanged(domain.ActionStateFinalizing, domain.ActionReasonFinalizing)

	result, copyErr, err := c.finalizer.Finalize(ctx, session)
	if err != nil {
		c.fail(session, err)
		return
	}

	c.mu.Lock()
	if c.current != session || session.cancel.Cancelled() {
		c.mu.Unlock()
		c.fail(session, domain.ErrCancelled)
		return
	}
	c.buffer = result.Buffer
	c.selection = editor.Range{Start: result.SelectionStart, End: result.SelectionEnd}
	c.current = nil
	c.mu.Unlock()

	session.setState(domain.ActionStateCommitted)
	c.events.ActionCommitted(result)

	reason := domain.ActionReasonCommitted
	if copyErr != nil {
		reason = domain.ActionReasonCommittedNoCopy
	}
	c.events.ActionStateChanged(domain.ActionStateCommitted, reason)
}

// fail reverts the buffer to the pre-action snapshot and reports the outcome.
// User cancellation reverts silently with an informational status only.
func (c *ActionController) fail(session *actionSession, err error) {
	session.abort()

	c.mu.Lock()
	if c.current == session {
		c.buffer = session.snapshot
		c.current = nil
		c.snapshots.Discard()
	}
	c.mu.Unlock()

	if errors.Is(err, domain.ErrCancelled) {
		session.setState(domain.ActionStateCancelled)
		c.events.ActionStateChanged(domain.ActionStateCancelled, domain.ActionReasonCancelled)
		return
	}

	session.setState(domain.ActionStateFailed)
	c.events.ActionError(domain.KindOf(err), err.Error(), domain.Retryable(err))
	c.events.ActionStateChanged(domain.ActionStateFailed, domain.ActionReasonFailed)
}

// Cancel aborts the active session. The cancel flag is set before the abort
// so the termination is never mistaken for a timeout, and any buffered chunk
// still in flight is dropped instead of applied.
func (c *ActionController) Cancel() error {
	c.mu.Lock()
	session := c.current
	c.mu.Unlock()
	if session == nil {
		return ErrNoActiveSession
	}

	c.cancelSession(session)
	if session.kind == domain.ActionKindDictation {
		c.events.ActionStateChanged(domain.ActionStateCancelled, domain.ActionReasonCancelled)
	}
	return nil
}

// Undo restores the pre-action buffer exactly once.
func (c *ActionController) Undo() (domain.UndoResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != nil {
		return domain.UndoResult{}, ErrActionInFlight
	}

	snapshot, ok := c.snapshots.Undo()
	if !ok {
		return domain.UndoResult{Restored: false, Buffer: c.buffer}, nil
	}
	c.buffer = snapshot
	c.selection = editor.ResolveRange(snapshot, c.selection.Start, c.selection.End)
	return domain.UndoResult{Restored: true, Buffer: snapshot}, nil
}

// Buffer returns the authoritative document text.
func (c *ActionController) Buffer() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buffer
}

// SetBuffer applies a direct user edit. Direct edits are serialized against
// streaming: while a session is active they are rejected and the UI keeps the
// edit surface read-only.
func (c *ActionController) SetBuffer(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != nil {
		return ErrActionInFlight
	}
	c.buffer = text
	c.selection = editor.ResolveRange(text, c.selection.Start, c.selection.End)
	return nil
}

// SetSelection records the last known selection used as a fallback when rich
// resolution fails and as the frozen cursor for dictation.
func (c *ActionController) SetSelection(start, end int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selection = editor.ResolveRange(c.buffer, start, end)
}

// Status returns the current session status.
func (c *ActionController) Status() domain.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return domain.Status{State: domain.ActionStateIdle, Active: false}
	}
	state := c.current.getState()
	return domain.Status{
		State:     state,
		Kind:      c.current.kind,
		Active:    true,
		SessionID: c.current.id,
	}
}
