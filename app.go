package main

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"flowpaste/internal/bootstrap"
	"flowpaste/internal/config"
	"flowpaste/internal/domain"
	"flowpaste/internal/usecase"
)

const (
	eventAction    = "flowpaste:action"
	eventPreview   = "flowpaste:preview"
	eventCommitted = "flowpaste:committed"
	eventDictation = "flowpaste:dictation"
	eventError     = "flowpaste:error"
)

// App is the Wails application root.
type App struct {
	ctx context.Context

	controller *usecase.ActionController
	cfg        config.Config
	bootErr    error
}

func NewApp() *App {
	return &App{}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	services, err := bootstrap.Build(a, &wailsClipboard{})
	if err != nil {
		a.bootErr = err
		a.ActionError(domain.ErrKindInternal, err.Error(), false)
		return
	}

	a.cfg = services.Config
	a.controller = services.Controller
	a.ActionStateChanged(domain.ActionStateIdle, domain.ActionReasonReady)
}

// Fix starts an in-place correction of the current selection or document.
func (a *App) Fix(opts usecase.StartRequest) (domain.StartResult, error) {
	if err := a.requireReady(); err != nil {
		return domain.StartResult{}, err
	}
	return a.controller.StartFix(a.ctx, opts)
}

// Polish starts a rewrite of the current selection or document.
func (a *App) Polish(opts usecase.StartRequest) (domain.StartResult, error) {
	if err := a.requireReady(); err != nil {
		return domain.StartResult{}, err
	}
	return a.controller.StartPolish(a.ctx, opts)
}

// CancelAction aborts the in-flight action and restores the buffer.
func (a *App) CancelAction() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	if err := a.controller.Cancel(); err != nil {
		if errors.Is(err, usecase.ErrNoActiveSession) {
			return nil
		}
		return err
	}
	return nil
}

// Undo restores the pre-action buffer exactly once.
func (a *App) Undo() (domain.UndoResult, error) {
	if err := a.requireReady(); err != nil {
		return domain.UndoResult{}, err
	}
	result, err := a.controller.Undo()
	if err != nil {
		return domain.UndoResult{}, err
	}
	if result.Restored {
		a.ActionStateChanged(domain.ActionStateIdle, domain.ActionReasonUndone)
	}
	return result, nil
}

// GetBuffer returns the authoritative document text.
func (a *App) GetBuffer() (string, error) {
	if err := a.requireReady(); err != nil {
		return "", err
	}
	return a.controller.Buffer(), nil
}

// SetBuffer applies a direct user edit. Rejected while an action streams.
func (a *App) SetBuffer(text string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.controller.SetBuffer(text)
}

// SetSelection records the current selection offsets.
func (a *App) SetSelection(start, end int) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	a.controller.SetSelection(start, end)
	return nil
}

// StartDictation begins voice capture insertion at the current cursor.
func (a *App) StartDictation() (domain.StartResult, error) {
	if err := a.requireReady(); err != nil {
		return domain.StartResult{}, err
	}
	return a.controller.StartDictation(a.ctx)
}

// PushAudio forwards one base64-encoded audio chunk from the recorder.
func (a *App) PushAudio(chunk string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	payload, err := base64.StdEncoding.DecodeString(chunk)
	if err != nil {
		return fmt.Errorf("invalid audio chunk encoding: %w", err)
	}
	return a.controller.PushAudio(payload)
}

// StopDictation ends capture and inserts the transcript at the frozen cursor.
func (a *App) StopDictation() (domain.ActionResult, error) {
	if err := a.requireReady(); err != nil {
		return domain.ActionResult{}, err
	}
	result, err := a.controller.StopDictation(a.ctx)
	if err != nil {
		if errors.Is(err, usecase.ErrNoTranscript) {
			return domain.ActionResult{}, nil
		}
		return domain.ActionResult{}, err
	}
	return result, nil
}

// AbortDictation discards the capture without inserting anything.
func (a *App) AbortDictation() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	if err := a.controller.AbortDictation(); err != nil {
		if errors.Is(err, usecase.ErrNoActiveSession) {
			return nil
		}
		return err
	}
	return nil
}

// GetStatus returns the current session status.
func (a *App) GetStatus() domain.Status {
	if a.controller == nil {
		if a.bootErr != nil {
			return domain.Status{State: domain.ActionStateFailed, Active: false, Message: a.bootErr.Error()}
		}
		return domain.Status{State: domain.ActionStateIdle, Active: false}
	}
	return a.controller.Status()
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}

	return map[string]string{
		"generationModel":    a.cfg.OpenAI.Model,
		"dictationModel":     a.cfg.Deepgram.Model,
		"dictationLanguage":  a.cfg.Deepgram.Language,
		"longInputThreshold": fmt.Sprintf("%d", a.cfg.Action.LongInputThreshold),
		"sanitizerRules":     a.cfg.Sanitizer.RulesPath,
	}
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.controller == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

// ActionStateChanged emits action lifecycle updates to the frontend.
func (a *App) ActionStateChanged(state domain.ActionState, reason domain.ActionReason) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventAction, map[string]string{
		"state":   string(state),
		"reason":  string(reason),
		"message": actionReasonMessage(reason),
	})
}

// BufferPreview emits the recomputed live buffer during streaming.
func (a *App) BufferPreview(sessionID string, buffer string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventPreview, map[string]string{
		"sessionId": sessionID,
		"buffer":    buffer,
	})
}

// ActionCommitted emits the final committed result.
func (a *App) ActionCommitted(result domain.ActionResult) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventCommitted, result)
}

// DictationPartial emits live in-progress transcript text.
func (a *App) DictationPartial(text string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventDictation, map[string]string{"text": text})
}

// ActionError emits surfaced failures, with a retry affordance when the error
// kind allows one.
func (a *App) ActionError(kind domain.ErrKind, detail string, retryable bool) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventError, map[string]any{
		"kind":      string(kind),
		"message":   errorMessage(kind, detail),
		"detail":    detail,
		"retryable": retryable,
	})
}

func actionReasonMessage(reason domain.ActionReason) string {
	switch reason {
	case domain.ActionReasonReady:
		return "Ready"
	case domain.ActionReasonFixStarted:
		return "Fixing..."
	case domain.ActionReasonPolishStarted:
		return "Polishing..."
	case domain.ActionReasonStreaming:
		return "Rewriting text..."
	case domain.ActionReasonFinalizing:
		return "Finishing up..."
	case domain.ActionReasonCommitted:
		return "Done. Result copied to clipboard"
	case domain.ActionReasonCommittedNoCopy:
		return "Done (clipboard write failed)"
	case domain.ActionReasonCancelled:
		return "Cancelled; original text restored"
	case domain.ActionReasonSupersededPrevious:
		return "Previous action cancelled"
	case domain.ActionReasonFailed:
		return "Action failed; original text restored"
	case domain.ActionReasonUndone:
		return "Change undone"
	case domain.ActionReasonConfirmLongInput:
		return "Document is long. Confirm to process the whole text"
	case domain.ActionReasonDictationStarted:
		return "Listening..."
	case domain.ActionReasonDictationInserted:
		return "Transcript inserted"
	case domain.ActionReasonDictationEmpty:
		return "No speech captured"
	case domain.ActionReasonDictationDiscarded:
		return "Recording discarded"
	default:
		return ""
	}
}

func errorMessage(kind domain.ErrKind, detail string) string {
	switch kind {
	case domain.ErrKindAuth:
		return "Check your API credentials"
	case domain.ErrKindValidation:
		return "The service rejected the request"
	case domain.ErrKindTimeout:
		return "The request timed out"
	case domain.ErrKindNetwork:
		return "Network problem while contacting the service"
	case domain.ErrKindEmptyResult:
		return "The model returned no usable text"
	default:
		if detail == "" {
			return "Unknown error"
		}
		return detail
	}
}

type wailsClipboard struct{}

func (c *wailsClipboard) SetText(ctx context.Context, text string) error {
	return runtime.ClipboardSetText(ctx, text)
}
