package usecase

import (
	"context"
	"sync"

	"flowpaste/internal/domain"
	"flowpaste/internal/editor"
	"flowpaste/internal/ports"
	"flowpaste/internal/request"
)

// actionSession carries the frozen state of one Fix/Polish/dictation
// invocation. The snapshot and range are captured at action start and never
// re-read from live state, so late callbacks cannot observe a mutated buffer.
type actionSession struct {
	id       string
	kind     domain.ActionKind
	snapshot string
	rng      editor.Range
	cancel   *request.CancelFlag
	abort    context.CancelFunc

	stateMu sync.Mutex
	state   domain.ActionState

	accumMu     sync.Mutex
	accumulated string

	// dictation only
	stream          ports.DictationStream
	aggregator      *dictationAggregator
	transcriptsDone chan struct{}

	done chan struct{}
}

func (s *actionSession) setState(state domain.ActionState) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	s.state = state
}

func (s *actionSession) getState() domain.ActionState {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.state
}

// appendText grows the accumulated stream text and returns the new whole.
func (s *actionSession) appendText(text string) string {
	s.accumMu.Lock()
	defer s.accumMu.Unlock()
	s.accumulated += text
	return s.accumulated
}

func (s *actionSession) resetAccumulated() {
	s.accumMu.Lock()
	defer s.accumMu.Unlock()
	s.accumulated = ""
}

func (s *actionSession) accumulatedText() string {
	s.accumMu.Lock()
	defer s.accumMu.Unlock()
	return s.accumulated
}
