package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"flowpaste/internal/domain"
	"flowpaste/internal/ports"
)

func TestDictationInsertsAtFrozenCursor(t *testing.T) {
	t.Parallel()

	stream := newFakeDictStream()
	sink := newFakeEventSink()
	controller := NewActionController(&fakeGenerator{}, &fakeTranscription{stream: stream}, nil, trimSanitizer{}, &fakeClipboard{}, sink, testConfig())

	_ = controller.SetBuffer("Hello  world")
	controller.SetSelection(6, 6)

	result, err := controller.StartDictation(context.Background())
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if result.State != domain.ActionStateStreaming {
		t.Fatalf("unexpected start state: %s", result.State)
	}

	if err := controller.PushAudio([]byte("pcm")); err != nil {
		t.Fatalf("push audio failed: %v", err)
	}
	if got := stream.sentChunks(); len(got) != 1 || string(got[0]) != "pcm" {
		t.Fatalf("audio not forwarded: %v", got)
	}

	stream.emit(domain.TranscriptEvent{Text: "there", Final: true})
	sink.waitPartial(t)

	committed, err := controller.StopDictation(context.Background())
	if err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if committed.Buffer != "Hello there world" {
		t.Fatalf("unexpected buffer: %q", committed.Buffer)
	}
	if committed.SelectionStart != 11 || committed.SelectionEnd != 11 {
		t.Fatalf("caret not advanced past insert: %+v", committed)
	}
	if controller.Buffer() != "Hello there world" {
		t.Fatalf("live buffer diverged: %q", controller.Buffer())
	}

	undo, err := controller.Undo()
	if err != nil || !undo.Restored || undo.Buffer != "Hello  world" {
		t.Fatalf("undo did not restore pre-dictation buffer: %+v err=%v", undo, err)
	}
}

func TestDictationAbortRevertsBuffer(t *testing.T) {
	t.Parallel()

	stream := newFakeDictStream()
	sink := newFakeEventSink()
	controller := NewActionController(&fakeGenerator{}, &fakeTranscription{stream: stream}, nil, trimSanitizer{}, &fakeClipboard{}, sink, testConfig())

	_ = controller.SetBuffer("base text")
	controller.SetSelection(4, 4)

	if _, err := controller.StartDictation(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	stream.emit(domain.TranscriptEvent{Text: "um so", Final: false})
	sink.waitPartial(t)
	if controller.Buffer() == "base text" {
		t.Fatalf("partial transcript not previewed")
	}

	if err := controller.AbortDictation(); err != nil {
		t.Fatalf("abort failed: %v", err)
	}
	sink.waitState(t, domain.ActionReasonDictationDiscarded)

	if controller.Buffer() != "base text" {
		t.Fatalf("abort left partial insert: %q", controller.Buffer())
	}
	undo, err := controller.Undo()
	if err != nil || undo.Restored {
		t.Fatalf("expected no undo after abort, got %+v err=%v", undo, err)
	}
}

func TestStopDictationWithoutSpeech(t *testing.T) {
	t.Parallel()

	stream := newFakeDictStream()
	sink := newFakeEventSink()
	controller := NewActionController(&fakeGenerator{}, &fakeTranscription{stream: stream}, nil, trimSanitizer{}, &fakeClipboard{}, sink, testConfig())

	_ = controller.SetBuffer("unchanged")
	if _, err := controller.StartDictation(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	if _, err := controller.StopDictation(context.Background()); !errors.Is(err, ErrNoTranscript) {
		t.Fatalf("expected ErrNoTranscript, got %v", err)
	}
	sink.waitState(t, domain.ActionReasonDictationEmpty)
	if controller.Buffer() != "unchanged" {
		t.Fatalf("empty dictation mutated buffer: %q", controller.Buffer())
	}
}

func TestDictationProviderFailureSurfacesError(t *testing.T) {
	t.Parallel()

	sink := newFakeEventSink()
	provider := &fakeTranscription{err: domain.NewError(domain.ErrKindAuth, "bad key", nil)}
	controller := NewActionController(&fakeGenerator{}, provider, nil, trimSanitizer{}, &fakeClipboard{}, sink, testConfig())

	if _, err := controller.StartDictation(context.Background()); err == nil {
		t.Fatalf("expected start error")
	}
	event := sink.waitError(t)
	if event.kind != domain.ErrKindAuth {
		t.Fatalf("unexpected error kind: %s", event.kind)
	}
	if controller.Status().Active {
		t.Fatalf("failed start must not leave an active session")
	}
}

func TestDictationSupersedesActiveGeneration(t *testing.T) {
	t.Parallel()

	genStream := newFakeStream()
	gen := &fakeGenerator{streams: []ports.GenerationStream{genStream}}
	sink := newFakeEventSink()
	controller := NewActionController(gen, &fakeTranscription{stream: newFakeDictStream()}, nil, trimSanitizer{}, &fakeClipboard{}, sink, testConfig())

	_ = controller.SetBuffer("draft")
	first, err := controller.StartFix(context.Background(), StartRequest{})
	if err != nil {
		t.Fatalf("start fix failed: %v", err)
	}
	genStream.send(domain.TextDelta{Text: "x"})
	sink.waitPreview(t)

	second, err := controller.StartDictation(context.Background())
	if err != nil {
		t.Fatalf("start dictation failed: %v", err)
	}
	if second.State != domain.ActionStateCancelled || second.SessionID != first.SessionID {
		t.Fatalf("expected cancellation of generation session, got %+v", second)
	}

	genStream.send(domain.TextDelta{Text: "y"})
	sink.waitState(t, domain.ActionReasonCancelled)
	if controller.Buffer() != "draft" {
		t.Fatalf("buffer not reverted: %q", controller.Buffer())
	}
}

func TestPushAudioWithoutSession(t *testing.T) {
	t.Parallel()

	controller := NewActionController(&fakeGenerator{}, &fakeTranscription{}, nil, trimSanitizer{}, &fakeClipboard{}, newFakeEventSink(), testConfig())
	if err := controller.PushAudio([]byte("x")); !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("expected ErrNoActiveSession, got %v", err)
	}
}

func TestDictationAggregator(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		events []domain.TranscriptEvent
		want   string
	}{
		{
			name: "finals joined in order",
			events: []domain.TranscriptEvent{
				{Text: "hello world", Final: true},
				{Text: "second sentence", Final: true},
			},
			want: "hello world second sentence",
		},
		{
			name: "interim only recording",
			events: []domain.TranscriptEvent{
				{Text: "short take", Final: false},
			},
			want: "short take",
		},
		{
			name: "interim repeating the final is not duplicated",
			events: []domain.TranscriptEvent{
				{Text: "hello world", Final: true},
				{Text: "hello world", Final: false},
			},
			want: "hello world",
		},
		{
			name: "trailing interim longer than finals is appended",
			events: []domain.TranscriptEvent{
				{Text: "ok", Final: true},
				{Text: "ok and then some more words", Final: false},
			},
			want: "ok ok and then some more words",
		},
		{
			name: "blank events ignored",
			events: []domain.TranscriptEvent{
				{Text: "   ", Final: true},
				{Text: "kept", Final: true},
			},
			want: "kept",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			agg := newDictationAggregator()
			for _, event := range tc.events {
				agg.Add(event)
			}
			if got := agg.Raw(); got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

// --- dictation fakes ---

type fakeTranscription struct {
	mu     sync.Mutex
	stream *fakeDictStream
	err    error
	calls  int
}

func (f *fakeTranscription) StartDictation(_ context.Context) (ports.DictationStream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.stream == nil {
		return nil, errors.New("no dictation stream configured")
	}
	return f.stream, nil
}

type fakeDictStream struct {
	mu          sync.Mutex
	transcripts chan domain.TranscriptEvent
	sent        [][]byte
	sendErr     error
	waitErr     error
	closeOnce   sync.Once
	closed      bool
}

func newFakeDictStream() *fakeDictStream {
	return &fakeDictStream{transcripts: make(chan domain.TranscriptEvent, 64)}
}

func (f *fakeDictStream) emit(event domain.TranscriptEvent) { f.transcripts <- event }

func (f *fakeDictStream) sentChunks() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.sent))
	copy(out, f.sent)
	return out
}

func (f *fakeDictStream) SendAudio(chunk []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.New("stream closed")
	}
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, chunk)
	return nil
}

func (f *fakeDictStream) CloseSend() error {
	f.shutdown()
	return nil
}

func (f *fakeDictStream) Transcripts() <-chan domain.TranscriptEvent { return f.transcripts }

func (f *fakeDictStream) Wait() error { return f.waitErr }

func (f *fakeDictStream) Close() error {
	f.shutdown()
	return nil
}

func (f *fakeDictStream) shutdown() {
	f.closeOnce.Do(func() {
		f.mu.Lock()
		f.closed = true
		f.mu.Unlock()
		close(f.transcripts)
	})
}
