package domain

// ActionState models the lifecycle of one Fix/Polish/dictation action.
type ActionState string

const (
	ActionStateIdle       ActionState = "idle"
	ActionStateRequesting ActionState = "requesting"
	ActionStateStreaming  ActionState = "streaming"
	ActionStateFinalizing ActionState = "finalizing"
	ActionStateCommitted  ActionState = "committed"
	ActionStateCancelled  ActionState = "cancelled"
	ActionStateFailed     ActionState = "failed"
)

// ActionReason provides a structured reason for state transitions.
type ActionReason string

const (
	ActionReasonReady              ActionReason = "ready"
	ActionReasonFixStarted         ActionReason = "fix_started"
	ActionReasonPolishStarted      ActionReason = "polish_started"
	ActionReasonStreaming          ActionReason = "streaming"
	ActionReasonFinalizing         ActionReason = "finalizing"
	ActionReasonCommitted          ActionReason = "committed"
	ActionReasonCommittedNoCopy    ActionReason = "committed_clipboard_failed"
	ActionReasonCancelled          ActionReason = "cancelled"
	ActionReasonSupersededPrevious ActionReason = "superseded_previous"
	ActionReasonFailed             ActionReason = "failed"
	ActionReasonUndone             ActionReason = "undone"
	ActionReasonConfirmLongInput   ActionReason = "confirm_long_input"
	ActionReasonDictationStarted   ActionReason = "dictation_started"
	ActionReasonDictationInserted  ActionReason = "dictation_inserted"
	ActionReasonDictationEmpty     ActionReason = "dictation_empty"
	ActionReasonDictationDiscarded ActionReason = "dictation_discarded"
)

// ActionKind identifies which user action owns a session.
type ActionKind string

const (
	ActionKindFix       ActionKind = "fix"
	ActionKindPolish    ActionKind = "polish"
	ActionKindDictation ActionKind = "dictation"
)

// TextDelta is one incremental piece of generated text.
type TextDelta struct {
	Text string `json:"text"`
	Done bool   `json:"done"`
}

// TranscriptEvent is incremental dictation output. Final events are part of
// the committed transcript; non-final events only preview in-progress speech.
type TranscriptEvent struct {
	Text  string `json:"text"`
	Final bool   `json:"final"`
}

// DiffOp marks how a diff segment relates the replaced text to the inserted text.
type DiffOp string

const (
	DiffOpEqual  DiffOp = "equal"
	DiffOpInsert DiffOp = "insert"
	DiffOpDelete DiffOp = "delete"
)

// DiffSegment is one run of the commit diff shown by the UI.
type DiffSegment struct {
	Op   DiffOp `json:"op"`
	Text string `json:"text"`
}

// ActionResult is emitted once an action commits.
type ActionResult struct {
	SessionID      string        `json:"sessionId"`
	Kind           ActionKind    `json:"kind"`
	Buffer         string        `json:"buffer"`
	Inserted       string        `json:"inserted"`
	SelectionStart int           `json:"selectionStart"`
	SelectionEnd   int           `json:"selectionEnd"`
	Diff           []DiffSegment `json:"diff"`
	Copied         bool          `json:"copied"`
}

// StartResult reports the outcome of an action invocation.
type StartResult struct {
	SessionID         string      `json:"sessionId"`
	State             ActionState `json:"state"`
	NeedsConfirmation bool        `json:"needsConfirmation"`
}

// Status summarizes the current session status.
type Status struct {
	State     ActionState `json:"state"`
	Kind      ActionKind  `json:"kind,omitempty"`
	Active    bool        `json:"active"`
	SessionID string      `json:"sessionId,omitempty"`
	Message   string      `json:"message,omitempty"`
}

// UndoResult reports the outcome of an undo request.
type UndoResult struct {
	Restored bool   `json:"restored"`
	Buffer   string `json:"buffer"`
}
