package types

// ActionKind is the closed set of action tags produced by behaviors and
// event handlers.
type ActionKind string

// Action kind constants per §3.
const (
	ActionPush             ActionKind = "push"
	ActionPop              ActionKind = "pop"
	ActionEmitEvent        ActionKind = "emitEvent"
	ActionEmitMetric       ActionKind = "emitMetric"
	ActionPlaySound        ActionKind = "playSound"
	ActionStartTimer       ActionKind = "startTimer"
	ActionStopTimer        ActionKind = "stopTimer"
	ActionRestartTimer     ActionKind = "restartTimer"
	ActionRegisterHandler  ActionKind = "registerHandler"
	ActionError            ActionKind = "error"
	ActionPushStackItem    ActionKind = "pushStackItem"
	ActionPopStackItem     ActionKind = "popStackItem"
	ActionSetRoundsDisplay ActionKind = "setRoundsDisplay"
	ActionUpdateTimerDisplay ActionKind = "updateTimerDisplay"
)

// ActionContext is the minimal surface an Action.Do needs: enough of the
// execution context to mutate the stack, memory, and event bus without
// importing those packages directly (avoids an import cycle between
// types and the packages that consume it). Concrete execution contexts
// implement this interface; see execctx.Context.
type ActionContext interface {
	Now() Timestamp
}

// Action is a command produced by behaviors/handlers. Actions are not
// side-effect free and are executed in the order they were queued; Do
// receives the execution context they will run under.
type Action struct {
	Kind ActionKind `json:"kind"`
	// Payload is the kind-specific data; concrete packages (block,
	// stack, tracker, dispatch) type-assert it to the shape they expect.
	Payload any `json:"payload,omitempty"`
	// Do, when non-nil, is invoked by the execution context's queue
	// drain loop to perform the action's effect. Actions constructed by
	// the stack/jit/behavior packages always set this; Payload remains
	// available for downstream collaborators (UI, analytics) that only
	// need the data envelope, not the closure.
	Do func(ctx ActionContext) ([]Action, error) `json:"-"`
}

// OutputRecordType is the closed set of output records emitted downstream (§6).
type OutputRecordType string

// Output record type constants per §6.
const (
	OutputSegment   OutputRecordType = "Segment"
	OutputCompletion OutputRecordType = "Completion"
	OutputMilestone OutputRecordType = "Milestone"
)

// OutputRecord is emitted to the UI/Display stack boundary on mount
// (Segment), unmount (Completion), and optionally in between (Milestone).
type OutputRecord struct {
	Type              OutputRecordType `json:"type"`
	TimeSpan          TimeSpan         `json:"timeSpan"`
	Fragments         []Fragment       `json:"fragments,omitempty"`
	StackLevel        int              `json:"stackLevel"`
	SourceStatementID StatementID      `json:"sourceStatementId"`
}

// EmitMetricPayload is the data envelope for an ActionEmitMetric action,
// delivered to an external metric collector per §6.
type EmitMetricPayload struct {
	ExerciseID string                 `json:"exerciseId,omitempty"`
	Values     []RecordedMetricValue  `json:"values"`
	TimeSpans  []TimeSpan             `json:"timeSpans,omitempty"`
}

// PlaySoundPayload is the data envelope for an ActionPlaySound action.
type PlaySoundPayload struct {
	Sound    string         `json:"sound"`
	BlockKey BlockKey       `json:"blockKey"`
	Metadata map[string]any `json:"metadata,omitempty"`
}
