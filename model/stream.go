package model

// EventTag identifies the wire shape of a StreamEvent. Consumers switch on
// Tag rather than type-asserting the concrete event, so new tags can be
// added without breaking existing subscribers that ignore them.
type EventTag string

const (
	EventMeta           EventTag = "meta"
	EventStatus         EventTag = "status"
	EventPlan           EventTag = "plan"
	EventToolCallStart  EventTag = "tool_call_start"
	EventToolCallEnd    EventTag = "tool_call_end"
	EventVerification   EventTag = "verification"
	EventToken          EventTag = "token"
	EventAnswer         EventTag = "answer"
	EventError          EventTag = "error"
	EventDone           EventTag = "done"
)

// Stage names used in StatusPayload.Stage, matching the ordering guarantee
// in the orchestration spec: planning, policy, toolsRunning, verifying,
// answering.
const (
	StagePlanning     = "planning"
	StagePolicy       = "policy"
	StageToolsRunning = "toolsRunning"
	StageVerifying    = "verifying"
	StageAnswering    = "answering"
)

type (
	// StreamEvent is one tagged record in the ordered stream the Pipeline
	// Coordinator emits as it progresses through stages. Payload holds the
	// tag-specific data described by the tables below; callers type-assert
	// it to the matching *Payload type once Tag identifies it.
	StreamEvent struct {
		Tag     EventTag `json:"-"`
		Payload any      `json:"-"`
	}

	// MetaPayload carries the identifiers of the run, emitted once at the
	// start of the stream.
	MetaPayload struct {
		ThreadID  string `json:"threadId"`
		MessageID string `json:"messageId"`
	}

	// StatusPayload announces entry into a new pipeline stage.
	StatusPayload struct {
		Stage string `json:"stage"`
	}

	// PlanPayload carries the validated Plan.
	PlanPayload struct {
		Plan Plan `json:"plan"`
	}

	// ToolCallStartPayload is emitted immediately before a connector is
	// invoked for one approved action.
	ToolCallStartPayload struct {
		Tool string         `json:"tool"`
		Args map[string]any `json:"args"`
	}

	// ToolCallEndPayload is emitted immediately after a connector call
	// completes, successfully or not.
	ToolCallEndPayload struct {
		Tool       string `json:"tool"`
		Status     string `json:"status"`
		DurationMs int64  `json:"durationMs"`
		RowCount   *int   `json:"rowCount,omitempty"`
		Error      string `json:"error,omitempty"`
	}

	// VerificationPayload carries the VerifierReport.
	VerificationPayload struct {
		Report VerifierReport `json:"report"`
	}

	// TokenPayload carries one fragment of a streamed Answer.
	TokenPayload struct {
		Token string `json:"token"`
	}

	// AnswerPayload carries the final validated Answer.
	AnswerPayload struct {
		Answer Answer `json:"answer"`
	}

	// ErrorPayload terminates the stream with a machine-readable message
	// and, when known, the stage in which the failure occurred.
	ErrorPayload struct {
		Message string `json:"message"`
		Stage   string `json:"stage,omitempty"`
	}

	// DonePayload is always empty; its presence marks stream termination.
	DonePayload struct{}
)

// NewMetaEvent constructs the meta stream event.
func NewMetaEvent(threadID, messageID string) StreamEvent {
	return StreamEvent{Tag: EventMeta, Payload: MetaPayload{ThreadID: threadID, MessageID: messageID}}
}

// NewStatusEvent constructs a status stream event for the named stage.
func NewStatusEvent(stage string) StreamEvent {
	return StreamEvent{Tag: EventStatus, Payload: StatusPayload{Stage: stage}}
}

// NewPlanEvent constructs the plan stream event.
func NewPlanEvent(p Plan) StreamEvent {
	return StreamEvent{Tag: EventPlan, Payload: PlanPayload{Plan: p}}
}

// NewToolCallStartEvent constructs a tool_call_start stream event.
func NewToolCallStartEvent(tool string, args map[string]any) StreamEvent {
	return StreamEvent{Tag: EventToolCallStart, Payload: ToolCallStartPayload{Tool: tool, Args: args}}
}

// NewToolCallEndEvent constructs a tool_call_end stream event.
func NewToolCallEndEvent(tool string, status ToolCallStatus, durationMs int64, rowCount *int, errMsg string) StreamEvent {
	return StreamEvent{Tag: EventToolCallEnd, Payload: ToolCallEndPayload{
		Tool:       tool,
		Status:     string(status),
		DurationMs: durationMs,
		RowCount:   rowCount,
		Error:      errMsg,
	}}
}

// NewVerificationEvent constructs the verification stream event.
func NewVerificationEvent(r VerifierReport) StreamEvent {
	return StreamEvent{Tag: EventVerification, Payload: VerificationPayload{Report: r}}
}

// NewTokenEvent constructs a token stream event.
func NewTokenEvent(token string) StreamEvent {
	return StreamEvent{Tag: EventToken, Payload: TokenPayload{Token: token}}
}

// NewAnswerEvent constructs the answer stream event.
func NewAnswerEvent(a Answer) StreamEvent {
	return StreamEvent{Tag: EventAnswer, Payload: AnswerPayload{Answer: a}}
}

// NewErrorEvent constructs an error stream event. stage may be empty when
// the failure is not attributable to a single pipeline stage.
func NewErrorEvent(message, stage string) StreamEvent {
	return StreamEvent{Tag: EventError, Payload: ErrorPayload{Message: message, Stage: stage}}
}

// NewDoneEvent constructs the terminal done stream event.
func NewDoneEvent() StreamEvent {
	return StreamEvent{Tag: EventDone, Payload: DonePayload{}}
}

// RunSnapshot is a point-in-time projection of a run's progress: its
// RunContext, Plan, PolicyDecisions, ToolExecutionResults, VerifierReport
// and Answer. The Pipeline Coordinator does not build or replay snapshots;
// nothing in this module populates one.
type RunSnapshot struct {
	RunContext RunContext            `json:"runContext"`
	Plan       *Plan                 `json:"plan,omitempty"`
	Decisions  []PolicyDecision      `json:"decisions,omitempty"`
	Results    []ToolExecutionResult `json:"results,omitempty"`
	Report     *VerifierReport       `json:"report,omitempty"`
	Answer     *Answer               `json:"answer,omitempty"`
	Done       bool                  `json:"done"`
	Err        string                `json:"error,omitempty"`
}
