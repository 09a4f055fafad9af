package harness

// Trace event types.
const (
	EventInvocation = "invocation"
	EventCompletion = "completion"
)

// CaseOK is the completion case of a successful action.
const CaseOK = "ok"

// TraceEvent is one invocation or completion in a scenario trace.
type TraceEvent struct {
	Type   string         `json:"type"`
	Action string         `json:"action"`
	Args   map[string]any `json:"args,omitempty"`
	Case   string         `json:"case,omitempty"`
	Result any            `json:"result,omitempty"`
	Seq    int64          `json:"seq"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace holds flow invocations and completions in order. Setup steps
	// are not traced.
	Trace []TraceEvent `json:"trace"`

	Errors []string `json:"errors,omitempty"`

	// State is the final export document decoded into generic JSON values.
	State map[string]any `json:"state,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		State:  make(map[string]any),
	}
}

// AddError records a failure.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddInvocationTrace appends an invocation.
func (r *Result) AddInvocationTrace(action string, args map[string]any, seq int64) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:   EventInvocation,
		Action: action,
		Args:   args,
		Seq:    seq,
	})
}

// AddCompletionTrace appends a completion.
func (r *Result) AddCompletionTrace(action, outputCase string, result any, seq int64) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:   EventCompletion,
		Action: action,
		Case:   outputCase,
		Result: result,
		Seq:    seq,
	})
}
