package harness

// TraceEvent records one executed flow step.
type TraceEvent struct {
	Seq         int64    `json:"seq"`
	Actor       string   `json:"actor"`
	Instruction string   `json:"instruction"`
	Content     string   `json:"content,omitempty"`
	Task        *TaskRef `json:"task,omitempty"`

	// Case is CaseOK or the error code the step failed with.
	Case string `json:"case"`

	// Lamports is the deposit taken or refunded by a successful step.
	Lamports uint64 `json:"lamports,omitempty"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass is true if every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace contains one event per flow step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Balances holds each actor's final balance.
	Balances map[string]uint64 `json:"balances,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Trace:    []TraceEvent{},
		Errors:   []string{},
		Balances: make(map[string]uint64),
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends ev to the trace.
func (r *Result) AddTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}

// canonical converts ev to the map form used by ir.MarshalCanonical.
func (ev TraceEvent) canonical() map[string]any {
	m := map[string]any{
		"seq":         ev.Seq,
		"actor":       ev.Actor,
		"instruction": ev.Instruction,
		"case":        ev.Case,
	}
	if ev.Content != "" {
		m["content"] = ev.Content
	}
	if ev.Task != nil {
		m["task"] = map[string]any{
			"owner":   ev.Task.Owner,
			"content": ev.Task.Content,
		}
	}
	if ev.Lamports != 0 {
		m["lamports"] = ev.Lamports
	}
	return m
}
