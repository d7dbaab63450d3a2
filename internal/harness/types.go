package harness

import "github.com/roach88/recstore/internal/ir"

// Trace event types.
const (
	EventCall   = "call"
	EventReturn = "return"
)

// Outcome of a successful operation in a return event.
const OutcomeOK = "ok"

// TraceEvent is one operation call or its return.
type TraceEvent struct {
	Type    string `json:"type"` // "call" or "return"
	Op      string `json:"op,omitempty"`
	Args    any    `json:"args,omitempty"`
	Outcome string `json:"outcome,omitempty"` // "ok" or an error code
	Result  any    `json:"result,omitempty"`
	Seq     int64  `json:"seq"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace holds every call and return in order.
	Trace []TraceEvent `json:"trace"`

	// Errors holds one message per failed expectation.
	Errors []string `json:"errors,omitempty"`

	// State is the table contents after the flow, as returned by GetAll.
	State []ir.Object `json:"state,omitempty"`

	seq int64
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

func (r *Result) next() int64 {
	r.seq++
	return r.seq
}

// AddCallTrace adds an operation call to the trace.
func (r *Result) AddCallTrace(op string, args map[string]any) {
	r.Trace = append(r.Trace, TraceEvent{
		Type: EventCall,
		Op:   op,
		Args: args,
		Seq:  r.next(),
	})
}

// AddReturnTrace adds an operation's outcome to the trace.
func (r *Result) AddReturnTrace(op, outcome string, result any) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:    EventReturn,
		Op:      op,
		Outcome: outcome,
		Result:  result,
		Seq:     r.next(),
	})
}
