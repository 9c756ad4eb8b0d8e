package harness

import "github.com/roach88/sqlbridge/internal/value"

// Operation names recorded in the trace.
const (
	OpMigrate = "migrate"
	OpBatch   = "batch"
	OpUpdate  = "update"
	OpSelect  = "select"
	OpReopen  = "reopen"
)

// TraceEvent records one executed flow step.
type TraceEvent struct {
	Seq          int64           `json:"seq"`
	Op           string          `json:"op"`
	Outcome      string          `json:"outcome"` // "ok" or an error kind
	Verified     []string        `json:"verified,omitempty"`
	Applied      []string        `json:"applied,omitempty"`
	RowsAffected *int64          `json:"rows_affected,omitempty"`
	Rows         value.ResultSet `json:"rows,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace lists the executed steps in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains expectation and assertion failures.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// addTrace appends an event numbered after the previous one.
func (r *Result) addTrace(event TraceEvent) {
	event.Seq = int64(len(r.Trace) + 1)
	r.Trace = append(r.Trace, event)
}

// count returns how many trace events have the given operation.
func (r *Result) count(op string) int {
	n := 0
	for _, e := range r.Trace {
		if e.Op == op {
			n++
		}
	}
	return n
}
