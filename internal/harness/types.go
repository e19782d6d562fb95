package harness

import "github.com/roach88/cellsim/internal/ir"

// TraceEvent is one generation of a scenario run.
type TraceEvent struct {
	Generation int64           `json:"generation"`
	Hash       string          `json:"hash"`
	Changed    int             `json:"changed"`
	Firings    []ir.RuleFiring `json:"firings,omitempty"`
	Rows       []string        `json:"rows"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every step expectation and assertion holds.
	Pass bool `json:"pass"`

	// Trace contains every generation, starting with generation 0.
	Trace []TraceEvent `json:"trace"`

	// Errors contains failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Settled and Period describe the run after stable_within assertions.
	// SettledAt is the first generation that repeated an earlier one.
	Settled   bool  `json:"settled"`
	Period    int64 `json:"period,omitempty"`
	SettledAt int64 `json:"settled_at,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Final returns the last generation of the trace.
func (r *Result) Final() TraceEvent {
	if len(r.Trace) == 0 {
		return TraceEvent{}
	}
	return r.Trace[len(r.Trace)-1]
}

// Generation returns the trace event for generation gen.
func (r *Result) Generation(gen int64) (TraceEvent, bool) {
	for _, ev := range r.Trace {
		if ev.Generation == gen {
			return ev, true
		}
	}
	return TraceEvent{}, false
}
