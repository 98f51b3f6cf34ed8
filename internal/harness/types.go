package harness

import (
	"github.com/roach88/signflow/internal/canon"
	"github.com/roach88/signflow/internal/editor"
)

// Trace event kinds.
const (
	KindAction   = "action"
	KindAdvance  = "advance"
	KindFailNext = "fail_next"
)

// TraceEvent records one executed step.
type TraceEvent struct {
	Step     int    `json:"step"`
	Kind     string `json:"kind"`
	Name     string `json:"name"`
	Changed  bool   `json:"changed"`
	Error    string `json:"error,omitempty"`
	Revision int64  `json:"revision"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Scenario is the scenario name.
	Scenario string `json:"scenario"`

	// Pass is true when every step and assertion held.
	Pass bool `json:"pass"`

	// Errors contains step and assertion failures. Empty if Pass is true.
	Errors []string `json:"errors"`

	// Trace lists executed steps in order.
	Trace []TraceEvent `json:"trace"`

	// Notices lists notices as "kind:stream" in the order raised.
	Notices []string `json:"notices"`

	// Calls counts service calls per method.
	Calls map[string]int `json:"calls"`

	// Snapshot is the final session state.
	Snapshot editor.Snapshot `json:"snapshot"`
}

// NewResult creates a new passing result.
func NewResult(name string) *Result {
	return &Result{
		Scenario: name,
		Pass:     true,
		Errors:   []string{},
		Trace:    []TraceEvent{},
		Notices:  []string{},
		Calls:    make(map[string]int),
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// golden is the part of a result compared against golden files. Errors
// and Pass are left out so a failing run still shows its state diff.
type golden struct {
	Scenario string          `json:"scenario"`
	Trace    []TraceEvent    `json:"trace"`
	Notices  []string        `json:"notices"`
	Calls    map[string]int  `json:"calls"`
	Snapshot editor.Snapshot `json:"snapshot"`
}

// Canonical returns the canonical JSON of the golden view of r.
func (r *Result) Canonical() ([]byte, error) {
	return canon.Marshal(golden{
		Scenario: r.Scenario,
		Trace:    r.Trace,
		Notices:  r.Notices,
		Calls:    r.Calls,
		Snapshot: r.Snapshot,
	})
}
