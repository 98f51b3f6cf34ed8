package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/signflow/internal/syncer"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, ev := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s %s", ev.Step, ev.Kind, ev.Name)
		if ev.Error != "" {
			fmt.Fprintf(&buf, " error=%s", ev.Error)
		}
		buf.WriteByte('\n')
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion against the result and returns
// one message per failure.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(result, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d: %v", i, err))
		}
	}
	return errs
}

func evaluate(r *Result, a Assertion) error {
	snap := r.Snapshot
	switch a.Type {
	case AssertOrder:
		got := make([]string, len(snap.Signers))
		for i, sg := range snap.Signers {
			got[i] = sg.Name
		}
		return expectEqualSlice(r, a.Type, a.Signers, got)

	case AssertSteps:
		got := make([]int, len(snap.Signers))
		for i, sg := range snap.Signers {
			got[i] = sg.Step
		}
		return expectEqualSlice(r, a.Type, a.Values, got)

	case AssertFieldCount:
		return expectEqual(r, a.Type, *a.Count, len(snap.Fields))

	case AssertVisibleCount:
		return expectEqual(r, a.Type, *a.Count, len(snap.Visible))

	case AssertPending:
		return expectEqual(r, a.Type, *a.Count, len(snap.Pending))

	case AssertSyncCalls:
		return expectEqual(r, a.Type+" "+a.Method, *a.Count, r.Calls[a.Method])

	case AssertState:
		st, ok := snap.Streams[syncer.Stream(a.Stream)]
		if !ok {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("stream %s", a.Stream),
				Actual:   "no such stream",
				Trace:    r.Trace,
			}
		}
		return expectEqual(r, a.Type+" "+a.Stream, a.State, st.State)

	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func expectEqual[T comparable](r *Result, kind string, want, got T) error {
	if want == got {
		return nil
	}
	return &AssertionError{Type: kind, Expected: fmt.Sprint(want), Actual: fmt.Sprint(got), Trace: r.Trace}
}

func expectEqualSlice[T comparable](r *Result, kind string, want, got []T) error {
	if slices.Equal(want, got) {
		return nil
	}
	return &AssertionError{Type: kind, Expected: fmt.Sprint(want), Actual: fmt.Sprint(got), Trace: r.Trace}
}
