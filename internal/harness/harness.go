package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/signflow/internal/editor"
	"github.com/roach88/signflow/internal/profile"
	"github.com/roach88/signflow/internal/remote"
	"github.com/roach88/signflow/internal/testutil"
)

// ErrInjected is the error returned by a service call after fail_next.
var ErrInjected = errors.New("injected failure")

// Harness runs one scenario against a fresh in-process service.
type Harness struct {
	svc     *remote.Memory
	clock   *testutil.ManualClock
	session *editor.Session
	logger  *slog.Logger
	profile *profile.Profile
}

// Option configures a run.
type Option func(*Harness)

// WithLogger sets the session logger. Runs are silent by default.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithProfile applies a geometry profile to the session.
func WithProfile(p *profile.Profile) Option {
	return func(h *Harness) {
		h.profile = p
	}
}

// Run executes a scenario and returns the result.
//
// Execution flow:
// 1. Seed a fresh in-process service
// 2. Open a session with a manual clock, sequential uids and inline requests
// 3. Execute steps, draining the session queue after each
// 4. Evaluate assertions against the final snapshot
//
// An error is returned only when the scenario cannot run at all; failed
// steps and assertions are reported in the result.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	h := &Harness{
		svc:    remote.NewMemory(),
		clock:  testutil.NewManualClock(time.Time{}),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}

	agreement, err := scenario.Seed.agreement()
	if err != nil {
		return nil, fmt.Errorf("failed to build seed: %w", err)
	}
	h.svc.Seed(agreement)

	window, err := scenario.window()
	if err != nil {
		return nil, err
	}

	result := NewResult(scenario.Name)
	sessOpts := []editor.Option{
		editor.WithClock(h.clock),
		editor.WithDebounce(window),
		editor.WithUIDGenerator(testutil.NewSequentialUIDs("u")),
		editor.WithLauncher(testutil.Inline),
		editor.WithLogger(h.logger),
		editor.WithNotifier(func(n editor.Notice) {
			result.Notices = append(result.Notices, string(n.Kind)+":"+string(n.Stream))
		}),
	}
	if h.profile != nil {
		sessOpts = append(sessOpts,
			editor.WithBoardOptions(h.profile.BoardOptions()...),
			editor.WithRowHeight(h.profile.RowHeight()),
		)
	}

	ctx := context.Background()
	h.session, err = editor.Open(ctx, h.svc, agreement.Metadata.ID, nil, sessOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open session: %w", err)
	}

	for i := range scenario.Steps {
		if err := h.executeStep(ctx, i, &scenario.Steps[i], result); err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
	}

	for _, name := range remote.Methods {
		result.Calls[name] = h.svc.Calls(name)
	}
	result.Snapshot = h.session.Snapshot()

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// executeStep runs one step and appends it to the trace.
func (h *Harness) executeStep(ctx context.Context, index int, st *Step, result *Result) error {
	ev := TraceEvent{Step: index + 1}

	switch {
	case st.Advance != "":
		d, err := time.ParseDuration(st.Advance)
		if err != nil {
			return err
		}
		ev.Kind, ev.Name = KindAdvance, st.Advance
		h.clock.Advance(d)

	case st.FailNext != "":
		ev.Kind, ev.Name = KindFailNext, st.FailNext
		h.svc.FailNext(st.FailNext, ErrInjected)

	default:
		action, err := buildAction(st)
		if err != nil {
			return err
		}
		ev.Kind, ev.Name = KindAction, action.ActionName()

		out, err := h.session.Apply(ctx, action)
		ev.Changed = out.Changed
		code := errorCode(err)
		ev.Error = code
		switch {
		case st.ExpectError != "" && code != st.ExpectError:
			result.AddError(fmt.Sprintf("step %d (%s): expected error %s, got %q", index+1, ev.Name, st.ExpectError, code))
		case st.ExpectError == "" && err != nil:
			result.AddError(fmt.Sprintf("step %d (%s): %v", index+1, ev.Name, err))
		}
	}

	h.session.Drain(ctx)
	ev.Revision = h.session.Revision()
	result.Trace = append(result.Trace, ev)
	return nil
}

// errorCode returns the editor error code of err, or its text for other
// errors.
func errorCode(err error) string {
	if err == nil {
		return ""
	}
	var ee *editor.Error
	if errors.As(err, &ee) {
		return string(ee.Code)
	}
	return err.Error()
}
