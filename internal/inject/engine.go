package inject

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rbright/caret/internal/failure"
	"github.com/rbright/caret/internal/focus"
	"github.com/rbright/caret/internal/fsm"
	"github.com/rbright/caret/internal/profile"
)

// Focuser resolves, describes, and verifies target windows.
type Focuser interface {
	Resolve(ctx context.Context, process string, settle, timeout time.Duration) (focus.Window, error)
	Active(context.Context) (focus.Window, error)
	Verify(context.Context, focus.Window) error
}

// Emitter executes one emission plan.
type Emitter interface {
	Emit(ctx context.Context, plan Plan, text string, window focus.Window) error
}

// Attempt records one pass through the request state machine.
// State is where the pass stopped: StateSucceeded, or the state in which it failed.
type Attempt struct {
	Number  int
	Method  Method
	State   fsm.State
	Kind    failure.Kind
	Err     error
	Elapsed time.Duration
}

// Outcome is the result of one Inject call. Method names exactly one mechanism:
// the one used by the final attempt.
type Outcome struct {
	Success  bool
	Method   Method
	Target   string
	Elapsed  time.Duration
	Kind     failure.Kind
	Err      error
	Attempts []Attempt
	// State is the terminal request state; Trace lists every state entered from Pending on.
	State fsm.State
	Trace []fsm.State
}

// machine is the request-level state machine shared by every attempt of one Inject call.
type machine struct {
	state fsm.State
	trace []fsm.State
}

func newMachine() *machine {
	return &machine{state: fsm.StatePending, trace: []fsm.State{fsm.StatePending}}
}

// fire applies event. An invalid transition is a programming error.
func (m *machine) fire(event fsm.Event) {
	next, err := fsm.Transition(m.state, event)
	if err != nil {
		panic(err)
	}
	m.state = next
	m.trace = append(m.trace, next)
}

// Engine coordinates focus, emission, verification, and retries.
// All requests share one session lock because focus and clipboard are session-global.
type Engine struct {
	session  chan struct{}
	profiles *profile.Store
	focus    Focuser
	emitter  Emitter
	logger   *slog.Logger
}

// NewEngine constructs an engine that owns the session lock.
func NewEngine(profiles *profile.Store, focuser Focuser, emitter Emitter, logger *slog.Logger) *Engine {
	return &Engine{
		session:  make(chan struct{}, 1),
		profiles: profiles,
		focus:    focuser,
		emitter:  emitter,
		logger:   logger,
	}
}

// Profiles returns the current compatibility table.
func (e *Engine) Profiles() profile.Table {
	return e.profiles.Table()
}

// ReplaceProfiles swaps the whole profile table once no request is in flight.
func (e *Engine) ReplaceProfiles(ctx context.Context, table profile.Table) error {
	if err := e.acquire(ctx); err != nil {
		return err
	}
	defer e.release()
	e.profiles.Replace(table)
	return nil
}

// Succeeded runs Inject and reports only the success flag.
func (e *Engine) Succeeded(ctx context.Context, text string, opts Options) bool {
	return e.Inject(ctx, text, opts).Success
}

// Inject delivers text per opts. It never panics and never returns a Go error;
// failures are classified in the Outcome.
func (e *Engine) Inject(ctx context.Context, text string, opts Options) (outcome Outcome) {
	start := time.Now()
	opts = opts.normalized()
	outcome = Outcome{Target: opts.Target, Method: MethodDirect, State: fsm.StateFailed}

	defer func() {
		outcome.Elapsed = time.Since(start)
		e.logOutcome(outcome)
	}()

	if text == "" {
		outcome.Success = true
		outcome.State = fsm.StateSucceeded
		if opts.Method != "" {
			outcome.Method = opts.Method
		}
		return outcome
	}

	if opts.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Deadline)
		defer cancel()
	}

	if err := e.acquire(ctx); err != nil {
		outcome.Kind = failure.KindEmissionRejected
		outcome.Err = failure.Wrap(failure.KindEmissionRejected, opts.Target, fmt.Errorf("wait for session: %w", err))
		return outcome
	}
	defer e.release()

	m := newMachine()
	defer func() {
		if r := recover(); r != nil {
			outcome.Success = false
			outcome.Kind = failure.KindEmissionRejected
			outcome.Err = failure.New(failure.KindEmissionRejected, opts.Target, "panic: %v", r)
			outcome.State = fsm.StateFailed
		}
		outcome.Trace = m.trace
	}()

	table := e.profiles.Table()
	escalated := false

	for n := 1; !m.state.Terminal(); n++ {
		last := e.attempt(ctx, m, n, table, text, opts, escalated)
		outcome.Attempts = append(outcome.Attempts, last)
		outcome.Method = last.Method
		if last.Kind == failure.KindNone {
			outcome.Success = true
			continue
		}

		switch {
		case !failure.Retryable(last.Kind):
			outcome.Kind, outcome.Err = last.Kind, last.Err
		case n >= opts.RetryCount:
			outcome.Kind = failure.KindRetryBudgetExhausted
			outcome.Err = failure.Wrap(failure.KindRetryBudgetExhausted, opts.Target,
				fmt.Errorf("%d attempt(s): %w", n, last.Err))
		case ctx.Err() != nil:
			// Deadline reached before the budget was spent.
			outcome.Kind, outcome.Err = last.Kind, last.Err
		default:
			if err := sleep(ctx, opts.RetryDelay); err != nil {
				outcome.Kind, outcome.Err = last.Kind, last.Err
				break
			}
			if escalates(last.Kind) {
				escalated = true
			}
			m.fire(fsm.EventRetry)
			continue
		}
		m.fire(fsm.EventFail)
	}

	outcome.State = m.state
	return outcome
}

// attempt drives m from Pending to Succeeded, or stops at the state where a step failed.
// Failure and retry events are left to the caller.
func (e *Engine) attempt(ctx context.Context, m *machine, number int, table profile.Table, text string, opts Options, escalated bool) Attempt {
	start := time.Now()
	rec := Attempt{Number: number}

	fail := func(err error) Attempt {
		rec.Err = err
		rec.Kind = failure.KindOf(err)
		rec.State = m.state
		rec.Elapsed = time.Since(start)
		e.logAttempt(opts.Target, rec)
		return rec
	}

	var (
		window focus.Window
		prof   profile.Profile
		err    error
	)
	if opts.Target != "" {
		prof = table.Resolve(opts.Target)
		rec.Method = e.plan(prof, text, opts, escalated).Method()
		settle := opts.FocusSettle
		if prof.FocusSettle > 0 {
			settle = prof.FocusSettle
		}
		window, err = e.focus.Resolve(ctx, opts.Target, settle, opts.FocusTimeout)
	} else {
		window, err = e.focus.Active(ctx)
		prof = table.Resolve(window.Process)
		rec.Method = e.plan(prof, text, opts, escalated).Method()
	}
	if err != nil {
		return fail(err)
	}
	m.fire(fsm.EventFocused)

	plan := e.plan(prof, text, opts, escalated)
	rec.Method = plan.Method()
	m.fire(fsm.EventEmit)

	if err := e.emitter.Emit(ctx, plan, text, window); err != nil {
		return fail(err)
	}
	m.fire(fsm.EventEmitted)

	if err := e.focus.Verify(ctx, window); err != nil {
		if failure.KindOf(err) != failure.KindVerificationInconclusive || opts.StrictVerification {
			return fail(err)
		}
		if e.logger != nil {
			e.logger.Debug("verification inconclusive; accepting", "target", opts.Target, "error", err.Error())
		}
	}
	m.fire(fsm.EventVerified)

	rec.State = m.state
	rec.Elapsed = time.Since(start)
	e.logAttempt(opts.Target, rec)
	return rec
}

func (e *Engine) plan(p profile.Profile, text string, opts Options, escalated bool) Plan {
	plan := Select(p, text, opts)
	if escalated {
		plan = Escalate(plan, p, opts)
	}
	return plan
}

// escalates reports whether a failure kind points at the emission method rather than focus.
func escalates(kind failure.Kind) bool {
	switch kind {
	case failure.KindEmissionRejected, failure.KindTargetBecameUnresponsive, failure.KindVerificationInconclusive:
		return true
	default:
		return false
	}
}

func (e *Engine) acquire(ctx context.Context) error {
	select {
	case e.session <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) release() {
	<-e.session
}

func (e *Engine) logAttempt(target string, a Attempt) {
	if e.logger == nil {
		return
	}
	attrs := []any{
		"target", target,
		"method", string(a.Method),
		"attempt", a.Number,
		"state", string(a.State),
		"kind", string(a.Kind),
		"duration_ms", a.Elapsed.Milliseconds(),
	}
	if a.Err != nil {
		attrs = append(attrs, "error", a.Err.Error())
		e.logger.Warn("injection attempt failed", attrs...)
		return
	}
	e.logger.Debug("injection attempt", attrs...)
}

func (e *Engine) logOutcome(o Outcome) {
	if e.logger == nil {
		return
	}
	attrs := []any{
		"target", o.Target,
		"success", o.Success,
		"state", string(o.State),
		"method", string(o.Method),
		"attempts", len(o.Attempts),
		"duration_ms", o.Elapsed.Milliseconds(),
	}
	if o.Err != nil {
		attrs = append(attrs, "kind", string(o.Kind), "error", o.Err.Error())
	}
	e.logger.Info("injection outcome", attrs...)
}

// IsNotRunning reports whether an outcome failed because the target process does not exist.
func (o Outcome) IsNotRunning() bool {
	return errors.Is(o.Err, failure.ErrTargetNotRunning)
}
