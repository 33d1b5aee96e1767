package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/taskstore/internal/task"
)

// AssertionContext provides what state assertions need.
type AssertionContext struct {
	Ctx     context.Context
	Harness *Harness
}

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
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
		target := ev.Content
		if ev.Task != nil {
			target = ev.Task.Owner + "/" + ev.Task.Content
		}
		fmt.Fprintf(&buf, "  [%d] %s %s %q -> %s\n", ev.Seq, ev.Actor, ev.Instruction, target, ev.Case)
	}

	return buf.String()
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertTaskState:
			err = assertTaskState(actx, result.Trace, a)
		case AssertTaskAbsent:
			err = assertTaskAbsent(actx, result.Trace, a)
		case AssertBalance:
			err = assertBalance(actx, result, a)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d: %v", i, err))
		}
	}
	return errs
}

// assertTaskState checks that the referenced task exists and matches.
func assertTaskState(actx *AssertionContext, trace []TraceEvent, a Assertion) error {
	addr, err := actx.Harness.address(*a.Task)
	if err != nil {
		return err
	}
	rec, err := actx.Harness.program.Get(actx.Ctx, addr)
	if err != nil {
		return &AssertionError{
			Type:     AssertTaskState,
			Expected: fmt.Sprintf("task %s/%q exists", a.Task.Owner, a.Task.Content),
			Actual:   err.Error(),
			Trace:    trace,
		}
	}

	owner := actx.Harness.actors[a.Task.Owner].Identity()
	if rec.Owner != owner || rec.Content != a.Task.Content {
		return &AssertionError{
			Type:     AssertTaskState,
			Expected: fmt.Sprintf("owner %s content %q", owner, a.Task.Content),
			Actual:   fmt.Sprintf("owner %s content %q", rec.Owner, rec.Content),
			Trace:    trace,
		}
	}
	if a.Marked != nil && rec.Marked != *a.Marked {
		return &AssertionError{
			Type:     AssertTaskState,
			Expected: fmt.Sprintf("marked=%t", *a.Marked),
			Actual:   fmt.Sprintf("marked=%t", rec.Marked),
			Trace:    trace,
		}
	}
	return nil
}

// assertTaskAbsent checks that no task exists for the reference.
func assertTaskAbsent(actx *AssertionContext, trace []TraceEvent, a Assertion) error {
	addr, err := actx.Harness.address(*a.Task)
	if err != nil {
		return err
	}
	_, err = actx.Harness.program.Get(actx.Ctx, addr)
	if task.IsNotFound(err) {
		return nil
	}
	actual := "task exists"
	if err != nil {
		actual = err.Error()
	}
	return &AssertionError{
		Type:     AssertTaskAbsent,
		Expected: fmt.Sprintf("no task %s/%q", a.Task.Owner, a.Task.Content),
		Actual:   actual,
		Trace:    trace,
	}
}

// assertBalance checks an actor's final balance, absolute or relative to
// its funding.
func assertBalance(actx *AssertionContext, result *Result, a Assertion) error {
	got, ok := result.Balances[a.Actor]
	if !ok {
		return fmt.Errorf("no balance recorded for %q", a.Actor)
	}

	if a.Lamports != nil {
		if got != *a.Lamports {
			return &AssertionError{
				Type:     AssertBalance,
				Expected: fmt.Sprintf("%s holds %d", a.Actor, *a.Lamports),
				Actual:   fmt.Sprintf("%d", got),
				Trace:    result.Trace,
			}
		}
		return nil
	}

	delta := int64(got) - int64(actx.Harness.funded[a.Actor])
	if delta != *a.Delta {
		return &AssertionError{
			Type:     AssertBalance,
			Expected: fmt.Sprintf("%s changed by %d", a.Actor, *a.Delta),
			Actual:   fmt.Sprintf("changed by %d", delta),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertTraceCount checks that the instruction/case pair appears exactly
// Count times.
func assertTraceCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, ev := range trace {
		if ev.Instruction == a.Invoke && (a.Case == "" || ev.Case == a.Case) {
			count++
		}
	}

	if count != a.Count {
		what := a.Invoke
		if a.Case != "" {
			what += " -> " + a.Case
		}
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", a.Count, what),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}
