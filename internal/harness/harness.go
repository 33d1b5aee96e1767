package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/taskstore/internal/identity"
	"github.com/roach88/taskstore/internal/ir"
	"github.com/roach88/taskstore/internal/ledger"
	"github.com/roach88/taskstore/internal/store"
	"github.com/roach88/taskstore/internal/task"
	"github.com/roach88/taskstore/internal/testutil"
)

// Opener creates the ledger a scenario runs against.
type Opener func() (ledger.Ledger, error)

// MemoryStore opens a fresh in-memory SQLite ledger.
func MemoryStore() (ledger.Ledger, error) {
	return store.Open(":memory:")
}

// Harness is the test execution engine for one scenario run.
type Harness struct {
	ledger  ledger.Ledger
	program *task.Program
	actors  map[string]*testutil.Actor
	funded  map[string]uint64
	seq     int64
}

// Run executes a scenario against a fresh in-memory SQLite ledger.
func Run(scenario *Scenario) (*Result, error) {
	return RunWith(scenario, MemoryStore)
}

// RunWith executes a scenario against a ledger from open.
//
// Execution flow:
// 1. Open the ledger and fund every actor
// 2. Execute flow steps, checking expect clauses
// 3. Evaluate assertions against the trace and final state
//
// The returned error reports infrastructure failures only. Unmet
// expectations are recorded in the Result.
func RunWith(scenario *Scenario, open Opener) (*Result, error) {
	l, err := open()
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	defer l.Close()

	ids := testutil.NewSequentialIDs()
	h := &Harness{
		ledger: l,
		program: task.New(l, identity.Ed25519Verifier{}, task.Options{
			Logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
		}),
		actors: make(map[string]*testutil.Actor, len(scenario.Actors)),
		funded: make(map[string]uint64, len(scenario.Actors)),
	}

	ctx := context.Background()
	for _, a := range scenario.Actors {
		h.actors[a.Name] = testutil.NewActor(a.Name, h.program.ID(), ids)
		h.funded[a.Name] = a.Fund
		if a.Fund == 0 {
			continue
		}
		if err := ledger.Fund(ctx, l, h.actors[a.Name].Identity(), a.Fund); err != nil {
			return nil, fmt.Errorf("fund %s: %w", a.Name, err)
		}
	}

	result := NewResult()
	for i, step := range scenario.Flow {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("flow step %d: %w", i, err)
		}
	}

	for _, a := range scenario.Actors {
		balance, err := ledger.BalanceOf(ctx, l, h.actors[a.Name].Identity())
		if err != nil {
			return nil, fmt.Errorf("balance of %s: %w", a.Name, err)
		}
		result.Balances[a.Name] = balance
	}

	actx := &AssertionContext{Ctx: ctx, Harness: h}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

// executeStep signs and executes one step, recording it in the trace.
func (h *Harness) executeStep(ctx context.Context, i int, step FlowStep, result *Result) error {
	actor, ok := h.actors[step.Actor]
	if !ok {
		return fmt.Errorf("unknown actor %q", step.Actor)
	}

	h.seq++
	ev := TraceEvent{
		Seq:         h.seq,
		Actor:       step.Actor,
		Instruction: step.Invoke,
		Content:     step.Content,
	}

	var req ir.SignedRequest
	switch ir.Instruction(step.Invoke) {
	case ir.InstructionAddTask:
		req = actor.AddTask(step.Content)
	case ir.InstructionMarkTask, ir.InstructionRemoveTask:
		ref := h.resolveRef(step.Task, step.Actor)
		addr, err := h.address(ref)
		if err != nil {
			return err
		}
		ev.Task = &ref
		if step.Invoke == string(ir.InstructionMarkTask) {
			req = actor.MarkTask(addr)
		} else {
			req = actor.RemoveTask(addr)
		}
	default:
		return fmt.Errorf("unknown instruction %q", step.Invoke)
	}

	receipt, err := h.program.Execute(ctx, req)
	switch {
	case err == nil:
		ev.Case = CaseOK
		ev.Lamports = receipt.Lamports
	case task.CodeOf(err) != "":
		ev.Case = string(task.CodeOf(err))
	default:
		return err
	}
	result.AddTrace(ev)

	if step.Expect != nil && step.Expect.Case != ev.Case {
		result.AddError(fmt.Sprintf("flow step %d (%s %s): expected case %q, got %q",
			i, step.Actor, step.Invoke, step.Expect.Case, ev.Case))
	}
	return nil
}

// resolveRef fills in a missing owner with the step's actor.
func (h *Harness) resolveRef(ref *TaskRef, actor string) TaskRef {
	out := *ref
	if out.Owner == "" {
		out.Owner = actor
	}
	return out
}

// address derives the address of the task ref names.
func (h *Harness) address(ref TaskRef) (ir.Address, error) {
	owner, ok := h.actors[ref.Owner]
	if !ok {
		return ir.Address{}, fmt.Errorf("unknown owner %q", ref.Owner)
	}
	addr, _ := h.program.Address(owner.Identity(), ref.Content)
	return addr, nil
}
