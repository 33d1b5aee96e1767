package harness

import (
	"bytes"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/taskstore/internal/ir"
	"github.com/roach88/taskstore/internal/task"
)

// CaseOK is the expected case of a step that succeeds. Failing steps are
// expected by their task error code, e.g. "DUPLICATE_RECORD".
const CaseOK = "ok"

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Actors are the identities taking part, with their starting balances.
	Actors []ActorSpec `yaml:"actors"`

	// Flow is executed in order. A failing step does not stop the flow.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the trace and final state.
	// Supported types: task_state, task_absent, balance, trace_count
	Assertions []Assertion `yaml:"assertions"`
}

// ActorSpec declares one actor.
type ActorSpec struct {
	Name string `yaml:"name"`

	// Fund is credited to the actor before the flow runs.
	Fund uint64 `yaml:"fund"`
}

// TaskRef names a task by its owner and content.
// An empty Owner means the actor of the enclosing step.
type TaskRef struct {
	Owner   string `yaml:"owner,omitempty"`
	Content string `yaml:"content"`
}

// FlowStep is one signed instruction.
type FlowStep struct {
	// Actor signs the request.
	Actor string `yaml:"actor"`

	// Invoke is the instruction name (add_task, mark_task, remove_task).
	Invoke string `yaml:"invoke"`

	// Content is the add_task argument.
	Content string `yaml:"content,omitempty"`

	// Task targets mark_task and remove_task.
	Task *TaskRef `yaml:"task,omitempty"`

	// Expect specifies the expected outcome. If nil, the outcome is only
	// recorded in the trace.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected outcome of a step.
type ExpectClause struct {
	// Case is CaseOK or a task error code.
	Case string `yaml:"case"`
}

// Assertion validates trace or final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "task_state": the task exists with the given fields
	// - "task_absent": no task exists for the reference
	// - "balance": an actor's final balance
	// - "trace_count": an instruction/case pair appears exactly N times
	Type string `yaml:"type"`

	// Task is the task reference (task_state, task_absent).
	Task *TaskRef `yaml:"task,omitempty"`

	// Marked is the expected flag (task_state). Nil skips the check.
	Marked *bool `yaml:"marked,omitempty"`

	// Actor names the balance holder (balance).
	Actor string `yaml:"actor,omitempty"`

	// Lamports is the expected absolute balance (balance).
	Lamports *uint64 `yaml:"lamports,omitempty"`

	// Delta is the expected change from the actor's funding (balance).
	Delta *int64 `yaml:"delta,omitempty"`

	// Invoke and Case select trace events (trace_count). An empty Case
	// matches every outcome.
	Invoke string `yaml:"invoke,omitempty"`
	Case   string `yaml:"case,omitempty"`

	// Count is the expected number of matching events (trace_count).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertTaskState  = "task_state"
	AssertTaskAbsent = "task_absent"
	AssertBalance    = "balance"
	AssertTraceCount = "trace_count"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or fails validation.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and references
// resolve to declared actors.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Actors) == 0 {
		return fmt.Errorf("actors list is required and must be non-empty")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	actors := make(map[string]bool, len(s.Actors))
	for i, a := range s.Actors {
		if a.Name == "" {
			return fmt.Errorf("actor %d: name is required", i)
		}
		if actors[a.Name] {
			return fmt.Errorf("actor %q declared twice", a.Name)
		}
		actors[a.Name] = true
	}
	knownRef := func(ref *TaskRef, where string) error {
		if ref.Owner != "" && !actors[ref.Owner] {
			return fmt.Errorf("%s: unknown owner %q", where, ref.Owner)
		}
		return nil
	}

	for i, step := range s.Flow {
		where := fmt.Sprintf("flow step %d", i)
		if !actors[step.Actor] {
			return fmt.Errorf("%s: unknown actor %q", where, step.Actor)
		}
		inst := ir.Instruction(step.Invoke)
		if !slices.Contains(ir.ValidInstructions, inst) {
			return fmt.Errorf("%s: unknown instruction %q", where, step.Invoke)
		}
		if inst == ir.InstructionAddTask {
			if step.Task != nil {
				return fmt.Errorf("%s: add_task takes content, not task", where)
			}
		} else {
			if step.Task == nil {
				return fmt.Errorf("%s: %s requires task", where, step.Invoke)
			}
			if err := knownRef(step.Task, where); err != nil {
				return err
			}
		}
		if step.Expect != nil && !validCase(step.Expect.Case) {
			return fmt.Errorf("%s: unknown case %q", where, step.Expect.Case)
		}
	}

	for i, a := range s.Assertions {
		where := fmt.Sprintf("assertion %d (%s)", i, a.Type)
		switch a.Type {
		case AssertTaskState, AssertTaskAbsent:
			if a.Task == nil || a.Task.Owner == "" {
				return fmt.Errorf("%s: task with owner is required", where)
			}
			if err := knownRef(a.Task, where); err != nil {
				return err
			}
		case AssertBalance:
			if !actors[a.Actor] {
				return fmt.Errorf("%s: unknown actor %q", where, a.Actor)
			}
			if (a.Lamports == nil) == (a.Delta == nil) {
				return fmt.Errorf("%s: exactly one of lamports or delta is required", where)
			}
		case AssertTraceCount:
			if a.Invoke == "" {
				return fmt.Errorf("%s: invoke is required", where)
			}
			if a.Case != "" && !validCase(a.Case) {
				return fmt.Errorf("%s: unknown case %q", where, a.Case)
			}
		default:
			return fmt.Errorf("assertion %d: unknown type %q", i, a.Type)
		}
	}
	return nil
}

var knownCodes = []task.ErrorCode{
	task.ErrCodeUnauthorized,
	task.ErrCodeInvalidSignature,
	task.ErrCodeRecordNotFound,
	task.ErrCodeDuplicateRecord,
	task.ErrCodeContentTooLarge,
	task.ErrCodeInsufficientFunds,
	task.ErrCodeInvalidInstruction,
	task.ErrCodeCorruptRecord,
}

func validCase(c string) bool {
	return c == CaseOK || slices.Contains(knownCodes, task.ErrorCode(c))
}
