package ir

import "fmt"

// Instruction names one of the externally invocable operations.
type Instruction string

const (
	// InstructionAddTask creates a task at the address derived from signer and content.
	InstructionAddTask Instruction = "add_task"

	// InstructionMarkTask flips the marked flag of an existing task.
	InstructionMarkTask Instruction = "mark_task"

	// InstructionRemoveTask deletes a task and refunds its deposit.
	InstructionRemoveTask Instruction = "remove_task"
)

// ValidInstructions lists the instructions a program accepts.
var ValidInstructions = []Instruction{InstructionAddTask, InstructionMarkTask, InstructionRemoveTask}

// Request is the unsigned body of an instruction.
//
// Task is set for mark_task and remove_task; Content is set for add_task.
// The signer is the caller identity; the environment proves it with Signature.
type Request struct {
	ID          string      `json:"id"`
	Instruction Instruction `json:"instruction"`
	ProgramID   Address     `json:"program_id"`
	Signer      Identity    `json:"signer"`
	Task        Address     `json:"task"`
	Content     string      `json:"content,omitempty"`
}

// SignedRequest is a Request plus the signer's signature over SigningBytes.
type SignedRequest struct {
	Request
	Signature Signature `json:"signature"`
}

// SigningBytes returns the canonical payload a signer signs.
// Every field is included, so a signature cannot be replayed against a
// different instruction, task, program or content.
func (r Request) SigningBytes() ([]byte, error) {
	obj := map[string]any{
		"version":     RequestVersion,
		"id":          r.ID,
		"instruction": string(r.Instruction),
		"program_id":  r.ProgramID.String(),
		"signer":      r.Signer.String(),
		"task":        r.Task.String(),
		"content":     r.Content,
	}
	data, err := MarshalCanonical(obj)
	if err != nil {
		return nil, fmt.Errorf("signing bytes: %w", err)
	}
	return data, nil
}
