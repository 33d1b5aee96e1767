package testutil

import (
	"fmt"

	"github.com/roach88/taskstore/internal/identity"
	"github.com/roach88/taskstore/internal/ir"
)

// KeypairFor returns a keypair derived deterministically from name.
// The same name always yields the same identity.
func KeypairFor(name string) *identity.Keypair {
	seed := ir.HashWithDomain(ir.DomainTestKey, []byte(name))
	kp, err := identity.FromSeed(seed[:])
	if err != nil {
		panic(fmt.Sprintf("testutil: seed for %q: %v", name, err))
	}
	return kp
}

// Actor signs requests for one named identity against one program.
type Actor struct {
	Name    string
	Key     *identity.Keypair
	Program ir.Address
	IDs     identity.RequestIDGenerator
}

// NewActor returns an actor with a deterministic key for name.
func NewActor(name string, program ir.Address, ids identity.RequestIDGenerator) *Actor {
	return &Actor{Name: name, Key: KeypairFor(name), Program: program, IDs: ids}
}

// Identity returns the actor's public identity.
func (a *Actor) Identity() ir.Identity {
	return a.Key.Identity()
}

// AddTask returns a signed add_task request.
func (a *Actor) AddTask(content string) ir.SignedRequest {
	return a.sign(ir.Request{Instruction: ir.InstructionAddTask, Content: content})
}

// MarkTask returns a signed mark_task request for task.
func (a *Actor) MarkTask(task ir.Address) ir.SignedRequest {
	return a.sign(ir.Request{Instruction: ir.InstructionMarkTask, Task: task})
}

// RemoveTask returns a signed remove_task request for task.
func (a *Actor) RemoveTask(task ir.Address) ir.SignedRequest {
	return a.sign(ir.Request{Instruction: ir.InstructionRemoveTask, Task: task})
}

func (a *Actor) sign(req ir.Request) ir.SignedRequest {
	req.ID = a.IDs.Generate()
	req.ProgramID = a.Program
	signed, err := a.Key.Sign(req)
	if err != nil {
		panic(fmt.Sprintf("testutil: sign for %s: %v", a.Name, err))
	}
	return signed
}
