package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/taskstore/internal/identity"
	"github.com/roach88/taskstore/internal/ir"
)

func TestSequentialIDs(t *testing.T) {
	ids := NewSequentialIDs()
	assert.Equal(t, "req-000001", ids.Generate())
	assert.Equal(t, "req-000002", ids.Generate())
	assert.Equal(t, int64(2), ids.Current())

	ids.Reset()
	assert.Equal(t, "req-000001", ids.Generate())
}

func TestSequentialIDsConcurrent(t *testing.T) {
	ids := NewSequentialIDs()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids.Generate()
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(50), ids.Current())
}

func TestKeypairForIsDeterministic(t *testing.T) {
	assert.Equal(t, KeypairFor("alice").Identity(), KeypairFor("alice").Identity())
	assert.NotEqual(t, KeypairFor("alice").Identity(), KeypairFor("bob").Identity())
}

func TestActorSignsVerifiableRequests(t *testing.T) {
	alice := NewActor("alice", ir.DefaultProgramID, NewSequentialIDs())

	req := alice.AddTask("buy milk")
	assert.Equal(t, "req-000001", req.ID)
	assert.Equal(t, ir.InstructionAddTask, req.Instruction)
	assert.Equal(t, alice.Identity(), req.Signer)
	assert.True(t, identity.Ed25519Verifier{}.Authorized(alice.Identity(), req))

	mark := alice.MarkTask(ir.Address{1})
	assert.Equal(t, "req-000002", mark.ID)
	assert.Equal(t, ir.Address{1}, mark.Task)
}
