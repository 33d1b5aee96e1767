// Package harness runs conformance scenarios against the task program.
//
// A scenario is a YAML file naming actors, a flow of signed instructions
// and assertions about the final state:
//
//	name: buy_milk
//	description: create, toggle, delete and recreate one task
//	actors:
//	  - name: alice
//	    fund: 10000000
//	flow:
//	  - actor: alice
//	    invoke: add_task
//	    content: buy milk
//	    expect:
//	      case: ok
//	assertions:
//	  - type: task_state
//	    task: {owner: alice, content: buy milk}
//	    marked: false
//
// Each run uses a fresh in-memory ledger, deterministic keys derived from
// actor names and sequential request ids, so the trace of a scenario is
// byte-for-byte reproducible and can be compared against a golden file.
//
// Tasks are referred to by (owner, content) rather than by address. The
// harness derives the address the same way a client would.
package harness
