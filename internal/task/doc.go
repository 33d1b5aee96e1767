// Package task implements the task record program.
//
// A task record is owned by the identity that created it and lives at an
// address derived from (owner, content). The program exposes three
// instructions:
//
//   - add_task: allocate a fixed-size record at the derived address, backed
//     by a deposit from the creator
//   - mark_task: flip the record's marked flag (owner only)
//   - remove_task: delete the record and refund the deposit to the owner
//     (owner only)
//
// Authorization is an equality check between the verified signer and the
// owner stored in the record. It never re-derives the address.
//
// Each instruction runs inside one ledger transaction and either commits
// fully or leaves all state untouched.
package task
