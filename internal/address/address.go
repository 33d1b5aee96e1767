// Package address derives deterministic storage addresses for task records.
//
// An address is a program-derived address: a SHA-256 hash over the record's
// seeds, a one-byte bump, the program id and a fixed marker, chosen so that
// it is not a valid ed25519 public key. No private key can ever sign for it,
// so only the program that derived it can write there.
package address

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"filippo.io/edwards25519"

	"github.com/roach88/taskstore/internal/ir"
)

// TaskSeed is the fixed first seed of every task address.
const TaskSeed = "task"

const pdaMarker = "ProgramDerivedAddress"

// ErrOnCurve is returned by CreateAddress when the hash is a valid ed25519 point.
var ErrOnCurve = errors.New("address: derived address lies on the ed25519 curve")

// Deriver computes task addresses within one program's namespace.
type Deriver struct {
	ProgramID ir.Address
}

// New returns a Deriver for programID.
func New(programID ir.Address) Deriver {
	return Deriver{ProgramID: programID}
}

// Derive returns the address and bump for a task owned by owner with content.
//
// The search starts at bump 255 and walks down; the first off-curve hash
// wins, so the result is a pure function of (program, owner, content).
// Content length is not checked here.
func (d Deriver) Derive(owner ir.Identity, content string) (ir.Address, uint8) {
	seeds := Seeds(owner, content)
	for bump := 255; bump >= 0; bump-- {
		addr, err := CreateAddress(append(seeds, []byte{byte(bump)}), d.ProgramID)
		if err == nil {
			return addr, uint8(bump)
		}
	}
	// Each bump has roughly even odds; exhausting all 256 does not happen.
	panic(fmt.Sprintf("address: no viable bump for owner %s", owner))
}

// Verify reports whether addr is the address for (owner, content) at bump.
func (d Deriver) Verify(addr ir.Address, bump uint8, owner ir.Identity, content string) bool {
	got, err := CreateAddress(append(Seeds(owner, content), []byte{bump}), d.ProgramID)
	return err == nil && got == addr
}

// Seeds returns the seed list for a task record.
func Seeds(owner ir.Identity, content string) [][]byte {
	return [][]byte{[]byte(TaskSeed), owner[:], []byte(content)}
}

// CreateAddress hashes seeds into an address under programID.
// Format: SHA256(seed_0 || ... || seed_n || programID || "ProgramDerivedAddress")
func CreateAddress(seeds [][]byte, programID ir.Address) (ir.Address, error) {
	h := sha256.New()
	for _, seed := range seeds {
		h.Write(seed)
	}
	h.Write(programID[:])
	h.Write([]byte(pdaMarker))

	var addr ir.Address
	copy(addr[:], h.Sum(nil))
	if onCurve(addr) {
		return ir.Address{}, ErrOnCurve
	}
	return addr, nil
}

// onCurve reports whether b decodes to a point on edwards25519.
func onCurve(b ir.Address) bool {
	_, err := new(edwards25519.Point).SetBytes(b[:])
	return err == nil
}
