package ir

import (
	"crypto/sha256"
)

// Domain prefixes for derived identifiers.
// Version suffix enables future algorithm migration.
const (
	DomainProgram = "taskstore/program/v1"
	DomainTestKey = "taskstore/test-key/v1"
)

// HashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func HashWithDomain(domain string, data []byte) [32]byte {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// ProgramIDFor derives a program id from a human-readable program name.
func ProgramIDFor(name string) Address {
	return Address(HashWithDomain(DomainProgram, []byte(name)))
}

// DefaultProgramID is the program id used when none is configured.
var DefaultProgramID = ProgramIDFor("todoapp")
