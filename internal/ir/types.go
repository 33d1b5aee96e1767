package ir

import (
	"encoding/hex"
	"fmt"
)

// Identity is a 32-byte public identity (an ed25519 public key).
type Identity [32]byte

// Address is a 32-byte storage address.
type Address [32]byte

// Signature is a 64-byte ed25519 signature.
type Signature [64]byte

// String returns the lowercase hex form.
func (id Identity) String() string { return hex.EncodeToString(id[:]) }

// IsZero reports whether the identity is all zero bytes.
func (id Identity) IsZero() bool { return id == Identity{} }

// MarshalText implements encoding.TextMarshaler.
func (id Identity) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *Identity) UnmarshalText(text []byte) error {
	return decodeFixed(id[:], string(text), "identity")
}

// String returns the lowercase hex form.
func (a Address) String() string { return hex.EncodeToString(a[:]) }

// IsZero reports whether the address is all zero bytes.
func (a Address) IsZero() bool { return a == Address{} }

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	return decodeFixed(a[:], string(text), "address")
}

// String returns the lowercase hex form.
func (s Signature) String() string { return hex.EncodeToString(s[:]) }

// MarshalText implements encoding.TextMarshaler.
func (s Signature) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Signature) UnmarshalText(text []byte) error {
	return decodeFixed(s[:], string(text), "signature")
}

// ParseIdentity decodes a hex identity.
func ParseIdentity(s string) (Identity, error) {
	var id Identity
	err := id.UnmarshalText([]byte(s))
	return id, err
}

// ParseAddress decodes a hex address.
func ParseAddress(s string) (Address, error) {
	var a Address
	err := a.UnmarshalText([]byte(s))
	return a, err
}

// decodeFixed decodes hex into dst, requiring an exact length match.
func decodeFixed(dst []byte, s, kind string) error {
	if len(s) != hex.EncodedLen(len(dst)) {
		return fmt.Errorf("invalid %s: want %d hex chars, got %d", kind, hex.EncodedLen(len(dst)), len(s))
	}
	if _, err := hex.Decode(dst, []byte(s)); err != nil {
		return fmt.Errorf("invalid %s: %w", kind, err)
	}
	return nil
}
