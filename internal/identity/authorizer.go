package identity

import (
	"crypto/ed25519"

	"github.com/roach88/taskstore/internal/ir"
)

// Authorizer decides whether a request is signed by the claimed identity.
type Authorizer interface {
	Authorized(id ir.Identity, req ir.SignedRequest) bool
}

// Ed25519Verifier checks ed25519 signatures over Request.SigningBytes.
type Ed25519Verifier struct{}

// Authorized reports whether req.Signature is a valid signature by id.
// A request whose Signer differs from id is never authorized.
func (Ed25519Verifier) Authorized(id ir.Identity, req ir.SignedRequest) bool {
	if req.Signer != id {
		return false
	}
	payload, err := req.Request.SigningBytes()
	if err != nil {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(id[:]), payload, req.Signature[:])
}

// AuthorizerFunc adapts a function to Authorizer.
type AuthorizerFunc func(id ir.Identity, req ir.SignedRequest) bool

// Authorized calls f.
func (f AuthorizerFunc) Authorized(id ir.Identity, req ir.SignedRequest) bool {
	return f(id, req)
}
