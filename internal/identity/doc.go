// Package identity provides the identity and authorization primitive.
//
// Identities are ed25519 public keys. A caller proves control of an identity
// by signing the canonical bytes of an ir.Request. The task program treats
// verification as a boolean oracle (Authorizer) and never inspects keys
// itself.
package identity
