// Package ir provides the shared value types for taskstore.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal. This keeps ir the foundational
// layer with no circular dependencies.
//
// Key design constraints:
//   - Identities and addresses are fixed 32-byte values rendered as lowercase hex
//   - Signing payloads use canonical JSON (sorted keys, no HTML escaping)
//   - Record content is opaque bytes to the store; only callers normalize text
//   - All JSON tags use snake_case
package ir
