// Package testutil provides deterministic identities and request builders
// for tests and the conformance harness.
package testutil
