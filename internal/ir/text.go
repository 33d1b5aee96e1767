package ir

import "golang.org/x/text/unicode/norm"

// NormalizeContent returns content in Unicode NFC form.
//
// Callers that accept typed text normalize before signing so that visually
// identical input derives the same address. The store itself never
// normalizes: content is opaque bytes once it reaches a request.
func NormalizeContent(content string) string {
	return norm.NFC.String(content)
}
