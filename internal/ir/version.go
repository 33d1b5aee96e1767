package ir

// Version constants for the wire format and the binary.
const (
	// RequestVersion is the signed request payload version.
	RequestVersion = "1"

	// Version is the taskstore release version.
	Version = "0.1.0"
)
