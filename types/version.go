package types

// Version is the canonical runtime version, reported by cmd/wodrt and
// attached to log context.
const Version = "0.1.0"
