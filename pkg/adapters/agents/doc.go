// Package agents adapts advisory agents to the orchestrator ports.
//
// A Client implements every advisory port over a Transport: the HTTP Gateway
// in this package, or a local process runner. Local holds deterministic
// stand-ins used for offline runs and demos.
package agents
