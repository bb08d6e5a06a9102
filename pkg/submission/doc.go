/*
Package submission makes assessment submission idempotent.

A Manager serializes work per assessment ID with a reference-counted local
lock and, optionally, a distributed lock shared across replicas. The first
submission of an ID runs the orchestrator and persists the bundle; later
submissions of the same ID return the stored bundle without running again.
*/
package submission
