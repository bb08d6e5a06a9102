/*
Package ports defines the driven ports (interfaces) of the triage core.

These interfaces decouple the orchestrator from external implementations: the
advisory agents are opaque capabilities that may be slow or fail, the state
validator may be local or remote, and audit bundles may be stored anywhere.

# Key Interfaces

  - Reasoner, SafetyReviewer, Summarizer, Verifier, EvidenceSynthesizer: advisory agents.
  - StateValidator: the fail-closed final safety check.
  - AuditStore: persistence for finalized audit bundles.
  - DistributedLocker: coordination of submissions across replicas.
*/
package ports
