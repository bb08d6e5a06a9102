/*
Package domain contains the core clinical models for the UTI triage engine.

It defines the patient input record, the artifacts produced by each stage of an
assessment (outcome, regimen, safety review, validation result, verification
report, evidence summary) and the error taxonomy shared by the other packages.
This package is kept pure and free of external dependencies like I/O or
persistence, following Hexagonal Architecture principles.

# Key Entities

  - PatientState: the immutable input of one assessment.
  - AssessmentOutcome: what the decision engine concluded and why.
  - ProposedRegimen: an agent, dose, frequency and duration taken from a formulary table.
  - SafetyReview, ReasoningResult, VerificationReport, EvidenceSummary: advisory artifacts.
  - ValidationResult: the outcome of the final deterministic safety re-check.
*/
package domain
