/*
Package triage is a decision-support service for uncomplicated urinary tract
infection (UTI) triage.

A deterministic Decision Engine makes every clinical decision from a patient
state and a per-locale formulary. Advisory agents (clinical reasoning, safety
review, summarization, verification, evidence synthesis) may explain, refine or
flag that decision but can never override it: every proposed regimen passes a
State Validator that fails closed. An Orchestrator state machine drives one
assessment through these stages and records each of them in an append-only,
immutable Audit Bundle.

# Architecture

The module follows a hexagonal layout. The core packages have no I/O:

  - pkg/domain: patient state, artifacts, stages and errors.
  - pkg/formulary: formulary and interaction tables, embedded defaults.
  - pkg/engine: red-flag gate, complicating factors, agent selection and the
    follow-up plan.
  - pkg/validator: the State Validator.
  - pkg/orchestrator: the assessment state machine.
  - pkg/audit: the Audit Bundle, its builder and repository.

Adapters live under pkg/adapters (agents, memory, file, redis, postgres, http, mcp,
process) and plug into the ports declared in pkg/ports.

# Usage

Service bundles the formulary and an idempotent submission manager for
transports:

	set, _ := formulary.Default()
	orch := orchestrator.New(set)
	repo := audit.NewRepository(memory.NewStore())
	svc := triage.New(set, submission.NewManager(orch, repo))

	plan, err := svc.AssessAndPlan(patient)
	res, err := svc.Complete(ctx, orchestrator.Request{Patient: patient})

AssessAndPlan runs the engine and the validator only. Complete runs the full
orchestrated assessment and stores its bundle exactly once per ID.
*/
package triage
