/*
Package orchestrator sequences one assessment: the decision engine, the
advisory agents, the state validator and the audit bundle.

The run is a finite state machine:

	Intake -> GateCheck -> Assessed -> Routed
	Routed -> Validate -> Interrupted(decision)             (referral and no-treatment paths)
	Routed -> Reasoning -> SafetyReview [-> Reasoning -> SafetyReview] -> Refine -> Validate
	Validate -> AuditAssembly -> Enrichment -> SignoffRequired -> Final

Any stage may end in Interrupted. The only backward edge is SafetyReview ->
Reasoning, taken at most once per run.

Advisory agents are optional. Every call is bounded by a timeout and retried
at most once; a failure is recorded in the bundle and the run continues with
the engine's own output. The state validator has no fallback: if it cannot
run, the assessment is interrupted.
*/
package orchestrator
