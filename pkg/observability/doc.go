/*
Package observability provides lifecycle hooks for monitoring the triage
orchestrator.

Metrics records stage transitions, advisory port calls and completed
assessments as Prometheus collectors. LogHooks writes the same events to a
structured logger. Both return domain.LifecycleHooks and can be combined with
Merge.
*/
package observability
