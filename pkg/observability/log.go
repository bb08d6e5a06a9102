package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/triage/pkg/domain"
)

// LogHooks returns lifecycle hooks that write every event to logger.
// Transitions are logged at debug, failed port calls and interrupts at warn.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTransition: func(ctx context.Context, e *domain.StageEvent) {
			logger.DebugContext(ctx, "stage_transition",
				"assessment_id", e.AssessmentID,
				"from", e.From,
				"to", e.To,
			)
		},
		OnPortCall: func(ctx context.Context, e *domain.PortEvent) {
			level := slog.LevelDebug
			if e.Failure != "" {
				level = slog.LevelWarn
			}
			logger.Log(ctx, level, "port_call",
				"assessment_id", e.AssessmentID,
				"port", e.Port,
				"attempts", e.Attempts,
				"duration", e.Duration,
				"failure", e.Failure,
			)
		},
		OnComplete: func(ctx context.Context, e *domain.CompletionEvent) {
			attrs := []any{
				"assessment_id", e.AssessmentID,
				"decision", e.Decision,
				"terminal", e.Terminal,
				"duration", e.Duration,
			}
			if e.Reason != "" {
				logger.WarnContext(ctx, "assessment_interrupted", append(attrs, "reason", e.Reason)...)
				return
			}
			logger.InfoContext(ctx, "assessment_complete", attrs...)
		},
	}
}
