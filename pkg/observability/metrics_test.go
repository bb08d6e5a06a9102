package observability_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aretw0/triage/pkg/domain"
	"github.com/aretw0/triage/pkg/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Hooks(t *testing.T) {
	m := observability.NewMetrics()
	hooks := m.Hooks()
	ctx := context.Background()

	hooks.OnTransition(ctx, &domain.StageEvent{From: domain.StageIntake, To: domain.StageGateCheck})
	hooks.OnTransition(ctx, &domain.StageEvent{From: domain.StageRefine, To: domain.StageValidate})
	hooks.OnTransition(ctx, &domain.StageEvent{From: domain.StageIntake, To: domain.StageGateCheck})
	hooks.OnPortCall(ctx, &domain.PortEvent{Port: "reasoner", Attempts: 1, Duration: 20 * time.Millisecond})
	hooks.OnPortCall(ctx, &domain.PortEvent{Port: "reasoner", Attempts: 2, Duration: time.Second, Failure: domain.CapabilityTimeout})
	hooks.OnComplete(ctx, &domain.CompletionEvent{
		Decision: domain.DecisionRecommendTreatment,
		Terminal: domain.StageFinal,
		Duration: 50 * time.Millisecond,
	})
	hooks.OnComplete(ctx, &domain.CompletionEvent{
		Decision: domain.DecisionReferPyelonephritis,
		Terminal: domain.StageInterrupted,
		Reason:   domain.InterruptRedFlag,
	})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Transitions.WithLabelValues("gate_check")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Transitions.WithLabelValues("validate")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PortCalls.WithLabelValues("reasoner", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PortCalls.WithLabelValues("reasoner", "timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Assessments.WithLabelValues("recommend_treatment", "final", "")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Assessments.WithLabelValues("refer_pyelonephritis_suspected", "interrupted", "red_flag")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.PortDuration))
}

func TestMetrics_Handler(t *testing.T) {
	m := observability.NewMetrics()
	m.Hooks().OnTransition(context.Background(), &domain.StageEvent{To: domain.StageFinal})

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `triage_stage_transitions_total{to="final"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestMerge_MetricsAndLogs(t *testing.T) {
	m := observability.NewMetrics()
	var logged []string
	capture := domain.LifecycleHooks{
		OnComplete: func(_ context.Context, e *domain.CompletionEvent) {
			logged = append(logged, string(e.Terminal))
		},
	}

	hooks := m.Hooks().Merge(capture)
	hooks.OnComplete(context.Background(), &domain.CompletionEvent{Terminal: domain.StageFinal})

	assert.Equal(t, []string{"final"}, logged)
	assert.Equal(t, 1, testutil.CollectAndCount(m.Assessments))
}
