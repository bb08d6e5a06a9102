package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aretw0/triage"
	triagehttp "github.com/aretw0/triage/pkg/adapters/http"
	"github.com/aretw0/triage/pkg/adapters/memory"
	"github.com/aretw0/triage/pkg/audit"
	"github.com/aretw0/triage/pkg/domain"
	"github.com/aretw0/triage/pkg/formulary"
	"github.com/aretw0/triage/pkg/observability"
	"github.com/aretw0/triage/pkg/orchestrator"
	"github.com/aretw0/triage/pkg/submission"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const patientJSON = `{
	"demographics": {"age": 28, "sex": "female", "pregnancy_status": "no"},
	"symptoms": {"dysuria": true, "urgency": true},
	"locale_code": "CA-ON"
}`

func newServer(t *testing.T, svcOpts ...triage.Option) *httptest.Server {
	t.Helper()
	set, err := formulary.Default()
	require.NoError(t, err)

	m := observability.NewMetrics()
	orch := orchestrator.New(set, orchestrator.WithLifecycleHooks(m.Hooks()))
	svc := triage.New(set, submission.NewManager(orch, audit.NewRepository(memory.NewStore())), svcOpts...)

	h, err := triagehttp.NewHandler(svc, triagehttp.WithMetrics(m.Handler()))
	require.NoError(t, err)
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, url, body string, headers ...string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestCompleteAssessment_Idempotent(t *testing.T) {
	srv := newServer(t)
	body := `{"id": "a-1", "patient": ` + patientJSON + `}`

	resp := post(t, srv.URL+"/v1/assessments", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "/v1/assessments/a-1", resp.Header.Get("Location"))
	first := decodeBody[audit.Bundle](t, resp)
	assert.Equal(t, "a-1", first.ID)
	assert.Equal(t, domain.StageFinal, first.Terminal)
	assert.True(t, first.SignoffRequired)
	require.NotNil(t, first.FinalRegimen)

	resp = post(t, srv.URL+"/v1/assessments", body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "true", resp.Header.Get(triagehttp.ReplayedHeader))

	resp = get(t, srv.URL+"/v1/assessments/a-1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stored := decodeBody[audit.Bundle](t, resp)
	assert.Equal(t, first.Trail, stored.Trail)

	resp = get(t, srv.URL+"/v1/assessments")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decodeBody[map[string][]string](t, resp)
	assert.Equal(t, []string{"a-1"}, list["ids"])
}

func TestCompleteAssessment_IdempotencyHeader(t *testing.T) {
	srv := newServer(t)

	resp := post(t, srv.URL+"/v1/assessments", `{"patient": `+patientJSON+`}`, triagehttp.IdempotencyHeader, "key-7")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "key-7", decodeBody[audit.Bundle](t, resp).ID)
}

func TestCompleteAssessment_RejectsInput(t *testing.T) {
	srv := newServer(t)

	t.Run("Schema", func(t *testing.T) {
		resp := post(t, srv.URL+"/v1/assessments", `{"patient": {"demographics": {"age": 200, "sex": "female"}, "locale_code": "CA-ON"}}`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		e := decodeBody[map[string]any](t, resp)
		assert.Equal(t, "request does not match the API schema", e["error"])
	})

	t.Run("Domain", func(t *testing.T) {
		resp := post(t, srv.URL+"/v1/assessments", `{"patient": {"demographics": {"age": 30, "sex": "male", "pregnancy_status": "yes"}, "locale_code": "CA-ON"}}`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		e := decodeBody[map[string]any](t, resp)
		assert.Equal(t, "invalid patient state", e["error"])
	})

	t.Run("Unknown Locale", func(t *testing.T) {
		body := strings.Replace(patientJSON, "CA-ON", "ZZ-ZZ", 1)
		resp := post(t, srv.URL+"/v1/assessments", `{"patient": `+body+`}`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("Not Stored", func(t *testing.T) {
		resp := get(t, srv.URL+"/v1/assessments")
		assert.Empty(t, decodeBody[map[string][]string](t, resp)["ids"])
	})
}

func TestGetAssessment_NotFound(t *testing.T) {
	srv := newServer(t)
	resp := get(t, srv.URL+"/v1/assessments/missing")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAssessAndPlan(t *testing.T) {
	srv := newServer(t)

	resp := post(t, srv.URL+"/v1/assess-and-plan", patientJSON)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	plan := decodeBody[triage.Plan](t, resp)
	assert.Equal(t, domain.DecisionRecommendTreatment, plan.Outcome.Decision)
	assert.True(t, plan.SignoffRequired)
	require.NotNil(t, plan.FollowUp)

	resp = post(t, srv.URL+"/v1/assess-and-plan", strings.Replace(patientJSON, `"urgency": true`, `"urgency": true}, "red_flags": {"rigors": true`, 1))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	plan = decodeBody[triage.Plan](t, resp)
	assert.Equal(t, domain.DecisionReferPyelonephritis, plan.Outcome.Decision)
	assert.True(t, plan.RequiresEscalation)
}

func TestAssessAndPlan_DefaultLocale(t *testing.T) {
	srv := newServer(t)

	body := `{"demographics": {"age": 28, "sex": "female", "pregnancy_status": "no"}, "symptoms": {"dysuria": true}}`
	resp := post(t, srv.URL+"/v1/assess-and-plan", body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	plan := decodeBody[triage.Plan](t, resp)
	require.NotNil(t, plan.Outcome.Regimen)
	assert.Equal(t, "nitrofurantoin", plan.Outcome.Regimen.Agent)
}

func TestFollowUpPlan(t *testing.T) {
	srv := newServer(t)

	resp := post(t, srv.URL+"/v1/follow-up-plan", `{"patient": `+patientJSON+`, "regimen": {"agent": "nitrofurantoin"}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	plan := decodeBody[domain.FollowUpPlan](t, resp)
	assert.Equal(t, "48-72 hours", plan.ReassessWithin)

	resp = post(t, srv.URL+"/v1/follow-up-plan", `{"patient": `+patientJSON+`, "regimen": {"agent": "amoxicillin"}}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = post(t, srv.URL+"/v1/follow-up-plan", `{"regimen": {"agent": "nitrofurantoin"}}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestProbesAndDocs(t *testing.T) {
	srv := newServer(t)

	resp := get(t, srv.URL+"/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, strings.TrimSpace(triage.Version), decodeBody[map[string]string](t, resp)["version"])

	resp = get(t, srv.URL+"/readyz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = get(t, srv.URL+"/openapi.yaml")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	spec, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(spec), "/v1/assess-and-plan")

	doc, err := triagehttp.GetSpec()
	require.NoError(t, err)
	assert.Equal(t, "Triage API", doc.Info.Title)
}

func TestReadyz_Unavailable(t *testing.T) {
	srv := newServer(t, triage.WithReadinessCheck("store", func(context.Context) error {
		return errors.New("dial tcp: connection refused")
	}))

	resp := get(t, srv.URL+"/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	e := decodeBody[map[string]any](t, resp)
	assert.Contains(t, e["details"], "store: dial tcp: connection refused")
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newServer(t)
	post(t, srv.URL+"/v1/assessments", `{"patient": `+patientJSON+`}`)

	resp := get(t, srv.URL+"/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var buf bytes.Buffer
	_, err := buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `triage_assessments_total{decision="recommend_treatment",reason="",terminal="final"} 1`)
}
