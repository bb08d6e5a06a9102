package process

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/aretw0/triage/pkg/adapters/agents"
	"github.com/aretw0/triage/pkg/domain"
	"github.com/aretw0/triage/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("process agents are exercised with sh")
	}
}

func TestRunner_Call(t *testing.T) {
	skipOnWindows(t)

	runner := NewRunner()
	runner.Register("echo", "sh", "-c", "cat")
	runner.Register("fixed", "sh", "-c", `echo '{"verdict": "pass", "confidence": 0.9}'`)
	runner.Register("role", "sh", "-c", `printf '{"role": "%s"}' "$TRIAGE_AGENT_ROLE"`)

	t.Run("Input Travels On Stdin", func(t *testing.T) {
		out, err := runner.Call(context.Background(), "echo", map[string]any{"msg": "hello"})
		require.NoError(t, err)
		assert.Equal(t, "hello", out["msg"])
	})

	t.Run("Role Exported To Environment", func(t *testing.T) {
		out, err := runner.Call(context.Background(), "role", nil)
		require.NoError(t, err)
		assert.Equal(t, "role", out["role"])
	})

	t.Run("Unregistered Role", func(t *testing.T) {
		_, err := runner.Call(context.Background(), "hacker_script", nil)
		var ce *domain.CapabilityError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, domain.CapabilityUnavailable, ce.Kind)
	})

	t.Run("Decodes Through Client", func(t *testing.T) {
		c := agents.NewClient(runner, "process/1")
		report, err := c.Verify(context.Background(), ports.VerificationRequest{})
		require.Error(t, err, "verifier role is not registered")

		runner.Register(agents.RoleVerifier, "sh", "-c", `echo '{"verdict": "NEEDS_REVIEW", "issues": ["check dose"]}'`)
		report, err = c.Verify(context.Background(), ports.VerificationRequest{})
		require.NoError(t, err)
		assert.Equal(t, domain.VerdictNeedsReview, report.Verdict)
		assert.Equal(t, []string{"check dose"}, report.Issues)
	})
}

func TestRunner_Failures(t *testing.T) {
	skipOnWindows(t)

	tests := []struct {
		name   string
		script string
		kind   domain.CapabilityKind
	}{
		{"non-zero exit", "echo boom >&2; exit 3", domain.CapabilityUnavailable},
		{"plain text", "echo approve", domain.CapabilityInvalidOutput},
		{"array", "echo '[1, 2]'", domain.CapabilityInvalidOutput},
		{"truncated", `echo '{"verdict": '`, domain.CapabilityInvalidOutput},
		{"empty", "true", domain.CapabilityInvalidOutput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := NewRunner()
			runner.Register("agent", "sh", "-c", tt.script)

			_, err := runner.Call(context.Background(), "agent", nil)
			var ce *domain.CapabilityError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.kind, ce.Kind)
			assert.Equal(t, "agent", ce.Port)
		})
	}
}

func TestRunner_ContextCancellation(t *testing.T) {
	skipOnWindows(t)

	runner := NewRunner()
	runner.Register("slow", "sh", "-c", "sleep 5")

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := runner.Call(ctx, "slow", nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestLoadAgents(t *testing.T) {
	skipOnWindows(t)
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "agents.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`
agents:
  - role: verifier
    command: sh
    args: ["-c", "printf '{\"verdict\": \"%s\"}' \"$VERDICT\""]
    env:
      VERDICT: pass
  - role: summarizer
  - command: orphan
`), 0o644))

	cfg, err := LoadAgents(yamlPath)
	require.NoError(t, err)
	require.Len(t, cfg, 1)
	assert.Equal(t, "pass", cfg["verifier"].Environment["VERDICT"])

	runner := NewRunner(WithRegistry(cfg), WithBaseDir(dir))
	assert.Equal(t, []string{"verifier"}, runner.Roles())
	assert.True(t, runner.Has("verifier"))

	out, err := runner.Call(context.Background(), "verifier", nil)
	require.NoError(t, err)
	assert.Equal(t, "pass", out["verdict"])

	jsonPath := filepath.Join(dir, "agents.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"agents": [{"role": "evidence", "command": "cat"}]}`), 0o644))
	cfg, err = LoadAgents(jsonPath)
	require.NoError(t, err)
	assert.Contains(t, cfg, "evidence")

	cfg, err = LoadAgents(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	assert.Empty(t, cfg)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("agents: [\n"), 0o644))
	_, err = LoadAgents(bad)
	assert.Error(t, err)
}
