package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the root command with args and returns stdout.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		_ = rootCmd.PersistentFlags().Set("log-level", "")
	})
	err := rootCmd.Execute()
	return out.String(), err
}

const patientJSON = `{
  "demographics": {"age": 28, "sex": "female", "pregnancy_status": "no"},
  "symptoms": {"dysuria": true, "urgency": true},
  "locale_code": "CA-ON"
}`

func TestAssessCommand_JSON(t *testing.T) {
	t.Setenv("TRIAGE_METRICS_ENABLED", "false")
	out, err := run(t, patientJSON, "assess", "--id", "cli-1", "-o", "json")
	require.NoError(t, err)

	var b struct {
		ID       string `json:"id"`
		Terminal string `json:"terminal"`
		Signoff  bool   `json:"signoff_required"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &b))
	assert.Equal(t, "cli-1", b.ID)
	assert.Equal(t, "final", b.Terminal)
	assert.True(t, b.Signoff)
}

func TestPlanCommand_Markdown(t *testing.T) {
	out, err := run(t, `{"patient": `+patientJSON+`}`, "plan", "-", "-o", "markdown")
	require.NoError(t, err)
	assert.Contains(t, out, "# Plan: `recommend_treatment`")
	assert.Contains(t, out, "nitrofurantoin")
}

func TestPlanCommand_InvalidInput(t *testing.T) {
	_, err := run(t, `{"demographics": {"age": -1}}`, "plan", "-o", "json")
	assert.Error(t, err)
}

func TestGraphCommand(t *testing.T) {
	out, err := run(t, "", "graph")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "graph TD\n"))
	assert.Contains(t, out, "safety_review")
}

func TestFormularyCommand(t *testing.T) {
	out, err := run(t, "", "formulary")
	require.NoError(t, err)
	assert.Contains(t, out, `"default_locale"`)

	out, err = run(t, "", "formulary", "ca-on")
	require.NoError(t, err)
	assert.Contains(t, out, `"agent": "nitrofurantoin"`)
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "", "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "triage version "))
}

func TestInvalidLogLevel(t *testing.T) {
	_, err := run(t, "", "formulary", "--log-level", "loud")
	assert.Error(t, err)
}

func TestBundleCommand_FileStoreExport(t *testing.T) {
	storeDir, exportDir := t.TempDir(), t.TempDir()
	t.Setenv("TRIAGE_METRICS_ENABLED", "false")
	t.Setenv("TRIAGE_STORE_DRIVER", "file")
	t.Setenv("TRIAGE_STORE_FILE_DIR", storeDir)
	t.Cleanup(func() { _ = bundleCmd.Flags().Set("export-dir", "") })

	_, err := run(t, patientJSON, "assess", "--id", "cli-export", "-o", "json")
	require.NoError(t, err)

	out, err := run(t, "", "bundle", "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"cli-export"`)

	_, err = run(t, "", "bundle", "cli-export", "-o", "json", "--export-dir", exportDir)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(exportDir, "cli-export.json"))
}
