package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testContractYAML = `pipeline_id: feature-pipeline
schema_version: 1.2.0
phases:
  - name: seed
    exit:
      required:
        - name: domain
          severity: BLOCKING
  - name: plan
    entry:
      required:
        - name: domain
          severity: BLOCKING
    exit:
      required:
        - name: plan_output
          severity: BLOCKING
chains:
  - chain_id: domain-propagation
    source:
      phase: seed
      field: domain
    destination:
      phase: plan
      field: domain
`

const testFinalContextYAML = `domain: web_app
plan_output: plan-v1
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestValidateCommand_GoodContract(t *testing.T) {
	contractPath := writeFile(t, t.TempDir(), "contract.yaml", testContractYAML)

	out, err := execute(t, "validate", contractPath)
	require.NoError(t, err)
	assert.Contains(t, out, `OK: contract "feature-pipeline"`)
	assert.Contains(t, out, "2 phases, 1 chains")
}

func TestValidateCommand_AuthoringErrors(t *testing.T) {
	doc := `pipeline_id: p
schema_version: 1.0.0
phases:
  - name: seed
  - name: plan
chains:
  - chain_id: backwards
    source:
      phase: plan
      field: x
    destination:
      phase: seed
      field: x
`
	contractPath := writeFile(t, t.TempDir(), "contract.yaml", doc)

	out, err := execute(t, "validate", contractPath)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "E124")
}

func TestValidateCommand_MissingFile(t *testing.T) {
	_, err := execute(t, "validate", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestValidateCommand_JSONOutput(t *testing.T) {
	contractPath := writeFile(t, t.TempDir(), "contract.yaml", testContractYAML)

	out, err := execute(t, "--format", "json", "validate", contractPath)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, true, decoded["valid"])
	assert.Equal(t, "feature-pipeline", decoded["pipeline_id"])
}

func TestRootCommand_InvalidFormat(t *testing.T) {
	contractPath := writeFile(t, t.TempDir(), "contract.yaml", testContractYAML)

	_, err := execute(t, "--format", "xml", "validate", contractPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestPreflightCommand_Passes(t *testing.T) {
	dir := t.TempDir()
	contractPath := writeFile(t, dir, "contract.yaml", testContractYAML)

	out, err := execute(t, "preflight", contractPath)
	require.NoError(t, err)
	assert.Contains(t, out, "PASS: preflight")
}

func TestPreflightCommand_FailsOnBrokenOrder(t *testing.T) {
	dir := t.TempDir()
	contractPath := writeFile(t, dir, "contract.yaml", testContractYAML)

	out, err := execute(t, "preflight", contractPath, "--phases", "plan,seed")
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "FAIL: preflight")
	assert.Contains(t, out, "not_ready")
}

func TestChainsCommand_IntactRun(t *testing.T) {
	dir := t.TempDir()
	contractPath := writeFile(t, dir, "contract.yaml", testContractYAML)
	contextPath := writeFile(t, dir, "final.yaml", testFinalContextYAML)

	out, err := execute(t, "chains", contractPath, "--context", contextPath)
	require.NoError(t, err)
	assert.Contains(t, out, "PASS: chains 1/1 intact")
	assert.Contains(t, out, "completeness 100.0%")
}

func TestChainsCommand_BrokenChainFails(t *testing.T) {
	dir := t.TempDir()
	contractPath := writeFile(t, dir, "contract.yaml", testContractYAML)
	contextPath := writeFile(t, dir, "final.yaml", "plan_output: plan-v1\n")

	out, err := execute(t, "chains", contractPath, "--context", contextPath)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "[BROKEN] domain-propagation")
}

func TestDriftCommand_CleanDiff(t *testing.T) {
	dir := t.TempDir()
	oldPath := writeFile(t, dir, "old.yaml", testContractYAML)
	newPath := writeFile(t, dir, "new.yaml", testContractYAML)

	out, err := execute(t, "drift", oldPath, newPath)
	require.NoError(t, err)
	assert.Contains(t, out, "0 changes")
}

func TestDriftCommand_BreakingDiffFails(t *testing.T) {
	dir := t.TempDir()
	oldPath := writeFile(t, dir, "old.yaml", testContractYAML)
	// Dropping the chain is a breaking change.
	trimmed := `pipeline_id: feature-pipeline
schema_version: 1.3.0
phases:
  - name: seed
    exit:
      required:
        - name: domain
          severity: BLOCKING
  - name: plan
    entry:
      required:
        - name: domain
          severity: BLOCKING
    exit:
      required:
        - name: plan_output
          severity: BLOCKING
`
	newPath := writeFile(t, dir, "new.yaml", trimmed)

	out, err := execute(t, "drift", oldPath, newPath)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "chain_removed")
}

func TestGateCommand_NoBaselinePasses(t *testing.T) {
	dir := t.TempDir()
	contractPath := writeFile(t, dir, "contract.yaml", testContractYAML)
	contextPath := writeFile(t, dir, "final.yaml", testFinalContextYAML)
	dbPath := filepath.Join(dir, "history.db")

	out, err := execute(t, "gate", contractPath,
		"--context", contextPath, "--baseline-db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "PASS: gate")
	assert.Contains(t, out, "health_minimum")
}

func TestGateCommand_RecordThenRegress(t *testing.T) {
	dir := t.TempDir()
	contractPath := writeFile(t, dir, "contract.yaml", testContractYAML)
	goodContext := writeFile(t, dir, "good.yaml", testFinalContextYAML)
	dbPath := filepath.Join(dir, "history.db")

	_, err := execute(t, "gate", contractPath,
		"--context", goodContext, "--baseline-db", dbPath, "--record")
	require.NoError(t, err)

	// A run with the chain broken regresses completeness and broken
	// chains against the recorded baseline.
	badContext := writeFile(t, dir, "bad.yaml", "plan_output: plan-v1\n")
	out, err := execute(t, "gate", contractPath,
		"--context", badContext, "--baseline-db", dbPath)

	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "FAIL: gate")
	assert.Contains(t, out, "completeness_regression")
}

func TestHistoryCommand(t *testing.T) {
	dir := t.TempDir()
	contractPath := writeFile(t, dir, "contract.yaml", testContractYAML)
	contextPath := writeFile(t, dir, "final.yaml", testFinalContextYAML)
	dbPath := filepath.Join(dir, "history.db")

	_, err := execute(t, "chains", contractPath,
		"--context", contextPath, "--baseline-db", dbPath)
	require.NoError(t, err)

	out, err := execute(t, "history", "--baseline-db", dbPath, "--pipeline", "feature-pipeline")
	require.NoError(t, err)
	assert.Contains(t, out, `pipeline "feature-pipeline": 1 runs`)
	assert.Contains(t, out, "health=")
}

func TestHistoryCommand_RequiresPipeline(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")
	_, err := execute(t, "history", "--baseline-db", dbPath)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
