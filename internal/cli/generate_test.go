package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perflab/benchmatrix/internal/ledger"
	"github.com/perflab/benchmatrix/internal/matrix"
)

const testMasterConfig = `dsr1:
  - model: org/dsr1-base
    precision: fp8
    framework: vllm
    runners: [h100x8]
    seq-lens: [1k1k, 8k1k]
    sweep:
      conc-start: 4
      conc-end: 16
      conc-step: 2
      conc-mode: multiplicative
    tensor-parallel: 8
qwen:
  - model: org/qwen-72b
    precision: bf16
    framework: sglang
    runners: [h100x8]
    seq-lens: [1k1k]
    sweep:
      conc-start: 1
      conc-end: 1
    tensor-parallel: 4
`

const testRunnerConfig = `h100x8:
  accelerators: 8
  frameworks: [vllm, sglang, trt]
  precisions: [fp4, fp8, fp16, bf16]
`

// writeTestConfigs writes the shared fixture documents into a temp dir
// and returns their paths.
func writeTestConfigs(t *testing.T) (configPath, runnerPath string) {
	t.Helper()
	dir := t.TempDir()
	configPath = filepath.Join(dir, "master.yaml")
	runnerPath = filepath.Join(dir, "runners.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(testMasterConfig), 0o644))
	require.NoError(t, os.WriteFile(runnerPath, []byte(testRunnerConfig), 0o644))
	return configPath, runnerPath
}

// executeCommand runs the root command with args and captured streams.
func executeCommand(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	root := NewRootCommand()
	var out, errBuf bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errBuf)
	root.SetArgs(args)
	err = root.Execute()
	return out.String(), errBuf.String(), err
}

func TestGenerateJSON(t *testing.T) {
	configPath, runnerPath := writeTestConfigs(t)

	stdout, _, err := executeCommand(t,
		"generate", "--config", configPath, "--runner-config", runnerPath)
	require.NoError(t, err)

	var jobs []matrix.JobSpec
	require.NoError(t, json.Unmarshal([]byte(stdout), &jobs))

	// dsr1: 1 runner x 2 buckets x 3 concurrency values; qwen: 1 job.
	require.Len(t, jobs, 7)

	assert.Equal(t, "dsr1_1k1k", jobs[0].ExpName)
	assert.Equal(t, 4, jobs[0].Concurrency)
	assert.Equal(t, 16, jobs[2].Concurrency)
	assert.Equal(t, "dsr1_8k1k", jobs[3].ExpName)
	assert.Equal(t, 1024+1024+200, jobs[0].MaxModelLen)
	assert.Equal(t, "qwen_1k1k", jobs[6].ExpName)

	seen := make(map[string]bool)
	for _, j := range jobs {
		require.NotEmpty(t, j.Slug)
		require.False(t, seen[j.Slug], "slug %s emitted twice", j.Slug)
		seen[j.Slug] = true
	}
}

func TestGenerateDeterministic(t *testing.T) {
	configPath, runnerPath := writeTestConfigs(t)

	first, _, err := executeCommand(t,
		"generate", "--config", configPath, "--runner-config", runnerPath)
	require.NoError(t, err)
	second, _, err := executeCommand(t,
		"generate", "--config", configPath, "--runner-config", runnerPath)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestGenerateOnly(t *testing.T) {
	configPath, runnerPath := writeTestConfigs(t)

	stdout, _, err := executeCommand(t,
		"generate", "--config", configPath, "--runner-config", runnerPath,
		"--only", "qwen")
	require.NoError(t, err)

	var jobs []matrix.JobSpec
	require.NoError(t, json.Unmarshal([]byte(stdout), &jobs))
	require.Len(t, jobs, 1)
	assert.Equal(t, "qwen", jobs[0].ModelPrefix)
}

func TestGenerateOnlyUnknownKey(t *testing.T) {
	configPath, runnerPath := writeTestConfigs(t)

	_, _, err := executeCommand(t,
		"generate", "--config", configPath, "--runner-config", runnerPath,
		"--only", "nonexistent")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestGenerateFilters(t *testing.T) {
	configPath, runnerPath := writeTestConfigs(t)

	stdout, _, err := executeCommand(t,
		"generate", "--config", configPath, "--runner-config", runnerPath,
		"--framework", "sglang", "--precision", "bf16")
	require.NoError(t, err)

	var jobs []matrix.JobSpec
	require.NoError(t, json.Unmarshal([]byte(stdout), &jobs))
	require.Len(t, jobs, 1)
	assert.Equal(t, "qwen", jobs[0].ModelPrefix)
}

func TestGenerateFilterMatchesNothing(t *testing.T) {
	configPath, runnerPath := writeTestConfigs(t)

	stdout, _, err := executeCommand(t,
		"generate", "--config", configPath, "--runner-config", runnerPath,
		"--runner", "no-such-runner")
	require.NoError(t, err)
	assert.Equal(t, "[]\n", stdout)
}

func TestGenerateCSV(t *testing.T) {
	configPath, runnerPath := writeTestConfigs(t)

	stdout, _, err := executeCommand(t,
		"generate", "--config", configPath, "--runner-config", runnerPath,
		"--output-format", "csv")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(stdout, "\n"), "\n")
	require.Len(t, lines, 8) // header + 7 jobs
	assert.True(t, strings.HasPrefix(lines[0], "model,model_prefix,"))
}

func TestGenerateOutputFile(t *testing.T) {
	configPath, runnerPath := writeTestConfigs(t)
	outPath := filepath.Join(t.TempDir(), "jobs.json")

	stdout, _, err := executeCommand(t,
		"generate", "--config", configPath, "--runner-config", runnerPath,
		"--output", outPath)
	require.NoError(t, err)
	assert.Empty(t, stdout)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	var jobs []matrix.JobSpec
	require.NoError(t, json.Unmarshal(data, &jobs))
	assert.Len(t, jobs, 7)
}

func TestGenerateValidationFailure(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "master.yaml")
	runnerPath := filepath.Join(dir, "runners.yaml")
	// Unknown field and bad precision: both must be reported.
	bad := `dsr1:
  - model: org/dsr1-base
    precision: int8
    framework: vllm
    runners: [h100x8]
    seq-lens: [1k1k]
    sweep:
      conc-start: 4
      conc-end: 16
    turbo-mode: true
`
	require.NoError(t, os.WriteFile(configPath, []byte(bad), 0o644))
	require.NoError(t, os.WriteFile(runnerPath, []byte(testRunnerConfig), 0o644))

	_, _, err := executeCommand(t,
		"generate", "--config", configPath, "--runner-config", runnerPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestGenerateMissingConfigFile(t *testing.T) {
	_, runnerPath := writeTestConfigs(t)

	_, _, err := executeCommand(t,
		"generate", "--config", "/nonexistent/master.yaml", "--runner-config", runnerPath)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestGenerateUnknownRunnerReference(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "master.yaml")
	runnerPath := filepath.Join(dir, "runners.yaml")
	cfg := strings.Replace(testMasterConfig, "[h100x8]", "[gb200x72]", 1)
	require.NoError(t, os.WriteFile(configPath, []byte(cfg), 0o644))
	require.NoError(t, os.WriteFile(runnerPath, []byte(testRunnerConfig), 0o644))

	_, _, err := executeCommand(t,
		"generate", "--config", configPath, "--runner-config", runnerPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "gb200x72")
}

func TestGenerateInvalidOutputFormat(t *testing.T) {
	configPath, runnerPath := writeTestConfigs(t)

	_, _, err := executeCommand(t,
		"generate", "--config", configPath, "--runner-config", runnerPath,
		"--output-format", "xml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestGenerateFatalErrorPreservesOutputFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "master.yaml")
	runnerPath := filepath.Join(dir, "runners.yaml")
	// Two identical entries under one prefix pass the schema but resolve
	// to identical slugs, which is fatal at emission.
	entry := `  - model: org/dsr1-base
    precision: fp8
    framework: vllm
    runners: [h100x8]
    seq-lens: [1k1k]
    sweep:
      conc-start: 4
      conc-end: 4
    tensor-parallel: 8
`
	require.NoError(t, os.WriteFile(configPath, []byte("dsr1:\n"+entry+entry), 0o644))
	require.NoError(t, os.WriteFile(runnerPath, []byte(testRunnerConfig), 0o644))

	outPath := filepath.Join(dir, "jobs.json")
	previous := []byte(`[{"slug":"previous-good-artifact"}]`)
	require.NoError(t, os.WriteFile(outPath, previous, 0o644))

	_, _, err := executeCommand(t,
		"generate", "--config", configPath, "--runner-config", runnerPath,
		"--output", outPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	// The failed run must not have touched the earlier artifact.
	data, readErr := os.ReadFile(outPath)
	require.NoError(t, readErr)
	assert.Equal(t, previous, data)
}

func TestGenerateRecordsLedger(t *testing.T) {
	configPath, runnerPath := writeTestConfigs(t)
	ledgerPath := filepath.Join(t.TempDir(), "ledger.db")

	_, _, err := executeCommand(t,
		"generate", "--config", configPath, "--runner-config", runnerPath,
		"--ledger", ledgerPath)
	require.NoError(t, err)

	l, err := ledger.Open(ledgerPath)
	require.NoError(t, err)
	defer l.Close()

	runs, err := l.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 7, runs[0].JobCount)
	assert.NotEmpty(t, runs[0].InputHash)
}
