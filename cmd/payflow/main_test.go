package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Veraticus/payflow/internal/common"
	"github.com/Veraticus/payflow/internal/testutil"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cliEnv struct {
	t    *testing.T
	dir  string
	db   string
	root string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()

	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, ".config"))
	viper.Reset()
	t.Cleanup(viper.Reset)

	return &cliEnv{
		t:    t,
		dir:  dir,
		db:   filepath.Join(dir, "payflow.db"),
		root: filepath.Join(dir, "workspaces"),
	}
}

// run executes one command line against the environment's database and
// workspace root.
func (e *cliEnv) run(stdin string, args ...string) (string, error) {
	e.t.Helper()

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(append([]string{"--db", e.db, "--root", e.root, "--log-level", "error"}, args...))
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&out)

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (e *cliEnv) mustRun(args ...string) string {
	e.t.Helper()
	out, err := e.run("", args...)
	require.NoError(e.t, err, out)
	return out
}

func (e *cliEnv) seedUploads() []string {
	e.t.Helper()
	uploads := filepath.Join(e.dir, "uploads")
	require.NoError(e.t, os.MkdirAll(uploads, 0o750))

	return []string{
		testutil.WriteCSV(e.t, uploads, "facts.csv", [][]string{
			{"employee_name", "metric_code", "metric_value"},
			{"张三", "HOUR_TOTAL", "160"},
			{"张三", "AMOUNT_BASE", "10000"},
			{"张三", "AMOUNT_ALLOW", "500"},
		}),
		testutil.WriteCSV(e.t, uploads, "policy.csv", [][]string{
			{"employee_name_norm", "mode", "base_amount", "ot_weekday_rate", "ot_weekend_rate", "social_security_json"},
			{"张三", "SALARIED", "10000", "50", "80", `{"employee": 0.1}`},
		}),
	}
}

func TestPayrollWorkflow(t *testing.T) {
	env := newCLIEnv(t)

	out := env.mustRun("workspace", "create", "2025-03")
	assert.Contains(t, out, "2025-03")

	uploads := env.seedUploads()
	out = env.mustRun("ingest", "2025-03", filepath.Dir(uploads[0]))
	assert.Contains(t, out, "facts.csv")
	assert.Contains(t, out, "policy.csv")
	assert.NotContains(t, out, "files failed")

	out = env.mustRun("facts", "2025-03", "--employee", "张三")
	assert.Contains(t, out, "HOUR_TOTAL")

	out = env.mustRun("calc", "2025-03", "--yes")
	assert.Contains(t, out, "9215.00")
	assert.FileExists(t, filepath.Join(env.root, "2025-03", "results", "payroll_2025-03.json"))

	out = env.mustRun("results", "2025-03")
	assert.Contains(t, out, "张三")
	assert.Contains(t, out, "9215.00")

	exportDir := filepath.Join(env.dir, "out")
	env.mustRun("export", "2025-03", "--format", "bank", "--out", exportDir)
	data, err := os.ReadFile(filepath.Join(exportDir, "bank_payroll_2025-03.csv"))
	require.NoError(t, err)
	assert.Equal(t, "employee,amount,period\n张三,9215.00,2025-03\n", string(data))

	out = env.mustRun("checkpoint", "2025-03", "review_data")
	assert.Contains(t, out, "review_data")
}

func TestFactsMatchSuggestsNames(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun("workspace", "create", "2025-03")
	env.mustRun(append([]string{"ingest", "2025-03"}, env.seedUploads()...)...)

	out := env.mustRun("facts", "2025-03", "--match", "张 四")
	assert.Contains(t, out, "SIMILARITY")
	assert.Contains(t, out, "张三")
	assert.Contains(t, out, "0.50")
}

func TestCalcAsksBeforeReplacingResults(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun("workspace", "create", "2025-03")
	env.mustRun(append([]string{"ingest", "2025-03"}, env.seedUploads()...)...)
	env.mustRun("calc", "2025-03", "--yes")

	out, err := env.run("n\n", "calc", "2025-03")
	require.NoError(t, err)
	assert.Contains(t, out, "Replace 1 stored results for 2025-03?")
	assert.Contains(t, out, "Kept the stored results")

	out, err = env.run("y\n", "calc", "2025-03")
	require.NoError(t, err)
	assert.Contains(t, out, "9215.00")
}

func TestMissingWorkspaceIsUserError(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run("", "calc", "2025-04", "--yes")
	require.Error(t, err)

	var userErr *common.UserError
	require.True(t, errors.As(err, &userErr))
	assert.Contains(t, userErr.UserMessage, "payflow workspace create 2025-04")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestExportWithoutResults(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun("workspace", "create", "2025-03")

	_, err := env.run("", "export", "2025-03", "--format", "bank")
	assert.ErrorIs(t, err, common.ErrNoResults)
}

func TestCheckpointRejectsUnknownStatus(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun("workspace", "create", "2025-03")

	_, err := env.run("", "checkpoint", "2025-03", "review_data", "maybe")
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}

func TestVersion(t *testing.T) {
	env := newCLIEnv(t)
	assert.Contains(t, env.mustRun("version"), "payflow dev")
}

func TestCollectPaths(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "b.csv", []byte("x"))
	testutil.WriteFile(t, dir, "a.xlsx", []byte("x"))
	testutil.WriteFile(t, dir, ".DS_Store", []byte("x"))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o750))
	single := testutil.WriteFile(t, t.TempDir(), "policy.json", []byte("{}"))
	missing := filepath.Join(dir, "missing.csv")

	paths, err := collectPaths([]string{dir, single, missing})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.xlsx"),
		filepath.Join(dir, "b.csv"),
		single,
		missing,
	}, paths)
}
