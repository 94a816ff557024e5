package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kluth/npm-code-auditter/internal/analyzer"
	"github.com/kluth/npm-code-auditter/internal/graph"
	"github.com/kluth/npm-code-auditter/internal/reporter"
)

// writeProject creates root -> a@1.0.0 where a requires net and calls eval.
func writeProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"package.json":                `{"name": "root", "version": "1.0.0", "dependencies": {"a": "^1.0.0"}}`,
		"package-lock.json":           `{"name": "root", "version": "1.0.0", "lockfileVersion": 1, "dependencies": {"a": {"version": "1.0.0"}}}`,
		"node_modules/a/package.json": `{"name": "a", "version": "1.0.0"}`,
		"node_modules/a/index.js":     "const net = require('net');\nmodule.exports = (s) => eval(s);\n",
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

// isolate keeps the user's config and environment out of the test.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, key := range []string{"FORMAT", "SEVERITY", "FAIL_ON", "CONCURRENCY", "MAX_FILE_SIZE", "QUIET", "LOG_LEVEL"} {
		t.Setenv(envPrefix+key, "")
		os.Unsetenv(envPrefix + key)
	}
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func decodeReport(t *testing.T, out string) reporter.JSONReport {
	t.Helper()
	var got reporter.JSONReport
	require.NoError(t, json.Unmarshal([]byte(out), &got), out)
	return got
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr), "expected ExitError, got %v", err)
	return exitErr.Code
}

func TestScanJSON(t *testing.T) {
	isolate(t)
	dir := writeProject(t)

	out, stderr, err := execute(t, "scan", dir, "--json", "--verbose")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Scanning "+dir)

	got := decodeReport(t, out)
	assert.Equal(t, "root", got.Project)
	assert.Equal(t, []string{"a@1.0.0"}, got.Dependencies)
	assert.Equal(t, 2, got.Summary.Findings)
	require.Len(t, got.Packages, 1)
	assert.Equal(t, filepath.Join(dir, "node_modules", "a"), got.Packages[0].Path)
	require.Len(t, got.Packages[0].Findings, 2)
	assert.Equal(t, analyzer.CategoryRequiredIOModule, got.Packages[0].Findings[0].Category)
	assert.Equal(t, analyzer.CategoryEvalCall, got.Packages[0].Findings[1].Category)
}

func TestRootCommandScans(t *testing.T) {
	isolate(t)
	dir := writeProject(t)

	out, stderr, err := execute(t, dir, "--format", "markdown", "--quiet")
	require.NoError(t, err)
	assert.Empty(t, stderr)
	assert.Contains(t, out, "# npm Code Audit: root@1.0.0")
	assert.Contains(t, out, "| a | 1.0.0 | 2 | 2 |")
}

func TestScanSeverityFilter(t *testing.T) {
	isolate(t)
	dir := writeProject(t)

	out, _, err := execute(t, "scan", dir, "--json", "-q", "--severity", "high")
	require.NoError(t, err)
	assert.Equal(t, 1, decodeReport(t, out).Summary.Findings)
}

func TestScanFailOn(t *testing.T) {
	isolate(t)
	dir := writeProject(t)

	_, _, err := execute(t, "scan", dir, "-q", "--fail-on", "high")
	assert.Equal(t, 2, exitCode(t, err))

	_, _, err = execute(t, "scan", dir, "-q", "--fail-on", "critical")
	assert.NoError(t, err)
}

func TestScanOutputFile(t *testing.T) {
	isolate(t)
	dir := writeProject(t)
	outPath := filepath.Join(t.TempDir(), "report.sarif")

	out, _, err := execute(t, "scan", dir, "-q", "--format", "sarif", "--output", outPath)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"version": "2.1.0"`)
}

func TestScanPolicyFromConfig(t *testing.T) {
	isolate(t)
	dir := writeProject(t)
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(".codeauditter.yaml", []byte(`
quiet: true
policy:
  banned-categories: [EvalCall]
`), 0o644))

	_, stderr, err := execute(t, "scan")
	assert.Equal(t, 3, exitCode(t, err))
	assert.Contains(t, stderr, "Policy Violations Detected:")
	assert.Contains(t, stderr, "EvalCall")
	assert.NotContains(t, stderr, "Scanning")
}

func TestConfigInvalidPolicy(t *testing.T) {
	isolate(t)
	t.Chdir(writeProject(t))
	require.NoError(t, os.WriteFile(".codeauditter.yaml", []byte("policy:\n  banned-categories: [Nope]\n"), 0o644))

	_, _, err := execute(t, "scan")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown category "Nope"`)
}

func TestConfigTOML(t *testing.T) {
	isolate(t)
	t.Chdir(writeProject(t))
	require.NoError(t, os.WriteFile(".codeauditter.toml", []byte("format = \"json\"\nquiet = true\nseverity = \"high\"\n"), 0o644))

	out, _, err := execute(t, "scan")
	require.NoError(t, err)
	assert.Equal(t, 1, decodeReport(t, out).Summary.Findings)
}

func TestConfigHomeDirectory(t *testing.T) {
	isolate(t)
	dir := writeProject(t)
	home := os.Getenv("HOME")
	cfgDir := filepath.Join(home, ".config", "codeauditter")
	require.NoError(t, os.MkdirAll(cfgDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cfgDir, "config.yaml"), []byte("format: json\nquiet: true\n"), 0o644))

	out, stderr, err := execute(t, "scan", dir)
	require.NoError(t, err)
	assert.Empty(t, stderr)
	assert.Equal(t, 2, decodeReport(t, out).Summary.Findings)
}

func TestConfigPrecedence(t *testing.T) {
	isolate(t)
	t.Chdir(writeProject(t))
	require.NoError(t, os.WriteFile(".codeauditter.yaml", []byte("format: markdown\nquiet: true\n"), 0o644))

	out, _, err := execute(t, "scan")
	require.NoError(t, err)
	assert.Contains(t, out, "# npm Code Audit")

	t.Setenv("CODEAUDITTER_FORMAT", "json")
	out, _, err = execute(t, "scan")
	require.NoError(t, err)
	decodeReport(t, out)

	out, _, err = execute(t, "scan", "--format", "markdown")
	require.NoError(t, err)
	assert.Contains(t, out, "# npm Code Audit")
}

func TestDotEnv(t *testing.T) {
	isolate(t)
	t.Chdir(writeProject(t))
	require.NoError(t, os.WriteFile(".env", []byte("CODEAUDITTER_FORMAT=json\nCODEAUDITTER_QUIET=true\n"), 0o644))

	out, stderr, err := execute(t, "scan")
	require.NoError(t, err)
	assert.Empty(t, stderr)
	decodeReport(t, out)
}

func TestListRules(t *testing.T) {
	isolate(t)
	for _, args := range [][]string{{"--list-rules"}, {"scan", "--list-rules"}} {
		out, _, err := execute(t, args...)
		require.NoError(t, err)
		assert.Contains(t, out, "CATEGORY")
		assert.Contains(t, out, "ObfuscatedRequireIdentifier")
		assert.Contains(t, out, "Total: 17 rules")
	}
}

func TestInvalidOptions(t *testing.T) {
	isolate(t)
	dir := writeProject(t)
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"format", []string{"--format", "html"}, "html"},
		{"severity", []string{"--severity", "extreme"}, "invalid severity"},
		{"fail-on", []string{"--fail-on", "LOW"}, "invalid severity"},
		{"quiet and verbose", []string{"-q", "-v"}, "mutually exclusive"},
		{"concurrency", []string{"--concurrency", "0"}, "at least 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, append([]string{"scan", dir}, tt.args...)...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestScanMissingManifest(t *testing.T) {
	isolate(t)
	_, _, err := execute(t, "scan", t.TempDir(), "-q")
	assert.ErrorIs(t, err, graph.ErrManifestNotFound)
}

func TestRunReportsErrors(t *testing.T) {
	isolate(t)

	t.Run("missing manifest", func(t *testing.T) {
		dir := t.TempDir()
		var stdout, stderr bytes.Buffer
		code := run(context.Background(), []string{dir, "-q"}, &stdout, &stderr)
		assert.Equal(t, 1, code)
		assert.Empty(t, stdout.String())
		assert.Contains(t, stderr.String(), "Error: ")
		assert.Contains(t, stderr.String(), graph.ErrManifestNotFound.Error())
		assert.Contains(t, stderr.String(), filepath.Join(dir, "package.json"))
	})

	t.Run("unknown flag", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		code := run(context.Background(), []string{"--no-such-flag"}, &stdout, &stderr)
		assert.Equal(t, 1, code)
		assert.Contains(t, stderr.String(), "no-such-flag")
	})

	t.Run("fail-on", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		code := run(context.Background(), []string{"scan", writeProject(t), "-q", "--fail-on", "low"}, &stdout, &stderr)
		assert.Equal(t, 2, code)
		assert.Contains(t, stderr.String(), `findings at or above "low" severity detected`)
		assert.NotContains(t, stderr.String(), "Error: ")
	})

	t.Run("success", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		code := run(context.Background(), []string{"scan", writeProject(t), "-q", "--format", "json"}, &stdout, &stderr)
		assert.Equal(t, 0, code)
		assert.Empty(t, stderr.String())
		assert.Equal(t, "root", decodeReport(t, stdout.String()).Project)
	})
}

func TestCheckFailOn(t *testing.T) {
	root := &graph.Node{Name: "root", Version: "1.0.0"}
	assert.NoError(t, checkFailOn(reporter.NewReport(root, "/p"), "low"))

	root.Children = []*graph.Node{{
		Name: "a", Version: "1.0.0",
		Findings: []analyzer.Finding{{Category: analyzer.CategoryProcessEnvAccess, Severity: analyzer.SeverityMedium}},
	}}
	report := reporter.NewReport(root, "/p")
	assert.Error(t, checkFailOn(report, "medium"))
	assert.NoError(t, checkFailOn(report, "high"))
}

func toolText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	switch c := res.Content[0].(type) {
	case mcp.TextContent:
		return c.Text
	case *mcp.TextContent:
		return c.Text
	}
	t.Fatalf("unexpected content %T", res.Content[0])
	return ""
}

func toolRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func TestMcpScanProject(t *testing.T) {
	dir := writeProject(t)
	opts := &options{concurrency: 2, quiet: true, stdout: io.Discard, stderr: io.Discard}
	handler := handleScanProject(opts)

	res, err := handler(context.Background(), toolRequest(map[string]any{"path": dir, "verbose": true}))
	require.NoError(t, err)
	require.False(t, res.IsError, toolText(t, res))
	got := decodeReport(t, toolText(t, res))
	assert.Equal(t, 2, got.Summary.Findings)
	assert.Len(t, got.Packages[0].Findings, 2)

	res, err = handler(context.Background(), toolRequest(map[string]any{"path": dir}))
	require.NoError(t, err)
	assert.Empty(t, decodeReport(t, toolText(t, res)).Packages[0].Findings)

	res, err = handler(context.Background(), toolRequest(map[string]any{"path": t.TempDir()}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, toolText(t, res), "manifest not found")

	res, err = handler(context.Background(), toolRequest(map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestMcpListRules(t *testing.T) {
	res, err := handleListRules(context.Background(), toolRequest(nil))
	require.NoError(t, err)
	assert.Contains(t, toolText(t, res), "Total: 17 rules")
}

func TestMcpServerTools(t *testing.T) {
	s := newMcpServer(&options{concurrency: 1, stdout: io.Discard, stderr: io.Discard})
	require.NotNil(t, s)
}
