package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baxromumarov/logmap/procpool"
)

func TestMain(m *testing.M) {
	procpool.MaybeServe()
	os.Exit(m.Run())
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	cmd := newRootCmd(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestLevels(t *testing.T) {
	out, err := run(t, "--level", "trace", "--format", "json", "levels")
	require.NoError(t, err)

	for _, name := range []string{"TRACE", "DEBUG", "INFO", "WARNING", "ERROR"} {
		assert.Contains(t, out, "this is "+name)
	}
	assert.Contains(t, out, "⎾ levels")
	assert.Contains(t, out, "⎿ ")
}

func TestLevelsRespectsMinimum(t *testing.T) {
	out, err := run(t, "--level", "warning", "--format", "json", "levels")
	require.NoError(t, err)

	assert.NotContains(t, out, "this is DEBUG")
	assert.Contains(t, out, "this is WARNING")
}

func TestQuietFlag(t *testing.T) {
	out, err := run(t, "--quiet", "--format", "json", "levels")
	require.NoError(t, err)
	assert.Empty(t, strings.TrimSpace(out))
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logmap.yaml")
	require.NoError(t, os.WriteFile(path, []byte("level: ERROR\nformat: json\n"), 0o600))

	out, err := run(t, "--config", path, "levels")
	require.NoError(t, err)
	assert.Contains(t, out, "this is ERROR")
	assert.NotContains(t, out, "this is INFO")
}

func TestBadLevel(t *testing.T) {
	_, err := run(t, "--level", "loud", "levels")
	assert.Error(t, err)
}

func TestDemo(t *testing.T) {
	out, err := run(t, "--format", "json", "--workers", "2", "demo", "-n", "6", "--ordered")
	require.NoError(t, err)
	assert.Contains(t, out, "sum of inputs is 21")
	assert.Contains(t, out, "got 6 squares, first [1 4 9 16 25]")
}

func TestDemoProcesses(t *testing.T) {
	out, err := run(t, "--format", "json", "--workers", "2", "demo", "-n", "4", "--processes", "--ordered")
	require.NoError(t, err)
	assert.Contains(t, out, "got 4 squares, first [1 4 9 16]")
}

func TestDemoFail(t *testing.T) {
	out, err := run(t, "--format", "json", "demo", "-n", "2", "--fail")
	require.ErrorIs(t, err, errDemo)
	assert.Equal(t, 1, strings.Count(out, "errorString demo failure requested"))
}

func TestNap(t *testing.T) {
	out, err := run(t, "--format", "json", "nap", "--up-to", "10ms", "--times", "2")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "napping for"))
}

func TestMetricsAddr(t *testing.T) {
	_, err := run(t, "--format", "json", "--metrics-addr", "127.0.0.1:0", "levels")
	require.NoError(t, err)
}

func TestMetricsServerNotStartedOnBadConfig(t *testing.T) {
	var buf bytes.Buffer
	a := &app{out: &buf}
	cmd := a.rootCmd()
	cmd.SetArgs([]string{"--metrics-addr", "127.0.0.1:0", "--level", "loud", "levels"})

	require.Error(t, cmd.Execute())
	assert.Nil(t, a.server)
	assert.Nil(t, a.lg)
}
