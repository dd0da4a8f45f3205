package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-frames/common"
	"github.com/Carmen-Shannon/oxy-frames/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runArgs(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	t.Cleanup(func() { common.SetLogger(nil) })
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestList(t *testing.T) {
	code, out, _ := runArgs(t, "-list")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "adder")
	assert.Contains(t, out, "synchronous")
	assert.Contains(t, out, "offscreen")
}

func TestHelp(t *testing.T) {
	code, _, errOut := runArgs(t, "-h")
	assert.Equal(t, 0, code)
	assert.Contains(t, errOut, "-sample")
}

func TestBadArguments(t *testing.T) {
	code, _, _ := runArgs(t, "-nope")
	assert.Equal(t, 1, code)

	code, _, errOut := runArgs(t, "extra")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "unexpected arguments")

	code, _, errOut = runArgs(t, "-backend", "metal")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "metal")
}

func TestUnknownSample(t *testing.T) {
	code, _, errOut := runArgs(t, "-sample", "teapot")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, `unknown sample "teapot"`)
}

func TestAdderVerifiesOnSoftware(t *testing.T) {
	code, _, errOut := runArgs(t, "-sample", "adder", "-backend", "software")
	assert.Equal(t, 0, code, errOut)
	assert.Contains(t, errOut, "verification passed")
}

func TestInteractiveSampleRunsHeadless(t *testing.T) {
	code, _, errOut := runArgs(t, "-sample", "clear", "-frames", "2")
	assert.Equal(t, 0, code, errOut)
	assert.Contains(t, errOut, "presented=2")
}

func TestWriteConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.toml")
	code, _, errOut := runArgs(t, "-sample", "triangle", "-frames", "5", "-write-config", path)
	require.Equal(t, 0, code, errOut)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "triangle", cfg.Sample)
	assert.Equal(t, 5, cfg.Frames)

	// Flags given on the command line override the file.
	o, err := parseFlags([]string{"-config", path, "-frames", "7"}, &bytes.Buffer{})
	require.NoError(t, err)
	cfg, err = loadConfig(o)
	require.NoError(t, err)
	assert.Equal(t, "triangle", cfg.Sample)
	assert.Equal(t, 7, cfg.Frames)
}

func TestMissingConfigFile(t *testing.T) {
	code, _, _ := runArgs(t, "-config", filepath.Join(t.TempDir(), "missing.toml"))
	assert.Equal(t, 1, code)
}

func TestWriteConfigUnwritable(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	code, _, _ := runArgs(t, "-write-config", filepath.Join(dir, "sub"))
	assert.Equal(t, 1, code)
}
