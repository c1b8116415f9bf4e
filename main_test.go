package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskbox/taskbox/launch"
)

// stubRuntime installs a fake docker CLI as the only thing on PATH and
// returns the file it records its argument vector to.
func stubRuntime(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	outFile := filepath.Join(dir, "argv.txt")
	script := `#!/bin/sh
printf '%s\n' "$@" > "` + outFile + `"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "docker"), []byte(script), 0o755))
	t.Setenv("PATH", dir)
	return outFile
}

func recordedArgs(t *testing.T, outFile string) []string {
	t.Helper()
	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

func TestRun_FlagsOverrideTask(t *testing.T) {
	outFile := stubRuntime(t)
	workDir := t.TempDir()
	taskfileYAML := `defaults:
  network: host
  mounts: [.]
tasks:
  job:
    image: carlosgalvezp/fcnd_term1:latest
    command: python controls_flyer.py
    interactive: true
    tty: true
`
	require.NoError(t, os.WriteFile(filepath.Join(workDir, "taskbox.yaml"), []byte(taskfileYAML), 0o644))
	t.Setenv(fileEnv, "")
	t.Chdir(workDir)
	wd, err := os.Getwd()
	require.NoError(t, err)

	code := run(context.Background(), []string{
		"--pull", "never", "--runtime", "docker",
		"--network", "none", "--tty=false",
		"job", "--", "echo", "hi",
	})

	require.Equal(t, 0, code)
	// Explicitly set flags replaced the task's network and tty; fields no
	// flag touched kept their task or defaults value.
	got := recordedArgs(t, outFile)
	assert.Equal(t, []string{
		"run", "--rm",
		"--volume", wd + ":" + wd,
		"--workdir", wd,
		"--network", "none",
		"--interactive",
		"carlosgalvezp/fcnd_term1:latest",
		"echo", "hi",
	}, got)
	assert.NotContains(t, got, "--tty")
}

func TestRun_TooManyArguments(t *testing.T) {
	code := run(context.Background(), []string{"flyer", "visdom"})

	assert.Equal(t, launch.ExitInternal, code)
}

func TestSplitCommand(t *testing.T) {
	flags, command := splitCommand([]string{"--network", "host", "job", "--", "echo", "hi"})
	assert.Equal(t, []string{"--network", "host", "job"}, flags)
	assert.Equal(t, []string{"echo", "hi"}, command)

	flags, command = splitCommand([]string{"job"})
	assert.Equal(t, []string{"job"}, flags)
	assert.Nil(t, command)

	flags, command = splitCommand([]string{"--", "true"})
	assert.Empty(t, flags)
	assert.Equal(t, []string{"true"}, command)
}
