package llm

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeScript creates an executable stand-in for the model binary.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not supported on windows")
	}
	path := filepath.Join(t.TempDir(), "fake-runner")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func TestExecRunner_PipesPromptToModel(t *testing.T) {
	bin := writeScript(t, "cat")
	out, err := NewExecRunner(bin).RunModel(context.Background(), "paraphrase this", "llama3.2")
	require.NoError(t, err)
	assert.Equal(t, "paraphrase this\n", out)
}

func TestExecRunner_PassesRunAndModel(t *testing.T) {
	bin := writeScript(t, `cat >/dev/null; echo "$1 $2"`)
	out, err := NewExecRunner(bin).RunModel(context.Background(), "prompt", "mistral")
	require.NoError(t, err)
	assert.Equal(t, "run mistral\n", out)
}

func TestExecRunner_NonZeroExit(t *testing.T) {
	bin := writeScript(t, "cat >/dev/null; echo 'model not found' >&2; exit 3")
	_, err := NewExecRunner(bin).RunModel(context.Background(), "prompt", "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExit)

	var perr *ProcessError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 3, perr.ExitCode)
	assert.Contains(t, perr.Stderr, "model not found")
	assert.Contains(t, err.Error(), "exit code 3")
}

func TestExecRunner_ModelExitsWithoutReadingLongPrompt(t *testing.T) {
	bin := writeScript(t, "echo 'model not found' >&2; exit 1")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	start := time.Now()
	_, err := NewExecRunner(bin).RunModel(ctx, strings.Repeat("x", 100_000), "missing")
	assert.Less(t, time.Since(start), 5*time.Second)
	require.ErrorIs(t, err, ErrExit)
	assert.NotErrorIs(t, err, context.DeadlineExceeded)

	var perr *ProcessError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 1, perr.ExitCode)
	assert.Contains(t, perr.Stderr, "model not found")
}

func TestExecRunner_SpawnFailure(t *testing.T) {
	runner := NewExecRunner(filepath.Join(t.TempDir(), "does-not-exist"))
	_, err := runner.RunModel(context.Background(), "prompt", "llama3.2")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSpawn)
}

func TestExecRunner_SpawnFailureClosesPipe(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("counts descriptors through /proc")
	}
	openFDs := func() int {
		entries, err := os.ReadDir("/proc/self/fd")
		require.NoError(t, err)
		return len(entries)
	}
	runner := NewExecRunner(filepath.Join(t.TempDir(), "does-not-exist"))
	// first call initializes the runtime poller
	_, _ = runner.RunModel(context.Background(), "prompt", "llama3.2")
	before := openFDs()
	for i := 0; i < 5; i++ {
		_, err := runner.RunModel(context.Background(), "prompt", "llama3.2")
		require.ErrorIs(t, err, ErrSpawn)
	}
	assert.Equal(t, before, openFDs())
}

func TestExecRunner_FeederSpawnFailure(t *testing.T) {
	bin := writeScript(t, "cat")
	runner := NewExecRunner(bin)
	runner.Feeder = filepath.Join(t.TempDir(), "no-echo")
	_, err := runner.RunModel(context.Background(), "prompt", "llama3.2")
	assert.ErrorIs(t, err, ErrSpawn)
}

func TestExecRunner_Timeout(t *testing.T) {
	bin := writeScript(t, "exec sleep 10")
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := NewExecRunner(bin).RunModel(ctx, "prompt", "llama3.2")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, err, ErrExit)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestNewExecRunner_Defaults(t *testing.T) {
	r := NewExecRunner("")
	assert.Equal(t, DefaultBinary, r.Binary)
	assert.Equal(t, "echo", r.Feeder)
}

func TestProcessError_Message(t *testing.T) {
	err := &ProcessError{Op: "ollama", Kind: ErrExit, ExitCode: 1, Stderr: "  oops \n"}
	assert.Equal(t, "ollama: model process failed (exit code 1): oops", err.Error())
}
