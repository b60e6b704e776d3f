package llm

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"time"
)

const (
	// DefaultBinary is the model runner invoked as `<binary> run <model>`.
	DefaultBinary = "ollama"
	defaultFeeder = "echo"
	waitDelay     = 2 * time.Second
)

// ExecRunner pipes the prompt from an echo process into `<Binary> run
// <model>` and captures the model's stdout and stderr.
type ExecRunner struct {
	Binary string
	// Feeder streams the prompt; it is invoked as `<Feeder> <prompt>`.
	Feeder string
}

// NewExecRunner creates a runner for the given model binary.
func NewExecRunner(binary string) *ExecRunner {
	if binary == "" {
		binary = DefaultBinary
	}
	return &ExecRunner{Binary: binary, Feeder: defaultFeeder}
}

// RunModel blocks until the model process closes its output and exits.
// Cancelling ctx kills both processes.
func (r *ExecRunner) RunModel(ctx context.Context, prompt, model string) (string, error) {
	feeder := r.Feeder
	if feeder == "" {
		feeder = defaultFeeder
	}
	binary := r.Binary
	if binary == "" {
		binary = DefaultBinary
	}

	feed := exec.CommandContext(ctx, feeder, prompt)
	run := exec.CommandContext(ctx, binary, "run", model)
	feed.WaitDelay = waitDelay
	run.WaitDelay = waitDelay

	// Both ends are closed in the parent once the children hold them, so a
	// model that exits without reading breaks the feeder's pipe.
	pr, pw, err := os.Pipe()
	if err != nil {
		return "", &ProcessError{Op: "pipe", Kind: ErrSpawn, Err: err}
	}
	var stdout, stderr bytes.Buffer
	feed.Stdout = pw
	run.Stdin = pr
	run.Stdout = &stdout
	run.Stderr = &stderr

	if err := run.Start(); err != nil {
		_ = pr.Close()
		_ = pw.Close()
		return "", &ProcessError{Op: binary, Kind: ErrSpawn, Err: err}
	}
	_ = pr.Close()
	err = feed.Start()
	_ = pw.Close()
	if err != nil {
		_ = run.Process.Kill()
		_ = run.Wait()
		return "", &ProcessError{Op: feeder, Kind: ErrSpawn, Err: err}
	}
	// The feeder may die of SIGPIPE when the model stops reading early; only
	// the model's exit status decides the outcome.
	_ = feed.Wait()
	runErr := run.Wait()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", &ProcessError{Op: binary, Kind: ErrExit, Stderr: stderr.String(), Err: ctxErr}
	}
	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			return "", &ProcessError{Op: binary, Kind: ErrExit, Stderr: stderr.String(), Err: runErr}
		}
		// ExitCode is -1 when the process was ended by a signal; that carries
		// no exit status and the captured output is kept.
		if code := exitErr.ExitCode(); code != -1 {
			return "", &ProcessError{Op: binary, Kind: ErrExit, ExitCode: code, Stderr: stderr.String()}
		}
	}
	return stdout.String(), nil
}
