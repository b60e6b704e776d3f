package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Runner executes a prompt against a locally hosted model and returns the
// raw generated text.
type Runner interface {
	RunModel(ctx context.Context, prompt, model string) (string, error)
}

var (
	// ErrSpawn marks failures to start the model process.
	ErrSpawn = errors.New("model process could not be started")
	// ErrExit marks a model process that ended unsuccessfully.
	ErrExit = errors.New("model process failed")
)

// ProcessError describes a failed model invocation.
type ProcessError struct {
	Op       string
	Kind     error // ErrSpawn or ErrExit
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ProcessError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %v", e.Op, e.Kind)
	if e.ExitCode != 0 {
		fmt.Fprintf(&b, " (exit code %d)", e.ExitCode)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if s := strings.TrimSpace(e.Stderr); s != "" {
		fmt.Fprintf(&b, ": %s", s)
	}
	return b.String()
}

func (e *ProcessError) Unwrap() []error {
	errs := []error{e.Kind}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}
