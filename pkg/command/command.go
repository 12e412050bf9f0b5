package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"go.uber.org/zap"
)

// Spec describes a single external invocation. The only contract with the
// child process is its exit code; stdout is discarded.
type Spec struct {
	Name string
	Args []string
	Dir  string
}

func (s Spec) String() string {
	if len(s.Args) == 0 {
		return s.Name
	}
	return fmt.Sprintf("%s %v", s.Name, s.Args)
}

// Executor runs external commands with an explicit environment.
type Executor interface {
	Run(ctx context.Context, spec Spec, env []string) error
}

// ExitError reports a command that started but terminated with a non-zero
// exit code.
type ExitError struct {
	Cmd  string
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("command %q exited with code %d", e.Cmd, e.Code)
}

// ExitCode maps an execution error to a process exit code: nil is 0, an
// ExitError yields the child's code unchanged, anything else (command not
// found, failure to start) is 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return 1
}

// ExecExecutor is the os/exec backed Executor used outside of tests.
type ExecExecutor struct{}

func NewExecExecutor() *ExecExecutor {
	return &ExecExecutor{}
}

func (e *ExecExecutor) Run(ctx context.Context, spec Spec, env []string) error {
	zap.S().Named("command").Debugw("running command", "cmd", spec.Name, "args", spec.Args, "dir", spec.Dir)

	cmd := exec.CommandContext(ctx, spec.Name, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.Env = env
	cmd.Stdout = io.Discard
	cmd.Stderr = os.Stderr

	err := cmd.Run()
	if err == nil {
		return nil
	}

	var execErr *exec.ExitError
	if errors.As(err, &execErr) {
		return &ExitError{Cmd: spec.String(), Code: execErr.ExitCode()}
	}
	return fmt.Errorf("failed to run %q: %w", spec.String(), err)
}
