package session

import (
	"errors"
	"fmt"
)

// StepError reports the first failing step of the sequence. Code is the
// child's exit code, propagated unchanged to the process exit code.
type StepError struct {
	Step string
	Code int
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %q failed with exit code %d: %v", e.Step, e.Code, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// ExitCode maps a session error to the process exit code: nil is 0, a
// StepError yields the failing child's code, anything else is 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		return stepErr.Code
	}
	return 1
}
