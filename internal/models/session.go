package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type SessionStatus string

const (
	SessionStatusRunning     SessionStatus = "running"
	SessionStatusPassed      SessionStatus = "passed"
	SessionStatusFailed      SessionStatus = "failed"
	SessionStatusInterrupted SessionStatus = "interrupted"
)

func ParseSessionStatus(s string) (SessionStatus, error) {
	switch s {
	case "running":
		return SessionStatusRunning, nil
	case "passed":
		return SessionStatusPassed, nil
	case "failed":
		return SessionStatusFailed, nil
	case "interrupted":
		return SessionStatusInterrupted, nil
	default:
		return "", fmt.Errorf("invalid session status: %s", s)
	}
}

type StepStatus string

const (
	StepStatusPassed StepStatus = "passed"
	StepStatusFailed StepStatus = "failed"
)

func ParseStepStatus(s string) (StepStatus, error) {
	switch s {
	case "passed":
		return StepStatusPassed, nil
	case "failed":
		return StepStatusFailed, nil
	default:
		return "", fmt.Errorf("invalid step status: %s", s)
	}
}

// Session is one test-session run: the fixed invocation sequence executed
// against a single endpoint.
type Session struct {
	ID         uuid.UUID
	Status     SessionStatus
	ExitCode   int
	StartedAt  time.Time
	FinishedAt time.Time
}

// StepResult is the outcome of one step of the invocation sequence.
type StepResult struct {
	SessionID uuid.UUID
	Position  int
	Name      string
	Status    StepStatus
	ExitCode  int
	Duration  time.Duration
	StartedAt time.Time
}
