package deploy

import (
	"context"
	"fmt"
	"time"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
	StatusCanceled  Status = "canceled"
)

// Step is one unit of the workflow.
type Step struct {
	Name string
	// DependsOn names steps that must succeed first.
	DependsOn []string
	// Gate decides whether the step runs at all. A closed gate skips the
	// step without failing the run. Nil means always open.
	Gate func(*State) (bool, string)
	Run  func(context.Context, *State) (string, error)
}

// StepResult is the outcome of one step.
type StepResult struct {
	Name     string        `json:"name"`
	Status   Status        `json:"status"`
	Detail   string        `json:"detail,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// StepError is returned by a run whose step failed.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
