package bootstrap

import (
	"time"

	"go.uber.org/multierr"
)

// Status of a step after a run
type Status string

// Step statuses
const (
	Succeeded Status = "succeeded"
	Failed    Status = "failed"
	Skipped   Status = "skipped"
	NotRun    Status = "not run"
	Cancelled Status = "cancelled"
)

// Outcome of a single step
type Outcome struct {
	Step    string
	Status  Status
	Err     error
	Elapsed time.Duration
}

// Report of a run. Outcomes are listed in the order steps were declared, whatever the execution mode.
type Report struct {
	Outcomes []Outcome
	Elapsed  time.Duration

	// Interrupted holds the error of the parent context, when it was done before all steps completed
	Interrupted error
}

// Failures returns the outcomes of failed steps
func (r Report) Failures() []Outcome {
	var failures []Outcome
	for _, outcome := range r.Outcomes {
		if outcome.Status == Failed {
			failures = append(failures, outcome)
		}
	}
	return failures
}

// FirstFailure returns the outcome of the first failed step, in declaration order
func (r Report) FirstFailure() (Outcome, bool) {
	failures := r.Failures()
	if len(failures) == 0 {
		return Outcome{}, false
	}
	return failures[0], true
}

// Err joins the errors of all failed steps
func (r Report) Err() error {
	var err error
	for _, outcome := range r.Failures() {
		err = multierr.Append(err, &StepError{Step: outcome.Step, Err: outcome.Err})
	}
	return multierr.Append(err, r.Interrupted)
}

// StepError is the failure of a named step
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return e.Step + ": " + e.Err.Error()
}

// Unwrap the cause of the failure
func (e *StepError) Unwrap() error {
	return e.Err
}
