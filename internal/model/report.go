package model

import (
	"fmt"

	"github.com/google/uuid"
)

type StepStatus string

const (
	StepApplied StepStatus = "applied"
	StepSkipped StepStatus = "skipped"
	StepFailed  StepStatus = "failed"
)

// StepResult is the outcome of one write in a cascade.
type StepResult struct {
	Step   string     `json:"step"`
	Status StepStatus `json:"status"`
	Detail string     `json:"detail,omitempty"`
	Err    error      `json:"-"`
}

// Report collects the tagged step results of one cascade. Steps are appended
// by the goroutine driving the cascade; nested cascades get their own Report.
type Report struct {
	Operation string       `json:"operation"`
	Subject   uuid.UUID    `json:"subject"`
	Steps     []StepResult `json:"steps"`
	Nested    []*Report    `json:"nested,omitempty"`
}

func NewReport(operation string, subject uuid.UUID) *Report {
	return &Report{Operation: operation, Subject: subject}
}

func (r *Report) Applied(step, detail string) {
	r.Steps = append(r.Steps, StepResult{Step: step, Status: StepApplied, Detail: detail})
}

func (r *Report) Skipped(step, detail string) {
	r.Steps = append(r.Steps, StepResult{Step: step, Status: StepSkipped, Detail: detail})
}

// Fail records a failed step and returns err unchanged.
func (r *Report) Fail(step string, err error) error {
	r.Steps = append(r.Steps, StepResult{Step: step, Status: StepFailed, Detail: err.Error(), Err: err})
	return err
}

func (r *Report) Nest(child *Report) {
	if child != nil {
		r.Nested = append(r.Nested, child)
	}
}

// Failure returns the first failed step, searching nested reports.
func (r *Report) Failure() (StepResult, bool) {
	if r == nil {
		return StepResult{}, false
	}
	for _, s := range r.Steps {
		if s.Status == StepFailed {
			return s, true
		}
	}
	for _, n := range r.Nested {
		if s, ok := n.Failure(); ok {
			return s, true
		}
	}
	return StepResult{}, false
}

// Step looks up a step by name in this report only.
func (r *Report) Step(name string) (StepResult, bool) {
	for _, s := range r.Steps {
		if s.Step == name {
			return s, true
		}
	}
	return StepResult{}, false
}

func (r *Report) String() string {
	return fmt.Sprintf("%s %s (%d steps, %d nested)", r.Operation, r.Subject, len(r.Steps), len(r.Nested))
}
