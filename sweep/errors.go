package sweep

import (
	"errors"
	"fmt"
)

// ErrMalformedOutput is returned when analyzer output has too few fields.
var ErrMalformedOutput = errors.New("malformed analyzer output")

// Step names a phase of a sweep iteration.
type Step string

// Phases of a sweep iteration, in execution order.
const (
	StepGenerate       Step = "generate"
	StepAnalyzeUnfused Step = "analyze unfused"
	StepAnalyzeFused   Step = "analyze fused"
)

// StepError records which iteration and phase of the sweep failed.
type StepError struct {
	LoopSize int
	Step     Step
	Err      error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("loop size %d: %s: %v", e.LoopSize, e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
