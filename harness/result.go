// Package harness manages execution of the collaborator programs a sweep
// drives: the trace generator and the trace analyzer.
package harness

import "time"

// Result holds the captured output of a single collaborator execution.
type Result struct {
	Name     string
	Args     []string
	Stdout   string
	Stderr   string
	ExitCode int
	Elapsed  time.Duration
}
