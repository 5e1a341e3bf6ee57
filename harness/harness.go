package harness

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"time"
)

// ErrCollaboratorFailed is returned when a collaborator cannot be started,
// exits with a nonzero status, or is killed.
var ErrCollaboratorFailed = errors.New("collaborator failed")

// Runner launches a single collaborator program synchronously.
type Runner struct {
	Name       string
	BinaryPath string
	ExtraArgs  []string
	Env        []string
	Dir        string
	Timeout    time.Duration

	// Logger may be nil, in which case slog.Default is used.
	Logger *slog.Logger
}

// NewRunner creates a Runner for the named collaborator. ExtraArgs of cmd are
// placed before the per-call arguments, so a command such as
// "python src/trace.py" works as a collaborator. Env is appended to the
// inherited environment. A nil logger falls back to slog.Default.
func NewRunner(name string, cmd CommandConfig, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}

	return &Runner{
		Name:       name,
		BinaryPath: cmd.Binary,
		ExtraArgs:  cmd.ExtraArgs,
		Env:        cmd.Env,
		Logger:     logger.With(slog.String("collaborator", name)),
	}
}

// Run executes the collaborator with args and blocks until it exits.
// Stdout and stderr are captured. A nonzero exit status is reported as
// ErrCollaboratorFailed; the partial Result is still returned alongside it.
func (r *Runner) Run(ctx context.Context, args ...string) (*Result, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	fullArgs := make([]string, 0, len(r.ExtraArgs)+len(args))
	fullArgs = append(fullArgs, r.ExtraArgs...)
	fullArgs = append(fullArgs, args...)

	cmd := exec.CommandContext(ctx, r.BinaryPath, fullArgs...)
	cmd.Dir = r.Dir

	if len(r.Env) > 0 {
		cmd.Env = append(os.Environ(), r.Env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger := r.logger()

	logger.DebugContext(ctx, "starting collaborator",
		slog.String("binary", r.BinaryPath),
		slog.Any("args", fullArgs),
	)

	start := time.Now()
	runErr := cmd.Run()

	result := &Result{
		Name:     r.Name,
		Args:     args,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: cmd.ProcessState.ExitCode(),
		Elapsed:  time.Since(start),
	}

	if runErr != nil {
		return result, fmt.Errorf(
			"%w: %s %v: %w\nstderr: %s",
			ErrCollaboratorFailed, r.Name, args, runErr, result.Stderr,
		)
	}

	logger.DebugContext(ctx, "collaborator finished",
		slog.Duration("wall_time", result.Elapsed),
	)

	return result, nil
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}

	return r.Logger
}
