package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"time"
)

// DefaultProcessTimeout is the wall-clock limit for a single external process.
const DefaultProcessTimeout = 60 * time.Second

// waitDelay bounds how long Wait blocks on output pipes after the process is killed.
const waitDelay = 5 * time.Second

// Result is the outcome of an external process that ran to completion.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Success reports whether the process exited with status 0.
func (r *Result) Success() bool {
	return r.ExitCode == 0
}

// Runner runs external processes.
type Runner interface {
	// Run starts name with args, writes stdin (if non-nil) and closes it, then
	// waits for the process to exit. A non-zero exit is reported through
	// Result, not as an error. Errors are ErrSpawn, ErrTimeout or a context error.
	Run(ctx context.Context, name string, args []string, stdin []byte) (*Result, error)
}

// Compile-time check that ExecRunner implements Runner.
var _ Runner = (*ExecRunner)(nil)

// ExecRunner implements Runner with os/exec. Each process gets its own process
// group so a timeout kills everything it spawned.
type ExecRunner struct {
	timeout time.Duration
	logger  *slog.Logger
}

// RunnerOption configures an ExecRunner.
type RunnerOption func(*ExecRunner)

// WithTimeout sets the per-process deadline. Non-positive values are ignored.
func WithTimeout(d time.Duration) RunnerOption {
	return func(r *ExecRunner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithRunnerLogger sets the logger used for process diagnostics.
func WithRunnerLogger(logger *slog.Logger) RunnerOption {
	return func(r *ExecRunner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewExecRunner creates an ExecRunner with a 60 second default timeout.
func NewExecRunner(opts ...RunnerOption) *ExecRunner {
	r := &ExecRunner{
		timeout: DefaultProcessTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Timeout returns the configured per-process deadline.
func (r *ExecRunner) Timeout() time.Duration {
	return r.timeout
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, name string, args []string, stdin []byte) (*Result, error) {
	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	// #nosec G204 - binaries are configured by the application, not user input
	cmd := exec.CommandContext(runCtx, name, args...)
	setProcessGroup(cmd)
	cmd.Cancel = func() error {
		return killProcessGroup(cmd.Process)
	}
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSpawn, name, err)
	}
	pid := cmd.Process.Pid

	waitErr := cmd.Wait()

	if runCtx.Err() != nil {
		r.ensureTerminated(name, pid)
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%s cancelled: %w", name, ctx.Err())
		}
		r.logger.Error("process timed out",
			slog.String("name", name),
			slog.Int("pid", pid),
			slog.Duration("timeout", r.timeout),
		)
		return nil, fmt.Errorf("%w: %s after %s", ErrTimeout, name, r.timeout)
	}

	if cmd.ProcessState == nil {
		return nil, fmt.Errorf("wait %s: %w", name, waitErr)
	}
	if waitErr != nil && !errors.Is(waitErr, exec.ErrWaitDelay) {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return nil, fmt.Errorf("wait %s: %w", name, waitErr)
		}
	}

	return &Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		ExitCode: cmd.ProcessState.ExitCode(),
	}, nil
}

// ensureTerminated re-checks that nothing from the killed process group is
// still alive and kills it again if it is.
func (r *ExecRunner) ensureTerminated(name string, pid int) {
	if !processGroupAlive(pid) {
		return
	}
	r.logger.Warn("process group survived kill, retrying",
		slog.String("name", name),
		slog.Int("pid", pid),
	)
	if err := killProcessGroupID(pid); err != nil {
		r.logger.Error("failed to kill process group",
			slog.String("name", name),
			slog.Int("pid", pid),
			slog.Any("error", err),
		)
	}
}
