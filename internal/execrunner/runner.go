// Package execrunner abstracts external process invocation (docker compose,
// git, and service health probes shelled out to system tools) behind a
// narrow interface so the supervisor's phase logic can be tested without
// spawning real subprocesses.
package execrunner

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/edgesoc/ids2-supervisor/internal/apperrors"
)

// Runner executes external commands with a hard deadline.
type Runner interface {
	// Run executes name with args, waiting up to timeout. It returns the
	// captured stdout/stderr regardless of exit status; err is non-nil for
	// a non-zero exit, a timeout, or a failure to start the process.
	Run(ctx context.Context, timeout time.Duration, name string, args ...string) (stdout, stderr string, err error)
}

// OSRunner runs commands via os/exec. It is the production Runner.
type OSRunner struct{}

// NewOSRunner returns a Runner backed by the real operating system.
func NewOSRunner() *OSRunner {
	return &OSRunner{}
}

func (OSRunner) Run(ctx context.Context, timeout time.Duration, name string, args ...string) (string, string, error) {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if runCtx.Err() != nil {
		return stdout.String(), stderr.String(), fmt.Errorf("%w: %s %v exceeded %s", apperrors.ErrSubprocessTimeout, name, args, timeout)
	}
	if err != nil {
		return stdout.String(), stderr.String(), fmt.Errorf("run %s %v: %w", name, args, err)
	}
	return stdout.String(), stderr.String(), nil
}
