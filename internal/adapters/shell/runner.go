// Package shell runs the external CLI tools the preview depends on.
// Commands go through a shared rate limiter so per-resource fan-out
// (server-side dry-runs, custom-resource listings) does not hammer
// the API server.
package shell

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"k8s.io/utils/exec"

	"github.com/chartsafe/helm-preview/internal/core/ports"
	"github.com/chartsafe/helm-preview/internal/errors"
)

const (
	defaultRateLimitRPS = 10
	minRateLimitRPS     = 1
	maxRateLimitRPS     = 50
)

// CommandRunner executes one external tool invocation. Output streams
// come back separated so callers can put stderr into user-facing
// errors. A non-nil error always accompanies a non-zero exit.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr string, err error)
	RunWithInput(ctx context.Context, input string, name string, args ...string) (stdout, stderr string, err error)
	LookPath(name string) error
}

// Runner is the exec-backed CommandRunner used outside of tests.
type Runner struct {
	exec    exec.Interface
	limiter *rate.Limiter
	logger  ports.Logger
}

// NewRunner builds a Runner limited to rps commands per second.
// Passing 0 selects the default rate; out-of-range values are
// replaced with the default and logged.
func NewRunner(rps int, logger ports.Logger) *Runner {
	limitValue := defaultRateLimitRPS
	if rps >= minRateLimitRPS && rps <= maxRateLimitRPS {
		limitValue = rps
	} else if rps != 0 {
		logger.Warnf(nil, "Invalid command RPS configured (%d), using default %d RPS. Valid range: %d-%d.",
			rps, defaultRateLimitRPS, minRateLimitRPS, maxRateLimitRPS)
	}

	return &Runner{
		exec:    exec.New(),
		limiter: rate.NewLimiter(rate.Limit(limitValue), limitValue),
		logger:  logger,
	}
}

// LookPath verifies the named tool is available before any work that
// depends on it starts.
func (r *Runner) LookPath(name string) error {
	if _, err := r.exec.LookPath(name); err != nil {
		return errors.WrapUserFacing(err, errors.CodeToolNotFound,
			fmt.Sprintf("required tool '%s' was not found in PATH", name),
			fmt.Sprintf("Install %s and make sure it is on your PATH.", name))
	}
	return nil
}

func (r *Runner) Run(ctx context.Context, name string, args ...string) (string, string, error) {
	return r.run(ctx, "", name, args...)
}

func (r *Runner) RunWithInput(ctx context.Context, input string, name string, args ...string) (string, string, error) {
	return r.run(ctx, input, name, args...)
}

func (r *Runner) run(ctx context.Context, input string, name string, args ...string) (string, string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		if ctx.Err() == nil {
			r.logger.Warnf(ctx, "Error waiting for command rate limiter: %v", err)
		}
		return "", "", errors.Wrap(err, errors.CodeTimeout,
			fmt.Sprintf("waiting to run %s", name))
	}

	cmd := r.exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.SetStdout(&stdout)
	cmd.SetStderr(&stderr)
	if input != "" {
		cmd.SetStdin(strings.NewReader(input))
	}

	r.logger.Debugf(ctx, "Running command: %s %s", name, strings.Join(args, " "))
	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start).Round(time.Millisecond)

	outText := stdout.String()
	errText := strings.TrimSpace(stderr.String())

	if runErr == nil {
		r.logger.Debugf(ctx, "Command %s finished in %s", name, elapsed)
		return outText, errText, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return outText, errText, errors.Wrap(ctxErr, errors.CodeTimeout,
			fmt.Sprintf("%s did not finish", name))
	}

	var exitErr exec.ExitError
	if stderrors.As(runErr, &exitErr) {
		r.logger.Debugf(ctx, "Command %s exited with status %d after %s", name, exitErr.ExitStatus(), elapsed)
		return outText, errText, fmt.Errorf("%s exited with status %d: %w", name, exitErr.ExitStatus(), runErr)
	}

	return outText, errText, fmt.Errorf("running %s: %w", name, runErr)
}
