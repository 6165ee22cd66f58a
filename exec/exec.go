// Package exec provides shell command execution helpers.
package exec

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os/exec"
	"strings"
	"time"
)

// CommandError reports a command that could not be
// started or exited with a non-zero status. Output holds
// the combined stdout+stderr captured before the failure.
type CommandError struct {
	Name   string
	Args   []string
	Output string
	Err    error
}

// Error implements error. Arguments are redacted.
func (e *CommandError) Error() string {
	msg := fmt.Sprintf(
		"%s %s: %v",
		e.Name, strings.Join(Redact(e.Args), " "), e.Err,
	)

	if out := strings.TrimSpace(e.Output); out != "" {
		msg += ": " + out
	}

	return msg
}

// Unwrap returns the underlying error.
func (e *CommandError) Unwrap() error {
	return e.Err
}

// ExitCode returns the exit status of the command, or -1
// when the command did not exit normally.
func (e *CommandError) ExitCode() int {
	var exitErr *exec.ExitError
	if errors.As(e.Err, &exitErr) {
		return exitErr.ExitCode()
	}

	return -1
}

// waitDelay bounds how long a timed-out command may keep
// its output pipes open through child processes such as
// git-remote-https.
const waitDelay = time.Second

// Runner executes commands with an optional per-command
// timeout. The zero value runs without timeout.
type Runner struct {
	// Timeout bounds each command, including any child
	// process still holding its output. Zero disables it.
	Timeout time.Duration
}

// Ex executes the named command in the given directory
// and returns combined stdout+stderr output. Pass empty
// dir to use the current working directory.
func (r Runner) Ex(
	ctx context.Context,
	dir string,
	name string,
	arg ...string,
) (string, error) {
	const errCtx = "executing command"

	slog.Info(
		"executing",
		"cmd", name,
		"args", strings.Join(Redact(arg), " "),
		"dir", dir,
	)

	if r.Timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, arg...) //nolint:gosec // args from caller
	if dir != "" {
		cmd.Dir = dir
	}

	if r.Timeout > 0 {
		cmd.WaitDelay = waitDelay
	}

	by, err := cmd.CombinedOutput()

	slog.Debug("output", "result", string(by))

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w: %w", ctxErr, err)
		}

		return string(by), fmt.Errorf("%s: %w", errCtx, &CommandError{
			Name:   name,
			Args:   append([]string(nil), arg...),
			Output: string(by),
			Err:    err,
		})
	}

	return string(by), nil
}

// Redact returns a copy of args where any URL carrying
// userinfo has its password replaced.
func Redact(args []string) []string {
	out := make([]string, len(args))

	for i, a := range args {
		out[i] = a

		if !strings.Contains(a, "@") || !strings.Contains(a, "://") {
			continue
		}

		u, err := url.Parse(a)
		if err != nil || u.User == nil {
			continue
		}

		out[i] = u.Redacted()
	}

	return out
}
