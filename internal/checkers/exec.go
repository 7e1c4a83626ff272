package checkers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// Output is the captured result of one tool invocation.
type Output struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Runner executes name with args in dir. A non-zero exit is reported
// through Output.ExitCode, not as an error; the error is reserved for
// failures to start or wait for the process.
type Runner func(ctx context.Context, dir, name string, args ...string) (Output, error)

// LookPath resolves a binary name to an executable path.
type LookPath func(file string) (string, error)

// ExecRunner runs tools with os/exec.
func ExecRunner(ctx context.Context, dir, name string, args ...string) (Output, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	out := Output{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if err != nil {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			out.ExitCode = exitErr.ExitCode()
			return out, nil
		}
		return out, fmt.Errorf("%s execution failed: %w", name, err)
	}
	return out, nil
}

// invoke runs one tool command under the given timeout.
func (a *Analyzer) invoke(ctx context.Context, timeout time.Duration, name string, args ...string) (Output, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := a.run(timeoutCtx, a.root, a.paths[name], args...)
	if timeoutCtx.Err() == context.DeadlineExceeded {
		return out, fmt.Errorf("%s: %w after %v", name, ErrTimeout, timeout)
	}
	return out, err
}

// failure formats a non-zero exit with the tool's stderr.
func failure(name string, out Output) error {
	msg := firstLines(string(out.Stderr), 5)
	if msg == "" {
		msg = firstLines(string(out.Stdout), 5)
	}
	return fmt.Errorf("%s exited with status %d: %s", name, out.ExitCode, msg)
}
