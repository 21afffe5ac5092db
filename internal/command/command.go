// Package command runs external programs (ping, ssh, the local dump tool) and
// captures their output.
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"time"
)

// DefaultMaxOutput caps how much of a stream is kept.
const DefaultMaxOutput = 64 << 20

// ErrTruncated is returned when a command printed more than the output cap.
var ErrTruncated = errors.New("command output exceeded the size limit")

// Result holds what a finished command produced.
type Result struct {
	Stdout    []byte
	Stderr    []byte
	ExitCode  int
	Duration  time.Duration
	Truncated bool
}

// Runner starts a program and waits for it.
type Runner interface {
	// Run executes name with args. A non-zero exit status is reported as an
	// error, with the Result still filled in.
	Run(ctx context.Context, name string, args ...string) (Result, error)
}

// ExecRunner runs programs with os/exec.
type ExecRunner struct {
	// MaxOutput caps stdout and stderr each; zero means DefaultMaxOutput.
	MaxOutput int64
}

// Run implements Runner.
func (r ExecRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	maxOutput := r.MaxOutput
	if maxOutput <= 0 {
		maxOutput = DefaultMaxOutput
	}

	var stdoutBuf, stderrBuf bytes.Buffer
	stdoutLimited := &limitedWriter{w: &stdoutBuf, max: maxOutput}
	stderrLimited := &limitedWriter{w: &stderrBuf, max: maxOutput}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = stdoutLimited
	cmd.Stderr = stderrLimited

	start := time.Now()
	err := cmd.Run()

	result := Result{
		Stdout:    stdoutBuf.Bytes(),
		Stderr:    stderrBuf.Bytes(),
		Duration:  time.Since(start),
		Truncated: stdoutLimited.truncated,
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = -1
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, fmt.Errorf("%s: %w", name, ctxErr)
		}
		return result, fmt.Errorf("%s: %w", name, err)
	}
	if result.Truncated {
		return result, fmt.Errorf("%s: %w", name, ErrTruncated)
	}
	return result, nil
}

// Shell returns the program and arguments that run line through sh.
func Shell(line string) (string, []string) {
	return "sh", []string{"-c", line}
}

// limitedWriter is an io.Writer that limits total bytes written.
type limitedWriter struct {
	w         io.Writer
	max       int64
	written   int64
	truncated bool
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	if lw.written >= lw.max {
		lw.truncated = true
		return n, nil // Pretend we wrote it
	}
	if remaining := lw.max - lw.written; int64(n) > remaining {
		lw.truncated = true
		p = p[:remaining]
	}
	written, err := lw.w.Write(p)
	lw.written += int64(written)
	if err != nil {
		return written, err
	}
	return n, nil
}
