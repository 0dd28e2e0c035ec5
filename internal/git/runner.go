package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
)

// Runner executes the git binary against a working directory. Arguments are
// always passed as an explicit vector, never through a shell.
type Runner struct {
	bin string
}

func NewRunner(bin string) *Runner {
	if bin == "" {
		bin = "git"
	}
	return &Runner{bin: bin}
}

// Run executes git with the given arguments in dir, feeding stdin to the
// child when non-empty, and returns the captured stdout.
//
// Stdout is drained to completion before Wait is called: git output (diffs,
// ls-tree listings) can exceed the OS pipe buffer, and waiting first would
// deadlock parent and child permanently. Stdin is written from a separate
// goroutine for the same reason.
func (r *Runner) Run(ctx context.Context, dir string, stdin string, args ...string) (string, error) {
	if dir == "" {
		return "", errors.New("working directory not set")
	}
	cmd := exec.CommandContext(ctx, r.bin, args...)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("git stdout pipe: %w", err)
	}
	var inErr error
	inDone := make(chan struct{})
	if stdin != "" {
		in, err := cmd.StdinPipe()
		if err != nil {
			return "", fmt.Errorf("git stdin pipe: %w", err)
		}
		go func() {
			defer close(inDone)
			_, inErr = io.WriteString(in, stdin)
			if closeErr := in.Close(); inErr == nil {
				inErr = closeErr
			}
		}()
	} else {
		close(inDone)
	}

	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("git start: %w", err)
	}
	out, readErr := io.ReadAll(stdout)
	<-inDone
	waitErr := cmd.Wait()
	slog.Debug("git run",
		slog.String("args", strings.Join(args, " ")),
		slog.Int("stdout_bytes", len(out)),
		slog.Bool("ok", waitErr == nil),
	)
	if waitErr != nil {
		return "", &CommandError{
			Args:   args,
			Stderr: strings.TrimSpace(stderr.String()),
			Err:    waitErr,
		}
	}
	if readErr != nil {
		return "", fmt.Errorf("git read stdout: %w", readErr)
	}
	if inErr != nil {
		return "", fmt.Errorf("git write stdin: %w", inErr)
	}
	return string(out), nil
}
