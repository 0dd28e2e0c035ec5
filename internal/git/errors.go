package git

import (
	"fmt"
	"strings"
)

// InvalidRepositoryError is returned by Open when the target path does not
// contain a git repository.
type InvalidRepositoryError struct {
	Path string
	Err  error
}

func (e *InvalidRepositoryError) Error() string {
	return fmt.Sprintf("not a git repository: %s: %v", e.Path, e.Err)
}

func (e *InvalidRepositoryError) Unwrap() error { return e.Err }

// CommandError reports a git invocation that exited nonzero. It carries the
// full argument vector and the captured stderr text so callers can render a
// useful message without re-running anything.
type CommandError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("git %s: %v", strings.Join(e.Args, " "), e.Err)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *CommandError) Unwrap() error { return e.Err }

// ParseError reports git output that did not match the expected shape.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return "parse git output: " + e.Reason
}

func parseErrorf(format string, args ...any) *ParseError {
	return &ParseError{Reason: fmt.Sprintf(format, args...)}
}

// NotFoundError reports a path or revision that does not exist at the
// requested revision.
type NotFoundError struct {
	Rev  string
	Path string
}

func (e *NotFoundError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("revision not found: %s", e.Rev)
	}
	return fmt.Sprintf("path not found at %s: %s", e.Rev, e.Path)
}

// notFoundStderr recognizes the stderr shapes git emits for missing paths and
// unknown revisions.
func notFoundStderr(stderr string) bool {
	switch {
	case strings.Contains(stderr, "does not exist"),
		strings.Contains(stderr, "exists on disk, but not in"),
		strings.Contains(stderr, "bad revision"),
		strings.Contains(stderr, "unknown revision or path not in the working tree"),
		strings.Contains(stderr, "Not a valid object name"):
		return true
	}
	return false
}
