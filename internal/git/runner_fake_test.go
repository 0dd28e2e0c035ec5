package git

import (
	"context"
	"errors"
	"strings"
)

// fakeRunner satisfies commandRunner and replays canned git output keyed by
// the joined argument vector.
type fakeRunner struct {
	outputs map[string]string
	errs    map[string]error

	calls     []string
	lastStdin string
}

func (f *fakeRunner) Run(_ context.Context, _ string, stdin string, args ...string) (string, error) {
	key := strings.Join(args, " ")
	f.calls = append(f.calls, key)
	f.lastStdin = stdin
	if err, ok := f.errs[key]; ok {
		return "", err
	}
	out, ok := f.outputs[key]
	if !ok {
		return "", errors.New("unexpected git invocation: " + key)
	}
	return out, nil
}

func newTestReader(f *fakeRunner) *Reader {
	return &Reader{run: f, path: "/repo"}
}
