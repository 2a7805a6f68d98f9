package execrunner

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// FakeRunner is a scriptable Runner for tests. Calls is keyed by the
// executable name and records every invocation in order.
type FakeRunner struct {
	mu      sync.Mutex
	results map[string]fakeResult
	Calls   []FakeCall
}

type fakeResult struct {
	stdout, stderr string
	err            error
}

// FakeCall records one Run invocation.
type FakeCall struct {
	Name string
	Args []string
}

// NewFakeRunner returns an empty FakeRunner; unscripted commands succeed
// with empty output unless configured otherwise via Fail or Succeed.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{results: map[string]fakeResult{}}
}

// Succeed scripts name to return stdout/stderr with a nil error.
func (f *FakeRunner) Succeed(name, stdout, stderr string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[name] = fakeResult{stdout: stdout, stderr: stderr}
}

// Fail scripts name to return err.
func (f *FakeRunner) Fail(name string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[name] = fakeResult{err: err}
}

func (f *FakeRunner) Run(_ context.Context, _ time.Duration, name string, args ...string) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Calls = append(f.Calls, FakeCall{Name: name, Args: append([]string(nil), args...)})

	res, ok := f.results[name]
	if !ok {
		return "", "", nil
	}
	if res.err != nil {
		return res.stdout, res.stderr, fmt.Errorf("scripted failure for %s: %w", name, res.err)
	}
	return res.stdout, res.stderr, nil
}
