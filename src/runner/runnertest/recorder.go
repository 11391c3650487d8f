// Package runnertest provides a recording Runner for tests.
package runnertest

import (
	"context"
	"io"
	"sync"

	"github.com/sofmeright/whanos/src/runner"
)

// Call is one recorded invocation.
type Call struct {
	Command runner.Command
	Stdin   string
}

// Recorder records every command and never executes anything.
// Fail maps a docker subcommand ("run", "login", "build", "push") to the
// error returned when that subcommand is invoked.
type Recorder struct {
	Fail map[string]error

	// OnRun, when set, is called for each command before it is recorded.
	OnRun func(runner.Command)

	mu    sync.Mutex
	calls []Call
}

// Run records cmd and returns the configured failure, if any.
func (r *Recorder) Run(_ context.Context, cmd runner.Command) (*runner.Result, error) {
	var stdin string
	if cmd.Stdin != nil {
		data, _ := io.ReadAll(cmd.Stdin)
		stdin = string(data)
	}
	if r.OnRun != nil {
		r.OnRun(cmd)
	}

	r.mu.Lock()
	r.calls = append(r.calls, Call{Command: cmd, Stdin: stdin})
	r.mu.Unlock()

	if err := r.Fail[subcommand(cmd)]; err != nil {
		return nil, err
	}
	return &runner.Result{}, nil
}

// Calls returns a copy of the recorded calls in order.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}

// Subcommands returns the first argument of each recorded call, in order.
func (r *Recorder) Subcommands() []string {
	calls := r.Calls()
	subs := make([]string, len(calls))
	for i, c := range calls {
		subs[i] = subcommand(c.Command)
	}
	return subs
}

// Count returns how many times sub was invoked.
func (r *Recorder) Count(sub string) int {
	n := 0
	for _, s := range r.Subcommands() {
		if s == sub {
			n++
		}
	}
	return n
}

// Find returns the first call for sub.
func (r *Recorder) Find(sub string) (Call, bool) {
	for _, c := range r.Calls() {
		if subcommand(c.Command) == sub {
			return c, true
		}
	}
	return Call{}, false
}

func subcommand(cmd runner.Command) string {
	if len(cmd.Args) == 0 {
		return ""
	}
	return cmd.Args[0]
}
