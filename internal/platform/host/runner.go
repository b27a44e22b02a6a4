// Package host abstracts command execution and artifact fetching on the
// target machine, so provisioning steps can be exercised in tests without
// touching the system.
package host

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes commands on the local host.
type Runner interface {
	// Run executes the command and returns its combined output. A non-zero
	// exit wraps the output into the returned error.
	Run(ctx context.Context, name string, args ...string) (string, error)

	// LookPath reports where a tool is installed, or an error when it is not
	// on PATH.
	LookPath(name string) (string, error)
}

// ExecRunner runs commands via os/exec.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return string(out), fmt.Errorf("%s %s: %w: %s",
			name, strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return string(out), nil
}

// LookPath implements Runner.
func (ExecRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}
