// Package ports defines interfaces for external dependencies.
package ports

import (
	"context"
)

// CommandResult represents the result of executing a system command.
type CommandResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Success returns true if the command exited with code 0.
func (r CommandResult) Success() bool {
	return r.ExitCode == 0
}

// CommandCall records a command invocation.
type CommandCall struct {
	Command string
	Args    []string
}

// String returns the invocation as a single shell-like line.
func (c CommandCall) String() string {
	out := c.Command
	for _, arg := range c.Args {
		out += " " + arg
	}
	return out
}

// CommandRunner executes system commands. Step kinds use it for every probe
// and mutation against the live host (iptables, sysctl, systemctl, psql,
// netplan), so a test double can observe exactly which mutating calls a run
// performed.
type CommandRunner interface {
	Run(ctx context.Context, command string, args ...string) (CommandResult, error)
}
