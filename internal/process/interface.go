package process

import (
	"context"
	"strings"
)

// Result is the outcome of a command run to completion.
type Result struct {
	// Stdout is everything the command wrote to standard output.
	Stdout []byte

	// ExitCode is the command's exit status. -1 if it was killed by a signal.
	ExitCode int
}

// Lines splits Stdout into lines without trailing carriage returns.
// A trailing newline does not produce an empty final line.
func (r Result) Lines() []string {
	out := strings.TrimRight(string(r.Stdout), "\n")
	if out == "" {
		return nil
	}
	lines := strings.Split(out, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, "\r")
	}
	return lines
}

// Runner defines the process capabilities caplog needs from the host
// operating system.
//
// Implementations must be safe for concurrent use.
type Runner interface {
	// Run executes argv, waits for it to exit and returns its output.
	//
	// A command that starts but exits non-zero is not an error; the exit
	// status is reported in Result. An error is returned only when the
	// command cannot be launched (wrapping errors.ErrExecution) or when ctx
	// ends first, in which case the command is killed and reaped.
	Run(ctx context.Context, argv []string) (Result, error)

	// Spawn starts argv detached from the caller and returns its pid.
	//
	// Standard output and standard error are combined and appended to the
	// file at console; an empty console discards them. The command is not
	// waited for.
	Spawn(argv []string, console string) (int, error)

	// Kill sends a termination signal to pid, waits for the signal command
	// to finish and returns its exit status.
	Kill(ctx context.Context, pid string) (int, error)
}
