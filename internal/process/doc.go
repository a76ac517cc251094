// Package process is caplog's port to the operating system's process model:
// run a command and read its output, spawn a detached command, and send a
// termination signal by process id.
//
// The capture supervisor and the process table reader depend only on the
// [Runner] interface so that tests can substitute an in-memory fake.
//
// # Implementations
//
//   - [ExecRunner]: os/exec based implementation used in production.
//
// # Lifecycle of spawned commands
//
// [Runner.Spawn] returns as soon as the command has started. The command
// runs in its own session so it outlives the caller, and it is reaped in the
// background for as long as the caller lives. Callers that need to find it
// again later (possibly from a different invocation) must do so through the
// process table, never through a stored handle.
//
// # Basic Usage
//
//	r := process.NewExecRunner(process.ExecConfig{KillCommand: "kill"})
//
//	res, err := r.Run(ctx, []string{"ps", "-A"})
//	if err != nil {
//	    return err
//	}
//
//	pid, err := r.Spawn([]string{"logcat", "-f", dest}, consolePath)
//	...
//	code, err := r.Kill(ctx, strconv.Itoa(pid))
package process
