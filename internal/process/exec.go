package process

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/Iron-Ham/caplog/internal/errors"
	"github.com/Iron-Ham/caplog/internal/logging"
)

const logTag = "process"

// ExecConfig holds the configuration of an ExecRunner.
type ExecConfig struct {
	// KillCommand is the command used to signal a process, invoked as
	// "<KillCommand> <pid>". Defaults to "kill".
	KillCommand string

	// Logger receives diagnostics. Defaults to logging.Default().
	Logger *logging.Logger
}

// ExecRunner implements Runner with os/exec.
type ExecRunner struct {
	killCommand string
	logger      *logging.Logger
}

// NewExecRunner creates an ExecRunner.
func NewExecRunner(config ExecConfig) *ExecRunner {
	r := &ExecRunner{killCommand: config.KillCommand, logger: config.Logger}
	if r.killCommand == "" {
		r.killCommand = "kill"
	}
	if r.logger == nil {
		r.logger = logging.Default()
	}
	return r
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, argv []string) (Result, error) {
	if len(argv) == 0 {
		return Result{}, fmt.Errorf("%w: empty command", errors.ErrInvalidInput)
	}

	var stdout bytes.Buffer
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = io.Discard

	if err := cmd.Start(); err != nil {
		return Result{}, errors.NewExecutionError(argv, err)
	}
	// Wait reaps the child whatever happens below.
	err := cmd.Wait()
	res := Result{Stdout: stdout.Bytes(), ExitCode: cmd.ProcessState.ExitCode()}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, errors.NewExecutionError(argv, ctxErr)
	}
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return res, errors.NewExecutionError(argv, err)
	}
	if res.ExitCode != 0 {
		r.logger.Debug(logTag, fmt.Sprintf("%s exited with status %d", strings.Join(argv, " "), res.ExitCode))
	}
	return res, nil
}

// Spawn implements Runner.
func (r *ExecRunner) Spawn(argv []string, console string) (int, error) {
	if len(argv) == 0 {
		return 0, fmt.Errorf("%w: empty command", errors.ErrInvalidInput)
	}

	var out *os.File
	if console != "" {
		if err := os.MkdirAll(filepath.Dir(console), 0755); err != nil {
			return 0, errors.NewExecutionError(argv, err)
		}
		f, err := os.OpenFile(console, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return 0, errors.NewExecutionError(argv, err)
		}
		out = f
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.SysProcAttr = detachedAttr()
	if out != nil {
		cmd.Stdout = out
		cmd.Stderr = out
	}

	if err := cmd.Start(); err != nil {
		if out != nil {
			out.Close()
		}
		return 0, errors.NewExecutionError(argv, err)
	}

	pid := cmd.Process.Pid
	go func() {
		err := cmd.Wait()
		if out != nil {
			out.Close()
		}
		r.logger.Debug(logTag, fmt.Sprintf("spawned %s (pid %d) exited: %v", argv[0], pid, err))
	}()
	return pid, nil
}

// Kill implements Runner.
func (r *ExecRunner) Kill(ctx context.Context, pid string) (int, error) {
	res, err := r.Run(ctx, []string{r.killCommand, pid})
	if err != nil {
		return -1, err
	}
	return res.ExitCode, nil
}

// KillCommand returns the command used to signal processes.
func (r *ExecRunner) KillCommand() string { return r.killCommand }
