package process

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/Iron-Ham/caplog/internal/errors"
	"github.com/Iron-Ham/caplog/internal/logging"
)

func requireCommand(t *testing.T, name string) {
	t.Helper()
	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s not available", name)
	}
}

func newTestRunner() *ExecRunner {
	return NewExecRunner(ExecConfig{Logger: logging.Nop()})
}

func TestNewExecRunner_Defaults(t *testing.T) {
	r := NewExecRunner(ExecConfig{})
	if r.KillCommand() != "kill" {
		t.Errorf("KillCommand() = %q, want kill", r.KillCommand())
	}
	if r.logger == nil {
		t.Error("logger should default to logging.Default()")
	}
}

func TestResult_Lines(t *testing.T) {
	tests := []struct {
		name   string
		stdout string
		want   []string
	}{
		{"empty", "", nil},
		{"trailing newline", "a\nb\n", []string{"a", "b"}},
		{"crlf", "a\r\nb\r\n", []string{"a", "b"}},
		{"no trailing newline", "only", []string{"only"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Result{Stdout: []byte(tt.stdout)}.Lines()
			if strings.Join(got, "|") != strings.Join(tt.want, "|") || len(got) != len(tt.want) {
				t.Errorf("Lines() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExecRunner_Run(t *testing.T) {
	requireCommand(t, "sh")
	r := newTestRunner()

	res, err := r.Run(context.Background(), []string{"sh", "-c", "echo out; echo err >&2; exit 3"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if strings.TrimSpace(string(res.Stdout)) != "out" {
		t.Errorf("Stdout = %q, want out", res.Stdout)
	}
	if res.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", res.ExitCode)
	}
}

func TestExecRunner_Run_LaunchFailure(t *testing.T) {
	r := newTestRunner()

	_, err := r.Run(context.Background(), []string{"caplog-definitely-not-a-command"})
	if !errors.Is(err, errors.ErrExecution) {
		t.Fatalf("Run error = %v, want ErrExecution", err)
	}
	var execErr *errors.ExecutionError
	if !errors.As(err, &execErr) || execErr.Argv[0] != "caplog-definitely-not-a-command" {
		t.Errorf("expected ExecutionError carrying argv, got %v", err)
	}
}

func TestExecRunner_Run_EmptyArgv(t *testing.T) {
	if _, err := newTestRunner().Run(context.Background(), nil); !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("Run(nil) error = %v, want ErrInvalidInput", err)
	}
}

func TestExecRunner_Run_ContextTimeout(t *testing.T) {
	requireCommand(t, "sleep")
	r := newTestRunner()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := r.Run(ctx, []string{"sleep", "5"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Run error = %v, want deadline exceeded", err)
	}
	if time.Since(start) > 3*time.Second {
		t.Error("Run did not honour the context deadline")
	}
}

func TestExecRunner_SpawnAndKill(t *testing.T) {
	requireCommand(t, "sh")
	requireCommand(t, "kill")
	r := newTestRunner()
	console := filepath.Join(t.TempDir(), "console", "out.log")

	pid, err := r.Spawn([]string{"sh", "-c", "echo started; echo oops >&2; exec sleep 30"}, console)
	if err != nil {
		t.Fatalf("Spawn failed: %v", err)
	}
	if pid <= 0 {
		t.Fatalf("Spawn returned pid %d", pid)
	}

	// Wait for both lines to land in the console file.
	deadline := time.Now().Add(3 * time.Second)
	var data []byte
	for time.Now().Before(deadline) {
		data, _ = os.ReadFile(console)
		if strings.Contains(string(data), "oops") {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if !strings.Contains(string(data), "started") || !strings.Contains(string(data), "oops") {
		t.Errorf("console = %q, want combined stdout and stderr", data)
	}

	code, err := r.Kill(context.Background(), strconv.Itoa(pid))
	if err != nil {
		t.Fatalf("Kill failed: %v", err)
	}
	if code != 0 {
		t.Errorf("Kill exit code = %d, want 0", code)
	}
}

func TestExecRunner_Spawn_LaunchFailure(t *testing.T) {
	r := newTestRunner()
	_, err := r.Spawn([]string{"caplog-definitely-not-a-command"}, "")
	if !errors.Is(err, errors.ErrExecution) {
		t.Errorf("Spawn error = %v, want ErrExecution", err)
	}
}

func TestExecRunner_Kill_UnknownPid(t *testing.T) {
	requireCommand(t, "kill")
	r := newTestRunner()

	code, err := r.Kill(context.Background(), "999999999")
	if err != nil {
		t.Fatalf("Kill should report exit status, not an error: %v", err)
	}
	if code == 0 {
		t.Error("expected non-zero exit code for an unknown pid")
	}
}

var _ Runner = (*ExecRunner)(nil)
