package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Iron-Ham/caplog/internal/process"
)

// Proc is a row of the fake process table.
type Proc struct {
	User string
	PID  string
	Name string
}

// Spawned records one FakeRunner.Spawn call.
type Spawned struct {
	Argv    []string
	Console string
	PID     string
}

// FakeRunner implements process.Runner over an in-memory process table.
// Run renders the table as "USER PID NAME" listing output, Spawn adds a row
// for the spawned command run by SpawnUser, and Kill removes a row.
//
// It is safe for concurrent use.
type FakeRunner struct {
	mu sync.Mutex

	// Header is the first line Run prints. Defaults to "USER PID NAME".
	Header string
	// Output, when non-empty, is returned by Run verbatim instead of the table.
	Output string
	// SpawnUser owns every process started with Spawn.
	SpawnUser string
	// ListDelay is slept inside Run, widening race windows in tests.
	ListDelay time.Duration

	// RunErr, SpawnErr and KillErr are returned by the respective calls.
	RunErr   error
	SpawnErr error
	KillErr  error
	// KillExitCode is reported by a Kill that found its pid.
	KillExitCode int

	procs   []Proc
	nextPID int
	runs    [][]string
	spawned []Spawned
	killed  []string
}

// NewFakeRunner returns a FakeRunner whose spawned processes are owned by
// spawnUser.
func NewFakeRunner(spawnUser string) *FakeRunner {
	return &FakeRunner{SpawnUser: spawnUser, nextPID: 1000}
}

// AddProc adds a row to the table and returns its pid.
func (f *FakeRunner) AddProc(user, name string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addLocked(user, name)
}

func (f *FakeRunner) addLocked(user, name string) string {
	f.nextPID++
	pid := strconv.Itoa(f.nextPID)
	f.procs = append(f.procs, Proc{User: user, PID: pid, Name: name})
	return pid
}

// RemoveProc drops the row with pid, as if the process had exited.
func (f *FakeRunner) RemoveProc(pid string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.removeLocked(pid)
}

func (f *FakeRunner) removeLocked(pid string) bool {
	for i, p := range f.procs {
		if p.PID == pid {
			f.procs = append(f.procs[:i], f.procs[i+1:]...)
			return true
		}
	}
	return false
}

// Procs returns a copy of the table.
func (f *FakeRunner) Procs() []Proc {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Proc(nil), f.procs...)
}

// Count returns how many rows have the given user and name.
func (f *FakeRunner) Count(user, name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, p := range f.procs {
		if p.User == user && p.Name == name {
			n++
		}
	}
	return n
}

// Runs returns the argv of every Run call.
func (f *FakeRunner) Runs() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]string(nil), f.runs...)
}

// Spawned returns every Spawn call.
func (f *FakeRunner) Spawned() []Spawned {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Spawned(nil), f.spawned...)
}

// Killed returns the pids passed to Kill.
func (f *FakeRunner) Killed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.killed...)
}

// Run implements process.Runner.
func (f *FakeRunner) Run(ctx context.Context, argv []string) (process.Result, error) {
	if f.ListDelay > 0 {
		select {
		case <-time.After(f.ListDelay):
		case <-ctx.Done():
			return process.Result{ExitCode: -1}, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, append([]string(nil), argv...))
	if f.RunErr != nil {
		return process.Result{}, f.RunErr
	}
	if f.Output != "" {
		return process.Result{Stdout: []byte(f.Output)}, nil
	}

	header := f.Header
	if header == "" {
		header = "USER PID NAME"
	}
	var sb strings.Builder
	sb.WriteString(header)
	sb.WriteByte('\n')
	for _, p := range f.procs {
		fmt.Fprintf(&sb, "%-10s %6s %s\n", p.User, p.PID, p.Name)
	}
	return process.Result{Stdout: []byte(sb.String())}, nil
}

// Spawn implements process.Runner.
func (f *FakeRunner) Spawn(argv []string, console string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SpawnErr != nil {
		return 0, f.SpawnErr
	}
	pid := f.addLocked(f.SpawnUser, filepath.Base(argv[0]))
	f.spawned = append(f.spawned, Spawned{Argv: append([]string(nil), argv...), Console: console, PID: pid})
	n, _ := strconv.Atoi(pid)
	return n, nil
}

// Kill implements process.Runner.
func (f *FakeRunner) Kill(_ context.Context, pid string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.killed = append(f.killed, pid)
	if f.KillErr != nil {
		return -1, f.KillErr
	}
	if !f.removeLocked(pid) {
		return 1, nil
	}
	return f.KillExitCode, nil
}

var _ process.Runner = (*FakeRunner)(nil)
