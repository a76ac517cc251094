package capture

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"weak"

	"github.com/spf13/afero"

	"github.com/Iron-Ham/caplog/internal/errors"
	"github.com/Iron-Ham/caplog/internal/event"
	"github.com/Iron-Ham/caplog/internal/logging"
	"github.com/Iron-Ham/caplog/internal/process"
	"github.com/Iron-Ham/caplog/internal/pstable"
)

const logTag = "capture"

// DefaultTool is the capture tool launched by default.
const DefaultTool = "logcat"

// Config holds the collaborators and settings shared by supervisors.
type Config struct {
	// Tool is the capture command. Its base name is what the process table
	// is searched for. Defaults to DefaultTool.
	Tool string

	// ConsoleFile receives the tool's combined stdout and stderr. Empty
	// discards them.
	ConsoleFile string

	// LockFile, when set, serializes Start across processes.
	LockFile string

	// PassSinceCheckpoint forwards the stored since-checkpoint to the tool
	// instead of "0". See BuildCommand.
	PassSinceCheckpoint bool

	// Runner spawns and signals processes. Required.
	Runner process.Runner

	// Reader lists processes. Defaults to a ps reader over Runner.
	Reader *pstable.Reader

	// Fs is where the previous capture file is deleted. Defaults to the OS.
	Fs afero.Fs

	// Bus receives lifecycle events. Optional.
	Bus *event.Bus

	// Logger receives diagnostics. Defaults to logging.Default().
	Logger *logging.Logger

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time

	// Stats looks up resource usage of a live capture process for Status.
	// Defaults to a gopsutil lookup.
	Stats func(ctx context.Context, pid string) (*ProcessStats, error)
}

func (c Config) withDefaults() Config {
	if c.Tool == "" {
		c.Tool = DefaultTool
	}
	if c.Logger == nil {
		c.Logger = logging.Default()
	}
	if c.Reader == nil {
		c.Reader = pstable.NewReader(c.Runner, pstable.Config{Logger: c.Logger})
	}
	if c.Fs == nil {
		c.Fs = afero.NewOsFs()
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Stats == nil {
		c.Stats = processStats
	}
	return c
}

// Supervisor starts, stops and restarts the capture process owned by one
// Host. It keeps no handle to the process: whether capture is running is
// decided by reading the process table right before each action, so
// independent invocations agree.
//
// The Host is held weakly. Once it has been collected every operation fails
// with a logged ReleasedReferenceError until Rebind supplies a new one.
type Supervisor struct {
	config Config
	tool   string // base name searched for in the process table

	hostMu sync.Mutex
	host   weak.Pointer[Host]

	start startLock
}

// NewSupervisor creates a Supervisor bound to host. Most callers should go
// through a Factory instead.
func NewSupervisor(config Config, host *Host) *Supervisor {
	config = config.withDefaults()
	s := &Supervisor{
		config: config,
		tool:   filepath.Base(config.Tool),
		start:  startLock{path: config.LockFile},
	}
	if host != nil {
		s.host = weak.Make(host)
	}
	return s
}

// Rebind attaches the supervisor to host.
func (s *Supervisor) Rebind(host *Host) {
	s.hostMu.Lock()
	defer s.hostMu.Unlock()
	s.host = weak.Make(host)
}

// Bound reports whether the supervisor's host is still alive.
func (s *Supervisor) Bound() bool {
	s.hostMu.Lock()
	defer s.hostMu.Unlock()
	return s.host.Value() != nil
}

// bound returns the live host or a ReleasedReferenceError for op.
func (s *Supervisor) bound(op string) (*Host, error) {
	s.hostMu.Lock()
	host := s.host.Value()
	s.hostMu.Unlock()
	if host == nil {
		return nil, errors.NewReleasedReferenceError(op)
	}
	return host, nil
}

func (s *Supervisor) logger() *logging.Logger { return s.config.Logger }

// Start launches the capture tool unless one owned by the host's user is
// already running, in which case it reports true at once. With
// clearPrevious the existing capture file is deleted first.
//
// A missing destination is returned as a *errors.ConfigurationError. Every
// other failure is logged and reported as false. The result is the
// liveness check made after spawning; a process that exits immediately is
// reported as not started.
func (s *Supervisor) Start(ctx context.Context, clearPrevious bool) (bool, error) {
	host, err := s.bound("start")
	if err != nil {
		s.logger().Error(logTag, "cannot start capture", err)
		return false, nil
	}

	release, err := s.start.acquire()
	if err != nil {
		s.logger().Error(logTag, "cannot start capture", err)
		return false, nil
	}
	defer release()

	settings := NewSettings(host.Prefs)
	owner, err := s.owner(ctx, host, settings)
	if err != nil {
		s.logger().Warn(logTag, "cannot start capture, owner of "+host.Name+" is unknown", err)
		s.publishFailed("start", err)
		return false, nil
	}
	s.logger().Trace(logTag, "host is run by "+owner)

	if rec, live, err := s.live(ctx, owner); err != nil {
		s.publishFailed("start", err)
		return false, nil
	} else if live {
		s.logger().Trace(logTag, "capture already running as pid "+rec.PID)
		return true, nil
	}

	snap := settings.Snapshot()
	if snap.Destination == "" {
		return false, errors.NewConfigurationError(KeyDestination, "capture destination is not set").
			WithCause(errors.ErrDestinationNotSet)
	}

	if clearPrevious {
		s.deleteOldLog(snap.Destination)
	}

	argv := BuildCommand(s.config.Tool, snap, s.config.PassSinceCheckpoint)
	s.logger().Debug(logTag, "spawning "+strings.Join(argv, " "))
	if _, err := s.config.Runner.Spawn(argv, s.config.ConsoleFile); err != nil {
		s.logger().Error(logTag, "failed to start capture", err)
		s.publishFailed("start", err)
		return false, nil
	}

	rec, live, err := s.live(ctx, owner)
	if err != nil || !live {
		s.logger().Warn(logTag, "capture was spawned but is not in the process table")
		return false, nil
	}
	s.logger().Trace(logTag, "started capture as pid "+rec.PID)
	s.config.Bus.Publish(event.NewCaptureStartedEvent(owner, rec.PID, snap.Destination, argv))
	return true, nil
}

// Stop signals the host's capture process and waits for the signal command
// to finish. Nothing running counts as stopped. The exit status of the
// signal is logged, not judged.
func (s *Supervisor) Stop(ctx context.Context) bool {
	host, err := s.bound("stop")
	if err != nil {
		s.logger().Error(logTag, "cannot stop capture", err)
		return false
	}

	owner, err := s.owner(ctx, host, NewSettings(host.Prefs))
	if err != nil {
		s.logger().Error(logTag, "cannot stop capture, owner of "+host.Name+" is unknown", err)
		s.publishFailed("stop", err)
		return false
	}

	rec, live, err := s.live(ctx, owner)
	if err != nil {
		s.publishFailed("stop", err)
		return false
	}
	if !live {
		return true
	}

	code, err := s.config.Runner.Kill(ctx, rec.PID)
	if err != nil {
		s.logger().Error(logTag, "failed to stop capture pid "+rec.PID, err)
		s.publishFailed("stop", err)
		return false
	}
	s.logger().Trace(logTag, fmt.Sprintf("stopped capture pid %s, exit code %d", rec.PID, code))
	s.config.Bus.Publish(event.NewCaptureStoppedEvent(owner, rec.PID, code))
	return true
}

// Reset stops capture, forgets the since-checkpoint and the cached owner,
// and starts again so the whole buffer is captured.
func (s *Supervisor) Reset(ctx context.Context) (bool, error) {
	host, err := s.bound("reset")
	if err != nil {
		s.logger().Error(logTag, "cannot reset capture", err)
		return false, nil
	}
	settings := NewSettings(host.Prefs)

	stopped := s.Stop(ctx)
	s.logger().Debug(logTag, fmt.Sprintf("capture stopped: %v", stopped))

	if err := settings.ClearSince(); err != nil {
		s.logger().Error(logTag, "failed to clear since-checkpoint", err)
		return false, nil
	}
	if err := settings.ClearOwner(); err != nil {
		s.logger().Warn(logTag, "failed to forget cached owner", err)
	}
	s.logger().Debug(logTag, "reset capture")
	return s.Start(ctx, true)
}

// Clear stops capture, sets the since-checkpoint to now and starts again so
// only what is logged from now on is captured.
func (s *Supervisor) Clear(ctx context.Context) (bool, error) {
	now := s.config.Now()

	host, err := s.bound("clear")
	if err != nil {
		s.logger().Error(logTag, "cannot clear capture", err)
		return false, nil
	}
	settings := NewSettings(host.Prefs)

	stopped := s.Stop(ctx)
	s.logger().Debug(logTag, fmt.Sprintf("capture stopped: %v", stopped))

	if err := settings.SetSince(now); err != nil {
		s.logger().Error(logTag, "failed to store since-checkpoint", err)
		return false, nil
	}
	s.logger().Debug(logTag, "clear capture since "+now.Format(SinceLayout))
	return s.Start(ctx, true)
}

// Running returns the host's live capture process, if any.
func (s *Supervisor) Running(ctx context.Context) (pstable.Record, bool, error) {
	host, err := s.bound("running")
	if err != nil {
		return pstable.Record{}, false, err
	}
	owner, err := s.owner(ctx, host, NewSettings(host.Prefs))
	if err != nil {
		return pstable.Record{}, false, err
	}
	return s.live(ctx, owner)
}

// ForgetOwner drops the cached owning identity so the next operation looks
// it up again.
func (s *Supervisor) ForgetOwner() error {
	return s.withSettings("forget owner", (*Settings).ClearOwner)
}

// Settings returns the current capture configuration.
func (s *Supervisor) Settings() (Snapshot, error) {
	host, err := s.bound("settings")
	if err != nil {
		return Snapshot{}, err
	}
	return NewSettings(host.Prefs).Snapshot(), nil
}

// SetDestination stores the capture file. Takes effect on the next start.
func (s *Supervisor) SetDestination(path string) error {
	return s.withSettings("set destination", func(st *Settings) error { return st.SetDestination(path) })
}

// SetMaxFileSize stores the rotation size in KB. Takes effect on the next start.
func (s *Supervisor) SetMaxFileSize(kb int) error {
	return s.withSettings("set max file size", func(st *Settings) error { return st.SetMaxFileSize(kb) })
}

// SetMaxFiles stores the rotated file count. Takes effect on the next start.
func (s *Supervisor) SetMaxFiles(n int) error {
	return s.withSettings("set max files", func(st *Settings) error { return st.SetMaxFiles(n) })
}

// SetFormat stores the output format. Takes effect on the next start.
func (s *Supervisor) SetFormat(f Format) error {
	return s.withSettings("set format", func(st *Settings) error { return st.SetFormat(f) })
}

// SetFilterTag restricts capture to tag; empty captures everything. Takes
// effect on the next start.
func (s *Supervisor) SetFilterTag(tag string) error {
	return s.withSettings("set filter tag", func(st *Settings) error { return st.SetFilterTag(tag) })
}

func (s *Supervisor) withSettings(op string, fn func(*Settings) error) error {
	host, err := s.bound(op)
	if err != nil {
		s.logger().Error(logTag, "cannot "+op, err)
		return err
	}
	return fn(NewSettings(host.Prefs))
}

// owner returns the cached owning identity or looks it up and caches it.
func (s *Supervisor) owner(ctx context.Context, host *Host, settings *Settings) (string, error) {
	if user, ok := settings.Owner(); ok {
		return user, nil
	}
	user, err := s.config.Reader.FindOwner(ctx, host.Name)
	if err != nil {
		return "", err
	}
	if err := settings.SetOwner(user); err != nil {
		s.logger().Warn(logTag, "failed to cache owner", err)
	}
	return user, nil
}

func (s *Supervisor) live(ctx context.Context, owner string) (pstable.Record, bool, error) {
	return s.config.Reader.FindOwnedBy(ctx, owner, s.tool)
}

// deleteOldLog removes dest if it is a regular file. Failure is logged.
func (s *Supervisor) deleteOldLog(dest string) {
	info, err := s.config.Fs.Stat(dest)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger().Error(logTag, "failed to inspect old log", err)
		}
		return
	}
	if !info.Mode().IsRegular() {
		return
	}
	if err := s.config.Fs.Remove(dest); err != nil {
		s.logger().Error(logTag, "failed to delete old log", err)
		return
	}
	s.logger().Debug(logTag, "deleted old log")
}

func (s *Supervisor) publishFailed(op string, err error) {
	s.config.Bus.Publish(event.NewCaptureFailedEvent(op, err))
}
