package capture

import (
	"context"
	"time"

	"github.com/Iron-Ham/caplog/internal/event"
)

// DefaultWatchInterval is how often Watch checks that capture is running.
const DefaultWatchInterval = 5 * time.Second

// Restart reasons carried by event.CaptureRestartedEvent.
const (
	ReasonExited          = "exited"
	ReasonSettingsChanged = "settings changed"
)

// Watch keeps capture running until ctx ends. It starts capture without
// clearing the previous file, restarts it whenever it disappears from the
// process table, and restarts it with the new settings when the host's
// prefs namespace changes. A missing destination is logged and retried on
// the next tick rather than ending the loop.
func (s *Supervisor) Watch(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultWatchInterval
	}
	host, err := s.bound("watch")
	if err != nil {
		s.logger().Error(logTag, "cannot watch capture", err)
		return err
	}

	store := host.Prefs

	changes := make(chan struct{}, 1)
	go func() {
		err := store.Watch(ctx, func() {
			select {
			case changes <- struct{}{}:
			default:
			}
		})
		if err != nil {
			s.logger().Warn(logTag, "settings changes will not be picked up", err)
		}
	}()

	settings := NewSettings(store)
	applied := launchSettings(settings)
	s.ensure(ctx, "")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			current := launchSettings(settings)
			if s.ensure(ctx, ReasonExited) {
				applied = current
			}
		case <-changes:
			current := launchSettings(settings)
			if current == applied {
				continue
			}
			applied = current
			s.logger().Info(logTag, "settings changed, restarting capture")
			s.Stop(ctx)
			ok := s.tryStart(ctx)
			s.config.Bus.Publish(event.NewCaptureRestartedEvent(ReasonSettingsChanged, ok))
		}
	}
}

// ensure starts capture if it is not running and reports whether a start
// was attempted. A non-empty reason publishes a restart event for it.
func (s *Supervisor) ensure(ctx context.Context, reason string) bool {
	if _, live, err := s.Running(ctx); err != nil || live {
		return false
	}
	ok := s.tryStart(ctx)
	if reason != "" {
		s.config.Bus.Publish(event.NewCaptureRestartedEvent(reason, ok))
	}
	return true
}

// launchSettings is the part of the configuration passed to the capture
// tool on spawn. The cached owner and the since-checkpoint are left out:
// Start writes the former itself and Clear/Reset restart on their own.
func launchSettings(st *Settings) Snapshot {
	snap := st.Snapshot()
	snap.Owner, snap.Since = "", ""
	return snap
}

func (s *Supervisor) tryStart(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	ok, err := s.Start(ctx, false)
	if err != nil {
		s.logger().Error(logTag, "cannot start capture", err)
		s.publishFailed("start", err)
		return false
	}
	return ok
}
