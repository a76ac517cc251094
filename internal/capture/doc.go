// Package capture supervises the external log-capture tool (logcat by
// default) on behalf of a host application.
//
// # Main Types
//
//   - [Settings]: typed accessors over the host's prefs namespace (destination,
//     rotation size and count, format, tag filter, since-checkpoint, cached
//     owner).
//   - [Supervisor]: Start, Stop, Reset, Clear, Status and Watch for one host.
//   - [Factory]: one Supervisor per live [Host], held weakly.
//
// # Ownership and liveness
//
// The capture process belonging to a host is the one whose process-table
// row has the capture tool's name and the host's user. That user is looked
// up once, from the row of the host's own process, and cached in the
// namespace. Liveness is never cached: every operation reads the process
// table right before acting, so separate invocations of the CLI see the
// same state without sharing a handle.
//
// # Serialization
//
// Start is serialized per Supervisor and, with Config.LockFile, across
// processes through an advisory file lock, so two racing callers cannot
// both conclude "not running" and spawn twice. Stop, Reset and Clear are
// not serialized but re-check liveness themselves.
//
// # Basic Usage
//
//	f := capture.NewFactory(capture.Config{Runner: runner, LockFile: lockPath})
//	sup, err := f.Get(&capture.Host{Name: "myapp", Prefs: store})
//	if err != nil {
//	    return err
//	}
//	_ = sup.SetDestination("/var/log/myapp/capture.txt")
//	ok, err := sup.Start(ctx, true)
package capture
