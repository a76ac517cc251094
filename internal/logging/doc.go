// Package logging is caplog's severity-gated logging facade.
//
// A [Logger] gates each call against a threshold, fills in a default tag,
// splits oversized messages into chunks the sink will not truncate, and
// hands every record to a [Sink]. The default sink is a log/slog JSON
// handler writing to stderr or to a size-rotated file.
//
// # Levels
//
// Levels are ranked TRACE < DEBUG < INFO < WARN < ERROR < ASSERT < NONE.
// A call at level L is emitted iff the threshold is at or below L. Until a
// threshold is set, [Logger.Level] reports the build-mode default: TRACE in
// debug builds, NONE in release builds (built with -tags release).
//
// # Tags and call sites
//
// Every entry point takes (tag, msg, cause...). An empty tag selects the
// default tag ("Log" unless changed) and prefixes the message with the
// goroutine id and the caller's location:
//
//	logging.Info("", "connected")
//	// tag "Log", msg "<18>[(client.go:42)#(*Client).Dial] connected"
//
// Wrappers that add their own frame capture the call site themselves with
// [Caller] and log through [Logger.LogAt].
//
// # Chunking
//
// A message longer than [MaxChunkLength] characters is written as several
// records, each prefixed "<index><tid>", e.g. "0<18>...", "1<18>...". The
// returned byte count is the sum over all records. [Reassemble] joins the
// chunks back when reading a sink file with [ReadFile].
//
// # Assertions
//
// In debug mode an ASSERT call panics with *[AssertionError] unless a hook
// was registered with [Logger.SetDebugAssertHook]. In release mode the hook
// from [Logger.SetAssertHook], if any, is called and the record is written.
//
// # Testing
//
// Use [Nop] for a logger that discards everything, or [New] with a custom
// [Sink] to capture records.
package logging
