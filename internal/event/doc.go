// Package event provides a synchronous pub-sub bus carrying capture
// lifecycle events.
//
// The capture supervisor publishes an event each time it starts, stops,
// restarts or fails to start the capture tool; the CLI subscribes to report
// them while watching.
//
// # Event Types
//
//   - capture.started: [CaptureStartedEvent]
//   - capture.stopped: [CaptureStoppedEvent]
//   - capture.restarted: [CaptureRestartedEvent]
//   - capture.failed: [CaptureFailedEvent]
//
// # Thread Safety
//
// [Bus] is safe for concurrent use. Handlers run synchronously on the
// publishing goroutine; a panicking handler is recovered and logged and does
// not prevent delivery to the others.
//
// # Basic Usage
//
//	bus := event.NewBus()
//	bus.Subscribe(event.TypeCaptureStarted, func(e event.Event) {
//	    started := e.(event.CaptureStartedEvent)
//	    fmt.Println("capture running as pid", started.PID)
//	})
//	bus.SubscribeAll(func(e event.Event) { ... })
package event
