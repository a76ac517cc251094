package event

import "time"

// Event is the interface that all events must implement.
type Event interface {
	// EventType returns the "category.action" identifier of the event.
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Event types published by the capture supervisor.
const (
	TypeCaptureStarted   = "capture.started"
	TypeCaptureStopped   = "capture.stopped"
	TypeCaptureRestarted = "capture.restarted"
	TypeCaptureFailed    = "capture.failed"
)

// baseEvent provides common fields for all events.
// Embed this in concrete event types to satisfy the Event interface.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// CaptureStartedEvent is emitted after the capture tool was spawned and
// observed in the process table.
type CaptureStartedEvent struct {
	baseEvent
	Owner       string   // user owning the capture process
	PID         string   // pid found in the process table
	Destination string   // file the tool writes to
	Argv        []string // command line used
}

// NewCaptureStartedEvent creates a CaptureStartedEvent.
func NewCaptureStartedEvent(owner, pid, destination string, argv []string) CaptureStartedEvent {
	return CaptureStartedEvent{
		baseEvent:   newBaseEvent(TypeCaptureStarted),
		Owner:       owner,
		PID:         pid,
		Destination: destination,
		Argv:        argv,
	}
}

// CaptureStoppedEvent is emitted after a live capture process was signalled.
type CaptureStoppedEvent struct {
	baseEvent
	Owner    string
	PID      string
	ExitCode int // exit status of the kill command
}

// NewCaptureStoppedEvent creates a CaptureStoppedEvent.
func NewCaptureStoppedEvent(owner, pid string, exitCode int) CaptureStoppedEvent {
	return CaptureStoppedEvent{
		baseEvent: newBaseEvent(TypeCaptureStopped),
		Owner:     owner,
		PID:       pid,
		ExitCode:  exitCode,
	}
}

// CaptureRestartedEvent is emitted by the watch loop when it brought the
// capture tool back.
type CaptureRestartedEvent struct {
	baseEvent
	Reason  string // "exited" or "settings changed"
	Success bool
}

// NewCaptureRestartedEvent creates a CaptureRestartedEvent.
func NewCaptureRestartedEvent(reason string, success bool) CaptureRestartedEvent {
	return CaptureRestartedEvent{
		baseEvent: newBaseEvent(TypeCaptureRestarted),
		Reason:    reason,
		Success:   success,
	}
}

// CaptureFailedEvent is emitted when an operation could not reach its goal.
type CaptureFailedEvent struct {
	baseEvent
	Operation string // "start", "stop", ...
	Err       error
}

// NewCaptureFailedEvent creates a CaptureFailedEvent.
func NewCaptureFailedEvent(operation string, err error) CaptureFailedEvent {
	return CaptureFailedEvent{
		baseEvent: newBaseEvent(TypeCaptureFailed),
		Operation: operation,
		Err:       err,
	}
}
