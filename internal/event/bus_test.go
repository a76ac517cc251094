package event

import (
	"sync"
	"testing"

	"github.com/Iron-Ham/caplog/internal/errors"
	"github.com/Iron-Ham/caplog/internal/logging"
)

func TestBus_PublishToSubscribers(t *testing.T) {
	bus := NewBus(logging.Nop())

	var got CaptureStartedEvent
	id := bus.Subscribe(TypeCaptureStarted, func(e Event) {
		got = e.(CaptureStartedEvent)
	})
	if id == "" {
		t.Error("Subscribe should return a non-empty ID")
	}

	bus.Publish(NewCaptureStartedEvent("u0_a12", "4242", "/sdcard/log.txt", []string{"logcat"}))

	if got.PID != "4242" || got.Owner != "u0_a12" {
		t.Errorf("handler received %+v", got)
	}
	if got.Timestamp().IsZero() {
		t.Error("event has no timestamp")
	}
}

func TestBus_OnlyMatchingTypes(t *testing.T) {
	bus := NewBus(logging.Nop())
	bus.Subscribe(TypeCaptureStopped, func(Event) {
		t.Error("stopped handler called for a started event")
	})
	bus.Publish(NewCaptureStartedEvent("u", "1", "/d", nil))
}

func TestBus_SpecificBeforeWildcard(t *testing.T) {
	bus := NewBus(logging.Nop())

	var order []string
	bus.SubscribeAll(func(e Event) { order = append(order, "all:"+e.EventType()) })
	bus.Subscribe(TypeCaptureFailed, func(e Event) { order = append(order, "failed") })

	bus.Publish(NewCaptureFailedEvent("start", errors.New("spawn failed")))
	bus.Publish(NewCaptureRestartedEvent("exited", true))

	want := []string{"failed", "all:capture.failed", "all:capture.restarted"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %q, want %q", i, order[i], want[i])
		}
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus(logging.Nop())

	calls := map[string]int{}
	first := bus.Subscribe(TypeCaptureStopped, func(Event) { calls["first"]++ })
	bus.Subscribe(TypeCaptureStopped, func(Event) { calls["second"]++ })

	if !bus.Unsubscribe(first) {
		t.Error("Unsubscribe should report an existing subscription")
	}
	if bus.Unsubscribe(first) {
		t.Error("Unsubscribe twice should report false")
	}

	bus.Publish(NewCaptureStoppedEvent("u", "7", 0))
	if calls["first"] != 0 || calls["second"] != 1 {
		t.Errorf("calls = %v", calls)
	}
	if bus.SubscriptionCount() != 1 {
		t.Errorf("SubscriptionCount() = %d, want 1", bus.SubscriptionCount())
	}
}

func TestBus_Clear(t *testing.T) {
	bus := NewBus(logging.Nop())
	bus.Subscribe(TypeCaptureStarted, func(Event) {})
	bus.SubscribeAll(func(Event) {})

	bus.Clear()

	if bus.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() = %d after Clear", bus.SubscriptionCount())
	}
}

func TestBus_HandlerPanicRecovery(t *testing.T) {
	sink := &countingSink{}
	bus := NewBus(logging.New(sink, logging.WithLevel(logging.LevelTrace)))

	calls := 0
	bus.Subscribe(TypeCaptureStarted, func(Event) {
		calls++
		panic("handler panic")
	})
	bus.Subscribe(TypeCaptureStarted, func(Event) { calls++ })

	bus.Publish(NewCaptureStartedEvent("u", "1", "/d", nil))

	if calls != 2 {
		t.Errorf("expected both handlers to run, got %d calls", calls)
	}
	if sink.errors == 0 {
		t.Error("panic was not logged")
	}
}

func TestBus_NilPublishIsNoop(t *testing.T) {
	var bus *Bus
	bus.Publish(NewCaptureRestartedEvent("settings changed", false))
}

func TestBus_Concurrent(t *testing.T) {
	bus := NewBus(logging.Nop())

	var mu sync.Mutex
	calls := 0
	bus.Subscribe(TypeCaptureRestarted, func(Event) {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for range 100 {
		wg.Go(func() {
			bus.Publish(NewCaptureRestartedEvent("exited", true))
			id := bus.Subscribe("other", func(Event) {})
			bus.Unsubscribe(id)
		})
	}
	wg.Wait()

	if calls != 100 {
		t.Errorf("expected 100 calls, got %d", calls)
	}
	if bus.SubscriptionCount() != 1 {
		t.Errorf("SubscriptionCount() = %d, want 1", bus.SubscriptionCount())
	}
}

func TestBus_UniqueIDs(t *testing.T) {
	bus := NewBus(logging.Nop())
	ids := make(map[string]bool)
	for range 100 {
		id := bus.Subscribe(TypeCaptureStarted, func(Event) {})
		if ids[id] {
			t.Errorf("duplicate subscription ID %s", id)
		}
		ids[id] = true
	}
}

type countingSink struct {
	mu     sync.Mutex
	errors int
}

func (s *countingSink) Write(level logging.Level, _, _ string, _ error) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if level == logging.LevelError {
		s.errors++
	}
	return 1
}
