package events

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSubscribeAndPublish(t *testing.T) {
	b := NewBus(testLogger())

	var got []Event
	b.Subscribe(WorkerStarted, func(e Event) {
		got = append(got, e)
	})

	b.Publish(Event{Type: WorkerStarted, Data: map[string]string{"module": "battery"}})

	if len(got) != 1 {
		t.Fatalf("handler called %d times, want 1", len(got))
	}
	if got[0].Data["module"] != "battery" {
		t.Errorf("module = %q, want battery", got[0].Data["module"])
	}
	if got[0].Timestamp.IsZero() {
		t.Error("timestamp should be filled in")
	}
}

func TestPublishToOtherTypeIgnored(t *testing.T) {
	b := NewBus(testLogger())

	called := false
	b.Subscribe(WorkerStarted, func(Event) { called = true })

	b.Publish(Event{Type: WorkerStopped})

	if called {
		t.Fatal("handler for WorkerStarted called for WorkerStopped")
	}
}

func TestPanickingHandlerDoesNotStopOthers(t *testing.T) {
	b := NewBus(testLogger())

	b.Subscribe(ModuleFault, func(Event) { panic("boom") })

	called := false
	b.Subscribe(ModuleFault, func(Event) { called = true })

	b.Publish(Event{Type: ModuleFault})

	if !called {
		t.Fatal("second handler skipped after first panicked")
	}
}

func TestConcurrentPublish(t *testing.T) {
	b := NewBus(testLogger())

	var mu sync.Mutex
	count := 0
	b.Subscribe(UeventReceived, func(Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				b.Publish(Event{Type: UeventReceived})
			}
		}()
	}
	wg.Wait()

	if count != 1000 {
		t.Fatalf("count = %d, want 1000", count)
	}
}

func TestSubscriberCount(t *testing.T) {
	b := NewBus(testLogger())

	if n := b.SubscriberCount(Tick); n != 0 {
		t.Fatalf("count = %d, want 0", n)
	}
	b.Subscribe(Tick, func(Event) {})
	b.Subscribe(Tick, func(Event) {})
	if n := b.SubscriberCount(Tick); n != 2 {
		t.Fatalf("count = %d, want 2", n)
	}
}

func TestTickerStop(t *testing.T) {
	b := NewBus(testLogger())
	ticker := NewTicker(b)

	done := make(chan struct{})
	go func() {
		ticker.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("ticker did not stop")
	}
}
