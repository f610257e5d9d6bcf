package event

import (
	"sync"
	"testing"
)

func TestBusPublishesInRegistrationOrder(t *testing.T) {
	bus := NewBus[int]()
	var got []string
	bus.Subscribe(func(v int) { got = append(got, "first") })
	bus.Subscribe(func(v int) { got = append(got, "second") })
	bus.Subscribe(nil)

	bus.Publish(1)
	bus.Publish(2)

	want := []string{"first", "second", "first", "second"}
	if len(got) != len(want) {
		t.Fatalf("expected %d calls, got %d (%v)", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("call %d: expected %s got %s", i, want[i], got[i])
		}
	}
	if bus.Len() != 2 {
		t.Fatalf("nil listener should be ignored, have %d", bus.Len())
	}
}

func TestBusDoesNotReplay(t *testing.T) {
	bus := NewBus[string]()
	bus.Publish("early")

	called := false
	bus.Subscribe(func(string) { called = true })
	if called {
		t.Fatalf("plain bus must not replay")
	}
}

func TestLatchReplaysOnce(t *testing.T) {
	bus := NewLatch[string]()
	var early []string
	bus.Subscribe(func(v string) { early = append(early, v) })

	bus.Publish("exit")
	bus.Publish("ignored")

	var late []string
	bus.Subscribe(func(v string) { late = append(late, v) })

	if len(early) != 1 || early[0] != "exit" {
		t.Fatalf("unexpected early deliveries: %v", early)
	}
	if len(late) != 1 || late[0] != "exit" {
		t.Fatalf("unexpected late deliveries: %v", late)
	}
}

func TestLatchConcurrentSubscribeSeesValueOnce(t *testing.T) {
	for i := 0; i < 50; i++ {
		bus := NewLatch[int]()
		var mu sync.Mutex
		count := 0

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			bus.Subscribe(func(int) {
				mu.Lock()
				count++
				mu.Unlock()
			})
		}()
		go func() {
			defer wg.Done()
			bus.Publish(7)
		}()
		wg.Wait()

		if count != 1 {
			t.Fatalf("iteration %d: expected exactly one delivery, got %d", i, count)
		}
	}
}
