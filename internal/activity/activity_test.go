package activity

import (
	"sync"
	"testing"
)

func TestFeedReceivesPublished(t *testing.T) {
	bus := NewBus()
	defer bus.Close()
	feed := NewFeed(100)
	bus.Subscribe(feed)

	bus.Publish(KindEventAppended, "event 0 appended", map[string]any{"id": 0})
	bus.Publish(KindConcernRaised, "concern raised", nil)
	bus.Wait()

	got := feed.Recent(0)
	if len(got) != 2 {
		t.Fatalf("feed has %d entries, want 2", len(got))
	}
	// Newest first.
	if got[0].Kind != KindConcernRaised || got[1].Kind != KindEventAppended {
		t.Fatalf("entries = %v", got)
	}
	if got[0].Timestamp.IsZero() {
		t.Error("entry not timestamped")
	}
}

func TestFeedRingBuffer(t *testing.T) {
	bus := NewBus()
	defer bus.Close()
	feed := NewFeed(3)
	bus.Subscribe(feed)

	for i := 0; i < 10; i++ {
		bus.Publish(KindEventAppended, "entry", map[string]any{"i": i})
	}
	bus.Wait()

	got := feed.Recent(0)
	if len(got) != 3 {
		t.Fatalf("feed has %d entries, want 3", len(got))
	}
	if got[0].Details["i"] != 9 || got[2].Details["i"] != 7 {
		t.Fatalf("entries = %v, want the 3 newest", got)
	}
	if limited := feed.Recent(2); len(limited) != 2 {
		t.Fatalf("Recent(2) = %d entries", len(limited))
	}
}

func TestMultipleSubscribers(t *testing.T) {
	bus := NewBus()
	defer bus.Close()
	a := NewFeed(10)
	b := NewFeed(10)
	bus.Subscribe(a)
	bus.Subscribe(b)
	bus.Subscribe(a) // duplicate is a no-op

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bus.Publish(KindMirrorsSynced, "sync", nil)
		}()
	}
	wg.Wait()
	bus.Wait()

	if na, nb := len(a.Recent(0)), len(b.Recent(0)); na != 5 || nb != 5 {
		t.Fatalf("subscriber counts = %d, %d, want 5 each", na, nb)
	}
}

func TestClear(t *testing.T) {
	bus := NewBus()
	defer bus.Close()
	feed := NewFeed(10)
	bus.Subscribe(feed)

	bus.Publish(KindEventTampered, "tampered", nil)
	bus.Wait()
	feed.Clear()
	if got := feed.Recent(0); len(got) != 0 {
		t.Fatalf("feed after clear = %v, want empty", got)
	}
}
