package webhook

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/realtyai/concierge/internal/log"
)

func TestGateAtMostOnce(t *testing.T) {
	t.Parallel()

	g := NewGate(log.NewNop())
	now := time.Now()

	if !g.ShouldProcess("wamid.1", now) {
		t.Fatal("first delivery should be processed")
	}
	if g.ShouldProcess("wamid.1", now) {
		t.Error("retried delivery should be dropped")
	}
	if !g.ShouldProcess("wamid.2", now) {
		t.Error("distinct event should be processed")
	}
}

func TestGateStaleDelivery(t *testing.T) {
	t.Parallel()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	g := NewGate(log.NewNop(), withClock(func() time.Time { return base }))

	tests := []struct {
		name string
		ts   time.Time
		want bool
	}{
		{"fresh", base.Add(-10 * time.Second), true},
		{"exactly at window edge", base.Add(-DefaultTTL), true},
		{"just past window", base.Add(-DefaultTTL - time.Second), false},
		{"hours old", base.Add(-2 * time.Hour), false},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := fmt.Sprintf("wamid.stale-%d", i)
			if got := g.ShouldProcess(id, tt.ts); got != tt.want {
				t.Errorf("ShouldProcess(ts=%v) = %v, want %v", tt.ts, got, tt.want)
			}
		})
	}
}

func TestGateExpiryAllowsReprocessing(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	g := NewGate(log.NewNop(), withClock(clock))

	if !g.ShouldProcess("wamid.exp", now) {
		t.Fatal("first delivery should be processed")
	}

	// Advance past the retention window; the remembered entry expires but
	// a redelivery that old is rejected as stale anyway.
	sent := now
	now = now.Add(DefaultTTL + time.Minute)
	if g.ShouldProcess("wamid.exp", sent) {
		t.Error("redelivery past the window should be stale")
	}
	if got := g.Len(); got != 0 {
		t.Errorf("expired entries should be pruned, len = %d", got)
	}
}

func TestGateCapacityEvictsOldest(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	g := NewGate(log.NewNop(), WithCapacity(3), withClock(func() time.Time { return now }))

	for i := range 3 {
		if !g.ShouldProcess(fmt.Sprintf("wamid.%d", i), now) {
			t.Fatalf("delivery %d should be processed", i)
		}
	}

	// Fourth entry evicts wamid.0, the oldest.
	if !g.ShouldProcess("wamid.3", now) {
		t.Fatal("delivery at capacity should still be processed")
	}
	if got := g.Len(); got != 3 {
		t.Errorf("len = %d, want 3", got)
	}
	if !g.ShouldProcess("wamid.0", now) {
		t.Error("evicted event should be processable again")
	}
	if g.ShouldProcess("wamid.2", now) {
		t.Error("retained event should still be deduplicated")
	}
}

func TestGateConcurrentSameID(t *testing.T) {
	t.Parallel()

	g := NewGate(log.NewNop())
	now := time.Now()

	const workers = 16
	var wg sync.WaitGroup
	accepted := make(chan struct{}, workers)

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if g.ShouldProcess("wamid.race", now) {
				accepted <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(accepted)

	n := 0
	for range accepted {
		n++
	}
	if n != 1 {
		t.Errorf("%d goroutines accepted the same event, want exactly 1", n)
	}
}
