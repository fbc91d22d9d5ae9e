package webhook

import (
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultTTL is how long a processed event ID is remembered, and also
	// the maximum age of a delivery the gate will accept.
	DefaultTTL = 300 * time.Second

	// DefaultCapacity bounds the number of remembered event IDs.
	DefaultCapacity = 1000
)

// Gate decides whether an inbound event should be processed. It remembers
// recently seen event IDs and rejects duplicates, stale deliveries, and
// anything seen within the retention window. All methods are safe for
// concurrent use.
type Gate struct {
	mu       sync.Mutex
	seen     map[string]time.Time
	order    []string
	ttl      time.Duration
	capacity int
	now      func() time.Time
	logger   *slog.Logger
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithTTL overrides the retention window.
func WithTTL(ttl time.Duration) GateOption {
	return func(g *Gate) {
		if ttl > 0 {
			g.ttl = ttl
		}
	}
}

// WithCapacity overrides the maximum number of remembered event IDs.
func WithCapacity(n int) GateOption {
	return func(g *Gate) {
		if n > 0 {
			g.capacity = n
		}
	}
}

// withClock replaces the time source, for tests.
func withClock(now func() time.Time) GateOption {
	return func(g *Gate) { g.now = now }
}

// NewGate returns a Gate with the default TTL and capacity.
func NewGate(logger *slog.Logger, opts ...GateOption) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	g := &Gate{
		seen:     make(map[string]time.Time),
		ttl:      DefaultTTL,
		capacity: DefaultCapacity,
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ShouldProcess reports whether the event identified by id, sent at ts,
// should be handled. It returns false for duplicates within the retention
// window and for deliveries older than the window. The check and the
// record insertion are a single atomic step, so two concurrent calls with
// the same id can never both return true.
func (g *Gate) ShouldProcess(id string, ts time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()

	if now.Sub(ts) > g.ttl {
		g.logger.Debug("dropping stale delivery", "event_id", id, "age", now.Sub(ts))
		return false
	}

	g.expire(now)

	if _, dup := g.seen[id]; dup {
		g.logger.Debug("dropping duplicate delivery", "event_id", id)
		return false
	}

	if len(g.seen) >= g.capacity {
		g.evictOldest()
	}

	g.seen[id] = now
	g.order = append(g.order, id)
	return true
}

// expire removes entries older than the retention window. The order slice
// is insertion-ordered, so expired entries form a prefix.
func (g *Gate) expire(now time.Time) {
	cutoff := now.Add(-g.ttl)
	i := 0
	for ; i < len(g.order); i++ {
		seenAt, ok := g.seen[g.order[i]]
		if ok && seenAt.After(cutoff) {
			break
		}
		delete(g.seen, g.order[i])
	}
	if i > 0 {
		g.order = append(g.order[:0], g.order[i:]...)
	}
}

// evictOldest drops the oldest remembered entry to make room for a new one.
func (g *Gate) evictOldest() {
	for len(g.order) > 0 {
		id := g.order[0]
		g.order = g.order[1:]
		if _, ok := g.seen[id]; ok {
			delete(g.seen, id)
			return
		}
	}
}

// Len reports the number of remembered event IDs.
func (g *Gate) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.seen)
}
