package cache

import (
	"context"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/events"
	"fintrack/internal/log"
)

// Summaries caches ledger summaries per owner and date range. Every write
// that touches an owner's ledger must call Invalidate for that owner. A
// non-positive ttl disables caching.
type Summaries struct {
	enabled bool
	lru     *LRUCache[core.Summary]
	gens    *Generations
	logger  *log.Logger
}

func NewSummaries(size int, ttl time.Duration, logger *log.Logger) *Summaries {
	if logger == nil {
		logger = log.Nop()
	}
	return &Summaries{
		enabled: ttl > 0,
		lru:     NewLRUCache[core.Summary](size, ttl),
		gens:    NewGenerations(),
		logger:  logger.WithComponent(log.ComponentCache),
	}
}

func rangeKey(owner string, gen uint64, r core.DateRange) string {
	return Key(owner, gen, timeKey(r.From), timeKey(r.To))
}

func timeKey(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// Get returns the cached summary or computes and stores it.
func (s *Summaries) Get(ctx context.Context, owner string, r core.DateRange, compute func() (core.Summary, error)) (core.Summary, error) {
	if !s.enabled {
		return compute()
	}
	key := rangeKey(owner, s.gens.Current(owner), r)
	if sum, ok := s.lru.Get(key); ok {
		s.logger.DebugContext(ctx, "Summary cache hit", log.FieldOwnerID, owner)
		return cloneSummary(sum), nil
	}

	sum, err := compute()
	if err != nil {
		return core.Summary{}, err
	}
	s.lru.Set(key, cloneSummary(sum))
	return sum, nil
}

// Invalidate drops every cached summary of owner.
func (s *Summaries) Invalidate(owner string) {
	s.gens.Bump(owner)
	s.lru.DeletePrefix(OwnerPrefix(owner))
}

// Cleaner exposes the underlying cache for periodic expiry sweeps.
func (s *Summaries) Cleaner() Cleaner {
	return s.lru
}

func cloneSummary(sum core.Summary) core.Summary {
	out := sum
	out.ByCategory = append([]core.CategoryAmount(nil), sum.ByCategory...)
	return out
}

// Publisher invalidates the summaries of every owner an event touches and
// then forwards the event. Transfers touch the destination owner too.
func (s *Summaries) Publisher(next events.Publisher) events.Publisher {
	if next == nil {
		next = events.NopPublisher{}
	}
	return &invalidatingPublisher{next: next, summaries: s}
}

type invalidatingPublisher struct {
	next      events.Publisher
	summaries *Summaries
}

func (p *invalidatingPublisher) Publish(ctx context.Context, ev events.Event) error {
	seen := map[string]bool{ev.OwnerID: true}
	p.summaries.Invalidate(ev.OwnerID)
	for _, e := range ev.Entries {
		if !seen[e.OwnerID] {
			seen[e.OwnerID] = true
			p.summaries.Invalidate(e.OwnerID)
		}
	}
	return p.next.Publish(ctx, ev)
}

func (p *invalidatingPublisher) Close() error {
	return p.next.Close()
}
