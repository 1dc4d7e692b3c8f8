// Package cache holds the in-process read caches of the API server.
package cache

import (
	"context"
	"strconv"
	"sync"
	"time"

	"fintrack/internal/log"
)

type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	// DeletePrefix drops every key starting with prefix and returns how many
	// were removed.
	DeletePrefix(prefix string) int
	Size() int
}

// Cleaner is implemented by caches that expire entries.
type Cleaner interface {
	CleanExpired() int
}

// Manager periodically sweeps expired entries from registered caches.
type Manager struct {
	caches []Cleaner
	logger *log.Logger
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func NewManager(logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Nop()
	}
	return &Manager{logger: logger.WithComponent(log.ComponentCache)}
}

// Register must be called before StartCleanup.
func (m *Manager) Register(c Cleaner) {
	m.caches = append(m.caches, c)
}

func (m *Manager) StartCleanup(interval time.Duration) {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.done = make(chan struct{})
	go m.cleanup(ctx, interval)
}

func (m *Manager) cleanup(ctx context.Context, interval time.Duration) {
	defer close(m.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			total := 0
			for _, c := range m.caches {
				total += c.CleanExpired()
			}
			if total > 0 {
				m.logger.Debug("Expired cache entries removed", "count", total)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Stop ends the cleanup loop and waits for it. Safe to call more than once.
func (m *Manager) Stop() {
	m.once.Do(func() {
		if m.cancel != nil {
			m.cancel()
			<-m.done
		}
	})
}

// Generations hands out a per-owner version that changes on every write.
// Keys built with Key are never served after the owner's next Bump, even
// when a reader stores a value computed before the write landed.
type Generations struct {
	mu   sync.Mutex
	gens map[string]uint64
}

func NewGenerations() *Generations {
	return &Generations{gens: make(map[string]uint64)}
}

func (g *Generations) Current(owner string) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.gens[owner]
}

func (g *Generations) Bump(owner string) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.gens[owner]++
	return g.gens[owner]
}

// OwnerPrefix is the key prefix shared by every cached value of owner.
func OwnerPrefix(owner string) string {
	return owner + "|"
}

// Key builds a cache key scoped to owner at generation gen.
func Key(owner string, gen uint64, parts ...string) string {
	key := OwnerPrefix(owner) + strconv.FormatUint(gen, 10)
	for _, p := range parts {
		key += "|" + p
	}
	return key
}
