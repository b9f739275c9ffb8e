// Package cached wraps a ledger with a read-through cache of range queries.
// Appends through the wrapper invalidate the written users; writes made by
// other processes become visible once the TTL lapses.
package cached

import (
	"context"
	"slices"
	"sync"
	"time"

	"dompet/internal/cache"
	"dompet/internal/core"
	"dompet/internal/ledger"
)

type Ledger struct {
	next  ledger.Ledger
	cache *cache.LRUCache[[]core.Transaction]

	// generations counts appends per user. A read only fills the cache when
	// no append for its user started while it was reading.
	mu          sync.Mutex
	generations map[string]uint64
}

func New(next ledger.Ledger, size int, ttl time.Duration) *Ledger {
	return &Ledger{
		next:        next,
		cache:       cache.NewLRUCache[[]core.Transaction](size, ttl),
		generations: make(map[string]uint64),
	}
}

func (l *Ledger) Append(ctx context.Context, txs ...core.Transaction) error {
	users := make(map[string]struct{}, 1)
	for _, t := range txs {
		users[t.UserID] = struct{}{}
	}

	l.bump(users)
	err := l.next.Append(ctx, txs...)
	// bump again so reads that started mid-append are not cached, and
	// invalidate even on error: a failed batch may be partially stored
	l.bump(users)
	for user := range users {
		l.cache.DeletePrefix(userPrefix(user))
	}
	return err
}

func (l *Ledger) TransactionsFor(ctx context.Context, userID string, start, end *core.Date) ([]core.Transaction, error) {
	key := cacheKey(userID, start, end)
	if txs, ok := l.cache.Get(key); ok {
		return slices.Clone(txs), nil
	}

	gen := l.generation(userID)
	txs, err := l.next.TransactionsFor(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	if l.generations[userID] == gen {
		l.cache.Set(key, slices.Clone(txs))
	}
	l.mu.Unlock()
	return txs, nil
}

// Stats exposes the cache hit and miss counts.
func (l *Ledger) Stats() (hits, misses int64) {
	return l.cache.Stats()
}

// Entries returns the number of live cached ranges.
func (l *Ledger) Entries() int {
	l.cache.CleanExpired()
	return l.cache.Size()
}

func (l *Ledger) generation(userID string) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.generations[userID]
}

func (l *Ledger) bump(users map[string]struct{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for user := range users {
		l.generations[user]++
	}
}

func userPrefix(userID string) string {
	return userID + "\x00"
}

func cacheKey(userID string, start, end *core.Date) string {
	return userPrefix(userID) + bound(start) + "\x00" + bound(end)
}

func bound(d *core.Date) string {
	if d == nil {
		return "*"
	}
	return d.String()
}
